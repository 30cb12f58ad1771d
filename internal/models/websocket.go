package models

import "time"

// WebSocketMessage representa a estrutura base de todas as mensagens WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`            // Tipo da mensagem: "position", "status", "connection_state", etc.
	Timestamp time.Time   `json:"timestamp"`       // Timestamp da mensagem
	Data      interface{} `json:"data,omitempty"`  // Dados adicionais específicos do tipo
	Error     string      `json:"error,omitempty"` // Mensagem de erro, se houver
}

// PositionMessage é a mensagem enviada a cada nova posição lida do braço
type PositionMessage struct {
	WebSocketMessage
	Position Position `json:"position"`
}

// StatusMessage é a mensagem enviada a cada atualização de status
type StatusMessage struct {
	WebSocketMessage
	Status Status `json:"status"`
}

// ConnectionStateMessage é enviada quando a conexão com o hardware muda de estado
type ConnectionStateMessage struct {
	WebSocketMessage
	State    ConnectionState `json:"state"`
	Previous ConnectionState `json:"previous"`
}

// CommandMessage é uma mensagem de comando do cliente para o servidor
type CommandMessage struct {
	Type   string      `json:"type"`             // Tipo de comando: "ping", "get_status", ...
	Params interface{} `json:"params,omitempty"` // Parâmetros adicionais
	ID     string      `json:"id,omitempty"`     // ID opcional para correlacionar solicitações/respostas
}

// ClientCommand representa um comando enviado pelo cliente
type ClientCommand struct {
	Command  string      `json:"command"`
	Params   interface{} `json:"params,omitempty"`
	ClientID string      `json:"-"`
}

// PingMessage representa um ping
type PingMessage struct {
	WebSocketMessage
	Time int64 `json:"time"` // Timestamp em milissegundos
}

// PongMessage representa um pong enviado pelo servidor
type PongMessage struct {
	WebSocketMessage
	Time       int64 `json:"time"`       // Timestamp original do ping
	ServerTime int64 `json:"serverTime"` // Timestamp do servidor em milissegundos
}
