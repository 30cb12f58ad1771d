package websocket

import (
	"encoding/json"
	"time"

	"robot_go/internal/events"
	"robot_go/internal/models"
)

// Tipos de mensagem enviados aos clientes
const (
	TypePosition        = "position"
	TypeStatus          = "status"
	TypeConnectionState = "connection_state"
	TypeWelcome         = "welcome"
	TypeError           = "error"
	TypePing            = "ping"
	TypePong            = "pong"
)

// NewPositionMessage cria uma nova mensagem de posição
func NewPositionMessage(p models.Position) *models.PositionMessage {
	return &models.PositionMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypePosition,
			Timestamp: time.Now(),
		},
		Position: p,
	}
}

// NewStatusMessage cria uma nova mensagem de status
func NewStatusMessage(s models.Status) *models.StatusMessage {
	return &models.StatusMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypeStatus,
			Timestamp: time.Now(),
		},
		Status: s,
	}
}

// NewConnectionStateMessage cria uma mensagem de transição de conexão
func NewConnectionStateMessage(previous, current models.ConnectionState) *models.ConnectionStateMessage {
	return &models.ConnectionStateMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypeConnectionState,
			Timestamp: time.Now(),
		},
		State:    current,
		Previous: previous,
	}
}

// NewErrorMessage cria uma nova mensagem de erro
func NewErrorMessage(message string, errorCode string) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type:      TypeError,
		Timestamp: time.Now(),
		Error:     message,
		Data: map[string]string{
			"code": errorCode,
		},
	}
}

// CreatePongResponse cria uma resposta para um ping do cliente
func CreatePongResponse(pingTime int64) *models.PongMessage {
	return &models.PongMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypePong,
			Timestamp: time.Now(),
		},
		Time:       pingTime,
		ServerTime: time.Now().UnixMilli(),
	}
}

// EventMessage converte um evento do barramento na mensagem correspondente.
// Retorna nil para eventos sem representação.
func EventMessage(ev events.Event) interface{} {
	switch e := ev.(type) {
	case events.PositionChanged:
		return NewPositionMessage(e.Position)
	case events.StatusChanged:
		return NewStatusMessage(e.Status)
	case events.ConnectionStateChanged:
		return NewConnectionStateMessage(e.Previous, e.Current)
	default:
		return nil
	}
}

// SerializeMessage serializa uma mensagem para JSON
func SerializeMessage(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}
