package websocket

import (
	"context"
	"sync"
	"time"

	"robot_go/internal/events"
	"robot_go/internal/models"
	"robot_go/pkg/logger"
)

// StateProvider fornece o último estado conhecido do braço para novos clientes
type StateProvider interface {
	LastPosition() *models.Position
	LastStatus() models.Status
	ConnectionState() models.ConnectionState
}

// Hub gerencia todas as conexões WebSocket e distribuição de mensagens.
// Implementa events.Listener.
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Canal para mensagens de broadcast
	broadcast chan []byte

	// Comandos recebidos dos clientes
	commands chan models.ClientCommand

	mu sync.RWMutex

	provider StateProvider

	// Estatísticas
	stats struct {
		totalMessages      int64
		droppedMessages    int64
		totalClients       int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub cria uma nova instância do Hub
func NewHub(provider StateProvider) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		commands:   make(chan models.ClientCommand, 100),
		provider:   provider,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.stats.lastStatsReset = time.Now()
	return h
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	defer close(h.done)
	logger.Info("Iniciando WebSocket Hub")

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			logger.Info("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			logger.Infof("Novo cliente WebSocket conectado. ID: %s. Total: %d", client.id, clientCount)

			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			h.sendInitialDataToClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			h.statsLock.Unlock()

			h.mu.RLock()
			var deadClients []*Client
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// buffer do cliente cheio
					deadClients = append(deadClients, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range deadClients {
				h.removeClient(client)
			}

		case cmd := <-h.commands:
			h.handleClientCommand(cmd)

		case <-statsTicker.C:
			h.logStats()
		}
	}
}

// Notify recebe eventos do serviço do braço. Nunca bloqueia o publicador:
// se o buffer de broadcast estiver cheio a mensagem é descartada.
func (h *Hub) Notify(ev events.Event) {
	msg := EventMessage(ev)
	if msg == nil {
		return
	}

	data, err := SerializeMessage(msg)
	if err != nil {
		logger.Error("Erro ao serializar evento para WebSocket", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.statsLock.Lock()
		h.stats.droppedMessages++
		h.statsLock.Unlock()
		logger.Warnf("Buffer de broadcast WebSocket cheio, descartando %s", ev.Kind())
	}
}

// handleClientCommand processa comandos recebidos dos clientes
func (h *Hub) handleClientCommand(cmd models.ClientCommand) {
	logger.Debugf("Comando recebido do cliente %s: %s", cmd.ClientID, cmd.Command)

	client := h.getClientByID(cmd.ClientID)
	if client == nil {
		return
	}

	switch cmd.Command {
	case "get_status":
		h.sendSnapshot(client)
	case "ping":
		var pingTime int64
		if params, ok := cmd.Params.(map[string]interface{}); ok {
			if timeVal, ok := params["time"].(float64); ok {
				pingTime = int64(timeVal)
			}
		}
		client.sendMessage(CreatePongResponse(pingTime))
	case "invalid_format":
		client.sendMessage(NewErrorMessage("Formato de mensagem inválido", "invalid_format"))
	default:
		logger.Warnf("Comando desconhecido: %s", cmd.Command)
		client.sendMessage(NewErrorMessage("Comando desconhecido: "+cmd.Command, "unknown_command"))
	}
}

// sendInitialDataToClient envia boas-vindas e o último estado conhecido
func (h *Hub) sendInitialDataToClient(client *Client) {
	welcome := models.WebSocketMessage{
		Type:      TypeWelcome,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message":  "Conectado ao monitor do braço robótico",
			"clientId": client.id,
		},
	}
	client.sendMessage(welcome)
	h.sendSnapshot(client)
}

// sendSnapshot envia estado de conexão, status e posição atuais a um cliente
func (h *Hub) sendSnapshot(client *Client) {
	if h.provider == nil {
		return
	}

	state := h.provider.ConnectionState()
	client.sendMessage(NewConnectionStateMessage(state, state))
	client.sendMessage(NewStatusMessage(h.provider.LastStatus()))
	if pos := h.provider.LastPosition(); pos != nil {
		client.sendMessage(NewPositionMessage(*pos))
	}
}

// Shutdown encerra o hub e espera o loop terminar
func (h *Hub) Shutdown() {
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		logger.Infof("Cliente WebSocket desconectado. ID: %s. Total: %d", client.id, len(h.clients))
	}
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("Fechando todas as conexões de clientes WebSocket")
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) logStats() {
	h.statsLock.Lock()
	elapsed := time.Since(h.stats.lastStatsReset).Seconds()
	if elapsed > 0 {
		h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
	}
	h.stats.messagesSinceReset = 0
	h.stats.lastStatsReset = time.Now()
	mps := h.stats.messagesPerSecond
	total := h.stats.totalMessages
	dropped := h.stats.droppedMessages
	h.statsLock.Unlock()

	logger.Infof("Estatísticas WebSocket: %d clientes, %.2f msgs/seg, total: %d mensagens, %d descartadas",
		h.ClientCount(), mps, total, dropped)
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// getClientByID retorna um cliente pelo seu ID
func (h *Hub) getClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.id == clientID {
			return client
		}
	}
	return nil
}
