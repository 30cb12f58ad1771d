package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"robot_go/internal/models"
	"robot_go/internal/protocol"
	"robot_go/internal/redis"
	"robot_go/internal/robot"
	"robot_go/pkg/logger"
)

// ValidationError indica um pedido rejeitado antes de chegar ao equipamento
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RelativeMove é o corpo de POST /move-relative
type RelativeMove struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	DZ float64 `json:"dz"`
}

// Handler contém os handlers HTTP para a API
type Handler struct {
	robotService   *robot.Service
	redisService   *redis.Service
	envelope       models.WorkEnvelope
	commandTimeout time.Duration
	connectTimeout time.Duration
}

// NewHandler cria um novo handler de API. redisService pode ser nil.
func NewHandler(robotService *robot.Service, redisService *redis.Service, envelope models.WorkEnvelope, commandTimeout, connectTimeout time.Duration) *Handler {
	return &Handler{
		robotService:   robotService,
		redisService:   redisService,
		envelope:       envelope,
		commandTimeout: commandTimeout + time.Second,
		connectTimeout: connectTimeout + time.Second,
	}
}

// GetStatus retorna o status atual. Sem conexão responde com o último status conhecido.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	state := h.robotService.ConnectionState()

	status := h.robotService.LastStatus()
	if state == models.ConnConnected {
		ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
		defer cancel()

		fresh, err := h.robotService.GetStatus(ctx)
		if err == nil {
			status = fresh
		} else {
			logger.Debugf("Status em cache devido a erro: %v", err)
			status = h.robotService.LastStatus()
		}
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":          status,
		"connectionState": h.robotService.ConnectionState(),
	})
}

// GetPosition retorna a posição atual do braço
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	if h.robotService.ConnectionState() != models.ConnConnected {
		if last := h.robotService.LastPosition(); last != nil {
			h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
				"position": last,
				"cached":   true,
			})
			return
		}
		h.respondWithError(w, &robot.ConnectionError{Op: "send", Command: protocol.CmdGetPos, Err: robot.ErrNotConnected})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()

	pos, err := h.robotService.GetCurrentPosition(ctx)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"position": pos,
		"cached":   false,
	})
}

// GetEnvelope retorna o envelope de trabalho configurado
func (h *Handler) GetEnvelope(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.envelope)
}

// GetConnection retorna o estado da conexão e do supervisor de reconexão
func (h *Handler) GetConnection(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"state":             h.robotService.ConnectionState(),
		"reconnectAttempts": h.robotService.ReconnectAttempts(),
	})
}

// Connect inicia a conexão manual
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.connectTimeout)
	defer cancel()

	if !h.robotService.Connect(ctx) {
		h.respondWithError(w, &robot.ConnectionError{Op: "connect", Err: robot.ErrConnectionFailed})
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"connected": true,
		"state":     h.robotService.ConnectionState(),
	})
}

// Disconnect encerra a conexão
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.robotService.Disconnect()
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"connected": false,
		"state":     h.robotService.ConnectionState(),
	})
}

// Move envia o braço para uma posição absoluta dentro do envelope
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var target models.Position
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		h.respondWithError(w, &ValidationError{Message: "corpo JSON inválido"})
		return
	}

	if !h.envelope.Contains(target) {
		h.respondWithError(w, &ValidationError{Field: "position", Message: "fora do envelope de trabalho"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()

	accepted, err := h.robotService.MoveToPosition(ctx, target)
	h.respondCommand(w, accepted, err)
}

// MoveRelative desloca o braço. Com posição conhecida, o destino é validado no envelope.
func (h *Handler) MoveRelative(w http.ResponseWriter, r *http.Request) {
	var delta RelativeMove
	if err := json.NewDecoder(r.Body).Decode(&delta); err != nil {
		h.respondWithError(w, &ValidationError{Message: "corpo JSON inválido"})
		return
	}

	if last := h.robotService.LastPosition(); last != nil {
		if !h.envelope.Contains(last.Offset(delta.DX, delta.DY, delta.DZ)) {
			h.respondWithError(w, &ValidationError{Field: "delta", Message: "destino fora do envelope de trabalho"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()

	accepted, err := h.robotService.MoveRelative(ctx, delta.DX, delta.DY, delta.DZ)
	h.respondCommand(w, accepted, err)
}

// Home envia o braço para a posição inicial
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()

	accepted, err := h.robotService.Home(ctx)
	h.respondCommand(w, accepted, err)
}

// Stop aciona a parada de emergência
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()

	h.respondCommand(w, h.robotService.EmergencyStop(ctx), nil)
}

// Reset limpa o estado de erro
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()

	h.respondCommand(w, h.robotService.ResetError(ctx), nil)
}

// GetCache retorna a última posição e o último status gravados no Redis
func (h *Handler) GetCache(w http.ResponseWriter, r *http.Request) {
	if h.redisService == nil || !h.redisService.IsConnected() {
		h.respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Redis indisponível"})
		return
	}

	pos, err := h.redisService.LastPosition(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	status, err := h.redisService.LastStatus(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"position": pos,
		"status":   status,
	})
}

// respondCommand responde a comandos de movimento e controle. Rejeição do
// equipamento vira 409 com accepted=false.
func (h *Handler) respondCommand(w http.ResponseWriter, accepted bool, err error) {
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	code := http.StatusOK
	if !accepted {
		code = http.StatusConflict
	}
	h.respondWithJSON(w, code, map[string]interface{}{
		"accepted": accepted,
		"state":    h.robotService.LastStatus().State,
	})
}

// statusCode mapeia erros de domínio para códigos HTTP
func statusCode(err error) int {
	var validation *ValidationError
	var device *robot.DeviceError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case robot.IsConnectionError(err):
		return http.StatusServiceUnavailable
	case protocol.IsProtocolError(err), errors.As(err, &device):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError responde com erro em formato JSON
func (h *Handler) respondWithError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		logger.Warnf("Requisição falhou (%d): %v", code, err)
	}
	h.respondWithJSON(w, code, map[string]string{"error": err.Error()})
}

// respondWithJSON responde com JSON
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
		fmt.Fprintf(w, `{"error":"Erro interno ao processar resposta"}`)
	}
}
