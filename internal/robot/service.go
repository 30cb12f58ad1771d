package robot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"robot_go/internal/config"
	"robot_go/internal/events"
	"robot_go/internal/models"
	"robot_go/internal/protocol"
	"robot_go/pkg/logger"
)

// Sleeper espera d ou até o contexto ser cancelado
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configura o Service
type Option func(*Service)

// WithTransport substitui o cliente TCP padrão
func WithTransport(t Transport) Option {
	return func(s *Service) { s.transport = t }
}

// WithEventBus define o barramento onde os eventos são publicados
func WithEventBus(bus *events.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithSleeper substitui a espera entre tentativas de reconexão
func WithSleeper(sleep Sleeper) Option {
	return func(s *Service) { s.sleep = sleep }
}

// Service é a fachada de alto nível do braço robótico.
// Comandos comuns passam por um gate de um único slot; parada de emergência e
// reset não passam pelo gate.
type Service struct {
	config    config.RobotConfig
	transport Transport
	bus       *events.Bus
	sleep     Sleeper
	gate      chan struct{}

	// transitionMu ordena as publicações de estado na mesma ordem das transições
	transitionMu sync.Mutex

	mutex        sync.RWMutex
	state        models.ConnectionState
	lastPosition *models.Position
	lastStatus   models.Status

	// supervisor de reconexão, protegido por mutex
	reconnectCancel   context.CancelFunc
	reconnectDone     chan struct{}
	reconnectAttempts int
}

// NewService cria o serviço do braço a partir da configuração
func NewService(cfg config.RobotConfig, opts ...Option) *Service {
	s := &Service{
		config:     cfg,
		sleep:      sleepContext,
		gate:       make(chan struct{}, 1),
		state:      models.ConnDisconnected,
		lastStatus: models.DisconnectedStatus(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transport == nil {
		s.transport = NewRobotClient(cfg.Host, cfg.Port, cfg.ConnectTimeout(), cfg.CommandTimeout())
	}
	if s.bus == nil {
		s.bus = events.NewBus()
	}
	return s
}

// Events retorna o barramento de eventos do serviço
func (s *Service) Events() *events.Bus {
	return s.bus
}

// ConnectionState retorna o estado atual da conexão
func (s *Service) ConnectionState() models.ConnectionState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// ReconnectAttempts retorna o número de tentativas do ciclo de reconexão atual
func (s *Service) ReconnectAttempts() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.reconnectAttempts
}

// LastPosition retorna a última posição decodificada, ou nil
func (s *Service) LastPosition() *models.Position {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastPosition == nil {
		return nil
	}
	p := *s.lastPosition
	return &p
}

// LastStatus retorna o último status conhecido
func (s *Service) LastStatus() models.Status {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	status := s.lastStatus
	if s.state != models.ConnConnected {
		status.IsConnected = false
	}
	return status
}

// Connect conecta ao braço. Retorna false em caso de falha, sem lançar erro.
func (s *Service) Connect(ctx context.Context) bool {
	if s.ConnectionState() == models.ConnConnected && s.transport.IsConnected() {
		return true
	}

	s.stopReconnect()

	logger.Infof("Conectando ao braço em %s", s.config.Address())
	s.setState(models.ConnConnecting)

	if err := s.transport.Connect(ctx); err != nil {
		logger.Warnf("Falha ao conectar ao braço: %v", err)
		s.setState(models.ConnDisconnected)
		return false
	}

	s.onConnected()
	return true
}

// Disconnect cancela qualquer reconexão em andamento e fecha a conexão
func (s *Service) Disconnect() {
	s.stopReconnect()
	s.transport.Disconnect()
	s.setState(models.ConnDisconnected)

	status := models.DisconnectedStatus()
	s.storeStatus(status)
	s.bus.Publish(events.StatusChanged{Status: status})
	logger.Info("Desconectado do braço")
}

// GetCurrentPosition consulta a pose atual do braço
func (s *Service) GetCurrentPosition(ctx context.Context) (models.Position, error) {
	resp, err := s.execGated(ctx, protocol.CmdGetPos)
	if err != nil {
		return models.Position{}, err
	}
	if !resp.OK {
		return models.Position{}, &DeviceError{Command: protocol.CmdGetPos, Message: resp.Message}
	}

	pos, err := protocol.DecodePosition(resp.Payload)
	if err != nil {
		logger.Warnf("Resposta de posição inválida: %v", err)
		return models.Position{}, err
	}

	s.storePosition(pos)
	s.bus.Publish(events.PositionChanged{Position: pos})
	return pos, nil
}

// GetStatus consulta o status atual do braço
func (s *Service) GetStatus(ctx context.Context) (models.Status, error) {
	resp, err := s.execGated(ctx, protocol.CmdGetStatus)
	if err != nil {
		return models.Status{}, err
	}
	if !resp.OK {
		return models.Status{}, &DeviceError{Command: protocol.CmdGetStatus, Message: resp.Message}
	}

	status, err := protocol.DecodeStatus(resp.Payload)
	if err != nil {
		logger.Warnf("Resposta de status inválida: %v", err)
		return models.Status{}, err
	}

	s.storeStatus(status)
	s.bus.Publish(events.StatusChanged{Status: status})
	return status, nil
}

// MoveToPosition move o braço para uma pose absoluta
func (s *Service) MoveToPosition(ctx context.Context, target models.Position) (bool, error) {
	return s.move(ctx, protocol.FormatMoveAbs(target))
}

// MoveRelative desloca o braço em x, y e z
func (s *Service) MoveRelative(ctx context.Context, dx, dy, dz float64) (bool, error) {
	return s.move(ctx, protocol.FormatMoveRel(dx, dy, dz))
}

// Home leva o braço para a posição de referência
func (s *Service) Home(ctx context.Context) (bool, error) {
	return s.move(ctx, protocol.CmdHome)
}

func (s *Service) move(ctx context.Context, line string) (bool, error) {
	resp, err := s.execGated(ctx, line)
	if err != nil {
		return false, err
	}
	if !resp.OK {
		logger.Warnf("Comando %q recusado pelo braço: %s", line, resp.Message)
		return false, nil
	}

	// alguns firmwares devolvem a pose final junto com o OK
	if resp.Payload != "" {
		if pos, err := protocol.DecodePosition(resp.Payload); err == nil {
			s.storePosition(pos)
			s.bus.Publish(events.PositionChanged{Position: pos})
		}
	}
	return true, nil
}

// ResetError limpa o erro do equipamento. Não passa pelo gate.
func (s *Service) ResetError(ctx context.Context) bool {
	resp, err := s.transport.SendCommand(ctx, protocol.CmdReset)
	if err != nil {
		logger.Warnf("Falha ao resetar erro do braço: %v", err)
		return false
	}
	if !resp.OK {
		logger.Warnf("Reset recusado pelo braço: %s", resp.Message)
		return false
	}
	logger.Info("Erro do braço resetado")
	return true
}

// EmergencyStop envia STOP imediatamente, sem esperar o gate de comandos.
// Nunca entra em pânico; retorna false se o comando não puder ser entregue.
func (s *Service) EmergencyStop(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Pânico durante parada de emergência: %v", r)
			ok = false
		}
	}()

	logger.Warn("PARADA DE EMERGÊNCIA solicitada")

	resp, err := s.transport.SendCommand(ctx, protocol.CmdStop)
	if err != nil {
		logger.Error("Falha ao enviar parada de emergência", err)
		return false
	}
	if !resp.OK {
		logger.Errorf("Parada de emergência recusada pelo braço: %s", resp.Message)
		return false
	}

	s.mutex.Lock()
	status := s.lastStatus
	s.mutex.Unlock()
	status.IsConnected = true
	status.State = models.StateEmergencyStopped
	status.Timestamp = time.Now()

	s.storeStatus(status)
	s.bus.Publish(events.StatusChanged{Status: status})
	return true
}

// execGated executa um comando segurando o gate
func (s *Service) execGated(ctx context.Context, line string) (protocol.Response, error) {
	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return protocol.Response{}, fmt.Errorf("robot: aguardando comando anterior: %w", ctx.Err())
	}
	defer func() { <-s.gate }()

	resp, err := s.transport.SendCommand(ctx, line)
	if err != nil {
		if IsConnectionError(err) {
			s.handleConnectionError(err)
		}
		return resp, err
	}
	return resp, nil
}

// handleConnectionError publica a perda de conexão e inicia o supervisor
func (s *Service) handleConnectionError(err error) {
	if s.ConnectionState() != models.ConnConnected {
		return
	}

	logger.Errorf("Erro ao comunicar com o braço: %v", err)

	status := s.LastStatus()
	status.IsConnected = false
	status.ErrorCode = models.ErrorCodeConnectionLost
	status.ErrorMessage = err.Error()
	status.Timestamp = time.Now()
	s.storeStatus(status)
	s.bus.Publish(events.StatusChanged{Status: status})

	s.startReconnect()
}

func (s *Service) onConnected() {
	s.mutex.Lock()
	s.reconnectAttempts = 0
	s.mutex.Unlock()
	s.setState(models.ConnConnected)

	status := connectedStatus()
	s.storeStatus(status)
	s.bus.Publish(events.StatusChanged{Status: status})
}

func connectedStatus() models.Status {
	return models.Status{
		IsConnected: true,
		State:       models.StateIdle,
		ErrorCode:   models.ErrorCodeNone,
		Timestamp:   time.Now(),
	}
}

// setState faz a transição e publica o evento fora do lock
func (s *Service) setState(next models.ConnectionState) {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	s.mutex.Lock()
	prev := s.state
	s.state = next
	s.mutex.Unlock()

	s.publishTransition(prev, next)
}

func (s *Service) publishTransition(prev, next models.ConnectionState) {
	if prev == next {
		return
	}
	logger.Infof("Estado da conexão com o braço: %s -> %s", prev, next)
	s.bus.Publish(events.ConnectionStateChanged{Previous: prev, Current: next, At: time.Now()})
}

func (s *Service) storePosition(p models.Position) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastPosition = &p
}

func (s *Service) storeStatus(status models.Status) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastStatus = status
}
