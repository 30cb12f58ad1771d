package plc

import (
	"context"
	"sync"
	"time"

	"github.com/robinson/gos7"

	"robot_go/internal/config"
	"robot_go/internal/events"
	"robot_go/internal/models"
	"robot_go/pkg/logger"
)

// Layout do DB espelhado no PLC (offsets em bytes, big endian)
const (
	offsetPosition   = 0  // 6 x REAL: x, y, z, rx, ry, rz
	offsetState      = 24 // INT: models.RobotState
	offsetErrorCode  = 26 // INT: models.ErrorCode
	offsetTemp       = 28 // REAL
	offsetLoad       = 32 // REAL
	offsetConnection = 36 // INT: models.ConnectionState
	offsetFlags      = 38 // BYTE: bit0 conectado, bit1 parada de emergência

	// ImageSize é o tamanho do bloco escrito a cada atualização
	ImageSize = 40
)

// Snapshot é o estado do braço espelhado no PLC
type Snapshot struct {
	Position   models.Position
	Status     models.Status
	Connection models.ConnectionState
}

// imageWriter é a parte do MirrorClient usada pelo espelho
type imageWriter interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	WriteImage(image []byte) error
}

// PLCService espelha posição, status e estado da conexão do braço em um DB do
// PLC. Recebe eventos do barramento e escreve o bloco inteiro na taxa configurada.
type PLCService struct {
	client          imageWriter
	config          config.PLCConfig
	updateFrequency time.Duration

	mutex    sync.Mutex
	snapshot Snapshot
	dirty    bool
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPLCService cria um novo serviço de PLC
func NewPLCService(cfg config.PLCConfig) *PLCService {
	return newPLCService(cfg, NewMirrorClient(cfg))
}

func newPLCService(cfg config.PLCConfig, client imageWriter) *PLCService {
	rate := cfg.UpdateRate
	if rate <= 0 {
		rate = 500 * time.Millisecond
	}
	return &PLCService{
		client:          client,
		config:          cfg,
		updateFrequency: rate,
	}
}

// Start inicia o loop de atualização. A conexão é (re)tentada a cada ciclo.
func (s *PLCService) Start() {
	if !s.config.Enabled {
		logger.Info("Serviço PLC desabilitado por configuração")
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.runUpdateLoop(ctx, s.done)
	logger.Infof("Serviço PLC iniciado (DB%d, a cada %v)", s.config.DBNumber, s.updateFrequency)
}

// Stop para o serviço de comunicação com o PLC
func (s *PLCService) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mutex.Unlock()

	cancel()
	<-done
	s.client.Disconnect()
	logger.Info("Serviço PLC parado")
}

// IsRunning verifica se o serviço está em execução
func (s *PLCService) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// Notify atualiza o espelho em memória; a escrita acontece no próximo ciclo
func (s *PLCService) Notify(ev events.Event) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch e := ev.(type) {
	case events.PositionChanged:
		s.snapshot.Position = e.Position
	case events.StatusChanged:
		s.snapshot.Status = e.Status
	case events.ConnectionStateChanged:
		s.snapshot.Connection = e.Current
	default:
		return
	}
	s.dirty = true
}

// Snapshot retorna o estado que será escrito no PLC
func (s *PLCService) Snapshot() Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.snapshot
}

func (s *PLCService) runUpdateLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.updateFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush escreve o espelho no PLC se houve mudança
func (s *PLCService) flush() {
	s.mutex.Lock()
	if !s.dirty {
		s.mutex.Unlock()
		return
	}
	image := EncodeImage(s.snapshot)
	s.mutex.Unlock()

	if !s.client.IsConnected() {
		if err := s.client.Connect(); err != nil {
			logger.Debugf("PLC indisponível: %v", err)
			return
		}
	}

	if err := s.client.WriteImage(image); err != nil {
		logger.Error("Falha ao escrever espelho do braço no PLC", err)
		return
	}

	s.mutex.Lock()
	s.dirty = false
	s.mutex.Unlock()
}

// EncodeImage serializa o snapshot no layout do DB
func EncodeImage(snap Snapshot) []byte {
	var helper gos7.Helper
	buf := make([]byte, ImageSize)

	p := snap.Position
	for i, v := range []float64{p.X, p.Y, p.Z, p.RotationX, p.RotationY, p.RotationZ} {
		helper.SetRealAt(buf, offsetPosition+i*4, float32(v))
	}

	helper.SetValueAt(buf, offsetState, int16(snap.Status.State))
	helper.SetValueAt(buf, offsetErrorCode, int16(snap.Status.ErrorCode))
	helper.SetRealAt(buf, offsetTemp, float32(snap.Status.Temperature))
	helper.SetRealAt(buf, offsetLoad, float32(snap.Status.LoadPercentage))
	helper.SetValueAt(buf, offsetConnection, int16(snap.Connection))

	var flags byte
	flags = helper.SetBoolAt(flags, 0, snap.Connection == models.ConnConnected)
	flags = helper.SetBoolAt(flags, 1, snap.Status.State == models.StateEmergencyStopped)
	buf[offsetFlags] = flags

	return buf
}
