package plc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robinson/gos7"

	"robot_go/internal/config"
	"robot_go/pkg/logger"
)

// ErrPLCOffline indica escrita sem sessão S7 ativa
var ErrPLCOffline = errors.New("plc: sem sessão S7")

// MirrorClient mantém a sessão S7 usada para escrever a imagem do braço no DB
// configurado. Uma falha de escrita derruba a sessão; o próximo ciclo reconecta.
type MirrorClient struct {
	cfg config.PLCConfig

	mu      sync.Mutex
	handler *gos7.TCPClientHandler
	client  gos7.Client
}

// NewMirrorClient cria o cliente sem abrir a sessão
func NewMirrorClient(cfg config.PLCConfig) *MirrorClient {
	return &MirrorClient{cfg: cfg}
}

// Connect abre a sessão S7 se ainda não houver uma
func (c *MirrorClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	handler := gos7.NewTCPClientHandler(c.cfg.Host, c.cfg.Rack, c.cfg.Slot)
	handler.Timeout = c.cfg.WriteTimeout
	handler.IdleTimeout = 70 * time.Second

	if err := handler.Connect(); err != nil {
		return fmt.Errorf("plc: conectar %s (rack %d, slot %d): %w", c.cfg.Host, c.cfg.Rack, c.cfg.Slot, err)
	}

	c.handler = handler
	c.client = gos7.NewClient(handler)
	logger.Infof("Espelho PLC conectado em %s, DB%d", c.cfg.Host, c.cfg.DBNumber)
	return nil
}

// Disconnect encerra a sessão, se houver
func (c *MirrorClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closeLocked() {
		logger.Info("Espelho PLC desconectado")
	}
}

// IsConnected informa se há sessão S7 aberta
func (c *MirrorClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// WriteImage grava a imagem inteira a partir do byte 0 do DB configurado
func (c *MirrorClient) WriteImage(image []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return ErrPLCOffline
	}

	if err := c.client.AGWriteDB(c.cfg.DBNumber, 0, len(image), image); err != nil {
		c.closeLocked()
		return fmt.Errorf("plc: escrever DB%d: %w", c.cfg.DBNumber, err)
	}
	return nil
}

func (c *MirrorClient) closeLocked() bool {
	if c.handler == nil {
		return false
	}
	c.handler.Close()
	c.handler = nil
	c.client = nil
	return true
}
