package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"robot_go/internal/config"
	"robot_go/pkg/logger"
)

// ErrDisabled é retornado quando o Redis está desabilitado por configuração
var ErrDisabled = errors.New("cliente Redis desabilitado por configuração")

// Client encapsula a conexão com o Redis
type Client struct {
	rdb       *redis.Client
	prefix    string
	config    config.RedisConfig
	connected atomic.Bool
}

// NewClient cria um novo cliente Redis. Com o Redis desabilitado, o cliente
// existe mas nunca conecta.
func NewClient(cfg config.RedisConfig) *Client {
	c := &Client{
		config: cfg,
		prefix: cfg.Prefix,
	}

	if !cfg.Enabled {
		logger.Info("Cliente Redis desabilitado por configuração")
		return c
	}

	c.rdb = redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
		MaxRetries:  1,
	})
	return c
}

// Connect testa a conexão com ping
func (c *Client) Connect(ctx context.Context) error {
	if c.rdb == nil {
		return ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.rdb.Ping(ctx).Result(); err != nil {
		c.connected.Store(false)
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	c.connected.Store(true)
	logger.Infof("Conexão estabelecida com Redis em %s:%d", c.config.Host, c.config.Port)
	return nil
}

// IsConnected retorna o último estado conhecido da conexão
func (c *Client) IsConnected() bool {
	return c.rdb != nil && c.connected.Load()
}

// Enabled indica se o Redis está habilitado
func (c *Client) Enabled() bool {
	return c.rdb != nil
}

// markDisconnected registra uma falha de escrita
func (c *Client) markDisconnected(err error) {
	if c.connected.Swap(false) {
		logger.Warnf("Conexão com Redis perdida: %v", err)
	}
}

// Close fecha a conexão com o Redis
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}

	c.connected.Store(false)
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("erro ao fechar conexão Redis: %w", err)
	}
	logger.Info("Conexão com Redis fechada")
	return nil
}

// Key monta uma chave com o prefixo configurado
func (c *Client) Key(parts ...string) string {
	if c.prefix == "" {
		return strings.Join(parts, ":")
	}
	return c.prefix + ":" + strings.Join(parts, ":")
}
