package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"robot_go/internal/config"
	"robot_go/internal/events"
	"robot_go/internal/models"
	"robot_go/pkg/logger"
)

const queueSize = 128

// Service mantém no Redis o último estado conhecido do braço (posição, status e
// estado da conexão) para consumidores externos. Implementa events.Listener; as
// escritas acontecem numa goroutine própria.
type Service struct {
	client *Client
	ttl    time.Duration

	queue chan events.Event

	mutex   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewService cria o serviço e tenta conectar. Uma falha de conexão deixa o
// serviço em modo offline, sem erro.
func NewService(cfg config.RedisConfig) *Service {
	s := &Service{
		client: NewClient(cfg),
		ttl:    cfg.TTL,
		queue:  make(chan events.Event, queueSize),
	}

	if s.client.Enabled() {
		if err := s.client.Connect(context.Background()); err != nil {
			logger.Warnf("Aviso: %v. O Redis será utilizado em modo offline.", err)
		}
	}
	return s
}

// IsConnected verifica se o serviço está conectado
func (s *Service) IsConnected() bool {
	return s.client.IsConnected()
}

// Start inicia a goroutine de escrita
func (s *Service) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running || !s.client.Enabled() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.writeLoop(ctx, s.done)
}

// Stop para a escrita e fecha a conexão
func (s *Service) Stop() {
	s.mutex.Lock()
	running, cancel, done := s.running, s.cancel, s.done
	s.running = false
	s.mutex.Unlock()

	if running {
		cancel()
		<-done
	}
	if err := s.client.Close(); err != nil {
		logger.Error("Erro ao fechar Redis", err)
	}
}

// Notify enfileira o evento sem bloquear; descarta se a fila estiver cheia
func (s *Service) Notify(ev events.Event) {
	if !s.client.Enabled() {
		return
	}

	select {
	case s.queue <- ev:
	default:
		logger.Debugf("Fila do Redis cheia, descartando %s", ev.Kind())
	}
}

func (s *Service) writeLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.queue:
			if !s.client.IsConnected() {
				if err := s.client.Connect(ctx); err != nil {
					continue
				}
			}

			writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := s.write(writeCtx, ev)
			cancel()
			if err != nil {
				s.client.markDisconnected(err)
			}
		}
	}
}

// write grava o evento numa pipeline
func (s *Service) write(ctx context.Context, ev events.Event) error {
	pipe := s.client.rdb.Pipeline()
	ts := ev.OccurredAt().UnixMilli()

	switch e := ev.(type) {
	case events.PositionChanged:
		data, err := json.Marshal(e.Position)
		if err != nil {
			return err
		}
		pipe.Set(ctx, s.client.Key("position"), data, s.ttl)
		pipe.Set(ctx, s.client.Key("position", "timestamp"), ts, s.ttl)

	case events.StatusChanged:
		data, err := json.Marshal(e.Status)
		if err != nil {
			return err
		}
		pipe.Set(ctx, s.client.Key("status"), data, s.ttl)
		pipe.Set(ctx, s.client.Key("state"), e.Status.State.String(), s.ttl)
		if e.Status.ErrorCode != models.ErrorCodeNone {
			pipe.Set(ctx, s.client.Key("ultimo_erro"), e.Status.ErrorCode.String(), 0)
		}

	case events.ConnectionStateChanged:
		pipe.Set(ctx, s.client.Key("connection"), e.Current.String(), 0)
		if e.Current == models.ConnReconnecting {
			pipe.Incr(ctx, s.client.Key("reconnects"))
		}

	default:
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("erro ao escrever %s no Redis: %w", ev.Kind(), err)
	}
	return nil
}

// LastPosition lê a última posição gravada. Retorna nil se não houver.
func (s *Service) LastPosition(ctx context.Context) (*models.Position, error) {
	var p models.Position
	found, err := s.getJSON(ctx, s.client.Key("position"), &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// LastStatus lê o último status gravado. Retorna nil se não houver.
func (s *Service) LastStatus(ctx context.Context) (*models.Status, error) {
	var st models.Status
	found, err := s.getJSON(ctx, s.client.Key("status"), &st)
	if err != nil || !found {
		return nil, err
	}
	return &st, nil
}

func (s *Service) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	if !s.client.IsConnected() {
		return false, fmt.Errorf("Redis não conectado ou desabilitado")
	}

	data, err := s.client.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("erro ao ler %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("erro ao decodificar %s: %w", key, err)
	}
	return true, nil
}
