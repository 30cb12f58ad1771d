package robot

import (
	"context"
	"sync"
	"time"

	"robot_go/internal/models"
	"robot_go/pkg/logger"
)

// statsWindow é o número de ciclos considerados na média de duração
const statsWindow = 100

// Poller consulta periodicamente posição e status do braço, alimentando os
// eventos que chegam aos relays.
type Poller struct {
	service  *Service
	interval time.Duration

	mutex   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	// Estatísticas de desempenho
	statsLock sync.Mutex
	stats     PollerStats
	durations []time.Duration
}

// PollerStats resume os ciclos executados
type PollerStats struct {
	TotalCycles      int64         `json:"totalCycles"`
	FailedCycles     int64         `json:"failedCycles"`
	AvgCycleDuration time.Duration `json:"avgCycleDuration"`
	LastCycle        time.Time     `json:"lastCycle"`
}

// NewPoller cria o poller de telemetria
func NewPoller(service *Service, interval time.Duration) *Poller {
	return &Poller{
		service:   service,
		interval:  interval,
		durations: make([]time.Duration, 0, statsWindow),
	}
}

// Start inicia o loop de coleta
func (p *Poller) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running || p.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	logger.Infof("Iniciando poller de telemetria (intervalo: %v)", p.interval)
	go p.loop(ctx, p.done)
}

// Stop para o loop e espera o ciclo em andamento terminar
func (p *Poller) Stop() {
	p.mutex.Lock()
	if !p.running {
		p.mutex.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.mutex.Unlock()

	cancel()
	<-done
	logger.Info("Poller de telemetria parado")
}

// IsRunning verifica se o poller está em execução
func (p *Poller) IsRunning() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.running
}

// Stats retorna uma cópia das estatísticas
func (p *Poller) Stats() PollerStats {
	p.statsLock.Lock()
	defer p.statsLock.Unlock()
	return p.stats
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.service.ConnectionState() != models.ConnConnected {
				continue
			}

			start := time.Now()
			err := p.pollOnce(ctx)
			p.record(start, time.Since(start), err)
		}
	}
}

// pollOnce executa um ciclo: posição e depois status
func (p *Poller) pollOnce(ctx context.Context) error {
	cycleCtx, cancel := context.WithTimeout(ctx, p.interval+p.service.config.CommandTimeout())
	defer cancel()

	if _, err := p.service.GetCurrentPosition(cycleCtx); err != nil {
		return err
	}
	_, err := p.service.GetStatus(cycleCtx)
	return err
}

func (p *Poller) record(start time.Time, d time.Duration, err error) {
	p.statsLock.Lock()
	defer p.statsLock.Unlock()

	p.stats.TotalCycles++
	p.stats.LastCycle = start
	if err != nil {
		p.stats.FailedCycles++
		logger.Debugf("Ciclo de telemetria falhou: %v", err)
	}

	p.durations = append(p.durations, d)
	if len(p.durations) > statsWindow {
		p.durations = p.durations[1:]
	}

	var total time.Duration
	for _, v := range p.durations {
		total += v
	}
	p.stats.AvgCycleDuration = total / time.Duration(len(p.durations))

	if p.stats.TotalCycles%statsWindow == 0 {
		logger.Infof("Telemetria: %d ciclos, %d falhas, duração média %v",
			p.stats.TotalCycles, p.stats.FailedCycles, p.stats.AvgCycleDuration)
	}
}
