package robot

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"

	"robot_go/internal/events"
	"robot_go/internal/models"
	"robot_go/pkg/logger"
)

// startReconnect inicia o supervisor de reconexão. Só existe um supervisor
// por vez e ele só parte do estado Connected.
func (s *Service) startReconnect() {
	s.mutex.Lock()
	if s.reconnectCancel != nil || s.state != models.ConnConnected {
		s.mutex.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.reconnectCancel = cancel
	s.reconnectDone = done
	s.reconnectAttempts = 0
	s.mutex.Unlock()

	s.setState(models.ConnReconnecting)
	go s.superviseReconnect(ctx, done)
}

// stopReconnect cancela o supervisor e espera ele terminar
func (s *Service) stopReconnect() {
	s.mutex.Lock()
	cancel, done := s.reconnectCancel, s.reconnectDone
	s.mutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Service) superviseReconnect(ctx context.Context, done chan struct{}) {
	defer func() {
		s.releaseSupervisor(done)
		close(done)
	}()

	b := newReconnectBackOff(s.config.ReconnectDelay(), s.config.MaxReconnectDelay())
	maxAttempts := s.config.MaxReconnectAttempts

	for attempt := 1; ; attempt++ {
		if maxAttempts >= 0 && attempt > maxAttempts {
			s.failReconnect(attempt - 1)
			return
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			delay = s.config.MaxReconnectDelay()
		}

		s.mutex.Lock()
		s.reconnectAttempts = attempt
		s.mutex.Unlock()

		logger.Infof("Tentativa de reconexão %d com o braço em %v", attempt, delay)
		if err := s.sleep(ctx, delay); err != nil {
			logger.Debug("Reconexão cancelada")
			return
		}
		if ctx.Err() != nil {
			return
		}

		s.transport.Disconnect()
		if err := s.transport.Connect(ctx); err != nil {
			logger.Warnf("Tentativa de reconexão %d falhou: %v", attempt, err)
			continue
		}

		if !s.completeReconnect(ctx, done) {
			// Disconnect chegou durante a conexão
			s.transport.Disconnect()
			return
		}
		logger.Infof("Reconectado ao braço após %d tentativa(s)", attempt)
		return
	}
}

// completeReconnect leva o serviço a Connected e libera o supervisor numa única
// transição. Retorna false se o supervisor já foi cancelado.
func (s *Service) completeReconnect(ctx context.Context, done chan struct{}) bool {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	status := connectedStatus()

	s.mutex.Lock()
	if ctx.Err() != nil {
		s.mutex.Unlock()
		return false
	}
	prev := s.state
	s.state = models.ConnConnected
	s.reconnectAttempts = 0
	s.lastStatus = status
	if s.reconnectDone == done {
		s.reconnectCancel = nil
		s.reconnectDone = nil
	}
	s.mutex.Unlock()

	s.publishTransition(prev, models.ConnConnected)
	s.bus.Publish(events.StatusChanged{Status: status})
	return true
}

func (s *Service) releaseSupervisor(done chan struct{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.reconnectDone == done {
		s.reconnectCancel = nil
		s.reconnectDone = nil
	}
}

// failReconnect leva o serviço ao estado Failed; só um Connect manual sai dele
func (s *Service) failReconnect(attempts int) {
	logger.Errorf("Reconexão com o braço abandonada após %d tentativas", attempts)
	s.setState(models.ConnFailed)

	status := s.LastStatus()
	status.IsConnected = false
	status.ErrorCode = models.ErrorCodeConnectionLost
	status.ErrorMessage = "reconexão esgotada"
	status.Timestamp = time.Now()
	s.storeStatus(status)
	s.bus.Publish(events.StatusChanged{Status: status})
}

// newReconnectBackOff cria o backoff exponencial sem jitter: base, 2*base, ... até max
func newReconnectBackOff(base, max time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
