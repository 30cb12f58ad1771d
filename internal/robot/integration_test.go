package robot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot_go/internal/config"
	"robot_go/internal/events"
	"robot_go/internal/models"
	"robot_go/internal/simulator"
)

func simConfig(sim *simulator.Simulator) config.RobotConfig {
	host, port := sim.HostPort()
	return config.RobotConfig{
		Host:                 host,
		Port:                 port,
		ConnectTimeoutMs:     500,
		CommandTimeoutMs:     500,
		MaxReconnectAttempts: -1,
		ReconnectDelayMs:     10,
		MaxReconnectDelayMs:  40,
		PollIntervalMs:       20,
	}
}

func TestServiceAgainstSimulator(t *testing.T) {
	sim := startSim(t, simulator.WithMoveDelay(300*time.Millisecond))
	s := NewService(simConfig(sim))
	t.Cleanup(s.Disconnect)

	require.True(t, s.Connect(context.Background()))

	pos, err := s.GetCurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, pos.Z)

	ok, err := s.MoveToPosition(context.Background(), models.Position{X: 250, Y: -120.5, Z: 400})
	require.NoError(t, err)
	require.True(t, ok)

	status, err := s.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateMoving, status.State)

	start := time.Now()
	assert.True(t, s.EmergencyStop(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, models.StateEmergencyStopped, sim.State())

	// movimento recusado em parada de emergência: false sem erro
	ok, err = s.MoveRelative(context.Background(), 1, 0, 0)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, s.ResetError(context.Background()))
	ok, err = s.Home(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServiceRecoversFromDroppedSocket(t *testing.T) {
	sim := startSim(t)
	bus := events.NewBus()
	rec := &recorder{}
	bus.Subscribe(rec)

	s := NewService(simConfig(sim), WithEventBus(bus))
	t.Cleanup(s.Disconnect)
	require.True(t, s.Connect(context.Background()))
	require.Eventually(t, func() bool { return sim.Connections() == 1 }, time.Second, 5*time.Millisecond)

	sim.DropConnections()
	require.Eventually(t, func() bool { return sim.Connections() == 0 }, time.Second, 5*time.Millisecond)

	_, err := s.GetStatus(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))

	require.Eventually(t, func() bool {
		return s.ConnectionState() == models.ConnConnected
	}, 2*time.Second, 10*time.Millisecond)

	_, err = s.GetStatus(context.Background())
	assert.NoError(t, err)
	assert.Contains(t, rec.transitions(), models.ConnReconnecting)
}

func TestPollerPublishesTelemetry(t *testing.T) {
	sim := startSim(t)
	bus := events.NewBus()
	rec := &recorder{}
	bus.Subscribe(rec)

	cfg := simConfig(sim)
	s := NewService(cfg, WithEventBus(bus))
	t.Cleanup(s.Disconnect)

	p := NewPoller(s, cfg.PollInterval())
	p.Start()
	t.Cleanup(p.Stop)
	assert.True(t, p.IsRunning())

	// desconectado: nenhum ciclo
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, p.Stats().TotalCycles)

	require.True(t, s.Connect(context.Background()))
	require.Eventually(t, func() bool { return rec.positions() >= 2 }, 2*time.Second, 10*time.Millisecond)

	p.Stop()
	assert.False(t, p.IsRunning())
	stats := p.Stats()
	assert.Positive(t, stats.TotalCycles)
	assert.Zero(t, stats.FailedCycles)
}
