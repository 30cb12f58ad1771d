package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot_go/internal/config"
	"robot_go/internal/events"
	"robot_go/internal/models"
)

func TestClientKey(t *testing.T) {
	c := NewClient(config.RedisConfig{Prefix: "robot_arm"})
	assert.Equal(t, "robot_arm:position:timestamp", c.Key("position", "timestamp"))

	c = NewClient(config.RedisConfig{})
	assert.Equal(t, "status", c.Key("status"))
}

func TestServiceDisabled(t *testing.T) {
	s := NewService(config.RedisConfig{Enabled: false, Prefix: "robot_arm"})
	s.Start()
	defer s.Stop()

	assert.False(t, s.IsConnected())
	s.Notify(events.PositionChanged{Position: models.Position{X: 1}})
	assert.Len(t, s.queue, 0)

	_, err := s.LastStatus(context.Background())
	assert.Error(t, err)
	assert.ErrorIs(t, s.client.Connect(context.Background()), ErrDisabled)
}

func TestServiceOfflineDoesNotBlockPublisher(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := NewService(config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: port, Prefix: "robot_arm"})
	s.Start()
	defer s.Stop()

	assert.False(t, s.IsConnected())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2*queueSize; i++ {
			s.Notify(events.StatusChanged{Status: models.DisconnectedStatus()})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify bloqueou com Redis offline")
	}
}
