package discovery

import (
	"errors"
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot_go/internal/config"
)

func TestInstanceName(t *testing.T) {
	s := NewDiscoveryService(config.DiscoveryConfig{InstanceName: "celula-3"}, 8080, "10.0.0.5:5000")
	assert.Equal(t, "celula-3", s.GetInstanceName())

	s = NewDiscoveryService(config.DiscoveryConfig{}, 8080, "10.0.0.5:5000")
	assert.Contains(t, s.GetInstanceName(), "-robot-arm")
}

func TestStartRegistersService(t *testing.T) {
	if _, err := getLocalIP(); err != nil {
		t.Skip("sem interface de rede IPv4")
	}

	var gotType string
	var gotPort int
	var gotText []string

	s := NewDiscoveryService(config.DiscoveryConfig{InstanceName: "celula-3"}, 8080, "10.0.0.5:5000")
	s.register = func(instance, service, domain string, port int, text []string, _ []net.Interface) (*zeroconf.Server, error) {
		gotType, gotPort, gotText = service, port, text
		return nil, nil
	}

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Equal(t, ServiceType, gotType)
	assert.Equal(t, 8080, gotPort)
	assert.Contains(t, gotText, "robot=10.0.0.5:5000")

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestStartRegisterFailure(t *testing.T) {
	if _, err := getLocalIP(); err != nil {
		t.Skip("sem interface de rede IPv4")
	}

	s := NewDiscoveryService(config.DiscoveryConfig{}, 8080, "")
	s.register = func(string, string, string, int, []string, []net.Interface) (*zeroconf.Server, error) {
		return nil, errors.New("multicast indisponível")
	}

	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}
