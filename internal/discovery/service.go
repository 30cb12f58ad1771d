package discovery

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/grandcat/zeroconf"

	"robot_go/internal/config"
	"robot_go/pkg/logger"
)

const (
	// ServiceDomain é o domínio para descoberta na rede
	ServiceDomain = "local."

	// ServiceType define o tipo de serviço anunciado pelo painel do braço
	ServiceType = "_robotarm._tcp"

	// Version é anunciada nos metadados TXT
	Version = "1.0"
)

// registerFunc permite trocar o registro mDNS em testes
type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (*zeroconf.Server, error)

// DiscoveryService anuncia o painel do braço na rede local via mDNS
type DiscoveryService struct {
	server       *zeroconf.Server
	register     registerFunc
	mutex        sync.Mutex
	instanceName string
	port         int
	robotAddr    string
	running      bool
	serverIP     string
}

// NewDiscoveryService cria um novo serviço de descoberta. robotAddr é o
// endereço host:porta do controlador, publicado nos metadados.
func NewDiscoveryService(cfg config.DiscoveryConfig, port int, robotAddr string) *DiscoveryService {
	instanceName := cfg.InstanceName
	if instanceName == "" {
		hostname, _ := os.Hostname()
		instanceName = fmt.Sprintf("%s-robot-arm", hostname)
	}

	return &DiscoveryService{
		register:     zeroconf.Register,
		port:         port,
		robotAddr:    robotAddr,
		instanceName: instanceName,
	}
}

// Start registra o serviço mDNS
func (s *DiscoveryService) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	ip, err := getLocalIP()
	if err != nil {
		return fmt.Errorf("erro ao obter IP local: %w", err)
	}
	s.serverIP = ip

	server, err := s.register(
		s.instanceName,
		ServiceType,
		ServiceDomain,
		s.port,
		s.txtRecords(),
		nil, // todas as interfaces
	)
	if err != nil {
		return fmt.Errorf("erro ao registrar serviço de descoberta: %w", err)
	}

	s.server = server
	s.running = true

	logger.Infof("Serviço de descoberta iniciado em %s:%d (mDNS: %s.%s)",
		ip, s.port, s.instanceName, ServiceType)

	return nil
}

// Stop remove o anúncio mDNS
func (s *DiscoveryService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.running = false

	logger.Info("Serviço de descoberta parado")
}

func (s *DiscoveryService) txtRecords() []string {
	return []string{
		"version=" + Version,
		"ip=" + s.serverIP,
		"robot=" + s.robotAddr,
		"name=Robot Arm Control",
	}
}

// GetServerIP retorna o IP do servidor
func (s *DiscoveryService) GetServerIP() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.serverIP
}

// GetInstanceName retorna o nome da instância do serviço
func (s *DiscoveryService) GetInstanceName() string {
	return s.instanceName
}

// IsRunning verifica se o serviço está em execução
func (s *DiscoveryService) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// getLocalIP retorna o primeiro IPv4 que não seja loopback
func getLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "", fmt.Errorf("não foi possível determinar o endereço IP local")
}
