package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"robot_go/internal/config"
	"robot_go/internal/discovery"
	"robot_go/internal/events"
	"robot_go/internal/plc"
	"robot_go/internal/redis"
	"robot_go/internal/robot"
	"robot_go/internal/sse"
	"robot_go/internal/websocket"
	"robot_go/pkg/logger"
)

// Version é a versão anunciada em /info e no mDNS
const Version = "1.0.0"

// Server encapsula o servidor HTTP com todos os componentes
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *http.ServeMux
	bus              *events.Bus
	robotService     *robot.Service
	poller           *robot.Poller
	redisService     *redis.Service
	plcService       *plc.PLCService
	wsHub            *websocket.Hub
	sseRelay         *sse.Relay
	discoveryService *discovery.DiscoveryService
	unsubscribe      []func()
	serverInfo       ServerInfo
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string
	Port         int
	StartTime    time.Time
	Connections  int
	Version      string
	WebSocketURL string
	APIURL       string
	EventsURL    string
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg *config.Config) (*Server, error) {
	server := &Server{
		config: cfg,
		router: http.NewServeMux(),
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   Version,
			Port:      cfg.Server.Port,
		},
	}

	ip := getLocalIP()
	server.serverInfo.IP = ip
	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", ip, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api/robot", ip, cfg.Server.Port)
	server.serverInfo.EventsURL = fmt.Sprintf("http://%s:%d%s", ip, cfg.Server.Port, sse.Channel)

	server.initComponents()
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// initComponents cria o barramento, o serviço do braço e os ouvintes de eventos
func (s *Server) initComponents() {
	s.bus = events.NewBus()
	s.robotService = robot.NewService(s.config.Robot, robot.WithEventBus(s.bus))
	s.poller = robot.NewPoller(s.robotService, s.config.Robot.PollInterval())

	s.wsHub = websocket.NewHub(s.robotService)
	go s.wsHub.Run()

	s.sseRelay = sse.NewRelay()
	s.redisService = redis.NewService(s.config.Redis)

	listeners := []events.Listener{s.wsHub, s.sseRelay, s.redisService}

	if s.config.PLC.Enabled {
		s.plcService = plc.NewPLCService(s.config.PLC)
		listeners = append(listeners, s.plcService)
	}

	for _, l := range listeners {
		s.unsubscribe = append(s.unsubscribe, s.bus.Subscribe(l))
	}

	if s.config.Discovery.Enabled {
		s.discoveryService = discovery.NewDiscoveryService(s.config.Discovery, s.config.Server.Port, s.config.Robot.Address())
	}
}

// Start inicia os serviços e bloqueia no servidor HTTP
func (s *Server) Start() error {
	s.StartServices()

	logger.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}

	return nil
}

// StartServices inicia os serviços auxiliares e a primeira conexão com o braço.
// Falhas não abortam a inicialização; o painel continua respondendo.
func (s *Server) StartServices() {
	if s.discoveryService != nil {
		if err := s.discoveryService.Start(); err != nil {
			logger.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
		}
	}

	s.redisService.Start()

	if s.plcService != nil {
		s.plcService.Start()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Robot.ConnectTimeout()+time.Second)
		defer cancel()
		if !s.robotService.Connect(ctx) {
			logger.Warnf("Braço indisponível em %s; use POST /api/robot/connect para tentar novamente",
				s.config.Robot.Address())
		}
	}()

	s.poller.Start()
	s.logServerInfo()
}

// Shutdown encerra graciosamente o servidor e todos os serviços
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Iniciando shutdown do servidor")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Erro ao encerrar servidor HTTP: %v", err)
	}

	s.poller.Stop()
	s.robotService.Disconnect()

	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}

	if s.discoveryService != nil {
		s.discoveryService.Stop()
	}

	if s.plcService != nil {
		s.plcService.Stop()
	}

	s.sseRelay.Shutdown()
	s.wsHub.Shutdown()
	s.redisService.Stop()

	logger.Info("Shutdown completo")
	return nil
}

// Handler retorna o roteador HTTP completo
func (s *Server) Handler() http.Handler {
	return s.router
}

// getLocalIP obtém o endereço IP local
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}

	return "localhost"
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// logServerInfo exibe informações do servidor no log
func (s *Server) logServerInfo() {
	logger.Info("===============================================")
	logger.Info("             Robot Arm Control Server          ")
	logger.Info("===============================================")
	logger.Infof("Versão: %s", s.serverInfo.Version)
	logger.Infof("Endereço IP: %s", s.serverInfo.IP)
	logger.Infof("Porta HTTP: %d", s.serverInfo.Port)
	logger.Infof("Braço: %s", s.config.Robot.Address())
	logger.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	logger.Infof("SSE URL: %s", s.serverInfo.EventsURL)
	logger.Infof("API URL: %s", s.serverInfo.APIURL)
	if s.discoveryService != nil {
		logger.Infof("mDNS: %s.%s.%s",
			s.discoveryService.GetInstanceName(),
			discovery.ServiceType,
			discovery.ServiceDomain)
	}
	logger.Info("===============================================")
	logger.Info("Servidor pronto para conexões!")
}
