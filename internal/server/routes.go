package server

import (
	"encoding/json"
	"net/http"
	"time"

	"robot_go/internal/api"
	"robot_go/internal/discovery"
	"robot_go/internal/models"
	"robot_go/internal/websocket"
	"robot_go/pkg/utils"
)

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	wsHandler := websocket.NewHandler(s.wsHub)

	apiRouter := api.NewRouter(api.NewHandler(
		s.robotService,
		s.redisService,
		s.config.Envelope,
		s.config.Robot.CommandTimeout(),
		s.config.Robot.ConnectTimeout(),
	), api.DefaultBasePath)
	apiRouter.Setup()

	s.router.HandleFunc("/health", s.healthHandler)
	s.router.HandleFunc("/info", s.infoHandler)

	s.router.Handle("/ws", wsHandler)
	s.router.HandleFunc("/ws/health", wsHandler.GetHealthHandler())

	s.router.Handle("/events/", s.sseRelay)

	s.router.Handle("/api/", apiRouter.Handler())

	s.router.Handle("/", http.FileServer(http.Dir(s.config.Server.StaticDir)))
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	robotState := s.robotService.ConnectionState()

	plcStatus := "disabled"
	if s.plcService != nil {
		plcStatus = "offline"
		if s.plcService.IsRunning() {
			plcStatus = "ok"
		}
	}

	redisStatus := "disabled"
	if s.config.Redis.Enabled {
		redisStatus = "offline"
		if s.redisService.IsConnected() {
			redisStatus = "ok"
		}
	}

	discoveryStatus := "disabled"
	if s.discoveryService != nil {
		discoveryStatus = "offline"
		if s.discoveryService.IsRunning() {
			discoveryStatus = "ok"
		}
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"services": map[string]string{
			"robot":     robotState.String(),
			"redis":     redisStatus,
			"plc":       plcStatus,
			"websocket": "ok",
			"discovery": discoveryStatus,
		},
	}

	if robotState != models.ConnConnected || redisStatus == "offline" {
		response["status"] = "degraded"
	}

	json.NewEncoder(w).Encode(response)
}

// infoHandler retorna informações sobre o servidor e os serviços
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	info := s.GetServerInfo()

	discoveryInfo := map[string]interface{}{
		"enabled":     s.discoveryService != nil,
		"serviceType": discovery.ServiceType,
	}
	if s.discoveryService != nil {
		discoveryInfo["running"] = s.discoveryService.IsRunning()
		discoveryInfo["instanceName"] = s.discoveryService.GetInstanceName()
	}

	response := map[string]interface{}{
		"server": map[string]interface{}{
			"name":        "Robot Arm Control",
			"version":     info.Version,
			"ip":          info.IP,
			"port":        info.Port,
			"websocket":   info.WebSocketURL,
			"events":      info.EventsURL,
			"api":         info.APIURL,
			"startTime":   info.StartTime,
			"startedAt":   utils.FormatDateTimeMs(info.StartTime),
			"uptime":      utils.FormatDuration(time.Since(info.StartTime)),
			"connections": info.Connections,
		},
		"discovery": discoveryInfo,
		"services": map[string]interface{}{
			"robot": map[string]interface{}{
				"host":              s.config.Robot.Host,
				"port":              s.config.Robot.Port,
				"state":             s.robotService.ConnectionState(),
				"reconnectAttempts": s.robotService.ReconnectAttempts(),
				"poller":            s.poller.Stats(),
			},
			"redis": map[string]interface{}{
				"enabled":   s.config.Redis.Enabled,
				"connected": s.redisService.IsConnected(),
				"host":      s.config.Redis.Host,
				"port":      s.config.Redis.Port,
			},
			"plc": map[string]interface{}{
				"enabled": s.config.PLC.Enabled,
				"running": s.plcService != nil && s.plcService.IsRunning(),
				"host":    s.config.PLC.Host,
				"db":      s.config.PLC.DBNumber,
			},
		},
	}

	json.NewEncoder(w).Encode(response)
}
