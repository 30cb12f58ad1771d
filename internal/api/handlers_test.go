package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot_go/internal/config"
	"robot_go/internal/models"
	"robot_go/internal/protocol"
	"robot_go/internal/robot"
	"robot_go/internal/simulator"
)

var testEnvelope = models.WorkEnvelope{XMin: -1000, XMax: 1000, YMin: -1000, YMax: 1000, ZMin: 0, ZMax: 1000}

func newTestAPI(t *testing.T, host string, port int) (http.Handler, *robot.Service) {
	t.Helper()
	cfg := config.RobotConfig{
		Host:                 host,
		Port:                 port,
		ConnectTimeoutMs:     300,
		CommandTimeoutMs:     300,
		MaxReconnectAttempts: 0,
		ReconnectDelayMs:     10,
		MaxReconnectDelayMs:  20,
	}
	svc := robot.NewService(cfg)
	t.Cleanup(svc.Disconnect)

	router := NewRouter(NewHandler(svc, nil, testEnvelope, cfg.CommandTimeout(), cfg.ConnectTimeout()), "")
	router.Setup()
	return router.Handler(), svc
}

func startSim(t *testing.T) (string, int) {
	t.Helper()
	sim := simulator.New()
	require.NoError(t, sim.Start("127.0.0.1:0"))
	t.Cleanup(func() { sim.Close() })
	return sim.HostPort()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusWhileDisconnected(t *testing.T) {
	h, _ := newTestAPI(t, "127.0.0.1", 1)

	rec := do(t, h, http.MethodGet, "/api/robot/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status          models.Status `json:"status"`
		ConnectionState string        `json:"connectionState"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status.IsConnected)
	assert.Equal(t, models.ConnDisconnected.String(), body.ConnectionState)

	rec = do(t, h, http.MethodGet, "/api/robot/position", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	h, _ := newTestAPI(t, "127.0.0.1", port)
	rec := do(t, h, http.MethodPost, "/api/robot/connect", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCommandFlow(t *testing.T) {
	host, port := startSim(t)
	h, svc := newTestAPI(t, host, port)

	rec := do(t, h, http.MethodPost, "/api/robot/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ConnConnected, svc.ConnectionState())

	rec = do(t, h, http.MethodGet, "/api/robot/position", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pos struct {
		Position models.Position `json:"position"`
		Cached   bool            `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pos))
	assert.Equal(t, 100.0, pos.Position.Z)
	assert.False(t, pos.Cached)

	rec = do(t, h, http.MethodPost, "/api/robot/move", models.Position{X: 5000, Z: 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/robot/move", models.Position{X: 200, Y: 100, Z: 300})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/robot/stop", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// recusado pelo equipamento em parada de emergência
	rec = do(t, h, http.MethodPost, "/api/robot/move-relative", RelativeMove{DX: 10})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/robot/reset", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/robot/home", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/robot/connection", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"connected"`)

	rec = do(t, h, http.MethodPost, "/api/robot/disconnect", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ConnDisconnected, svc.ConnectionState())
}

func TestMoveRelativeValidatesAgainstLastPosition(t *testing.T) {
	host, port := startSim(t)
	h, _ := newTestAPI(t, host, port)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/robot/connect", nil).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/robot/position", nil).Code)

	rec := do(t, h, http.MethodPost, "/api/robot/move-relative", RelativeMove{DZ: -500})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/robot/move-relative", RelativeMove{DZ: 50})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidBodyAndMethod(t *testing.T) {
	h, _ := newTestAPI(t, "127.0.0.1", 1)

	req := httptest.NewRequest(http.MethodPost, "/api/robot/move", bytes.NewBufferString("{x:"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/robot/move", nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestEnvelopeAndCache(t *testing.T) {
	h, _ := newTestAPI(t, "127.0.0.1", 1)

	rec := do(t, h, http.MethodGet, "/api/robot/envelope", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var env models.WorkEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, testEnvelope, env)

	rec = do(t, h, http.MethodGet, "/api/robot/cache", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMiddleware(t *testing.T) {
	h, _ := newTestAPI(t, "127.0.0.1", 1)

	req := httptest.NewRequest(http.MethodGet, "/api/robot/envelope", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodGet, "/api/robot/envelope", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = do(t, h, http.MethodOptions, "/api/robot/move", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	panicky := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec = httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validação", &ValidationError{Message: "x"}, http.StatusBadRequest},
		{"conexão", &robot.ConnectionError{Op: "send", Err: robot.ErrConnectionLost}, http.StatusServiceUnavailable},
		{"conexão encadeada", fmt.Errorf("poll: %w", &robot.ConnectionError{Op: "receive", Err: robot.ErrCommandTimeout}), http.StatusServiceUnavailable},
		{"protocolo", &protocol.ProtocolError{Frame: "???", Err: protocol.ErrMalformedFrame}, http.StatusBadGateway},
		{"equipamento", &robot.DeviceError{Command: "GET_POS", Message: "busy"}, http.StatusBadGateway},
		{"gate", fmt.Errorf("robot: aguardando comando anterior: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"outro", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusCode(tt.err))
		})
	}
}

func TestStatusRespondsWhileHardwareSilent(t *testing.T) {
	sim := simulator.New()
	require.NoError(t, sim.Start("127.0.0.1:0"))
	t.Cleanup(func() { sim.Close() })
	host, port := sim.HostPort()

	h, _ := newTestAPI(t, host, port)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/robot/connect", nil).Code)

	sim.SetResponseDelay(time.Second)
	start := time.Now()
	rec := do(t, h, http.MethodGet, "/api/robot/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, time.Since(start), time.Second)
}
