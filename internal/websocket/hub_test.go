package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot_go/internal/events"
	"robot_go/internal/models"
)

type stubProvider struct {
	pos    *models.Position
	status models.Status
	state  models.ConnectionState
}

func (p stubProvider) LastPosition() *models.Position           { return p.pos }
func (p stubProvider) LastStatus() models.Status                { return p.status }
func (p stubProvider) ConnectionState() models.ConnectionState { return p.state }

func startHub(t *testing.T, provider StateProvider) (*Hub, *gorilla.Conn) {
	t.Helper()
	hub := NewHub(provider)
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(NewHandler(hub))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return hub, conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func readUntil(t *testing.T, conn *gorilla.Conn, msgType string) map[string]interface{} {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg["type"] == msgType {
			return msg
		}
	}
	t.Fatalf("mensagem %q não recebida", msgType)
	return nil
}

func TestHubSendsSnapshotOnConnect(t *testing.T) {
	pos := models.Position{X: 10, Y: 20, Z: 30}
	_, conn := startHub(t, stubProvider{
		pos:    &pos,
		status: models.Status{IsConnected: true, State: models.StateIdle},
		state:  models.ConnConnected,
	})

	assert.Equal(t, TypeWelcome, readMessage(t, conn)["type"])

	state := readMessage(t, conn)
	assert.Equal(t, TypeConnectionState, state["type"])
	assert.Equal(t, "connected", state["state"])

	status := readMessage(t, conn)
	assert.Equal(t, TypeStatus, status["type"])
	assert.Equal(t, "Idle", status["status"].(map[string]interface{})["state"])

	position := readMessage(t, conn)
	assert.Equal(t, TypePosition, position["type"])
	assert.Equal(t, 10.0, position["position"].(map[string]interface{})["x"])
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub, conn := startHub(t, nil)
	bus := events.NewBus()
	bus.Subscribe(hub)

	readUntil(t, conn, TypeWelcome)

	bus.Publish(events.ConnectionStateChanged{
		Previous: models.ConnConnected, Current: models.ConnReconnecting, At: time.Now(),
	})
	msg := readUntil(t, conn, TypeConnectionState)
	assert.Equal(t, "reconnecting", msg["state"])
	assert.Equal(t, "connected", msg["previous"])

	bus.Publish(events.StatusChanged{Status: models.Status{
		State: models.StateEmergencyStopped, ErrorCode: models.ErrorCodeNone,
	}})
	msg = readUntil(t, conn, TypeStatus)
	assert.Equal(t, "EmergencyStopped", msg["status"].(map[string]interface{})["state"])

	bus.Publish(events.PositionChanged{Position: models.Position{Z: 99.5}})
	msg = readUntil(t, conn, TypePosition)
	assert.Equal(t, 99.5, msg["position"].(map[string]interface{})["z"])
}

func TestHubAnswersClientCommands(t *testing.T) {
	_, conn := startHub(t, nil)
	readUntil(t, conn, TypeWelcome)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"type":"ping","params":{"time":1234}}`)))
	pong := readUntil(t, conn, TypePong)
	assert.Equal(t, 1234.0, pong["time"])

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"type":"dance"}`)))
	msg := readUntil(t, conn, TypeError)
	assert.Contains(t, msg["error"], "dance")

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`not json`)))
	msg = readUntil(t, conn, TypeError)
	assert.Equal(t, "invalid_format", msg["data"].(map[string]interface{})["code"])
}

func TestHubNotifyNeverBlocks(t *testing.T) {
	// hub sem Run: o buffer enche e o excedente é descartado
	hub := NewHub(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			hub.Notify(events.PositionChanged{Position: models.Position{X: float64(i)}})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify bloqueou")
	}
	assert.Equal(t, int64(1000-256), hub.stats.droppedMessages)
}
