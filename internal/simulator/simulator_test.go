package simulator

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot_go/internal/models"
	"robot_go/internal/protocol"
)

type session struct {
	conn   net.Conn
	reader *bufio.Reader
}

func startSimulator(t *testing.T, opts ...Option) *Simulator {
	t.Helper()
	sim := New(opts...)
	require.NoError(t, sim.Start("127.0.0.1:0"))
	t.Cleanup(func() { sim.Close() })
	return sim
}

func dial(t *testing.T, sim *Simulator) *session {
	t.Helper()
	conn, err := net.Dial("tcp", sim.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &session{conn: conn, reader: bufio.NewReader(conn)}
}

func (s *session) send(t *testing.T, line string) string {
	t.Helper()
	require.NoError(t, s.conn.SetDeadline(time.Now().Add(2*time.Second)))
	_, err := s.conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
	reply, err := s.reader.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(reply, "\n")
}

func TestSimulatorQueries(t *testing.T) {
	sim := startSimulator(t)
	s := dial(t, sim)

	assert.Equal(t, "OK 0.00,0.00,100.00,0.00,0.00,0.00", s.send(t, "GET_POS"))
	assert.Equal(t, "OK Idle,35.50,0,0.00", s.send(t, "get_status"))
	assert.Equal(t, "ERROR Unknown command", s.send(t, "DANCE"))
	assert.Equal(t, "ERROR Invalid parameters", s.send(t, "MOVE_REL 1,2"))
}

func TestSimulatorMoves(t *testing.T) {
	sim := startSimulator(t)
	s := dial(t, sim)

	assert.Equal(t, "OK", s.send(t, "MOVE_ABS 100.5,200,300,0,90,0"))
	assert.Equal(t, models.Position{X: 100.5, Y: 200, Z: 300, RotationY: 90}, sim.Position())

	assert.Equal(t, "OK", s.send(t, "MOVE_REL 10,0,-50"))
	assert.InDelta(t, 110.5, sim.Position().X, 1e-9)
	assert.InDelta(t, 250.0, sim.Position().Z, 1e-9)

	assert.Equal(t, "OK", s.send(t, "HOME"))
	assert.Equal(t, models.HomePosition, sim.Position())
}

func TestSimulatorEmergencyStopInterruptsMotion(t *testing.T) {
	sim := startSimulator(t, WithMoveDelay(time.Second))
	s := dial(t, sim)

	assert.Equal(t, "OK", s.send(t, "MOVE_ABS 500,0,500,0,0,0"))
	assert.Equal(t, models.StateMoving, sim.State())

	assert.Equal(t, "OK", s.send(t, "STOP"))
	assert.Equal(t, models.StateEmergencyStopped, sim.State())

	resp, err := protocol.ParseResponse(s.send(t, "MOVE_ABS 1,1,1,0,0,0"))
	require.NoError(t, err)
	assert.False(t, resp.OK)

	assert.Equal(t, "OK", s.send(t, "RESET"))
	assert.Equal(t, models.StateIdle, sim.State())
	assert.Equal(t, models.HomePosition, sim.Position())
}

func TestSimulatorEnvelopeViolation(t *testing.T) {
	sim := startSimulator(t, WithEnvelope(models.WorkEnvelope{
		XMin: -100, XMax: 100, YMin: -100, YMax: 100, ZMin: 0, ZMax: 200,
	}))
	s := dial(t, sim)

	assert.Equal(t, "ERROR Work envelope violation", s.send(t, "MOVE_ABS 1000,0,0,0,0,0"))

	resp, err := protocol.ParseResponse(s.send(t, "GET_STATUS"))
	require.NoError(t, err)
	status, err := protocol.DecodeStatus(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, models.StateError, status.State)
	assert.Equal(t, models.ErrorCodeWorkEnvelopeViolation, status.ErrorCode)
}

func TestSimulatorHandlerOverride(t *testing.T) {
	sim := startSimulator(t)
	sim.SetHandler(func(line string) (string, bool) {
		if line == "GET_POS" {
			return "GARBAGE", true
		}
		return "", false
	})
	s := dial(t, sim)

	assert.Equal(t, "GARBAGE", s.send(t, "GET_POS"))
	assert.Equal(t, "OK", s.send(t, "HOME"))
	assert.Equal(t, []string{"GET_POS", "HOME"}, sim.Received())
}

func TestSimulatorDropConnections(t *testing.T) {
	sim := startSimulator(t)
	s := dial(t, sim)
	s.send(t, "GET_POS")
	require.Eventually(t, func() bool { return sim.Connections() == 1 }, time.Second, 10*time.Millisecond)

	sim.DropConnections()

	require.NoError(t, s.conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err := s.reader.ReadString('\n')
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return sim.Connections() == 0 }, time.Second, 10*time.Millisecond)

	// o listener continua aceitando
	s2 := dial(t, sim)
	assert.Equal(t, "OK", s2.send(t, "RESET"))
}
