package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkEnvelopeContains(t *testing.T) {
	env := WorkEnvelope{XMin: -1000, XMax: 1000, YMin: -1000, YMax: 1000, ZMin: 0, ZMax: 1000}

	tests := []struct {
		name string
		pos  Position
		want bool
	}{
		{name: "origin", pos: Position{}, want: true},
		{name: "on bounds", pos: Position{X: 1000, Y: -1000, Z: 1000}, want: true},
		{name: "rotation ignored", pos: Position{Z: 10, RotationX: 720}, want: true},
		{name: "x above", pos: Position{X: 1000.01}, want: false},
		{name: "z below", pos: Position{Z: -0.5}, want: false},
		{name: "y below", pos: Position{Y: -5000}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.Contains(tt.pos))
		})
	}

	assert.NoError(t, env.Validate())
	assert.Error(t, WorkEnvelope{ZMin: 5, ZMax: 1}.Validate())
}

func TestParseRobotState(t *testing.T) {
	state, ok := ParseRobotState("EmergencyStopped")
	require.True(t, ok)
	assert.Equal(t, StateEmergencyStopped, state)

	_, ok = ParseRobotState("idle")
	assert.False(t, ok, "nomes diferenciam maiúsculas")

	_, ok = ParseRobotState("Flying")
	assert.False(t, ok)
}

func TestErrorCodeFromInt(t *testing.T) {
	assert.Equal(t, ErrorCodeNone, ErrorCodeFromInt(0))
	assert.Equal(t, ErrorCodeTemperatureExceeded, ErrorCodeFromInt(6))
	assert.Equal(t, ErrorCodeUnknownError, ErrorCodeFromInt(99))
	assert.Equal(t, ErrorCodeUnknownError, ErrorCodeFromInt(42))
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(Status{IsConnected: true, State: StateHoming, ErrorCode: ErrorCodeInvalidState})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"Homing"`)
	assert.Contains(t, string(data), `"errorCode":"InvalidState"`)
	assert.NotContains(t, string(data), "errorMessage")

	var back Status
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, StateHoming, back.State)
	assert.Equal(t, ErrorCodeInvalidState, back.ErrorCode)
}

func TestPositionOffset(t *testing.T) {
	p := Position{X: 1, Y: 2, Z: 3, RotationZ: 45}.Offset(10, -2, 0.5)
	assert.Equal(t, Position{X: 11, Y: 0, Z: 3.5, RotationZ: 45}, p)
	assert.Equal(t, "(11.00, 0.00, 3.50 | 0.00, 0.00, 45.00)", p.String())
}
