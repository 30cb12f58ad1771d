package models

import (
	"fmt"
	"time"
)

// Position representa a pose do braço: translação em milímetros e rotação em graus
type Position struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	RotationX float64   `json:"rotationX"`
	RotationY float64   `json:"rotationY"`
	RotationZ float64   `json:"rotationZ"`
	Timestamp time.Time `json:"timestamp"`
}

// HomePosition é a pose definida para o comando HOME
var HomePosition = Position{X: 0, Y: 0, Z: 100}

// Offset retorna uma nova posição deslocada em x, y e z
func (p Position) Offset(dx, dy, dz float64) Position {
	p.X += dx
	p.Y += dy
	p.Z += dz
	return p
}

// String implementa fmt.Stringer
func (p Position) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f | %.2f, %.2f, %.2f)",
		p.X, p.Y, p.Z, p.RotationX, p.RotationY, p.RotationZ)
}

// RobotState representa o estado operacional reportado pelo equipamento
type RobotState int

const (
	StateDisconnected RobotState = iota
	StateIdle
	StateMoving
	StateHoming
	StateEmergencyStopped
	StateError
)

var robotStateNames = map[RobotState]string{
	StateDisconnected:     "Disconnected",
	StateIdle:             "Idle",
	StateMoving:           "Moving",
	StateHoming:           "Homing",
	StateEmergencyStopped: "EmergencyStopped",
	StateError:            "Error",
}

// String retorna o nome do estado como usado no protocolo
func (s RobotState) String() string {
	if name, ok := robotStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("RobotState(%d)", int(s))
}

// ParseRobotState converte o nome do estado (sensível a maiúsculas)
func ParseRobotState(name string) (RobotState, bool) {
	for state, n := range robotStateNames {
		if n == name {
			return state, true
		}
	}
	return StateError, false
}

// MarshalText serializa o estado pelo nome
func (s RobotState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText lê o estado pelo nome
func (s *RobotState) UnmarshalText(text []byte) error {
	state, ok := ParseRobotState(string(text))
	if !ok {
		return fmt.Errorf("estado desconhecido: %q", string(text))
	}
	*s = state
	return nil
}

// ErrorCode é o código de erro numérico reportado pelo equipamento
type ErrorCode int

const (
	ErrorCodeNone                  ErrorCode = 0
	ErrorCodeCommunicationTimeout  ErrorCode = 1
	ErrorCodeWorkEnvelopeViolation ErrorCode = 2
	ErrorCodeInvalidParameters     ErrorCode = 3
	ErrorCodeInvalidState          ErrorCode = 4
	ErrorCodeConnectionLost        ErrorCode = 5
	ErrorCodeTemperatureExceeded   ErrorCode = 6
	ErrorCodeUnknownError          ErrorCode = 99
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCodeNone:                  "None",
	ErrorCodeCommunicationTimeout:  "CommunicationTimeout",
	ErrorCodeWorkEnvelopeViolation: "WorkEnvelopeViolation",
	ErrorCodeInvalidParameters:     "InvalidParameters",
	ErrorCodeInvalidState:          "InvalidState",
	ErrorCodeConnectionLost:        "ConnectionLost",
	ErrorCodeTemperatureExceeded:   "TemperatureExceeded",
	ErrorCodeUnknownError:          "UnknownError",
}

// ErrorCodeFromInt mapeia o inteiro do protocolo; valores fora da tabela viram UnknownError
func ErrorCodeFromInt(n int) ErrorCode {
	code := ErrorCode(n)
	if _, ok := errorCodeNames[code]; ok {
		return code
	}
	return ErrorCodeUnknownError
}

// String retorna o nome do código
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// MarshalText serializa o código pelo nome
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText lê o código pelo nome
func (c *ErrorCode) UnmarshalText(text []byte) error {
	for code, name := range errorCodeNames {
		if name == string(text) {
			*c = code
			return nil
		}
	}
	return fmt.Errorf("código de erro desconhecido: %q", string(text))
}

// Status representa o estado completo do braço robótico
type Status struct {
	IsConnected    bool       `json:"isConnected"`
	State          RobotState `json:"state"`
	Temperature    float64    `json:"temperature"`
	ErrorCode      ErrorCode  `json:"errorCode"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	LoadPercentage float64    `json:"loadPercentage"`
	Timestamp      time.Time  `json:"timestamp"`
}

// DisconnectedStatus retorna o status padrão de um equipamento desconectado
func DisconnectedStatus() Status {
	return Status{
		IsConnected: false,
		State:       StateDisconnected,
		ErrorCode:   ErrorCodeNone,
		Timestamp:   time.Now(),
	}
}

// WorkEnvelope define a caixa alinhada aos eixos de posições absolutas permitidas
type WorkEnvelope struct {
	XMin float64 `json:"xMin"`
	XMax float64 `json:"xMax"`
	YMin float64 `json:"yMin"`
	YMax float64 `json:"yMax"`
	ZMin float64 `json:"zMin"`
	ZMax float64 `json:"zMax"`
}

// Contains verifica se a posição está dentro do envelope (rotação não é restrita)
func (e WorkEnvelope) Contains(p Position) bool {
	return e.XMin <= p.X && p.X <= e.XMax &&
		e.YMin <= p.Y && p.Y <= e.YMax &&
		e.ZMin <= p.Z && p.Z <= e.ZMax
}

// Validate verifica se os limites não estão invertidos
func (e WorkEnvelope) Validate() error {
	if e.XMin > e.XMax || e.YMin > e.YMax || e.ZMin > e.ZMax {
		return fmt.Errorf("envelope de trabalho inválido: limites mínimos maiores que máximos")
	}
	return nil
}

// ConnectionState é o estado da conexão mantido pelo serviço de hardware
type ConnectionState int

const (
	ConnDisconnected ConnectionState = iota
	ConnConnecting
	ConnConnected
	ConnReconnecting
	ConnFailed
)

// String retorna a representação textual do estado de conexão
func (cs ConnectionState) String() string {
	switch cs {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnReconnecting:
		return "reconnecting"
	case ConnFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText serializa o estado de conexão
func (cs ConnectionState) MarshalText() ([]byte, error) {
	return []byte(cs.String()), nil
}
