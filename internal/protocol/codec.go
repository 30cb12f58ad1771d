// Package protocol implementa o protocolo texto, orientado a linhas, do braço robótico.
//
// Cada comando e cada resposta ocupam exatamente uma linha terminada em '\n'.
// Respostas têm a forma "OK", "OK <payload>" ou "ERROR <mensagem>".
package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"robot_go/internal/models"
)

// Palavras-chave dos comandos
const (
	CmdMoveAbs   = "MOVE_ABS"
	CmdMoveRel   = "MOVE_REL"
	CmdGetPos    = "GET_POS"
	CmdGetStatus = "GET_STATUS"
	CmdStop      = "STOP"
	CmdHome      = "HOME"
	CmdReset     = "RESET"
)

const (
	okPrefix    = "OK"
	errorPrefix = "ERROR"

	positionFields = 6
	statusFields   = 4
)

// Response é uma resposta decodificada do equipamento
type Response struct {
	OK      bool
	Payload string // conteúdo após "OK " (vazio para um OK simples)
	Message string // mensagem após "ERROR "
	Raw     string
}

// FormatMoveAbs codifica um movimento absoluto
func FormatMoveAbs(p models.Position) string {
	return fmt.Sprintf("%s %s", CmdMoveAbs, joinFloats(p.X, p.Y, p.Z, p.RotationX, p.RotationY, p.RotationZ))
}

// FormatMoveRel codifica um movimento relativo
func FormatMoveRel(dx, dy, dz float64) string {
	return fmt.Sprintf("%s %s", CmdMoveRel, joinFloats(dx, dy, dz))
}

func joinFloats(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strings.Join(parts, ",")
}

// ParseResponse decodifica um frame de resposta
func ParseResponse(line string) (Response, error) {
	frame := strings.TrimRight(line, "\r\n")
	resp := Response{Raw: frame}

	switch {
	case frame == okPrefix:
		resp.OK = true
		return resp, nil
	case strings.HasPrefix(frame, okPrefix+" "):
		resp.OK = true
		resp.Payload = strings.TrimSpace(frame[len(okPrefix)+1:])
		return resp, nil
	case frame == errorPrefix:
		return resp, nil
	case strings.HasPrefix(frame, errorPrefix+" "):
		resp.Message = strings.TrimSpace(frame[len(errorPrefix)+1:])
		return resp, nil
	default:
		return resp, protocolErr(frame, ErrMalformedFrame)
	}
}

// DecodePosition converte o payload de GET_POS em uma Position
func DecodePosition(payload string) (models.Position, error) {
	fields := splitFields(payload)
	if len(fields) < positionFields {
		return models.Position{}, protocolErr(payload,
			fmt.Errorf("%w: esperado %d, recebido %d", ErrFieldCount, positionFields, len(fields)))
	}

	values, err := parseFloats(fields[:positionFields])
	if err != nil {
		return models.Position{}, protocolErr(payload, err)
	}

	return models.Position{
		X:         values[0],
		Y:         values[1],
		Z:         values[2],
		RotationX: values[3],
		RotationY: values[4],
		RotationZ: values[5],
		Timestamp: time.Now(),
	}, nil
}

// DecodeStatus converte o payload de GET_STATUS em um Status
func DecodeStatus(payload string) (models.Status, error) {
	fields := splitFields(payload)
	if len(fields) != statusFields {
		return models.Status{}, protocolErr(payload,
			fmt.Errorf("%w: esperado %d, recebido %d", ErrFieldCount, statusFields, len(fields)))
	}

	state, ok := models.ParseRobotState(fields[0])
	if !ok {
		return models.Status{}, protocolErr(payload, fmt.Errorf("%w: %q", ErrUnknownState, fields[0]))
	}

	temperature, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return models.Status{}, protocolErr(payload, fmt.Errorf("%w: temperatura %q", ErrInvalidNumber, fields[1]))
	}

	code, err := strconv.Atoi(fields[2])
	if err != nil {
		return models.Status{}, protocolErr(payload, fmt.Errorf("%w: código de erro %q", ErrInvalidNumber, fields[2]))
	}

	load, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return models.Status{}, protocolErr(payload, fmt.Errorf("%w: carga %q", ErrInvalidNumber, fields[3]))
	}

	return models.Status{
		IsConnected:    true,
		State:          state,
		Temperature:    temperature,
		ErrorCode:      models.ErrorCodeFromInt(code),
		LoadPercentage: load,
		Timestamp:      time.Now(),
	}, nil
}

func splitFields(payload string) []string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}
	fields := strings.Split(payload, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseFloats(fields []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: campo %d %q", ErrInvalidNumber, i, f)
		}
		values[i] = v
	}
	return values, nil
}
