package robot

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected indica que não há conexão ativa com o braço.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionFailed indica falha ao estabelecer a conexão (timeout ou recusa).
	ErrConnectionFailed = errors.New("connection failed")

	// ErrCommandTimeout indica que a resposta não chegou dentro do timeout de comando.
	ErrCommandTimeout = errors.New("command timeout")

	// ErrConnectionLost indica erro de I/O no socket durante uma troca.
	ErrConnectionLost = errors.New("connection lost")
)

// ConnectionError é a falha de conexão com o hardware: socket desconectado,
// erro de I/O ou timeout de comando. É transitória; o chamador pode repetir.
type ConnectionError struct {
	Op      string // "connect", "send" ou "receive"
	Addr    string
	Command string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("robot: %s %s (%s): %v", e.Op, e.Addr, e.Command, e.Err)
	}
	return fmt.Sprintf("robot: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError verifica se err é (ou encadeia) um ConnectionError
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// DeviceError é uma resposta "ERROR <mensagem>" a uma consulta de posição ou status
type DeviceError struct {
	Command string
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("robot: %s rejeitado pelo equipamento: %s", e.Command, e.Message)
}
