package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame indica uma resposta que não começa com OK nem ERROR.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrFieldCount indica uma quantidade de campos diferente da esperada no payload.
	ErrFieldCount = errors.New("unexpected field count")

	// ErrInvalidNumber indica um campo numérico que não pôde ser convertido.
	ErrInvalidNumber = errors.New("invalid numeric field")

	// ErrUnknownState indica um nome de estado não reconhecido.
	ErrUnknownState = errors.New("unknown robot state")

	// ErrUnknownCommand indica uma palavra-chave de comando desconhecida (lado do equipamento).
	ErrUnknownCommand = errors.New("unknown command")
)

// ProtocolError descreve um frame que não pôde ser decodificado
type ProtocolError struct {
	Frame string
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("erro de protocolo: %v (frame %q)", e.Err, e.Frame)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func protocolErr(frame string, err error) error {
	return &ProtocolError{Frame: frame, Err: err}
}

// IsProtocolError verifica se err (ou algum erro encadeado) é um ProtocolError
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
