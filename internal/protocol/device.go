package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"robot_go/internal/models"
)

// Command é um comando recebido pelo lado do equipamento
type Command struct {
	Keyword string
	Args    []float64
}

var commandArity = map[string]int{
	CmdMoveAbs:   6,
	CmdMoveRel:   3,
	CmdGetPos:    0,
	CmdGetStatus: 0,
	CmdStop:      0,
	CmdHome:      0,
	CmdReset:     0,
}

// ParseCommand decodifica uma linha de comando. A palavra-chave não diferencia
// maiúsculas de minúsculas e os números aceitam qualquer precisão decimal.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	keyword, rest, _ := strings.Cut(line, " ")
	keyword = strings.ToUpper(keyword)

	arity, ok := commandArity[keyword]
	if !ok {
		return Command{}, protocolErr(line, fmt.Errorf("%w: %q", ErrUnknownCommand, keyword))
	}

	cmd := Command{Keyword: keyword}
	fields := splitFields(rest)
	if len(fields) != arity {
		return Command{}, protocolErr(line,
			fmt.Errorf("%w: %s espera %d argumentos, recebido %d", ErrFieldCount, keyword, arity, len(fields)))
	}
	if arity == 0 {
		return cmd, nil
	}

	args, err := parseFloats(fields)
	if err != nil {
		return Command{}, protocolErr(line, err)
	}
	cmd.Args = args
	return cmd, nil
}

// FormatOK monta uma resposta de sucesso
func FormatOK(payload string) string {
	if payload == "" {
		return okPrefix
	}
	return okPrefix + " " + payload
}

// FormatError monta uma resposta de erro
func FormatError(message string) string {
	return errorPrefix + " " + message
}

// FormatPosition monta o payload de GET_POS
func FormatPosition(p models.Position) string {
	return joinFloats(p.X, p.Y, p.Z, p.RotationX, p.RotationY, p.RotationZ)
}

// FormatStatus monta o payload de GET_STATUS
func FormatStatus(s models.Status) string {
	return fmt.Sprintf("%s,%s,%d,%s",
		s.State.String(),
		strconv.FormatFloat(s.Temperature, 'f', 2, 64),
		int(s.ErrorCode),
		strconv.FormatFloat(s.LoadPercentage, 'f', 2, 64))
}
