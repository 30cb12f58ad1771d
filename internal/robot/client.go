package robot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"robot_go/internal/protocol"
	"robot_go/pkg/logger"
)

// drainWindow é quanto tempo o cliente espera por respostas atrasadas antes de
// reutilizar um stream que teve uma troca interrompida.
const drainWindow = 25 * time.Millisecond

// Transport é a sessão de transporte usada pelo Service
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	SendCommand(ctx context.Context, line string) (protocol.Response, error)
	IsConnected() bool
}

// errConnectAborted indica um Disconnect durante a discagem
var errConnectAborted = errors.New("disconnected while dialing")

// dialFunc abre o socket com o equipamento
type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// link é uma conexão física e seu leitor de frames
type link struct {
	conn   net.Conn
	reader *bufio.Reader
	stale  bool // protegido por Client.ioMu
}

// RobotClient gerencia a conexão TCP com o braço robótico.
// Não há retentativas internas: toda falha é reportada ao chamador.
type RobotClient struct {
	addr           string
	commandTimeout time.Duration

	dial dialFunc

	// connMu protege link e gen e nunca é mantido durante a discagem;
	// ioMu torna atômico cada par envio+recebimento
	connMu    sync.Mutex
	ioMu      sync.Mutex
	link      *link
	gen       uint64 // incrementado a cada Disconnect
	connected atomic.Bool
}

// NewRobotClient cria uma nova instância do cliente do braço
func NewRobotClient(host string, port int, connectTimeout, commandTimeout time.Duration) *RobotClient {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &RobotClient{
		addr:           net.JoinHostPort(host, fmt.Sprint(port)),
		commandTimeout: commandTimeout,
		dial:           dialer.DialContext,
	}
}

// Addr retorna o endereço do equipamento
func (c *RobotClient) Addr() string {
	return c.addr
}

// Connect estabelece conexão com o braço. Se já conectado, não faz nada.
// A discagem acontece fora de connMu: comandos concorrentes falham na hora
// com ErrNotConnected em vez de esperar o timeout de conexão.
func (c *RobotClient) Connect(ctx context.Context) error {
	c.connMu.Lock()
	if c.link != nil && c.connected.Load() {
		c.connMu.Unlock()
		return nil
	}
	if c.link != nil {
		c.link.conn.Close()
		c.link = nil
	}
	gen := c.gen
	c.connMu.Unlock()

	logger.Debugf("Tentando conectar ao braço em %s...", c.addr)

	conn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return &ConnectionError{Op: "connect", Addr: c.addr, Err: fmt.Errorf("%w: %w", ErrConnectionFailed, err)}
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
		tcp.SetKeepAlive(true)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.gen != gen {
		conn.Close()
		return &ConnectionError{Op: "connect", Addr: c.addr, Err: fmt.Errorf("%w: %w", ErrConnectionFailed, errConnectAborted)}
	}
	if c.link != nil && c.connected.Load() {
		// outro Connect concorrente venceu
		conn.Close()
		return nil
	}

	c.link = &link{conn: conn, reader: bufio.NewReader(conn)}
	c.connected.Store(true)
	logger.Infof("Conectado ao braço em %s", c.addr)
	return nil
}

// Disconnect fecha a conexão e aborta discagens em andamento.
// Nunca falha do ponto de vista do chamador.
func (c *RobotClient) Disconnect() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.gen++
	c.connected.Store(false)
	if c.link != nil {
		if err := c.link.conn.Close(); err != nil {
			logger.Debugf("Erro ao fechar conexão com o braço: %v", err)
		}
		c.link = nil
		logger.Info("Conexão com o braço fechada")
	}
}

// IsConnected retorna o último estado conhecido do socket
func (c *RobotClient) IsConnected() bool {
	return c.connected.Load()
}

// SendCommand envia uma linha de comando e aguarda exatamente uma linha de resposta
func (c *RobotClient) SendCommand(ctx context.Context, line string) (protocol.Response, error) {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	command := commandKeyword(line)

	c.connMu.Lock()
	l := c.link
	c.connMu.Unlock()
	if l == nil || !c.connected.Load() {
		return protocol.Response{}, &ConnectionError{Op: "send", Addr: c.addr, Command: command, Err: ErrNotConnected}
	}

	if err := ctx.Err(); err != nil {
		return protocol.Response{}, fmt.Errorf("robot: %s cancelado: %w", command, err)
	}

	if l.stale {
		if err := c.drain(l); err != nil {
			c.dropLink(l)
			return protocol.Response{}, &ConnectionError{Op: "receive", Addr: c.addr, Command: command,
				Err: fmt.Errorf("%w: %w", ErrConnectionLost, err)}
		}
	}

	deadline := time.Now().Add(c.commandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	l.conn.SetDeadline(deadline)
	defer l.conn.SetDeadline(time.Time{})

	// Cancelamento do contexto desbloqueia a leitura imediatamente
	stop := context.AfterFunc(ctx, func() {
		l.conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := l.conn.Write([]byte(line + "\n")); err != nil {
		return protocol.Response{}, c.classify(ctx, l, "send", command, err)
	}

	frame, err := l.reader.ReadString('\n')
	if err != nil {
		return protocol.Response{}, c.classify(ctx, l, "receive", command, err)
	}

	resp, err := protocol.ParseResponse(frame)
	if err != nil {
		// frame inválido: o alinhamento do stream não é mais confiável
		l.stale = true
		return resp, err
	}
	return resp, nil
}

// classify converte um erro de I/O no erro apropriado e atualiza o estado do link
func (c *RobotClient) classify(ctx context.Context, l *link, op, command string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		l.stale = true
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("robot: %s cancelado: %w", command, ctxErr)
		}
		return &ConnectionError{Op: op, Addr: c.addr, Command: command, Err: fmt.Errorf("%w: %w", ErrCommandTimeout, err)}
	}

	c.dropLink(l)
	return &ConnectionError{Op: op, Addr: c.addr, Command: command, Err: fmt.Errorf("%w: %w", ErrConnectionLost, err)}
}

// drain descarta respostas atrasadas de uma troca anterior interrompida
func (c *RobotClient) drain(l *link) error {
	l.conn.SetReadDeadline(time.Now().Add(drainWindow))
	defer l.conn.SetReadDeadline(time.Time{})

	for {
		late, err := l.reader.ReadString('\n')
		if late != "" {
			logger.Debugf("Descartando resposta atrasada do braço: %q", strings.TrimSpace(late))
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				l.stale = false
				return nil
			}
			return err
		}
	}
}

// dropLink fecha o link se ele ainda for o atual
func (c *RobotClient) dropLink(l *link) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	l.conn.Close()
	if c.link == l {
		c.link = nil
		c.connected.Store(false)
		logger.Warnf("Conexão com o braço em %s perdida", c.addr)
	}
}

func commandKeyword(line string) string {
	keyword, _, _ := strings.Cut(strings.TrimSpace(line), " ")
	return strings.ToUpper(keyword)
}
