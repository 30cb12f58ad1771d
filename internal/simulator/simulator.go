// Package simulator implementa um braço robótico falso que fala o protocolo de
// linhas via TCP. É usado pelo subcomando "simulate" e pelos testes de integração.
package simulator

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"robot_go/internal/models"
	"robot_go/internal/protocol"
	"robot_go/pkg/logger"
)

// Handler permite que testes substituam a resposta de um comando.
// handled=false usa o comportamento padrão; reply vazio com handled=true não responde nada.
type Handler func(line string) (reply string, handled bool)

// Option configura o simulador
type Option func(*Simulator)

// WithMoveDelay define quanto tempo cada movimento leva para terminar
func WithMoveDelay(d time.Duration) Option {
	return func(s *Simulator) { s.moveDelay = d }
}

// WithEnvelope faz o simulador recusar movimentos fora do envelope
func WithEnvelope(e models.WorkEnvelope) Option {
	return func(s *Simulator) { s.envelope = &e }
}

// WithInitialPosition define a pose inicial
func WithInitialPosition(p models.Position) Option {
	return func(s *Simulator) { s.pose = p }
}

// Simulator é o equipamento simulado
type Simulator struct {
	log *logrus.Entry

	mutex         sync.Mutex
	pose          models.Position
	target        models.Position
	state         models.RobotState
	errorCode     models.ErrorCode
	temperature   float64
	load          float64
	envelope      *models.WorkEnvelope
	moveDelay     time.Duration
	responseDelay time.Duration
	handler       Handler
	motion        uint64
	received      []string

	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	closed   bool
}

// New cria um simulador parado na posição de referência
func New(opts ...Option) *Simulator {
	s := &Simulator{
		log:         logger.WithComponent("simulator"),
		pose:        models.HomePosition,
		state:       models.StateIdle,
		errorCode:   models.ErrorCodeNone,
		temperature: 35.5,
		conns:       make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.target = s.pose
	return s
}

// Start abre o listener em addr e atende conexões em segundo plano
func (s *Simulator) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("simulator: listen %s: %w", addr, err)
	}

	s.mutex.Lock()
	s.listener = ln
	s.mutex.Unlock()

	s.log.Infof("Simulador do braço escutando em %s", ln.Addr())

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Addr retorna o endereço real do listener
func (s *Simulator) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HostPort separa o endereço em host e porta
func (s *Simulator) HostPort() (string, int) {
	tcp, ok := s.listenerAddr().(*net.TCPAddr)
	if !ok {
		return "", 0
	}
	return tcp.IP.String(), tcp.Port
}

func (s *Simulator) listenerAddr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close para o listener, fecha todas as conexões e espera as goroutines
func (s *Simulator) Close() error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	for c := range s.conns {
		c.Close()
	}
	s.mutex.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()
	return err
}

// DropConnections fecha as conexões ativas sem parar o listener
func (s *Simulator) DropConnections() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// Connections retorna o número de conexões abertas
func (s *Simulator) Connections() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.conns)
}

// SetResponseDelay atrasa todas as respostas
func (s *Simulator) SetResponseDelay(d time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.responseDelay = d
}

// SetHandler instala um handler de respostas (nil restaura o padrão)
func (s *Simulator) SetHandler(h Handler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.handler = h
}

// SetTemperature altera a temperatura reportada
func (s *Simulator) SetTemperature(t float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.temperature = t
}

// Position retorna a pose atual
func (s *Simulator) Position() models.Position {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.pose
}

// State retorna o estado atual
func (s *Simulator) State() models.RobotState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Received retorna as linhas recebidas, na ordem
func (s *Simulator) Received() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]string, len(s.received))
	copy(out, s.received)
	return out
}

func (s *Simulator) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warnf("Erro no accept: %v", err)
			}
			return
		}

		s.mutex.Lock()
		if s.closed {
			s.mutex.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mutex.Unlock()

		s.log.Debugf("Cliente conectado: %s", conn.RemoteAddr())
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Simulator) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mutex.Lock()
		delete(s.conns, conn)
		s.mutex.Unlock()
		conn.Close()
		s.log.Debugf("Cliente desconectado: %s", conn.RemoteAddr())
	}()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		reply, delay := s.respond(line)
		if delay > 0 {
			time.Sleep(delay)
		}
		if reply == "" {
			continue
		}
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}

// respond calcula a resposta de uma linha e o atraso configurado
func (s *Simulator) respond(line string) (string, time.Duration) {
	s.mutex.Lock()
	s.received = append(s.received, line)
	handler := s.handler
	delay := s.responseDelay
	s.mutex.Unlock()

	if handler != nil {
		if reply, handled := handler(line); handled {
			return reply, delay
		}
	}
	return s.execute(line), delay
}

// execute aplica o comando ao estado simulado
func (s *Simulator) execute(line string) string {
	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownCommand) {
			return protocol.FormatError("Unknown command")
		}
		return protocol.FormatError("Invalid parameters")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch cmd.Keyword {
	case protocol.CmdGetPos:
		return protocol.FormatOK(protocol.FormatPosition(s.pose))

	case protocol.CmdGetStatus:
		return protocol.FormatOK(protocol.FormatStatus(models.Status{
			State:          s.state,
			Temperature:    s.temperature,
			ErrorCode:      s.errorCode,
			LoadPercentage: s.load,
		}))

	case protocol.CmdMoveAbs:
		target := models.Position{
			X: cmd.Args[0], Y: cmd.Args[1], Z: cmd.Args[2],
			RotationX: cmd.Args[3], RotationY: cmd.Args[4], RotationZ: cmd.Args[5],
		}
		return s.startMotion(target, models.StateMoving)

	case protocol.CmdMoveRel:
		return s.startMotion(s.pose.Offset(cmd.Args[0], cmd.Args[1], cmd.Args[2]), models.StateMoving)

	case protocol.CmdHome:
		return s.startMotion(models.HomePosition, models.StateHoming)

	case protocol.CmdStop:
		s.motion++
		s.state = models.StateEmergencyStopped
		s.load = 0
		s.log.Warn("Parada de emergência recebida")
		return protocol.FormatOK("")

	case protocol.CmdReset:
		s.motion++
		s.state = models.StateIdle
		s.errorCode = models.ErrorCodeNone
		s.load = 0
		return protocol.FormatOK("")
	}

	return protocol.FormatError("Unknown command")
}

// startMotion aceita o movimento e o conclui após moveDelay. Chamado com mutex.
func (s *Simulator) startMotion(target models.Position, state models.RobotState) string {
	switch s.state {
	case models.StateEmergencyStopped, models.StateError:
		return protocol.FormatError("Invalid state: " + s.state.String())
	}

	if s.envelope != nil && !s.envelope.Contains(target) {
		s.state = models.StateError
		s.errorCode = models.ErrorCodeWorkEnvelopeViolation
		return protocol.FormatError("Work envelope violation")
	}

	s.motion++
	s.target = target

	if s.moveDelay <= 0 {
		s.pose = target
		s.state = models.StateIdle
		return protocol.FormatOK("")
	}

	s.state = state
	s.load = 40
	id := s.motion
	time.AfterFunc(s.moveDelay, func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		if s.motion != id {
			return
		}
		s.pose = s.target
		s.state = models.StateIdle
		s.load = 0
	})
	return protocol.FormatOK("")
}
