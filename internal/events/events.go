// Package events define as notificações publicadas pelo serviço de hardware e o
// barramento que as distribui para os relays (WebSocket, SSE, Redis, PLC).
package events

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"robot_go/internal/models"
)

// Kind identifica o tipo de evento
type Kind string

const (
	KindPositionChanged        Kind = "position_changed"
	KindStatusChanged          Kind = "status_changed"
	KindConnectionStateChanged Kind = "connection_state_changed"
)

// Event é uma notificação emitida pelo núcleo de hardware
type Event interface {
	Kind() Kind
	OccurredAt() time.Time
}

// PositionChanged é emitido após cada decodificação bem sucedida de posição
type PositionChanged struct {
	Position models.Position
}

func (e PositionChanged) Kind() Kind            { return KindPositionChanged }
func (e PositionChanged) OccurredAt() time.Time { return e.Position.Timestamp }

// StatusChanged é emitido após cada atualização de status
type StatusChanged struct {
	Status models.Status
}

func (e StatusChanged) Kind() Kind            { return KindStatusChanged }
func (e StatusChanged) OccurredAt() time.Time { return e.Status.Timestamp }

// ConnectionStateChanged é emitido a cada transição da máquina de estados de conexão
type ConnectionStateChanged struct {
	Previous models.ConnectionState
	Current  models.ConnectionState
	At       time.Time
}

func (e ConnectionStateChanged) Kind() Kind            { return KindConnectionStateChanged }
func (e ConnectionStateChanged) OccurredAt() time.Time { return e.At }

// Listener recebe eventos. Notify é chamado de forma síncrona pelo publicador;
// implementações lentas devem repassar o evento para uma goroutine própria.
type Listener interface {
	Notify(ev Event)
}

// Func adapta uma função comum para Listener
type Func func(ev Event)

// Notify implementa Listener
func (f Func) Notify(ev Event) { f(ev) }

// Bus mantém a lista de inscritos e entrega os eventos publicados.
// Eventos publicados sem inscritos são descartados.
type Bus struct {
	listeners *xsync.MapOf[uint64, Listener]
	nextID    atomic.Uint64
}

// NewBus cria um barramento vazio
func NewBus() *Bus {
	return &Bus{
		listeners: xsync.NewMapOf[uint64, Listener](),
	}
}

// Subscribe registra um listener e retorna a função que cancela a inscrição
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	id := b.nextID.Add(1)
	b.listeners.Store(id, l)
	return func() {
		b.listeners.Delete(id)
	}
}

// Publish entrega o evento a todos os inscritos, na goroutine do chamador
func (b *Bus) Publish(ev Event) {
	b.listeners.Range(func(_ uint64, l Listener) bool {
		l.Notify(ev)
		return true
	})
}

// Len retorna o número de inscritos
func (b *Bus) Len() int {
	return b.listeners.Size()
}
