// Package sse retransmite os eventos do braço como Server-Sent Events,
// para clientes que não falam WebSocket.
package sse

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/sirupsen/logrus"

	"robot_go/internal/events"
	"robot_go/pkg/logger"
)

// Channel é o canal SSE onde os eventos do braço são publicados
const Channel = "/events/robot"

// Relay é um events.Listener que publica cada evento no canal SSE
type Relay struct {
	server *sse.Server
	logOut io.Closer
	nextID atomic.Uint64
}

// NewRelay cria o relay e o servidor SSE
func NewRelay() *Relay {
	w := logger.GetLogger().WriterLevel(logrus.DebugLevel)
	return &Relay{
		server: sse.NewServer(&sse.Options{
			Logger: log.New(w, "sse: ", 0),
			Headers: map[string]string{
				"Access-Control-Allow-Origin": "*",
			},
		}),
		logOut: w,
	}
}

// ServeHTTP atende as assinaturas em /events/...
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.server.ServeHTTP(w, req)
}

// Notify implementa events.Listener
func (r *Relay) Notify(ev events.Event) {
	payload := eventPayload(ev)
	if payload == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Erro ao serializar evento SSE", err)
		return
	}

	id := strconv.FormatUint(r.nextID.Add(1), 10)
	r.server.SendMessage(Channel, sse.NewMessage(id, string(data), string(ev.Kind())))
}

// Shutdown desconecta todos os clientes
func (r *Relay) Shutdown() {
	r.server.Shutdown()
	r.logOut.Close()
}

func eventPayload(ev events.Event) interface{} {
	switch e := ev.(type) {
	case events.PositionChanged:
		return e.Position
	case events.StatusChanged:
		return e.Status
	case events.ConnectionStateChanged:
		return map[string]interface{}{
			"state":     e.Current,
			"previous":  e.Previous,
			"timestamp": e.At,
		}
	default:
		return nil
	}
}
