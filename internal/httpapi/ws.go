package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"

	"go.bryk.io/mediator/internal/broker"
	"go.bryk.io/mediator/internal/dispatch"
)

// upgrader accepts connections from any origin; cross-origin policy for
// the mediator's WS endpoints is enforced upstream by the CORS
// middleware on the regular HTTP routes, not by the upgrader itself.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket serves "WS /{ws-prefix}?endpoint=<uid>": every inbound
// request addressed to uid is relayed as one WS text frame; a
// successfully sent frame IS the delivery acknowledgement.
func (f *Facade) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("endpoint")
	if uid == "" {
		http.Error(w, "missing endpoint query parameter", http.StatusBadRequest)
		return
	}
	addr, err := f.directory.Resolve(uid, false)
	if err != nil || addr == "" {
		http.Error(w, "endpoint has no camped address", http.StatusBadRequest)
		return
	}

	listener, err := dispatch.NewPullListener(addr, f.log)
	if err != nil {
		http.Error(w, "failed opening listener", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = listener.Close()
		return
	}
	defer func() { _ = conn.Close() }()

	// The server never expects inbound frames on this connection; this
	// goroutine only exists to observe the client disconnecting (read
	// error) so the listener can be released promptly instead of
	// leaking a blocked Next() call.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				_ = listener.Close()
				return
			}
		}
	}()

	writeMu := make(chan struct{}, 1)
	writeMu <- struct{}{}

	f.pumpListener(r.Context(), listener, func(msg []byte) bool {
		<-writeMu
		defer func() { writeMu <- struct{}{} }()
		return conn.WriteMessage(websocket.TextMessage, msg) == nil
	})
}

// handleRawEvents serves "WS /{ws-prefix}/events?stream=<id>": a raw
// pass-through listener over a named pub/sub channel, with no
// PushRequest/Ack envelope semantics -- every frame placed on the
// channel is forwarded to the client verbatim.
func (f *Facade) handleRawEvents(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("stream")
	if name == "" {
		http.Error(w, "missing stream query parameter", http.StatusBadRequest)
		return
	}
	brokers, err := f.registry.Select(nil)
	if err != nil {
		http.Error(w, "no broker reachable", http.StatusServiceUnavailable)
		return
	}
	ch, err := broker.NewChannel(broker.Join(brokers, name), f.log)
	if err != nil {
		http.Error(w, "failed opening channel", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				_ = ch.Close()
				return
			}
		}
	}()

	for {
		ok, body, err := ch.Read(nil)
		if err != nil {
			f.log.Errorf("raw events channel read failed: %v", err)
			return
		}
		if !ok {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			return
		}
	}
}
