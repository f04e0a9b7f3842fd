package httpapi

import (
	"net/http"

	"go.bryk.io/mediator/internal/dispatch"
	"go.bryk.io/mediator/internal/sse"
	"go.bryk.io/mediator/internal/xerrors"
)

// handleLongPoll serves "GET /{long-polling-prefix}?endpoint=<uid>": an
// SSE stream emitting one event per inbound request addressed to uid.
// The listener camps on the endpoint's resolved broker address for the
// lifetime of the HTTP connection; each relayed message is acked as
// delivered once it is handed to the SSE stream.
func (f *Facade) handleLongPoll(w http.ResponseWriter, r *http.Request) {
	sse.Handler(func(req *http.Request) (*sse.Subscription, error) {
		uid := req.URL.Query().Get("endpoint")
		if uid == "" {
			return nil, xerrors.New("missing endpoint query parameter")
		}
		addr, err := f.directory.Resolve(uid, false)
		if err != nil || addr == "" {
			return nil, xerrors.New("endpoint has no camped address")
		}

		listener, err := dispatch.NewPullListener(addr, f.log)
		if err != nil {
			return nil, err
		}

		stream, err := sse.NewStream(uid, sse.WithLogger(f.log))
		if err != nil {
			_ = listener.Close()
			return nil, err
		}
		sub := stream.Subscribe(req.Context(), "lp-"+uid)

		go f.pumpListener(req.Context(), listener, func(msg []byte) bool {
			stream.SendMessage(rawJSON(msg))
			return true
		})
		go func() {
			<-sub.Done()
			_ = listener.Close()
		}()
		return sub, nil
	})(w, r)
}

// rawJSON lets an already-encoded JSON payload pass through
// Event.Encode's json.Marshal call unchanged.
type rawJSON []byte

// MarshalJSON implements json.Marshaler.
func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}
