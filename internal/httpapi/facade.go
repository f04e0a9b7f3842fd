// Package httpapi is the thin HTTP boundary described for the
// MediatorHTTP facade: it accepts inbound POSTs addressed to an
// endpoint, and negotiates long-polling (SSE) and WebSocket listeners
// that camp on an endpoint's pub/sub address. It owns no dispatch
// logic of its own; it only translates HTTP semantics into calls
// against the dispatch, forward, and store packages.
package httpapi

import (
	"net/http"
	"time"

	"go.bryk.io/mediator/internal/dispatch"
	"go.bryk.io/mediator/internal/forward"
	"go.bryk.io/mediator/internal/metrics"
	"go.bryk.io/mediator/internal/xlog"
)

// acceptedContentTypes is the set of Content-Type values an inbound
// POST may carry.
var acceptedContentTypes = map[string]bool{
	"application/ssi-agent-wire":         true,
	"application/json":                   true,
	"application/didcomm-envelope-enc":   true,
	"application/didcomm-encrypted+json": true,
}

// directory is the subset of store.Directory the facade needs directly,
// beyond what it hands to the dispatcher.
type directory interface {
	Resolve(uid string, ignoreCache bool) (string, error)
	Rebind(uid, newAddress string) error
	RoutingKeys(uid string) ([]string, error)
	Verkey(uid string) (string, error)
}

// registry is the subset of broker.Registry the facade needs to perform
// rotation after a broker-connection error.
type registry interface {
	Select(unwanted []string) (string, error)
}

// Config adjusts path prefixes and timeouts used by the facade's routes.
type Config struct {
	// EndpointsPrefix is the path prefix for inbound POSTs, e.g.
	// "/endpoints" yields "/endpoints/{uid}".
	EndpointsPrefix string
	// LongPollingPrefix is the path serving the SSE stream, e.g. "/lp".
	LongPollingPrefix string
	// WSPrefix is the path prefix serving WebSocket listeners, e.g. "/ws"
	// yields "/ws" (endpoint camping) and "/ws/events" (raw pass-through).
	WSPrefix string
	// DeliveryTTL bounds how long PushDispatcher.Deliver waits for an ack.
	DeliveryTTL time.Duration
}

// DefaultConfig returns the conventional path layout used by the
// reference deployment.
func DefaultConfig() Config {
	return Config{
		EndpointsPrefix:   "/endpoints",
		LongPollingPrefix: "/lp",
		WSPrefix:          "/ws",
		DeliveryTTL:       30 * time.Second,
	}
}

// Facade wires the HTTP surface described in the external interfaces
// section: inbound POST delivery, SSE long-polling, and WebSocket
// camping, on top of the dispatch engine.
type Facade struct {
	cfg        Config
	dispatcher *dispatch.PushDispatcher
	forwarder  *forward.Forwarder
	directory  directory
	registry   registry
	log        xlog.Logger
}

// New builds a Facade. fw may be nil, in which case a Forwarder using
// forward.DefaultWrap is used.
func New(
	cfg Config,
	dispatcher *dispatch.PushDispatcher,
	fw *forward.Forwarder,
	dir directory,
	reg registry,
	log xlog.Logger,
) *Facade {
	if log == nil {
		log = xlog.Discard()
	}
	if fw == nil {
		fw = forward.New(nil)
	}
	return &Facade{cfg: cfg, dispatcher: dispatcher, forwarder: fw, directory: dir, registry: reg, log: log}
}

// Routes returns the HTTP handler serving every route the facade owns,
// suitable for passing to nethttp.WithHandler.
func (f *Facade) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+f.cfg.EndpointsPrefix+"/{uid}", f.handlePush)
	mux.HandleFunc("GET "+f.cfg.LongPollingPrefix, f.handleLongPoll)
	mux.HandleFunc("GET "+f.cfg.WSPrefix, f.handleWebSocket)
	mux.HandleFunc("GET "+f.cfg.WSPrefix+"/events", f.handleRawEvents)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
