// Package nethttp is a trimmed, adapted copy of go.bryk.io/pkg/net/http:
// a minimal HTTP(S) server wrapper with functional-option configuration
// and an ordered middleware chain, used to host the mediator's push,
// long-polling, and WebSocket endpoints.
package nethttp

import (
	"context"
	"crypto/tls"
	"fmt"
	lib "net/http"
	"sync"
	"time"
)

// Server provides the main HTTP(S) service provider.
type Server struct {
	nh   *lib.Server
	sh   lib.Handler
	mw   []func(lib.Handler) lib.Handler
	mu   sync.Mutex
	tls  *tls.Config
	port int
}

// NewServer returns a ready-to-use server instance adjusted with the
// provided configuration options.
func NewServer(options ...Option) (*Server, error) {
	srv := &Server{
		nh: &lib.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			IdleTimeout:       10 * time.Second,
			WriteTimeout:      0, // streaming endpoints (SSE/WS) need unbounded writes
		},
		mw: []func(lib.Handler) lib.Handler{},
	}
	for _, opt := range options {
		if err := opt(srv); err != nil {
			return nil, err
		}
	}
	for _, mw := range srv.mw {
		srv.sh = mw(srv.sh)
	}
	return srv, nil
}

// Start the server instance and begin receiving and handling requests.
func (srv *Server) Start() error {
	srv.nh.Handler = srv.sh
	if srv.tls != nil {
		return srv.nh.ListenAndServeTLS("", "")
	}
	return srv.nh.ListenAndServe()
}

// Stop the server instance. If graceful is set, the server closes
// without interrupting active connections.
func (srv *Server) Stop(graceful bool) error {
	if !graceful {
		return srv.nh.Close()
	}
	return srv.nh.Shutdown(context.Background())
}

// Addr returns the server's configured listen address.
func (srv *Server) Addr() string {
	return fmt.Sprintf(":%d", srv.port)
}
