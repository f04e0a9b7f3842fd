package nethttp

import (
	"crypto/tls"
	"fmt"
	lib "net/http"
	"time"

	"go.bryk.io/mediator/internal/xerrors"
)

// Option allows adjusting server settings following a functional pattern.
type Option func(srv *Server) error

// WithPort sets the TCP port to handle requests.
func WithPort(port int) Option {
	return func(srv *Server) error {
		srv.port = port
		srv.nh.Addr = fmt.Sprintf(":%d", port)
		return nil
	}
}

// WithIdleTimeout sets the maximum amount of time to wait for the next
// request when "keep-alive" is enabled.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(srv *Server) error {
		srv.nh.IdleTimeout = timeout
		srv.nh.ReadTimeout = timeout
		srv.nh.ReadHeaderTimeout = timeout
		return nil
	}
}

// WithHandler sets the HTTP handler used by the server.
func WithHandler(handler lib.Handler) Option {
	return func(srv *Server) error {
		srv.sh = handler
		return nil
	}
}

// WithMiddleware registers middleware to customize/extend the
// processing of HTTP requests, applied in the order provided:
// WithMiddleware(foo, bar) is equivalent to bar(foo(handler)).
func WithMiddleware(md ...func(lib.Handler) lib.Handler) Option {
	return func(srv *Server) error {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		srv.mw = append(srv.mw, md...)
		return nil
	}
}

// WithTLS enables HTTPS using the given certificate/key pair files.
func WithTLS(certFile, keyFile string) Option {
	return func(srv *Server) error {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return xerrors.Wrap(err, "load TLS key pair")
		}
		srv.tls = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		srv.nh.TLSConfig = srv.tls
		return nil
	}
}
