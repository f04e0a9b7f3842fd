package sse

import (
	"time"

	"go.bryk.io/mediator/internal/xlog"
)

// StreamOption adjusts a Stream's behavior at construction time.
type StreamOption func(st *Stream) error

// WithSendTimeout sets the maximum time to wait for message delivery.
// Default is 2 seconds.
func WithSendTimeout(timeout time.Duration) StreamOption {
	return func(st *Stream) error {
		st.mu.Lock()
		st.timeout = timeout
		st.mu.Unlock()
		return nil
	}
}

// WithLogger sets the stream's log handler. Logs are discarded by
// default.
func WithLogger(logger xlog.Logger) StreamOption {
	return func(st *Stream) error {
		st.mu.Lock()
		st.log = logger
		st.mu.Unlock()
		return nil
	}
}
