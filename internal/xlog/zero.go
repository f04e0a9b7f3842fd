package xlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZeroOptions adjusts the behavior of a logger instance backed by the
// zerolog library.
type ZeroOptions struct {
	// PrettyPrint prints messages in a human-friendly textual
	// representation instead of structured JSON.
	PrettyPrint bool

	// Sink is the destination for all produced messages. Defaults to
	// os.Stderr when not provided.
	Sink io.Writer
}

// WithZero returns a logger handler backed by the zerolog library.
func WithZero(opts ZeroOptions) Logger {
	if opts.Sink == nil {
		opts.Sink = os.Stderr
	}
	handler := zerolog.New(opts.Sink).With().Timestamp().Logger()
	if opts.PrettyPrint {
		handler = handler.Output(zerolog.ConsoleWriter{
			Out:        opts.Sink,
			TimeFormat: time.RFC3339,
		})
	}
	return &zeroHandler{log: handler}
}

type zeroHandler struct {
	mu     sync.Mutex
	log    zerolog.Logger
	fields Fields
}

func (zh *zeroHandler) Sub(tags Fields) Logger {
	return &zeroHandler{log: zh.log.With().Fields(map[string]any(tags)).Logger()}
}

func (zh *zeroHandler) WithFields(fields Fields) Logger {
	zh.mu.Lock()
	zh.fields = fields
	zh.mu.Unlock()
	return zh
}

func (zh *zeroHandler) WithField(key string, value any) Logger {
	zh.mu.Lock()
	if zh.fields == nil {
		zh.fields = Fields{}
	}
	zh.fields[key] = value
	zh.mu.Unlock()
	return zh
}

func (zh *zeroHandler) Debug(args ...any) {
	zh.setFields(zh.log.Debug()).Msg(fmt.Sprint(sanitize(args...)...))
}

func (zh *zeroHandler) Debugf(format string, args ...any) {
	zh.setFields(zh.log.Debug()).Msgf(format, sanitize(args...)...)
}

func (zh *zeroHandler) Info(args ...any) {
	zh.setFields(zh.log.Info()).Msg(fmt.Sprint(sanitize(args...)...))
}

func (zh *zeroHandler) Infof(format string, args ...any) {
	zh.setFields(zh.log.Info()).Msgf(format, sanitize(args...)...)
}

func (zh *zeroHandler) Warning(args ...any) {
	zh.setFields(zh.log.Warn()).Msg(fmt.Sprint(sanitize(args...)...))
}

func (zh *zeroHandler) Warningf(format string, args ...any) {
	zh.setFields(zh.log.Warn()).Msgf(format, sanitize(args...)...)
}

func (zh *zeroHandler) Error(args ...any) {
	zh.setFields(zh.log.Error()).Msg(fmt.Sprint(sanitize(args...)...))
}

func (zh *zeroHandler) Errorf(format string, args ...any) {
	zh.setFields(zh.log.Error()).Msgf(format, sanitize(args...)...)
}

func (zh *zeroHandler) Print(level Level, args ...any) {
	switch level {
	case Debug:
		zh.Debug(args...)
	case Info:
		zh.Info(args...)
	case Warning:
		zh.Warning(args...)
	case Error:
		zh.Error(args...)
	}
}

func (zh *zeroHandler) setFields(ev *zerolog.Event) *zerolog.Event {
	zh.mu.Lock()
	if zh.fields != nil {
		ev.Fields(map[string]any(zh.fields))
		zh.fields = nil
	}
	zh.mu.Unlock()
	return ev
}

// sanitize removes newlines and carriage returns from string arguments
// to prevent log injection when printing to a textual sink.
func sanitize(args ...any) []any {
	sv := make([]any, len(args))
	for i, v := range args {
		if vs, ok := v.(string); ok {
			v = strings.ReplaceAll(strings.ReplaceAll(vs, "\n", ""), "\r", "")
		}
		sv[i] = v
	}
	return sv
}
