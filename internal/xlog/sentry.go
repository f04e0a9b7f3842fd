package xlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryOptions configures the optional Sentry error-reporting sink.
type SentryOptions struct {
	// DSN is the Sentry project DSN. Required.
	DSN string

	// Environment tags every captured event, e.g. "production".
	Environment string

	// FlushTimeout is not read by WithSentry; the returned logger has no
	// Close method and does not flush buffered events.
	FlushTimeout time.Duration

	// Transport overrides the delivery mechanism used by the Sentry
	// client, mirroring sentry.ClientOptions.Transport. Left nil, the
	// client's default HTTP transport is used; tests substitute a
	// recording transport here to assert on captured events.
	Transport sentry.Transport
}

// WithSentry wraps next so that every Error/Errorf call is additionally
// reported to Sentry as an event, carrying whatever fields were attached
// via WithField/WithFields/Sub. next receives every call unchanged; Sentry
// reporting is purely additive and never affects the sanitized log output.
func WithSentry(opts SentryOptions, next Logger) (Logger, error) {
	if next == nil {
		next = Discard()
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Environment: opts.Environment,
		Transport:   opts.Transport,
	})
	if err != nil {
		return nil, err
	}
	return &sentryHandler{next: next}, nil
}

type sentryHandler struct {
	mu     sync.Mutex
	next   Logger
	tags   Fields
	fields Fields
}

func (sh *sentryHandler) Sub(tags Fields) Logger {
	merged := Fields{}
	for k, v := range sh.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return &sentryHandler{next: sh.next.Sub(tags), tags: merged}
}

func (sh *sentryHandler) WithFields(fields Fields) Logger {
	sh.mu.Lock()
	sh.fields = fields
	sh.mu.Unlock()
	sh.next.WithFields(fields)
	return sh
}

func (sh *sentryHandler) WithField(key string, value any) Logger {
	sh.mu.Lock()
	if sh.fields == nil {
		sh.fields = Fields{}
	}
	sh.fields[key] = value
	sh.mu.Unlock()
	sh.next.WithField(key, value)
	return sh
}

func (sh *sentryHandler) Debug(args ...any)                   { sh.next.Debug(args...) }
func (sh *sentryHandler) Debugf(format string, args ...any)   { sh.next.Debugf(format, args...) }
func (sh *sentryHandler) Info(args ...any)                    { sh.next.Info(args...) }
func (sh *sentryHandler) Infof(format string, args ...any)    { sh.next.Infof(format, args...) }
func (sh *sentryHandler) Warning(args ...any)                 { sh.next.Warning(args...) }
func (sh *sentryHandler) Warningf(format string, args ...any) { sh.next.Warningf(format, args...) }

func (sh *sentryHandler) Error(args ...any) {
	sh.report(fmt.Sprint(args...))
	sh.next.Error(args...)
}

func (sh *sentryHandler) Errorf(format string, args ...any) {
	sh.report(fmt.Sprintf(format, args...))
	sh.next.Errorf(format, args...)
}

func (sh *sentryHandler) Print(level Level, args ...any) {
	if level == Error {
		sh.report(fmt.Sprint(args...))
	}
	sh.next.Print(level, args...)
}

func (sh *sentryHandler) report(msg string) {
	sh.mu.Lock()
	fields := sh.fields
	sh.fields = nil
	sh.mu.Unlock()

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range sh.tags {
			scope.SetExtra(k, v)
		}
		for k, v := range fields {
			scope.SetExtra(k, v)
		}
		sentry.CaptureMessage(msg)
	})
}
