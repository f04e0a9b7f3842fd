// Package xlog provides the structured logging facility used throughout
// the mediator. It is a trimmed, adapted version of go.bryk.io/pkg/log:
// a small leveled-logging interface decoupled from any specific backend,
// with a zerolog-backed implementation and a no-op discard handler used
// as the zero value across the codebase's constructors.
package xlog

// Fields provides additional contextual information on logs; particularly
// useful for structured messages.
type Fields = map[string]any

// Level values assign a severity value to logged messages.
type Level uint

const (
	// Debug level should be used for information broadly interesting to
	// developers and operators.
	Debug Level = 0

	// Info level highlights the normal progress of the application.
	Info Level = 1

	// Warning level flags potentially harmful situations.
	Warning Level = 2

	// Error level flags events that prevent normal processing of a single
	// operation but do not require the application to stop.
	Error Level = 3
)

// Logger instances provide leveled, structured logging.
type Logger interface {
	// Debug logs a basic 'debug' level message.
	Debug(args ...any)

	// Debugf logs a formatted 'debug' level message.
	Debugf(format string, args ...any)

	// Info logs a basic 'info' level message.
	Info(args ...any)

	// Infof logs a formatted 'info' level message.
	Infof(format string, args ...any)

	// Warning logs a 'warning' level message.
	Warning(args ...any)

	// Warningf logs a formatted 'warning' level message.
	Warningf(format string, args ...any)

	// Error logs an 'error' level message.
	Error(args ...any)

	// Errorf logs a formatted 'error' level message.
	Errorf(format string, args ...any)

	// WithFields adds additional tags to a message to support structured
	// logging. For example: log.WithFields(fields).Debug("message").
	WithFields(fields Fields) Logger

	// WithField adds a single key/value pair to the next chained message.
	WithField(key string, value any) Logger

	// Sub returns a new logger instance carrying the provided tags on
	// every subsequent message.
	Sub(tags Fields) Logger

	// Print logs a message at the specified level.
	Print(level Level, args ...any)
}
