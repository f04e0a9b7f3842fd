// Package xerrors provides the error handling facility used throughout
// the mediator. It is a trimmed, adapted version of go.bryk.io/pkg/errors:
// root errors carry a captured stack trace, wrapped errors preserve the
// original trace, and Is/As/Unwrap follow the same semantics as the
// standard library so sentinel comparisons keep working across wraps.
package xerrors

import (
	stdErrors "errors"
	"fmt"
	"runtime"
)

// maxStackDepth bounds the number of frames captured for a new error.
const maxStackDepth = 32

// Error is an error value with an attached stack trace.
type Error struct {
	err    error
	prev   error
	prefix string
	frames []uintptr
}

// New returns a new root error wrapping the given value.
func New(msg string) error {
	return &Error{err: stdErrors.New(msg), frames: captureStack()}
}

// Errorf returns a new root error built from a format specifier. A `%w`
// verb registers its operand as the wrapped cause, same as fmt.Errorf.
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &Error{err: err, prev: err, frames: captureStack()}
}

// Wrap annotates err with a prefix message, preserving its stack trace
// when available or capturing a new one pointing at the call site.
func Wrap(err error, prefix string) error {
	if err == nil {
		return nil
	}
	frames := captureStack()
	var se *Error
	if stdErrors.As(err, &se) {
		frames = se.frames
	}
	return &Error{err: err, prev: err, prefix: prefix, frames: frames}
}

// Wrapf annotates err with a formatted prefix message.
func Wrapf(err error, format string, args ...any) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Is reports whether err matches target, per errors.Is semantics.
func Is(err, target error) bool {
	return stdErrors.Is(err, target)
}

// As finds the first error in err's chain matching target's type.
func As(err error, target any) bool {
	return stdErrors.As(err, target)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.prefix != "" {
		return fmt.Sprintf("%s: %s", e.prefix, e.err.Error())
	}
	return e.err.Error()
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.prev
}

// StackTrace returns the captured program counters for the error.
func (e *Error) StackTrace() []uintptr {
	return e.frames
}

func captureStack() []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}
