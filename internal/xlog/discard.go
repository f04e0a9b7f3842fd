package xlog

// Discard returns a no-op handler that silently drops all generated
// output. Used as the zero value by every component that accepts a
// logger via functional option.
func Discard() Logger {
	return discard{}
}

type discard struct{}

func (discard) Debug(...any)            {}
func (discard) Debugf(string, ...any)   {}
func (discard) Info(...any)             {}
func (discard) Infof(string, ...any)    {}
func (discard) Warning(...any)          {}
func (discard) Warningf(string, ...any) {}
func (discard) Error(...any)            {}
func (discard) Errorf(string, ...any)   {}
func (d discard) WithFields(Fields) Logger {
	return d
}
func (d discard) WithField(string, any) Logger {
	return d
}
func (d discard) Sub(Fields) Logger {
	return d
}
func (discard) Print(Level, ...any) {}
