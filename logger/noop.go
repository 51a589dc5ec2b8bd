package logger

// Noop discards every log line.
type Noop struct{}

var _ Logger = Noop{}

func (Noop) Trace(string, ...any) {}
func (Noop) Debug(string, ...any) {}
func (Noop) Info(string, ...any)  {}
func (Noop) Warn(string, ...any)  {}
func (Noop) Error(string, ...any) {}
func (Noop) Fatal(string, ...any) {}
