package logging

import "github.com/vvka-141/sparketl/pkg/sparketl"

var (
	_ sparketl.Logger = (*NullLogger)(nil)
	_ sparketl.Logger = (*ConsoleLogger)(nil)
)

// NullLogger discards everything. Tests use it where output is not asserted.
type NullLogger struct{}

func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Verbose(string, ...any) {}

func (l *NullLogger) Info(string, ...any) {}

func (l *NullLogger) Error(string, ...any) {}
