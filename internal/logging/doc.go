// Package logging provides concrete implementations of the sparketl.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: slog-backed console output rendered by tint
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
