// Package logging provides concrete implementations of the vload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes formatted messages to stderr through logrus
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
