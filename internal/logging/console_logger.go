package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ConsoleLogger writes log messages to stderr.
// Safe for concurrent use by multiple goroutines: logrus serializes writes.
type ConsoleLogger struct {
	log *logrus.Logger
}

// NewConsoleLogger creates a new ConsoleLogger writing to stderr.
// If verbose is true, Verbose() calls will produce output.
// If verbose is false, Verbose() calls are no-ops.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stderr, verbose)
}

// NewConsoleLoggerTo creates a ConsoleLogger writing to out.
func NewConsoleLoggerTo(out io.Writer, verbose bool) *ConsoleLogger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(consoleFormatter{})
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return &ConsoleLogger{log: log}
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...any) {
	if !l.log.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	l.log.Debug(render(format, args))
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...any) {
	l.log.Info(render(format, args))
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...any) {
	l.log.Error(render(format, args))
}

// render formats only when args are given so a bare message containing
// '%' is printed as is.
func render(format string, args []any) string {
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// consoleFormatter prints one plain line per entry with a level tag for
// anything other than info.
type consoleFormatter struct{}

func (consoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var prefix string
	switch e.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		prefix = "[VERBOSE] "
	case logrus.WarnLevel:
		prefix = "[WARN] "
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		prefix = "[ERROR] "
	}
	return []byte(prefix + e.Message + "\n"), nil
}
