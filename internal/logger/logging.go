// Package logger builds prefixed charmbracelet/log loggers for the parts of
// bookserve that want their own prefix or output.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to stderr. stdout is reserved for the IPC
// stream in server mode.
func New(prefix string) *log.Logger {
	return NewWithWriter(os.Stderr, prefix)
}

// NewWithWriter creates a logger on w that follows the global log level and
// only shows timestamps in debug mode.
func NewWithWriter(w io.Writer, prefix string) *log.Logger {
	level := log.GetLevel()
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    false,
		ReportTimestamp: level <= log.DebugLevel,
		Formatter:       log.TextFormatter,
	})
}

// Setup configures the default logger used by the package-level log calls.
func Setup(debug bool) {
	level := log.WarnLevel
	if debug {
		level = log.DebugLevel
	}
	log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: debug,
		TimeFormat:      "15:04:05.000",
	}))
}
