package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// CreateLogger returns a console logger writing to w at the given level
// ("trace", "debug", "info", "warn", "error"). Unknown levels fall back to info.
func CreateLogger(level string, w io.Writer) log.Logger {
	if w == nil {
		w = os.Stderr
	}

	return log.Logger{
		Level:  log.ParseLevel(level),
		Caller: 0,
		Writer: &log.ConsoleWriter{
			ColorOutput:    false,
			EndWithMessage: true,
			Writer:         w,
		},
	}
}

// CreateDefaultLogger is the logger used by the engine when the caller
// provides none: warnings and errors only, on stderr.
func CreateDefaultLogger() log.Logger {
	return CreateLogger("warn", os.Stderr)
}

// CreateDiscardLogger drops everything. Handy in tests.
func CreateDiscardLogger() log.Logger {
	return log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}
