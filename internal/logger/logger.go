package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the root zerolog logger. level accepts the usual zerolog
// names (trace through panic; unknown values fall back to info). format
// "pretty" selects the console writer for development; anything else emits
// JSON lines for log shipping.
//
// Components derive child loggers from the returned instance via
// log.With().Str("component", ...).
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	if format == "pretty" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", "examhall").
		Logger()
}
