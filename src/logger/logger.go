package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds the service logger. Unknown levels fall back to info.
func New(levelStr, format string) zerolog.Logger {
	return NewWithWriter(os.Stdout, levelStr, format)
}

func NewWithWriter(out io.Writer, levelStr, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if format != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	level, err := zerolog.ParseLevel(levelStr)
	invalid := err != nil || level == zerolog.NoLevel
	if invalid {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()

	if invalid {
		log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
	}
	return log
}
