// pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = build(consoleWriter(os.Stdout), zerolog.InfoLevel)
	log.Logger = Log
}

// Configure switches the output format ("console" or "json") and level.
// It also replaces zerolog's package logger so code using
// github.com/rs/zerolog/log picks up the same settings.
func Configure(format, levelStr string) {
	var out io.Writer = consoleWriter(os.Stdout)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		out = os.Stdout
	}

	Log = build(out, zerolog.InfoLevel)
	SetLevel(levelStr)
}

// SetLevel sets the log level. An empty level means info.
func SetLevel(levelStr string) {
	level, ok := parseLevel(levelStr)
	if !ok {
		Log.Warn().Str("requested_level", levelStr).Msg("invalid log level, defaulting to info")
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}

func parseLevel(levelStr string) (zerolog.Level, bool) {
	levelStr = strings.ToLower(strings.TrimSpace(levelStr))
	if levelStr == "" {
		return zerolog.InfoLevel, true
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, false
	}
	return level, true
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

func build(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}
