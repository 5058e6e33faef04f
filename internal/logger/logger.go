package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global zerolog logger at stdout. pretty selects the console
// writer, otherwise lines are JSON. An unknown level falls back to info.
func Setup(level string, pretty bool) {
	SetupWriter(os.Stdout, level, pretty)
}

func SetupWriter(w io.Writer, level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
