package cli

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func SetupStructuredLogger() {
	level := zerolog.InfoLevel
	if Flags.VerboseOutput {
		level = zerolog.DebugLevel
	}

	var out io.Writer
	switch Flags.LogFormat {
	case "json":
		out = os.Stderr
	case "console":
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	default:
		// The logger is not configured yet, so build a throwaway one for
		// the complaint.
		complaint := zerolog.New(os.Stderr)
		complaint.Fatal().
			Str("log-format", Flags.LogFormat).
			Msg("Invalid -log-format, must be json or console")
	}

	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}
