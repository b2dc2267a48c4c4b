package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. Structured JSON goes to stderr so
// stdout stays free for CLI output.
func Init(level string) {
	logger := zerolog.New(os.Stderr).Level(parseLevel(level)).With().Timestamp().Logger()
	log.Logger = logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
