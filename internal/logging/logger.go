// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger from environment variables.
//
//	IMAGEFIX_LOG_LEVEL:  debug, info, warn, error (default info)
//	IMAGEFIX_LOG_FORMAT: json for machine-readable output; anything else
//	                     gets the human console writer
func Init() {
	zerolog.SetGlobalLevel(parseLevel(os.Getenv("IMAGEFIX_LOG_LEVEL")))

	if os.Getenv("IMAGEFIX_LOG_FORMAT") != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
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
