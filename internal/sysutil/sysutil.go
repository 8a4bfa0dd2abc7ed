// Package sysutil holds small process-level helpers shared by entrypoints:
// global log level selection and service logger construction.
package sysutil

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
// Empty and unknown values fall back to info.
func SetLogLevel(lvl string) {
	zerolog.SetGlobalLevel(ParseLevel(lvl))
}

// ParseLevel maps a level name to a zerolog.Level, defaulting to info.
// "warning" is accepted as an alias for "warn".
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewServiceLogger builds the process logger: JSON to stderr by default, the
// human-readable console writer when pretty is set, always tagged with the
// service name. It also swaps the package-global zerolog/log output so
// libraries logging through it stay consistent.
func NewServiceLogger(service string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	log.Logger = log.Output(out)
	return log.With().Str("service", service).Logger()
}
