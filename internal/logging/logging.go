// Package logging builds the zerolog logger used across vcmailbox.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "VCMAILBOX_LOG_LEVEL"
	EnvLogNoColor = "VCMAILBOX_LOG_NOCOLOR"
	EnvLogJSON    = "VCMAILBOX_LOG_JSON"
)

// New returns a logger writing to w at level. The environment overrides
// the level and can switch to JSON output or turn colour off.
func New(w io.Writer, level string) zerolog.Logger {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl.String()
	}
	lvl, ok := ParseLevel(level)
	if !ok {
		lvl = zerolog.InfoLevel
	}

	out := w
	if !truthy(os.Getenv(EnvLogJSON)) {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    truthy(os.Getenv(EnvLogNoColor)),
		}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("app", "vcmailbox").Logger()
}

// ParseLevel accepts zerolog level names plus a few aliases.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
