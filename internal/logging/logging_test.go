package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
		ok   bool
	}{
		{"trace", zerolog.TraceLevel, true},
		{" Debug ", zerolog.DebugLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"", zerolog.InfoLevel, false},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNewHonoursEnvironment(t *testing.T) {
	t.Setenv(EnvLogJSON, "1")
	t.Setenv(EnvLogLevel, "error")

	var buf bytes.Buffer
	log := New(&buf, "debug")
	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Error().Msg("shown")
	assert.Contains(t, buf.String(), `"message":"shown"`)
	assert.Contains(t, buf.String(), `"app":"vcmailbox"`)
}

func TestNewConsole(t *testing.T) {
	t.Setenv(EnvLogNoColor, "true")

	var buf bytes.Buffer
	log := New(&buf, "info")
	log.Info().Str("channel", "property-arm-to-vc").Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "channel=property-arm-to-vc")
}
