package sysutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keepGlobals(t *testing.T) {
	t.Helper()
	lvl, lg := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(lvl)
		log.Logger = lg
	})
}

func TestSetLogLevel(t *testing.T) {
	keepGlobals(t)
	cases := map[string]zerolog.Level{
		"debug":     zerolog.DebugLevel,
		"  DeBuG  ": zerolog.DebugLevel,
		"trace":     zerolog.TraceLevel,
		"":          zerolog.InfoLevel,
		"warning":   zerolog.WarnLevel,
		"WARN":      zerolog.WarnLevel,
		"error":     zerolog.ErrorLevel,
		"verbose":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, SetLogLevel(in), in)
		assert.Equal(t, want, zerolog.GlobalLevel(), in)
	}
}

func TestConfigureLogger_JSONLines(t *testing.T) {
	keepGlobals(t)
	var buf bytes.Buffer
	ConfigureLogger(&buf, "warn", false)

	log.Info().Msg("dropped")
	log.Warn().Str("story_id", "s1").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "s1", entry["story_id"])
	assert.Contains(t, entry, "time")
}

func TestConfigureLogger_Pretty(t *testing.T) {
	keepGlobals(t)
	var buf bytes.Buffer
	ConfigureLogger(&buf, "info", true)

	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "console output is not JSON")
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		assert.True(t, IsTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "off", "  ", "sure"} {
		assert.False(t, IsTruthy(v), v)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "", FirstNonEmpty())
	assert.Equal(t, "", FirstNonEmpty(" ", "\t"))
	assert.Equal(t, "9090", FirstNonEmpty("   ", " 9090 ", "8080"))
	assert.Equal(t, "alpha", FirstNonEmpty("alpha", "beta"))
}
