package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(level zerolog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return newLogger(&buf, level), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew_Environments(t *testing.T) {
	for _, env := range []string{"development", "production", "test"} {
		t.Run(env, func(t *testing.T) {
			log := New(env)
			require.NotNil(t, log)
			assert.NotNil(t, log.GetZerolog())
		})
	}
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		level    string
		expected zerolog.Level
	}{
		{name: "development default", env: "development", expected: zerolog.DebugLevel},
		{name: "production default", env: "production", expected: zerolog.InfoLevel},
		{name: "explicit override", env: "development", level: "warn", expected: zerolog.WarnLevel},
		{name: "case insensitive", env: "production", level: "ERROR", expected: zerolog.ErrorLevel},
		{name: "unknown level falls back", env: "production", level: "loud", expected: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveLevel(tt.env, tt.level))
		})
	}
}

func TestLevels_WriteFields(t *testing.T) {
	log, buf := bufferLogger(zerolog.DebugLevel)

	log.Debug("debug message", map[string]interface{}{"lot": "12", "storeys": 2})
	entry := decode(t, buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "debug message", entry["message"])
	assert.Equal(t, "12", entry["lot"])
	assert.Equal(t, "urbix-api", entry["service"])

	buf.Reset()
	log.Warn("warning message", map[string]interface{}{"category": "flood"})
	entry = decode(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "flood", entry["category"])
}

func TestError_IncludesError(t *testing.T) {
	log, buf := bufferLogger(zerolog.InfoLevel)

	log.Error("provider failed", errors.New("connection reset"), map[string]interface{}{
		"category": "zoning",
	})

	entry := decode(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "connection reset", entry["error"])
	assert.Equal(t, "zoning", entry["category"])
}

func TestInfoLevel_SuppressesDebug(t *testing.T) {
	log, buf := bufferLogger(zerolog.InfoLevel)

	log.Debug("hidden", nil)
	assert.Empty(t, buf.String())

	log.Info("shown", nil)
	assert.Contains(t, buf.String(), "shown")
}

func TestChildLoggers(t *testing.T) {
	log, buf := bufferLogger(zerolog.InfoLevel)

	log.With(map[string]interface{}{"version": "1.0"}).
		WithComponent("resolver").
		WithRequestID("req-12345").
		Info("request received", nil)

	entry := decode(t, buf)
	assert.Equal(t, "1.0", entry["version"])
	assert.Equal(t, "resolver", entry["component"])
	assert.Equal(t, "req-12345", entry["request_id"])
}

func TestNilFields(t *testing.T) {
	log, buf := bufferLogger(zerolog.InfoLevel)

	assert.NotPanics(t, func() {
		log.Info("message with nil fields", nil)
	})
	assert.Contains(t, buf.String(), "message with nil fields")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error("discarded", errors.New("boom"), nil)
	})
}

func TestNewWithWriter(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	// Act
	log.Info("dropped", nil)
	log.Warn("kept", map[string]interface{}{"lotplan": "1RP1"})

	// Assert
	entry := decode(t, &buf)
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "1RP1", entry["lotplan"])
	assert.Equal(t, "urbix-api", entry["service"])
}
