package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetLevel(LevelInfo)
		SetOutput(nopWriter{})
	})
	return &buf
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestLineFormat(t *testing.T) {
	buf := capture(t, LevelInfo)
	Info("grid cache warmed", "year", 2026, "month", "October")

	line := strings.TrimSpace(buf.String())
	_, rest, ok := strings.Cut(line, " ")
	require.True(t, ok)
	assert.Equal(t, "[INFO] grid cache warmed year=2026 month=October", rest)
}

func TestErrorPrependsErr(t *testing.T) {
	buf := capture(t, LevelInfo)
	Error("render failed", errors.New("boom"), "path", "/calendar")
	assert.Contains(t, buf.String(), "[ERROR] render failed err=boom path=/calendar")
}

func TestQuotesValuesWithSpaces(t *testing.T) {
	buf := capture(t, LevelDebug)
	Debug("rule", "name", "Gandhi Jayanthi", "empty", "", "dangling")
	assert.Contains(t, buf.String(), `name="Gandhi Jayanthi" empty=""`)
	assert.NotContains(t, buf.String(), "dangling")
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)
	Debug("d")
	Info("i")
	Warn("w")
	Error("e", nil)

	out := buf.String()
	assert.NotContains(t, out, "[DEBUG]")
	assert.NotContains(t, out, "[INFO]")
	assert.Contains(t, out, "[WARN] w")
	assert.Contains(t, out, "[ERROR] e")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"Warning": LevelWarn,
		" error ": LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
