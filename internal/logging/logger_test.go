package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in     string
		expect slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expect, ParseLevel(tc.in), tc.in)
	}
}

func TestNewLoggerWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLoggerWithWriter(buf, "json", "info")
	logger.Debug("hidden")
	logger.Info("process started", "process.id", "p1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"process.id":"p1"`)
}
