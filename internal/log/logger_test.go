package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "level %q", tt.input)
	}
}

func TestJSONLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, FormatJSON, "info")

	logger.Info("repository cloned", "repo", "github.com/foo/bar")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "repository cloned", record["msg"])
	assert.Equal(t, "github.com/foo/bar", record["repo"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, FormatJSON, "warn")

	logger.Info("below threshold")
	assert.Empty(t, buf.String())

	logger.Warn("at threshold")
	assert.Contains(t, buf.String(), "at threshold")
}

func TestWithContextRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, FormatJSON, "info")

	ctx := WithRunID(context.Background(), "run-123")
	logger.InfoContext(ctx, "stage finished")

	assert.Contains(t, buf.String(), "run-123")
	assert.Equal(t, "run-123", RunID(ctx))
	assert.Empty(t, RunID(context.Background()))
}

func TestTerminalHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, FormatTerminal, "debug")

	logger.With("component", "cloner").Debug("fetching", "depth", 1)

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "fetching")
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "depth=")
}

func TestTerminalHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, FormatTerminal, "info")

	logger.Info("answer", "text", "two words")

	assert.Contains(t, buf.String(), `"two words"`)
}
