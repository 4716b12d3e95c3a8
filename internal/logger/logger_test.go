package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "json",
		Level:  slog.LevelInfo,
	})

	log.Info("Starting ReadLeaf Server", "environment", "production")

	out := buf.String()
	assert.Contains(t, out, "\"msg\":\"Starting ReadLeaf Server\"")
	assert.Contains(t, out, "\"environment\":\"production\"")
	assert.Contains(t, out, "\"level\":\"INFO\"")
}

func TestNew_FormatFollowsEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{"production uses json", "production", true},
		{"development uses pretty", "development", false},
		{"unset environment uses pretty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{
				Writer:      &buf,
				Environment: tt.environment,
				Level:       slog.LevelInfo,
			})

			log.Info("library scan complete", "books", 42)

			isJSON := strings.HasPrefix(buf.String(), "{")
			assert.Equal(t, tt.wantJSON, isJSON, "output: %s", buf.String())
		})
	}
}

func TestNew_DefaultWriter(t *testing.T) {
	log := New(Config{Format: "json", Level: slog.LevelInfo})
	require.NotNil(t, log)
	require.NotNil(t, log.Logger)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
	}
}

func TestPrettyHandler_Output(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
		Level:  slog.LevelInfo,
	})

	log.Info("Calibre sync finished", "added", 3, "updated", 1)

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "Calibre sync finished")
	assert.Contains(t, out, "added=3")
	assert.Contains(t, out, "updated=1")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
		Level:  slog.LevelWarn,
	})

	log.Debug("ignored")
	log.Info("also ignored")
	log.Warn("streak rebuild failed")

	out := buf.String()
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "streak rebuild failed")
	assert.Contains(t, out, "WRN")
}

func TestPrettyHandler_Enabled(t *testing.T) {
	level := slog.LevelWarn
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: level})

	ctx := context.Background()
	assert.False(t, h.Enabled(ctx, slog.LevelDebug))
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))

	// Nil level defaults to info.
	h = NewPrettyHandler(&bytes.Buffer{}, nil)
	assert.False(t, h.Enabled(ctx, slog.LevelDebug))
	assert.True(t, h.Enabled(ctx, slog.LevelInfo))
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
		Level:  slog.LevelInfo,
	})

	scoped := log.With("book_id", "book-abc123")
	scoped.Info("progress logged", "page", 120)

	out := buf.String()
	assert.Contains(t, out, "book_id=book-abc123")
	assert.Contains(t, out, "page=120")
}

func TestPrettyHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
		Level:  slog.LevelInfo,
	})

	grouped := log.WithGroup("session")
	grouped.Info("status changed", "id", "sess-xyz")

	assert.Contains(t, buf.String(), "session.id=sess-xyz")
}

func TestPrettyHandler_GroupDoesNotPrefixEarlierAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
		Level:  slog.LevelInfo,
	})

	scoped := log.With("request_id", "req-1").WithGroup("streak")
	scoped.Info("updated", "current", 5)

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "streak.current=5")
	assert.NotContains(t, out, "streak.request_id")
}

func TestPrettyHandler_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
		Level:  slog.LevelDebug,
	})

	log.Error("metadata.db unreadable", "error", "file locked")
	log.Debug("retrying")

	out := buf.String()
	assert.Contains(t, out, "ERR")
	assert.Contains(t, out, "error=file locked")
	assert.Contains(t, out, "DBG")
}
