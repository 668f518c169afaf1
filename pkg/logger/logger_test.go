package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	log.Debug("hidden")
	log.Info("plain message", "count", 2)
	log.Info("Observation committed", "id", "1")
	log.Warn("careful")
	log.Error("broken", "error", "connection refused")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4, "debug is filtered")

	assert.Contains(t, lines[0], "INFO  plain message count=2")
	assert.NotContains(t, lines[0], "\033[")
	assert.Contains(t, lines[1], colorGreen+"INFO  Observation committed"+colorReset)
	assert.Contains(t, lines[2], colorYellow+"WARN  careful")
	assert.Contains(t, lines[3], colorRed+"ERROR broken")
	assert.Contains(t, lines[3], `error="connection refused"`)
}

func TestColorHandlerAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, nil)).
		With("component", "updater").
		WithGroup("batch").
		With("id", "b1")

	log.Info("processed", "created", 1, slog.Group("store", "driver", "badger"))

	out := buf.String()
	assert.Contains(t, out, "component=updater")
	assert.Contains(t, out, "batch.id=b1")
	assert.Contains(t, out, "batch.created=1")
	assert.Contains(t, out, "batch.store.driver=badger")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, Options{Level: slog.LevelWarn, Format: "json"})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", "id", "7")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "7", rec["id"])

	buf.Reset()
	log, err = NewLogger(&buf, Options{Level: slog.LevelInfo, NoColor: true})
	require.NoError(t, err)
	log.Error("plain")
	assert.Contains(t, buf.String(), "level=ERROR msg=plain")

	_, err = NewLogger(&buf, Options{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
