package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/scenegraph/pkg/types"
)

func readRecords(t *testing.T, dir string) []LogRecord {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "execution_errors_*.parquet"))
	require.NoError(t, err)

	var out []LogRecord
	for _, f := range files {
		rows, err := parquet.ReadFile[LogRecord](f)
		require.NoError(t, err)
		out = append(out, rows...)
	}
	return out
}

func TestParquetHandlerWritesErrors(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	h, err := NewParquetHandler(slog.NewTextHandler(&console, nil), dir, 10)
	require.NoError(t, err)
	log := slog.New(h).With("component", "updater")

	ctx := context.WithValue(context.Background(), types.ContextKeyBatchID, "batch-1")
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "cli")

	log.InfoContext(ctx, "batch processed")
	log.ErrorContext(ctx, "observation failed", "index", 2, "error", errors.New("store unavailable"))

	assert.Contains(t, console.String(), "batch processed", "every record reaches the next handler")
	assert.Empty(t, readRecords(t, dir), "records are buffered until flushed")

	require.NoError(t, h.Close())
	records := readRecords(t, dir)
	require.Len(t, records, 1, "only errors are persisted")

	r := records[0]
	assert.Equal(t, "ERROR", r.Level)
	assert.Equal(t, "observation failed", r.Message)
	assert.Equal(t, "batch-1", r.BatchID)
	assert.Equal(t, "cli", r.RequestSource)
	assert.Len(t, r.ID, 36)

	var attrs map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.Attributes), &attrs))
	assert.Equal(t, "updater", attrs["component"])
	assert.Equal(t, float64(2), attrs["index"])
	assert.Equal(t, "store unavailable", attrs["error"])
}

func TestParquetHandlerFlushesWhenFull(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), dir, 2)
	require.NoError(t, err)
	log := slog.New(h)

	log.Error("one")
	log.WithGroup("store").Error("two", "driver", "badger")
	records := readRecords(t, dir)
	require.Len(t, records, 2, "derived handlers share the buffer")
	assert.Contains(t, records[1].Attributes, `"store.driver":"badger"`)

	require.NoError(t, h.Flush())
	assert.Len(t, readRecords(t, dir), 2, "flushing an empty buffer writes nothing")
}
