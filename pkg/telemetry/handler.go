// Package telemetry persists error-level log records to parquet files for
// later analysis.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// DefaultBufferSize is the number of records buffered before a file is
// written.
const DefaultBufferSize = 100

// LogRecord represents a single log entry for Parquet storage
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	BatchID       string    `parquet:"batch_id"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON string
}

// sink is shared by a handler and every handler derived from it.
type sink struct {
	outputDir string
	batchSize int
	mu        sync.Mutex
	buffer    []LogRecord
}

// ParquetHandler is a slog.Handler that forwards every record to the next
// handler and also writes error records to Parquet files.
type ParquetHandler struct {
	next   slog.Handler
	sink   *sink
	attrs  []slog.Attr
	groups []string
}

// NewParquetHandler creates a new ParquetHandler. bufferSize <= 0 uses
// DefaultBufferSize.
func NewParquetHandler(next slog.Handler, outputDir string, bufferSize int) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &ParquetHandler{
		next: next,
		sink: &sink{
			outputDir: outputDir,
			batchSize: bufferSize,
			buffer:    make([]LogRecord, 0, bufferSize),
		},
	}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always pass to next handler first
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level < slog.LevelError {
		return nil
	}

	var batchID, requestSource string
	if v, ok := ctx.Value(types.ContextKeyBatchID).(string); ok {
		batchID = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestSource).(string); ok {
		requestSource = v
	}

	attrs := make(map[string]any)
	prefix := ""
	for _, g := range h.groups {
		prefix += g + "."
	}
	for _, a := range h.attrs {
		collect(attrs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(attrs, prefix, a)
		return true
	})
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		attrsJSON = []byte(fmt.Sprintf("{%q:%q}", "marshal_error", err.Error()))
	}

	var sourceFile string
	var line int
	if r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		sourceFile, line = f.File, f.Line
	}

	record := LogRecord{
		ID:            uuid.New().String(),
		Timestamp:     r.Time.UTC(),
		Level:         r.Level.String(),
		Message:       r.Message,
		BatchID:       batchID,
		RequestSource: requestSource,
		SourceFile:    sourceFile,
		LineNumber:    line,
		Attributes:    string(attrsJSON),
	}

	s := h.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, record)
	if len(s.buffer) >= s.batchSize {
		return s.flush()
	}
	return nil
}

// collect flattens a into attrs; error values are stored as their message.
func collect(attrs map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			collect(attrs, p, ga)
		}
	default:
		val := v.Any()
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		attrs[prefix+a.Key] = val
	}
}

// Flush writes buffered records to a new Parquet file.
func (h *ParquetHandler) Flush() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.flush()
}

// Close flushes buffered records. Derived handlers share the buffer, so
// closing any of them flushes all.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// flush writes the current buffer to a new Parquet file
// Caller must hold the lock
func (s *sink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("execution_errors_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	if err := parquet.WriteFile(filepath.Join(s.outputDir, filename), s.buffer); err != nil {
		return fmt.Errorf("failed to write telemetry parquet file: %w", err)
	}

	s.buffer = s.buffer[:0]
	return nil
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := h.derive(h.next.WithAttrs(attrs))
	prefix := ""
	for _, g := range h.groups {
		prefix += g + "."
	}
	for _, a := range attrs {
		a.Key = prefix + a.Key
		out.attrs = append(out.attrs, a)
	}
	return out
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := h.derive(h.next.WithGroup(name))
	out.groups = append(out.groups, name)
	return out
}

func (h *ParquetHandler) derive(next slog.Handler) *ParquetHandler {
	return &ParquetHandler{
		next:   next,
		sink:   h.sink,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}
