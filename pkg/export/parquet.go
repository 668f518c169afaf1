// Package export writes snapshots of the registry to Parquet files for
// offline analysis.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// EntityRecord is one leaf attribute of one entity. Nested attributes are
// flattened to dotted paths such as hasPosition.x.
type EntityRecord struct {
	EntityID   string    `parquet:"entity_id"`
	Class      string    `parquet:"class"`
	Attribute  string    `parquet:"attribute"`
	Value      string    `parquet:"value"`
	ValueType  string    `parquet:"value_type"`
	ExportedAt time.Time `parquet:"exported_at"`
}

// ParquetWriter writes registry snapshots under a base directory
type ParquetWriter struct {
	baseDir string
	now     func() time.Time
}

// NewParquetWriter creates a new Parquet writer.
// baseDir is created if it does not exist.
func NewParquetWriter(baseDir string) (*ParquetWriter, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", baseDir, err)
	}
	return &ParquetWriter{baseDir: baseDir, now: time.Now}, nil
}

// WriteEntities writes one file holding every leaf attribute of entities and
// returns its path. Rows are ordered by entity, then attribute path.
func (w *ParquetWriter) WriteEntities(ctx context.Context, class string, entities []*types.Entity) (string, error) {
	exportedAt := w.now().UTC()

	var records []EntityRecord
	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		start := len(records)
		records = flatten(records, e, "", e.Attributes, exportedAt)
		rows := records[start:]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Attribute < rows[j].Attribute })
	}

	filename := fmt.Sprintf("entities_%s_%s.parquet", class, exportedAt.Format("20060102T150405.000000000"))
	path := filepath.Join(w.baseDir, filename)
	if err := parquet.WriteFile(path, records); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func flatten(out []EntityRecord, e *types.Entity, prefix string, attrs types.Attributes, at time.Time) []EntityRecord {
	for name, v := range attrs {
		path := prefix + name
		if nested, ok := v.(types.Attributes); ok {
			out = flatten(out, e, path+".", nested, at)
			continue
		}
		value, kind := render(v)
		out = append(out, EntityRecord{
			EntityID:   e.ID,
			Class:      e.Class,
			Attribute:  path,
			Value:      value,
			ValueType:  kind,
			ExportedAt: at,
		})
	}
	return out
}

func render(v any) (string, string) {
	switch x := v.(type) {
	case string:
		return x, "string"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), "float"
	case int64:
		return strconv.FormatInt(x, 10), "integer"
	case bool:
		return strconv.FormatBool(x), "boolean"
	default:
		return fmt.Sprint(x), fmt.Sprintf("%T", x)
	}
}
