package driver

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
)

// TypeConversionError reports a value returned by Neo4j whose Go type does
// not match what the fact layout stores in that column.
type TypeConversionError struct {
	Column   string
	Expected string
	Actual   string
}

func (e *TypeConversionError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("neo4j result: expected %s, got %s", e.Expected, e.Actual)
	}
	return fmt.Sprintf("neo4j column %q: expected %s, got %s", e.Column, e.Expected, e.Actual)
}

// Is reports whether target is a TypeConversionError.
func (e *TypeConversionError) Is(target error) bool {
	_, ok := target.(*TypeConversionError)
	return ok
}

// recordsOf unpacks the value returned from a read transaction. nil is an
// empty result.
func recordsOf(v any) ([]*db.Record, error) {
	if v == nil {
		return nil, nil
	}
	records, ok := v.([]*db.Record)
	if !ok {
		return nil, &TypeConversionError{Expected: "[]*db.Record", Actual: fmt.Sprintf("%T", v)}
	}
	return records, nil
}

// columnString reads one string column. Every column of the fact layout
// (value, kind, datatype) is a string; kind and datatype may be empty.
func columnString(record *db.Record, col string) (string, error) {
	raw, ok := record.Get(col)
	if !ok {
		return "", fmt.Errorf("record has no column %q", col)
	}
	s, ok := raw.(string)
	if !ok {
		return "", &TypeConversionError{Column: col, Expected: "string", Actual: fmt.Sprintf("%T", raw)}
	}
	return s, nil
}

// bindingFromRecord rebuilds one solution row. A variable v is returned as
// three columns: v, v__k and v__dt.
func bindingFromRecord(record *db.Record, vars []string) (Binding, error) {
	row := make(Binding, len(vars))
	for _, v := range vars {
		var cols [3]string
		for i, col := range [3]string{v, v + kindSuffix, v + datatypeSuffix} {
			s, err := columnString(record, col)
			if err != nil {
				return nil, err
			}
			cols[i] = s
		}
		term, err := termFromColumns(cols[0], cols[1], cols[2])
		if err != nil {
			return nil, err
		}
		row[v] = term
	}
	return row, nil
}
