package csvdata

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Inference is the result of inferring a CellType for every column of one
// CSV file.
type Inference struct {
	Columns []string
	types   map[string]CellType
	indexes map[string]int
}

func newInference(columns []string, types []CellType) *Inference {
	inf := &Inference{
		Columns: columns,
		types:   make(map[string]CellType, len(columns)),
		indexes: make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		inf.types[c] = types[i]
		inf.indexes[c] = i
	}
	return inf
}

// TypeOf returns the inferred type of column name.
func (inf *Inference) TypeOf(name string) (CellType, bool) {
	t, ok := inf.types[name]
	return t, ok
}

// IndexOf returns the column's position within a row.
func (inf *Inference) IndexOf(name string) (int, bool) {
	i, ok := inf.indexes[name]
	return i, ok
}

// String renders one "name -> type" line per column, in column order.
func (inf *Inference) String() string {
	var b strings.Builder
	for _, c := range inf.Columns {
		fmt.Fprintf(&b, "%s -> %s\n", c, inf.types[c])
	}
	return b.String()
}

// DefaultInference returns an inference where every column is Text, used
// when a file has a header but no data rows.
func DefaultInference(columns []string) *Inference {
	types := make([]CellType, len(columns))
	for i := range types {
		types[i] = Text
	}
	return newInference(columns, types)
}

// InferFromDocument infers each column's type from a fully materialized
// document by joining the parsed type of every cell in that column.
func InferFromDocument(doc *Document) *Inference {
	if len(doc.Rows) == 0 {
		return DefaultInference(doc.Headers)
	}
	types := make([]CellType, len(doc.Headers))
	initialized := make([]bool, len(doc.Headers))
	for _, row := range doc.Rows {
		for i := range doc.Headers {
			if i >= len(row) {
				continue
			}
			t := ParseCell(row[i]).Type
			if !initialized[i] {
				types[i] = t
				initialized[i] = true
			} else {
				types[i] = Join(types[i], t)
			}
		}
	}
	for i := range types {
		if !initialized[i] {
			types[i] = Text
		}
	}
	return newInference(doc.Headers, types)
}

// InferFromStream infers each column's type in a single forward pass over
// s, stopping work on a column the moment it resolves to Text since Text
// absorbs any further join.
func InferFromStream(s *Stream) (*Inference, error) {
	headers := s.Headers
	if len(headers) == 0 {
		return DefaultInference(headers), nil
	}

	types := make([]CellType, len(headers))
	resolved := make([]bool, len(headers))
	initialized := make([]bool, len(headers))
	sawRow := false

	for {
		row, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		sawRow = true
		for i := range headers {
			if resolved[i] || i >= len(row) {
				continue
			}
			t := ParseCell(row[i]).Type
			if !initialized[i] {
				types[i] = t
				initialized[i] = true
			} else {
				types[i] = Join(types[i], t)
			}
			if types[i] == Text {
				resolved[i] = true
			}
		}
	}

	if !sawRow {
		return DefaultInference(headers), nil
	}
	for i := range types {
		if !initialized[i] {
			types[i] = Text
		}
	}
	return newInference(headers, types), nil
}
