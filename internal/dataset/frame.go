package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ColumnKind classifies how a raw column is treated by the encoder.
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindDate    ColumnKind = "date"
	KindString  ColumnKind = "string"
)

var (
	ErrEmpty  = errors.New("csv file is empty")
	ErrNoData = errors.New("csv file has no data rows")
)

// TooLargeError reports an upload over the configured size limit.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("csv file too large, maximum size is %dMB", e.Limit/(1024*1024))
}

// Frame is a parsed tabular dataset: a header and raw string cells.
type Frame struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// ReadCSV parses an uploaded CSV stream into a Frame. The stream is rejected
// when empty, larger than maxBytes, malformed, or header-only.
func ReadCSV(r io.Reader, maxBytes int64) (*Frame, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > maxBytes {
		return nil, &TooLargeError{Limit: maxBytes}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	if len(records) < 2 {
		return nil, ErrNoData
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column name: %s", name)
		}
		seen[name] = true
		header[i] = name
	}

	f := &Frame{Columns: header, Rows: records[1:]}
	f.buildIndex()
	return f, nil
}

func (f *Frame) buildIndex() {
	f.index = make(map[string]int, len(f.Columns))
	for i, name := range f.Columns {
		f.index[name] = i
	}
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the cells of the named column.
func (f *Frame) Column(name string) ([]string, bool) {
	idx, ok := f.index[name]
	if !ok {
		return nil, false
	}
	values := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[idx]
	}
	return values, true
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int {
	return len(f.Rows)
}

// ColumnKind infers how the named column should be encoded: date when the
// name mentions a date, numeric when every non-empty cell parses as a float,
// string otherwise.
func (f *Frame) ColumnKind(name string) (ColumnKind, bool) {
	values, ok := f.Column(name)
	if !ok {
		return "", false
	}
	return InferKind(name, values), true
}

// InferKind classifies a column by name and cell contents.
func InferKind(name string, values []string) ColumnKind {
	if strings.Contains(strings.ToLower(name), "date") {
		return KindDate
	}
	numeric := false
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return KindString
		}
		numeric = true
	}
	if numeric {
		return KindNumeric
	}
	return KindString
}
