package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing column")

// Table is a CSV file held in memory. Column lookup is case-insensitive.
type Table struct {
	Header []string
	Rows   [][]string

	cols map[string]int
}

// ReadTable reads a header row followed by data rows. Ragged rows are kept
// as-is; missing trailing cells read as empty.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read header: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	t := &Table{Header: header, cols: make(map[string]int, len(header))}
	for i, h := range header {
		k := strings.ToLower(strings.TrimSpace(h))
		if _, dup := t.cols[k]; !dup {
			t.cols[k] = i
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Col returns the index of the first column whose name matches one of names.
func (t *Table) Col(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := t.cols[strings.ToLower(n)]; ok {
			return i, true
		}
	}
	return -1, false
}

// colOrAbsent is Col with -1 for absent columns.
func (t *Table) colOrAbsent(names ...string) int {
	i, _ := t.Col(names...)
	return i
}

// cell returns row[i], or "" when i is -1 or past the end of a short row.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseFloat coerces a statistic cell. Empty, unparseable and non-finite
// values read as zero.
func ParseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseInt reads an integer cell, accepting "5.0".
func parseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(v), true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// ParseDate reads a tournament or ranking date: YYYYMMDD (optionally with a
// trailing ".0" from float-typed exports) or an ISO date or date-time. The
// result is the calendar date at UTC midnight.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSuffix(strings.TrimSpace(raw), ".0")
	if s == "" {
		return time.Time{}, false
	}
	if len(s) == 8 && isDigits(s) {
		d, err := time.Parse("20060102", s)
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			y, m, dd := d.Date()
			return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
