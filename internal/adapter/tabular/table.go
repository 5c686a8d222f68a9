// Package tabular reads and writes the delimited text tables exchanged with
// the upstream moment extraction and downstream analysis tools.
//
// Tables carry a header row. Comma-separated and whitespace-separated
// layouts are both accepted on input; the delimiter is detected from the
// header line. Fit tables are written space-separated.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Table is a parsed delimited table.
type Table struct {
	Header []string
	Rows   [][]string
	cols   map[string]int
}

// ReadTable parses a headered table, detecting the delimiter from the first
// non-empty line: a comma selects CSV, anything else splits on whitespace.
func ReadTable(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	var records [][]string
	if strings.Contains(firstLine(data), ",") {
		records, err = readCSV(data)
	} else {
		records, err = readFields(data)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("read table: missing header row")
	}

	t := &Table{Header: records[0], Rows: records[1:], cols: make(map[string]int, len(records[0]))}
	for i, name := range t.Header {
		name = strings.TrimSpace(name)
		t.Header[i] = name
		if _, dup := t.cols[name]; !dup {
			t.cols[name] = i
		}
	}
	return t, nil
}

func firstLine(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}

func readCSV(data []byte) ([][]string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func readFields(data []byte) ([][]string, error) {
	var records [][]string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		records = append(records, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return records, nil
}

// Has reports whether the table has a column named name.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Require returns an error naming the first missing column.
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if !t.Has(n) {
			return fmt.Errorf("missing column %q", n)
		}
	}
	return nil
}

// String returns the cell of row in column name, or "" when absent.
func (t *Table) String(row []string, name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Float parses the cell of row in column name. A missing column or an empty
// cell yields NaN.
func (t *Table) Float(row []string, name string) (float64, error) {
	s := t.String(row, name)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return v, nil
}

// formatFloat renders v in the shortest form that parses back to v.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
