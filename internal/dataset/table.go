// Package dataset turns a labeled image CSV into the training inputs for the
// external trainer: severity labels, an encoded class list and split manifests.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const (
	ColImageID       = "image_id"
	ColLabel         = "label"
	ColSeverityLevel = "severity_level"
	ColSeverityPct   = "severity_pct"
)

// Table is a CSV with a header row; every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: no header row")
	}

	t := &Table{Header: records[0], Rows: records[1:]}
	for _, col := range []string{ColImageID, ColLabel} {
		if t.Index(col) < 0 {
			return nil, fmt.Errorf("read csv: missing %q column", col)
		}
	}
	return t, nil
}

// Index returns the column position, or -1.
func (t *Table) Index(col string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), col) {
			return i
		}
	}
	return -1
}

// resetColumn sets col to def on every row, adding the column if missing, and
// returns its index.
func (t *Table) resetColumn(col, def string) int {
	if i := t.Index(col); i >= 0 {
		for _, row := range t.Rows {
			row[i] = def
		}
		return i
	}
	t.Header = append(t.Header, col)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], def)
	}
	return len(t.Header) - 1
}

func (t *Table) Column(col string) []string {
	idx := t.Index(col)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
