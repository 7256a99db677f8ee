package backup

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Field is one named cell of a Record.
type Field struct {
	Name  string
	Value string
}

// Record is an ordered row of named cells.
type Record []Field

func (r Record) lookup(name string) string {
	for _, f := range r {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// WriteCSV writes records with a header taken from the first record's field
// names. Later records are projected onto that header; missing cells are
// empty. Cells containing commas, quotes or newlines are quoted and embedded
// quotes doubled. Nothing is written for an empty slice.
func WriteCSV(w io.Writer, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	header := make([]string, len(records[0]))
	for i, f := range records[0] {
		header[i] = f.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for i, record := range records {
		for j, name := range header {
			row[j] = record.lookup(name)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
