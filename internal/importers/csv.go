package importers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyCSV is returned when the input has no header row.
var ErrEmptyCSV = errors.New("csv input is empty")

// CSVToContext flattens a CSV document into agent context text. The first
// row names the columns; every following row becomes one line of
// "column: value" pairs joined by "; ". Empty cells and blank rows are
// skipped, and cells beyond the header are labeled by position.
func CSVToContext(r io.Reader) (string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return "", ErrEmptyCSV
	}
	if err != nil {
		return "", fmt.Errorf("reading csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var lines []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading csv: %w", err)
		}
		if line := formatRecord(header, record); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func formatRecord(header, record []string) string {
	var pairs []string
	for i, cell := range record {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		name := ""
		if i < len(header) {
			name = header[i]
		}
		if name == "" {
			name = fmt.Sprintf("column %d", i+1)
		}
		pairs = append(pairs, name+": "+cell)
	}
	return strings.Join(pairs, "; ")
}
