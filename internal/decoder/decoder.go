// Package decoder turns uploaded byte streams into raw tables. One
// decoder exists per container format; format selection is by file
// extension. Decoders know nothing about the canonical schema.
package decoder

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"payment-recon/internal/domain"
)

// Decoder converts one uploaded file into a RawTable.
type Decoder interface {
	Decode(r io.Reader) (domain.RawTable, error)
}

// ForFile picks a decoder by the file's extension.
func ForFile(filename string) (Decoder, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".tsv":
		return &CSVDecoder{}, nil
	case ".xlsx", ".xlsm":
		return &XLSXDecoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filename)
	}
}

// Decode is a convenience wrapper: pick a decoder for filename and run it.
func Decode(filename string, r io.Reader) (domain.RawTable, error) {
	d, err := ForFile(filename)
	if err != nil {
		return domain.RawTable{}, err
	}
	return d.Decode(r)
}

// buildTable assembles a RawTable from a header row and data rows, padding
// short rows and ignoring cells beyond the header width.
func buildTable(header []string, rows [][]string) domain.RawTable {
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	table := domain.RawTable{
		Headers: headers,
		Rows:    make([]domain.Row, 0, len(rows)),
	}

	for _, cells := range rows {
		row := make(domain.Row, len(headers))
		empty := true
		for i, h := range headers {
			var cell string
			if i < len(cells) {
				cell = strings.TrimSpace(cells[i])
			}
			row[h] = cell
			if cell != "" {
				empty = false
			}
		}
		if !empty {
			table.Rows = append(table.Rows, row)
		}
	}

	return table
}
