package decoder

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"payment-recon/internal/domain"
)

// XLSXDecoder reads the first sheet of a spreadsheet workbook. The header
// is the first row with more than one non-empty cell; leading banner rows
// that some payment providers emit above the real header are skipped.
type XLSXDecoder struct{}

func (d *XLSXDecoder) Decode(r io.Reader) (domain.RawTable, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return domain.RawTable{}, nil
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	headerIdx := -1
	for i, row := range rows {
		if countNonEmpty(row) > 1 {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return domain.RawTable{}, nil
	}

	return buildTable(rows[headerIdx], rows[headerIdx+1:]), nil
}

func countNonEmpty(cells []string) int {
	n := 0
	for _, c := range cells {
		if c != "" {
			n++
		}
	}
	return n
}
