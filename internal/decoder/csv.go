package decoder

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"payment-recon/internal/domain"
	"payment-recon/pkg/logger"
)

// delimiters tried in order when sniffing a CSV file.
var delimiters = []rune{',', '\t', ';', '|'}

// CSVDecoder reads delimiter-separated text files. The delimiter is
// sniffed from the header line.
type CSVDecoder struct{}

func (d *CSVDecoder) Decode(r io.Reader) (domain.RawTable, error) {
	buffered := bufio.NewReader(r)

	sample, err := buffered.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return domain.RawTable{}, fmt.Errorf("failed to read file: %w", err)
	}

	delimiter := sniffDelimiter(sample)

	reader := csv.NewReader(buffered)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return domain.RawTable{}, nil
	}
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to read header: %w", err)
	}

	var rows [][]string
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.GetLogger().WithError(err).WithField("line", line).Warn("Failed to read CSV row, skipping")
			continue
		}
		rows = append(rows, record)
	}

	return buildTable(header, rows), nil
}

// sniffDelimiter picks the candidate splitting the header line into the
// most fields. Falls back to comma.
func sniffDelimiter(sample []byte) rune {
	headerLine := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		headerLine = sample[:i]
	}
	line := string(headerLine)

	best := ','
	bestFields := 1
	for _, candidate := range delimiters {
		if n := strings.Count(line, string(candidate)) + 1; n > bestFields {
			best = candidate
			bestFields = n
		}
	}
	return best
}
