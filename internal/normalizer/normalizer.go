// Package normalizer maps raw tabular files onto the canonical record
// schema. It is the strict parsing boundary of the pipeline: everything
// downstream sees typed amounts and timestamps only, never raw cells.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payment-recon/internal/config"
	"payment-recon/internal/domain"
	"payment-recon/pkg/logger"
)

// Result is the outcome of normalizing one file. Normalization fails soft:
// an unmappable schema yields zero records and NeedsAdaptation, unparsable
// amounts skip single rows, and both are reported as diagnostics.
type Result struct {
	Records         []domain.NormalizedRecord
	NeedsAdaptation bool
	Diagnostics     []domain.Diagnostic
	SkippedRows     int
}

// requiredFields lists the canonical fields that must resolve for a file
// to be usable at all. Direction is derived from the declared kind, so it
// is never required as a column.
func requiredFields(kind domain.RecordKind) []string {
	return []string{domain.FieldTransactionID, domain.FieldAmount}
}

// Normalize converts one raw table into canonical records according to the
// declared kind. The source name is stamped on every record.
func Normalize(table domain.RawTable, kind domain.RecordKind, source string, mapping *config.ColumnMapping) Result {
	var res Result

	if table.Empty() {
		return res
	}

	columns, ambiguous := resolveColumns(table.Headers, mapping)
	for _, field := range config.CanonicalFields {
		if headers, ok := ambiguous[field]; ok {
			res.Diagnostics = append(res.Diagnostics, domain.Diagnostic{
				Code:   domain.DiagSchemaUnresolved,
				Source: source,
				Detail: fmt.Sprintf("field %q matched by multiple columns: %s", field, strings.Join(headers, ", ")),
			})
		}
	}

	var missing []string
	for _, field := range requiredFields(kind) {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		logger.GetLogger().WithFields(map[string]interface{}{
			"source":  source,
			"missing": missing,
		}).Warn("Schema resolution failed, file needs adaptation")
		res.NeedsAdaptation = true
		res.Records = nil
		res.Diagnostics = append(res.Diagnostics, domain.Diagnostic{
			Code:   domain.DiagSchemaUnresolved,
			Source: source,
			Detail: fmt.Sprintf("required fields unresolved: %s", strings.Join(missing, ", ")),
		})
		return res
	}

	direction := directionFor(kind)
	res.Records = make([]domain.NormalizedRecord, 0, len(table.Rows))

	for i, row := range table.Rows {
		record, err := normalizeRow(row, columns, kind, source, direction, mapping)
		if err != nil {
			if mve, ok := err.(*domain.MalformedValueError); ok {
				mve.Row = i
				res.Diagnostics = append(res.Diagnostics, mve.Diagnostic())
			} else {
				res.Diagnostics = append(res.Diagnostics, domain.Diagnostic{
					Code:   domain.DiagMalformedValue,
					Source: source,
					Row:    i,
					Detail: err.Error(),
				})
			}
			res.SkippedRows++
			continue
		}
		if record == nil {
			// Blank key rows carry no business meaning.
			res.SkippedRows++
			continue
		}
		record.Source = source
		res.Records = append(res.Records, *record)
	}

	return res
}

// resolveColumns matches raw headers against the alias table. A canonical
// field resolves only when exactly one raw column claims it; fields
// claimed by several columns are reported back as ambiguous.
func resolveColumns(headers []string, mapping *config.ColumnMapping) (map[string]string, map[string][]string) {
	claimed := make(map[string][]string)
	for _, header := range headers {
		if field, ok := mapping.Field(header); ok {
			claimed[field] = append(claimed[field], header)
		}
	}

	columns := make(map[string]string, len(claimed))
	ambiguous := make(map[string][]string)
	for field, matches := range claimed {
		if len(matches) == 1 {
			columns[field] = matches[0]
		} else {
			ambiguous[field] = matches
		}
	}
	return columns, ambiguous
}

func normalizeRow(
	row domain.Row,
	columns map[string]string,
	kind domain.RecordKind,
	source string,
	direction domain.Direction,
	mapping *config.ColumnMapping,
) (*domain.NormalizedRecord, error) {
	txID := strings.TrimSpace(row[columns[domain.FieldTransactionID]])
	if txID == "" {
		return nil, nil
	}

	currency := mapping.DefaultCurrency
	if col, ok := columns[domain.FieldCurrency]; ok {
		if v := strings.ToUpper(strings.TrimSpace(row[col])); v != "" {
			currency = v
		}
	}

	rawAmount := row[columns[domain.FieldAmount]]
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return nil, &domain.MalformedValueError{
			Source: source,
			Column: columns[domain.FieldAmount],
			Value:  rawAmount,
		}
	}
	// Banker's rounding to the currency's minor unit, so repeated
	// normalization of half-unit values carries no systematic bias.
	amount = amount.RoundBank(domain.MinorUnitExponent(currency))

	record := &domain.NormalizedRecord{
		TransactionID: txID,
		Amount:        amount,
		Currency:      currency,
		Direction:     direction,
	}

	if col, ok := columns[domain.FieldTimestamp]; ok {
		record.Timestamp = parseTimestamp(row[col], mapping.TimestampFormats)
	}
	if col, ok := columns[domain.FieldStatus]; ok {
		record.Status = strings.TrimSpace(row[col])
	}
	if col, ok := columns[domain.FieldAccount]; ok {
		record.Account = strings.TrimSpace(row[col])
	}
	if kind == domain.Channel {
		if col, ok := columns[domain.FieldDirection]; ok {
			record.Direction = parseDirection(row[col])
		}
	}

	return record, nil
}

// amountCleaner strips currency decoration commonly found in statement
// exports before decimal parsing.
var amountCleaner = strings.NewReplacer(
	",", "",
	"¥", "",
	"$", "",
	"€", "",
	"£", "",
	" ", "",
	" ", "",
)

// ParseAmount parses a raw cell as a fixed-precision decimal, tolerating
// thousands separators, currency symbols and trailing currency codes. A
// cell that still fails to parse is an error, never silently zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := amountCleaner.Replace(strings.TrimSpace(raw))
	cleaned = strings.TrimFunc(cleaned, func(r rune) bool {
		return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
	})
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	// Accounting notation for negatives.
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}
	return decimal.NewFromString(cleaned)
}

// parseTimestamp tries each configured format in order; the first parse
// wins. Unparsable timestamps are nil, not errors, because matching does
// not require them.
func parseTimestamp(raw string, formats []string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, format := range formats {
		if t, err := time.Parse(format, raw); err == nil {
			return &t
		}
	}
	return nil
}

func parseDirection(raw string) domain.Direction {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "withdraw", "withdrawal", "debit", "payout", "out":
		return domain.Withdraw
	case "deposit", "credit", "payin", "in":
		return domain.Deposit
	}
	return ""
}

func directionFor(kind domain.RecordKind) domain.Direction {
	switch kind {
	case domain.DepositLedger:
		return domain.Deposit
	case domain.WithdrawLedger:
		return domain.Withdraw
	}
	return ""
}
