package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"payment-recon/internal/domain"
)

// CurrencyPolicy decides how a currency mismatch with equal amounts is
// classified.
type CurrencyPolicy string

const (
	// CurrencyStrict treats a currency mismatch as an amount mismatch even
	// when the amounts agree.
	CurrencyStrict CurrencyPolicy = "strict"
	// CurrencyLenient ignores the currency field and compares amounts only.
	CurrencyLenient CurrencyPolicy = "lenient"
)

// ColumnMapping is the process-wide normalization configuration: for each
// canonical field, the set of raw column headers accepted for it. Loaded
// once at startup and read-only afterwards, so it is safe to share across
// concurrent runs.
type ColumnMapping struct {
	Aliases          map[string][]string
	TimestampFormats []string
	TimeTolerance    time.Duration
	CurrencyPolicy   CurrencyPolicy
	DefaultCurrency  string

	// lookup maps normalized alias -> canonical field, built by Validate.
	lookup map[string]string
}

// CanonicalFields is the full canonical schema in declaration order.
var CanonicalFields = []string{
	domain.FieldTransactionID,
	domain.FieldAmount,
	domain.FieldCurrency,
	domain.FieldTimestamp,
	domain.FieldDirection,
	domain.FieldStatus,
	domain.FieldAccount,
}

// DefaultColumnMapping returns the built-in alias table. Every canonical
// field name is always accepted as its own alias, which keeps
// normalization of an already-canonical table a no-op.
func DefaultColumnMapping() *ColumnMapping {
	return &ColumnMapping{
		Aliases: map[string][]string{
			domain.FieldTransactionID: {"transaction_id", "trx_id", "txn_id", "trx_ref_id", "order_id", "order_no", "order_number", "merchant_order_no", "reference", "ref_id"},
			domain.FieldAmount:        {"amount", "trx_amount", "txn_amount", "actual_amount", "pay_amount", "value"},
			domain.FieldCurrency:      {"currency", "currency_code", "ccy"},
			domain.FieldTimestamp:     {"timestamp", "transaction_time", "time", "date", "created_at", "pay_time", "trade_time", "completed_at"},
			domain.FieldDirection:     {"direction", "type", "trx_type", "flow"},
			domain.FieldStatus:        {"status", "state", "trx_status"},
			domain.FieldAccount:       {"account", "account_no", "account_id", "merchant_id"},
		},
		TimestampFormats: []string{
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05Z07:00",
			"2006-01-02",
			"2006/01/02 15:04:05",
			"2006/01/02",
			"02/01/2006 15:04:05",
			"02/01/2006",
		},
		TimeTolerance:   24 * time.Hour,
		CurrencyPolicy:  CurrencyStrict,
		DefaultCurrency: "USD",
	}
}

// LoadColumnMapping reads the mapping file at path, overlaying it on the
// built-in defaults. An empty path returns the defaults. The returned
// mapping is already validated.
func LoadColumnMapping(path string) (*ColumnMapping, error) {
	m := DefaultColumnMapping()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
		}

		for _, field := range CanonicalFields {
			if key := "aliases." + field; v.IsSet(key) {
				m.Aliases[field] = v.GetStringSlice(key)
			}
		}
		if v.IsSet("timestamp_formats") {
			m.TimestampFormats = v.GetStringSlice("timestamp_formats")
		}
		if v.IsSet("time_tolerance") {
			m.TimeTolerance = v.GetDuration("time_tolerance")
		}
		if v.IsSet("currency_policy") {
			m.CurrencyPolicy = CurrencyPolicy(v.GetString("currency_policy"))
		}
		if v.IsSet("default_currency") {
			m.DefaultCurrency = strings.ToUpper(v.GetString("default_currency"))
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the mapping for configuration errors and builds the
// reverse lookup table. It must be called before the mapping is used;
// LoadColumnMapping does so.
func (m *ColumnMapping) Validate() error {
	if len(m.Aliases) == 0 {
		return &domain.ConfigurationError{Reason: "no column aliases configured"}
	}

	lookup := make(map[string]string)
	for _, field := range CanonicalFields {
		aliases, ok := m.Aliases[field]
		if !ok || len(aliases) == 0 {
			return &domain.ConfigurationError{Field: field, Reason: "no aliases configured"}
		}
		// The canonical name itself always resolves.
		for _, alias := range append([]string{field}, aliases...) {
			normalized := NormalizeHeader(alias)
			if normalized == "" {
				return &domain.ConfigurationError{Field: field, Reason: "blank alias"}
			}
			if existing, dup := lookup[normalized]; dup && existing != field {
				return &domain.ConfigurationError{
					Field:  field,
					Reason: fmt.Sprintf("alias %q already maps to %q", alias, existing),
				}
			}
			lookup[normalized] = field
		}
	}

	switch m.CurrencyPolicy {
	case CurrencyStrict, CurrencyLenient:
	default:
		return &domain.ConfigurationError{
			Field:  "currency_policy",
			Reason: fmt.Sprintf("unknown policy %q", m.CurrencyPolicy),
		}
	}

	if m.TimeTolerance <= 0 {
		m.TimeTolerance = 24 * time.Hour
	}
	if len(m.TimestampFormats) == 0 {
		return &domain.ConfigurationError{Field: "timestamp_formats", Reason: "empty format list"}
	}

	m.lookup = lookup
	return nil
}

// Field resolves a raw column header to its canonical field name.
func (m *ColumnMapping) Field(header string) (string, bool) {
	field, ok := m.lookup[NormalizeHeader(header)]
	return field, ok
}

// NormalizeHeader applies the uniform header normalization used on both
// aliases and raw file headers: trim, lowercase, collapse inner whitespace
// and strip a UTF-8 BOM if present.
func NormalizeHeader(header string) string {
	header = strings.TrimPrefix(header, "\uFEFF")
	return strings.Join(strings.Fields(strings.ToLower(header)), " ")
}
