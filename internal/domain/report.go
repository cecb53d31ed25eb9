package domain

import "github.com/shopspring/decimal"

// LedgerSummary aggregates one direction of ledger records, either
// overall or scoped to a single channel.
type LedgerSummary struct {
	Count         int             `json:"count"`
	Matched       int             `json:"matched"`
	Amount        decimal.Decimal `json:"amount"`
	MatchedAmount decimal.Decimal `json:"matched_amount"`
	// MatchRatio is matched/count, nil when no ledger records were in scope.
	MatchRatio *float64 `json:"match_ratio"`
}

// Summary is the overall per-direction rollup.
type Summary struct {
	TotalDeposit  LedgerSummary `json:"total_deposit"`
	TotalWithdraw LedgerSummary `json:"total_withdraw"`
}

// ChannelReport is the per-channel rollup. Ledger records that matched
// nothing anywhere belong to no channel and appear only in the overall
// summary.
type ChannelReport struct {
	Deposit         LedgerSummary `json:"deposit"`
	Withdraw        LedgerSummary `json:"withdraw"`
	MissingInLedger int           `json:"missing_in_ledger"`
}

// ReconciliationReport is the structured result of one run. It is built
// fresh per run and never mutated after being returned. The field names
// and nesting here are the durable contract consumed by API clients.
type ReconciliationReport struct {
	Summary          Summary                  `json:"summary"`
	Channels         map[string]ChannelReport `json:"channels"`
	Mismatched       []MatchResult            `json:"mismatched"`
	MissingInChannel []MatchResult            `json:"missing_in_channel"`
	MissingInLedger  []MatchResult            `json:"missing_in_ledger"`
	// Anomalies holds verdicts outside the three lists above, currently
	// cross-channel duplicates.
	Anomalies       []MatchResult  `json:"anomalies,omitempty"`
	NeedsAdaptation bool           `json:"needs_adaptation"`
	Diagnostics     []Diagnostic   `json:"diagnostics,omitempty"`
	SkippedRows     map[string]int `json:"skipped_rows,omitempty"`
	// DuplicateKeys counts records per source that were shunted aside
	// because their transaction_id was already taken in that source.
	DuplicateKeys map[string]int `json:"duplicate_keys,omitempty"`
}
