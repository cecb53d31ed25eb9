package domain

import "github.com/shopspring/decimal"

// Verdict is the reconciliation outcome for a single business key.
type Verdict string

const (
	Matched               Verdict = "matched"
	AmountMismatch        Verdict = "amount_mismatch"
	MissingInChannel      Verdict = "missing_in_channel"
	MissingInLedger       Verdict = "missing_in_ledger"
	CrossChannelDuplicate Verdict = "cross_channel_duplicate"
	TimeDrift             Verdict = "time_drift"
)

// IsAnomaly reports whether the verdict represents a discrepancy rather
// than a clean match.
func (v Verdict) IsAnomaly() bool {
	return v != Matched
}

// MatchResult holds one verdict: the ledger record (if any), the channel
// record it was matched against (if any), and the amounts that were
// compared. A channel record is referenced by at most one MatchResult.
type MatchResult struct {
	Verdict       Verdict           `json:"verdict"`
	TransactionID string            `json:"transaction_id"`
	Ledger        *NormalizedRecord `json:"ledger,omitempty"`
	Channel       *NormalizedRecord `json:"channel,omitempty"`
	LedgerAmount  *decimal.Decimal  `json:"ledger_amount,omitempty"`
	ChannelAmount *decimal.Decimal  `json:"channel_amount,omitempty"`
	// Sources lists every source involved in the verdict. It has more
	// than one entry only for cross-channel duplicates.
	Sources []string `json:"sources"`
}

// OrderingSource is the source used when anomalies are ordered for
// reproducible output: the ledger side when present, else the channel side.
func (r MatchResult) OrderingSource() string {
	if r.Ledger != nil {
		return r.Ledger.Source
	}
	if r.Channel != nil {
		return r.Channel.Source
	}
	if len(r.Sources) > 0 {
		return r.Sources[0]
	}
	return ""
}

// DiagnosticCode identifies the class of a soft, per-file or per-row issue.
type DiagnosticCode string

const (
	DiagSchemaUnresolved DiagnosticCode = "schema_unresolved"
	DiagMalformedValue   DiagnosticCode = "malformed_value"
	DiagDuplicateKey     DiagnosticCode = "duplicate_key"
	DiagDuplicateSource  DiagnosticCode = "duplicate_source"
)

// Diagnostic records a soft error that was tolerated during a run. Soft
// errors never abort the pipeline; they are collected and returned with
// the report.
type Diagnostic struct {
	Code   DiagnosticCode `json:"code"`
	Source string         `json:"source"`
	Row    int            `json:"row,omitempty"`
	Detail string         `json:"detail"`
}
