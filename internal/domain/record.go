package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Canonical field names every source column is mapped onto.
const (
	FieldTransactionID = "transaction_id"
	FieldAmount        = "amount"
	FieldCurrency      = "currency"
	FieldTimestamp     = "timestamp"
	FieldDirection     = "direction"
	FieldStatus        = "status"
	FieldAccount       = "account"
)

// Direction represents the ledger-side flow of money.
type Direction string

const (
	Deposit  Direction = "deposit"
	Withdraw Direction = "withdraw"
)

// RecordKind declares how a raw file should be interpreted.
type RecordKind string

const (
	DepositLedger  RecordKind = "deposit_ledger"
	WithdrawLedger RecordKind = "withdraw_ledger"
	Channel        RecordKind = "channel"
)

// IsLedger reports whether the kind is one of the internal ledgers.
func (k RecordKind) IsLedger() bool {
	return k == DepositLedger || k == WithdrawLedger
}

// Row is a single raw record keyed by the column header as found in the file.
type Row map[string]string

// RawTable is the decoded form of one uploaded file: an ordered header and
// ordered rows of loosely typed cells. It exists only between decoding and
// normalization.
type RawTable struct {
	Headers []string
	Rows    []Row
}

// Empty reports whether the table carries no data at all, which is how an
// omitted upload is represented.
func (t RawTable) Empty() bool {
	return len(t.Headers) == 0 && len(t.Rows) == 0
}

// NamedTable pairs a channel statement with its channel name. Declaration
// order of channels is significant for tie-breaking.
type NamedTable struct {
	Name  string
	Table RawTable
}

// NormalizedRecord is the canonical record every pipeline stage past the
// normalizer operates on. Amount is already rounded to the currency's
// minor-unit exponent.
type NormalizedRecord struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Timestamp     *time.Time      `json:"timestamp,omitempty"`
	Direction     Direction       `json:"direction,omitempty"`
	Status        string          `json:"status,omitempty"`
	Account       string          `json:"account,omitempty"`
	Source        string          `json:"source"`
}

// minorUnits maps ISO currency codes to their minor-unit exponent.
// Unlisted currencies use two decimal places.
var minorUnits = map[string]int32{
	"BHD": 3,
	"IQD": 3,
	"JOD": 3,
	"KWD": 3,
	"LYD": 3,
	"OMR": 3,
	"TND": 3,
	"BIF": 0,
	"CLP": 0,
	"DJF": 0,
	"GNF": 0,
	"ISK": 0,
	"JPY": 0,
	"KMF": 0,
	"KRW": 0,
	"PYG": 0,
	"RWF": 0,
	"UGX": 0,
	"VND": 0,
	"VUV": 0,
	"XAF": 0,
	"XOF": 0,
	"XPF": 0,
}

// MinorUnitExponent returns the number of decimal places used by the
// given currency code.
func MinorUnitExponent(currency string) int32 {
	if exp, ok := minorUnits[currency]; ok {
		return exp
	}
	return 2
}
