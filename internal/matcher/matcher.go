// Package matcher correlates ledger records with channel records by
// business key and assigns each one a verdict. The pass is deterministic:
// ledger sources are walked in declaration order, their records in input
// order, and candidate channels in channel declaration order, so a re-run
// over identical input reproduces the same results byte for byte.
package matcher

import (
	"time"

	"payment-recon/internal/domain"
	"payment-recon/internal/store"
	"payment-recon/pkg/logger"
)

// Options tune the comparison rules.
type Options struct {
	// TimeTolerance is the widest timestamp gap a matched pair may have
	// before being downgraded to a time_drift anomaly. Applied only when
	// both sides carry a timestamp.
	TimeTolerance time.Duration
	// StrictCurrency makes a currency mismatch with equal amounts an
	// amount_mismatch; when false the currency field is ignored.
	StrictCurrency bool
}

// Matcher runs the matching pass over one run's record store.
type Matcher struct {
	store *store.Store
	opts  Options
}

func New(st *store.Store, opts Options) *Matcher {
	if opts.TimeTolerance <= 0 {
		opts.TimeTolerance = 24 * time.Hour
	}
	return &Matcher{store: st, opts: opts}
}

// Run matches every ledger record against the channel statements and then
// sweeps for channel records never referenced by a verdict. Each channel
// record is consumed by at most one verdict.
func (m *Matcher) Run(ledgerSources []string) []domain.MatchResult {
	results := make([]domain.MatchResult, 0)
	consumed := make(map[*domain.NormalizedRecord]bool)

	for _, source := range ledgerSources {
		records := m.store.Records(source)
		for i := range records {
			results = append(results, m.matchLedgerRecord(&records[i], consumed)...)
		}
	}

	// Unreferenced channel records are present in a statement but absent
	// from both ledgers.
	for _, channel := range m.store.Channels() {
		records := m.store.Records(channel)
		for i := range records {
			record := &records[i]
			if consumed[record] {
				continue
			}
			amount := record.Amount
			results = append(results, domain.MatchResult{
				Verdict:       domain.MissingInLedger,
				TransactionID: record.TransactionID,
				Channel:       record,
				ChannelAmount: &amount,
				Sources:       []string{channel},
			})
		}
	}

	logger.GetLogger().WithField("results", len(results)).Debug("Matching pass completed")
	return results
}

func (m *Matcher) matchLedgerRecord(ledger *domain.NormalizedRecord, consumed map[*domain.NormalizedRecord]bool) []domain.MatchResult {
	ledgerAmount := ledger.Amount

	candidates := make([]*domain.NormalizedRecord, 0, 1)
	for _, c := range m.store.ChannelRecords(ledger.TransactionID) {
		if !consumed[c] {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return []domain.MatchResult{{
			Verdict:       domain.MissingInChannel,
			TransactionID: ledger.TransactionID,
			Ledger:        ledger,
			LedgerAmount:  &ledgerAmount,
			Sources:       []string{ledger.Source},
		}}
	}

	// First channel in declaration order wins the primary verdict.
	primary := candidates[0]
	consumed[primary] = true
	primaryAmount := primary.Amount

	results := []domain.MatchResult{{
		Verdict:       m.compare(ledger, primary),
		TransactionID: ledger.TransactionID,
		Ledger:        ledger,
		Channel:       primary,
		LedgerAmount:  &ledgerAmount,
		ChannelAmount: &primaryAmount,
		Sources:       []string{ledger.Source, primary.Source},
	}}

	// The same business key showing up in further channels is an anomaly
	// of its own; each extra record is consumed so it cannot also surface
	// as missing_in_ledger.
	for _, extra := range candidates[1:] {
		consumed[extra] = true
		extraAmount := extra.Amount
		results = append(results, domain.MatchResult{
			Verdict:       domain.CrossChannelDuplicate,
			TransactionID: ledger.TransactionID,
			Channel:       extra,
			ChannelAmount: &extraAmount,
			Sources:       []string{primary.Source, extra.Source},
		})
	}

	return results
}

// compare applies the amount, currency and time rules to one pair.
func (m *Matcher) compare(ledger, channel *domain.NormalizedRecord) domain.Verdict {
	amountsEqual := ledger.Amount.Equal(channel.Amount)
	currencyOK := !m.opts.StrictCurrency || ledger.Currency == channel.Currency

	if !amountsEqual || !currencyOK {
		return domain.AmountMismatch
	}

	if ledger.Timestamp != nil && channel.Timestamp != nil {
		drift := ledger.Timestamp.Sub(*channel.Timestamp)
		if drift < 0 {
			drift = -drift
		}
		if drift > m.opts.TimeTolerance {
			return domain.TimeDrift
		}
	}

	return domain.Matched
}
