// Package report assembles the final reconciliation report from the
// classifier output. It merges per-channel sub-results into a fresh value
// rather than mutating a shared accumulator.
package report

import (
	"github.com/shopspring/decimal"

	"payment-recon/internal/classifier"
	"payment-recon/internal/domain"
)

// Input carries everything the aggregator needs from earlier stages.
type Input struct {
	Classification  classifier.Classification
	Channels        []string
	NeedsAdaptation bool
	Diagnostics     []domain.Diagnostic
	SkippedRows     map[string]int
	DuplicateKeys   map[string]int
}

// Aggregate builds the immutable run report.
func Aggregate(in Input) *domain.ReconciliationReport {
	totals := map[domain.Direction]*domain.LedgerSummary{
		domain.Deposit:  newSummary(),
		domain.Withdraw: newSummary(),
	}

	type channelAccum struct {
		perDirection    map[domain.Direction]*domain.LedgerSummary
		missingInLedger int
	}
	channels := make(map[string]*channelAccum, len(in.Channels))
	for _, name := range in.Channels {
		channels[name] = &channelAccum{
			perDirection: map[domain.Direction]*domain.LedgerSummary{
				domain.Deposit:  newSummary(),
				domain.Withdraw: newSummary(),
			},
		}
	}

	all := make([]domain.MatchResult, 0, len(in.Classification.Matched)+len(in.Classification.Anomalies))
	all = append(all, in.Classification.Matched...)
	all = append(all, in.Classification.Anomalies...)

	for _, result := range all {
		if result.Verdict == domain.MissingInLedger {
			if result.Channel != nil {
				if acc, ok := channels[result.Channel.Source]; ok {
					acc.missingInLedger++
				}
			}
			continue
		}
		if result.Ledger == nil {
			// Cross-channel duplicate extras reference no ledger record
			// and must not inflate ledger counts.
			continue
		}

		summaries := []*domain.LedgerSummary{totals[result.Ledger.Direction]}
		if result.Channel != nil {
			if acc, ok := channels[result.Channel.Source]; ok {
				summaries = append(summaries, acc.perDirection[result.Ledger.Direction])
			}
		}

		for _, s := range summaries {
			s.Count++
			s.Amount = s.Amount.Add(result.Ledger.Amount)
			if result.Verdict == domain.Matched {
				s.Matched++
				s.MatchedAmount = s.MatchedAmount.Add(result.Ledger.Amount)
			}
		}
	}

	out := &domain.ReconciliationReport{
		Summary: domain.Summary{
			TotalDeposit:  finalize(totals[domain.Deposit]),
			TotalWithdraw: finalize(totals[domain.Withdraw]),
		},
		Channels:         make(map[string]domain.ChannelReport, len(in.Channels)),
		Mismatched:       make([]domain.MatchResult, 0),
		MissingInChannel: in.Classification.ByVerdict(domain.MissingInChannel),
		MissingInLedger:  in.Classification.ByVerdict(domain.MissingInLedger),
		Anomalies:        in.Classification.ByVerdict(domain.CrossChannelDuplicate),
		NeedsAdaptation:  in.NeedsAdaptation,
		Diagnostics:      in.Diagnostics,
		SkippedRows:      in.SkippedRows,
		DuplicateKeys:    in.DuplicateKeys,
	}

	// Time drift is an amount-mismatch-class anomaly and is surfaced
	// alongside the plain mismatches.
	for _, result := range in.Classification.Anomalies {
		if result.Verdict == domain.AmountMismatch || result.Verdict == domain.TimeDrift {
			out.Mismatched = append(out.Mismatched, result)
		}
	}

	for _, name := range in.Channels {
		acc := channels[name]
		out.Channels[name] = domain.ChannelReport{
			Deposit:         finalize(acc.perDirection[domain.Deposit]),
			Withdraw:        finalize(acc.perDirection[domain.Withdraw]),
			MissingInLedger: acc.missingInLedger,
		}
	}

	return out
}

func newSummary() *domain.LedgerSummary {
	return &domain.LedgerSummary{
		Amount:        decimal.Zero,
		MatchedAmount: decimal.Zero,
	}
}

// finalize computes the match ratio, leaving it nil rather than dividing
// by zero when no ledger records were in scope.
func finalize(s *domain.LedgerSummary) domain.LedgerSummary {
	if s.Count > 0 {
		ratio := float64(s.Matched) / float64(s.Count)
		s.MatchRatio = &ratio
	}
	return *s
}
