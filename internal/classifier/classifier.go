// Package classifier groups match results into verdict buckets. It is a
// pure function over its input: no I/O, no mutation, and a reproducible
// anomaly ordering.
package classifier

import (
	"sort"

	"payment-recon/internal/domain"
)

// Classification is the grouped view of one matching pass.
type Classification struct {
	Counts    map[domain.Verdict]int
	Matched   []domain.MatchResult
	Anomalies []domain.MatchResult
}

// Classify buckets results by verdict. Anomalies are ordered by source,
// then transaction_id, then verdict, so the same input always yields the
// same report.
func Classify(results []domain.MatchResult) Classification {
	cls := Classification{
		Counts:    make(map[domain.Verdict]int),
		Matched:   make([]domain.MatchResult, 0),
		Anomalies: make([]domain.MatchResult, 0),
	}

	for _, result := range results {
		cls.Counts[result.Verdict]++
		if result.Verdict.IsAnomaly() {
			cls.Anomalies = append(cls.Anomalies, result)
		} else {
			cls.Matched = append(cls.Matched, result)
		}
	}

	sort.SliceStable(cls.Anomalies, func(i, j int) bool {
		a, b := cls.Anomalies[i], cls.Anomalies[j]
		if as, bs := a.OrderingSource(), b.OrderingSource(); as != bs {
			return as < bs
		}
		if a.TransactionID != b.TransactionID {
			return a.TransactionID < b.TransactionID
		}
		return a.Verdict < b.Verdict
	})

	return cls
}

// ByVerdict filters the anomaly list down to a single verdict, preserving
// order.
func (c Classification) ByVerdict(v domain.Verdict) []domain.MatchResult {
	out := make([]domain.MatchResult, 0)
	for _, result := range c.Anomalies {
		if result.Verdict == v {
			out = append(out, result)
		}
	}
	return out
}
