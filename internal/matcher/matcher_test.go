package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-recon/internal/domain"
	"payment-recon/internal/store"
)

func ledgerRecord(id, amount string, direction domain.Direction) domain.NormalizedRecord {
	source := "deposit"
	if direction == domain.Withdraw {
		source = "withdraw"
	}
	return domain.NormalizedRecord{
		TransactionID: id,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "USD",
		Direction:     direction,
		Source:        source,
	}
}

func channelRecord(id, amount, source string) domain.NormalizedRecord {
	return domain.NormalizedRecord{
		TransactionID: id,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "USD",
		Source:        source,
	}
}

func verdicts(results []domain.MatchResult) map[domain.Verdict]int {
	counts := make(map[domain.Verdict]int)
	for _, r := range results {
		counts[r.Verdict]++
	}
	return counts
}

// Deposit ledger T1/T2/T3; channel has T1 exact, T2 off by 0.01, no T3.
func TestMatcher_MatchMismatchAndMissing(t *testing.T) {
	st := store.New()
	st.AddSource("deposit", domain.DepositLedger, []domain.NormalizedRecord{
		ledgerRecord("T1", "100.00", domain.Deposit),
		ledgerRecord("T2", "200.00", domain.Deposit),
		ledgerRecord("T3", "300.00", domain.Deposit),
	})
	st.AddSource("alipay", domain.Channel, []domain.NormalizedRecord{
		channelRecord("T1", "100.00", "alipay"),
		channelRecord("T2", "200.01", "alipay"),
	})

	results := New(st, Options{StrictCurrency: true}).Run([]string{"deposit"})

	counts := verdicts(results)
	assert.Equal(t, 1, counts[domain.Matched])
	assert.Equal(t, 1, counts[domain.AmountMismatch])
	assert.Equal(t, 1, counts[domain.MissingInChannel])
	assert.Len(t, results, 3)
}

// A channel record with no ledger counterpart surfaces as missing_in_ledger.
func TestMatcher_ExtraChannelRecord(t *testing.T) {
	st := store.New()
	st.AddSource("deposit", domain.DepositLedger, []domain.NormalizedRecord{
		ledgerRecord("T1", "100.00", domain.Deposit),
	})
	st.AddSource("alipay", domain.Channel, []domain.NormalizedRecord{
		channelRecord("T1", "100.00", "alipay"),
		channelRecord("T4", "40.00", "alipay"),
	})

	results := New(st, Options{StrictCurrency: true}).Run([]string{"deposit"})

	var missing []domain.MatchResult
	for _, r := range results {
		if r.Verdict == domain.MissingInLedger {
			missing = append(missing, r)
		}
	}
	require.Len(t, missing, 1)
	assert.Equal(t, "T4", missing[0].TransactionID)
	assert.Equal(t, []string{"alipay"}, missing[0].Sources)
}

// The same business key in two channel files: first channel in declaration
// order takes the primary verdict, the other is a cross-channel duplicate
// referencing both sources.
func TestMatcher_CrossChannelDuplicate(t *testing.T) {
	st := store.New()
	st.AddSource("deposit", domain.DepositLedger, []domain.NormalizedRecord{
		ledgerRecord("T5", "50.00", domain.Deposit),
	})
	st.AddSource("alipay", domain.Channel, []domain.NormalizedRecord{
		channelRecord("T5", "50.00", "alipay"),
	})
	st.AddSource("wechat", domain.Channel, []domain.NormalizedRecord{
		channelRecord("T5", "50.00", "wechat"),
	})

	results := New(st, Options{StrictCurrency: true}).Run([]string{"deposit"})

	require.Len(t, results, 2)
	assert.Equal(t, domain.Matched, results[0].Verdict)
	assert.Equal(t, "alipay", results[0].Channel.Source)

	assert.Equal(t, domain.CrossChannelDuplicate, results[1].Verdict)
	assert.Equal(t, []string{"alipay", "wechat"}, results[1].Sources)

	// The duplicate is consumed: it must not also be missing_in_ledger.
	counts := verdicts(results)
	assert.Zero(t, counts[domain.MissingInLedger])
}

func TestMatcher_TimeDriftDowngradesMatch(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	far := base.Add(48 * time.Hour)

	ledger := ledgerRecord("T1", "100.00", domain.Deposit)
	ledger.Timestamp = &base
	channel := channelRecord("T1", "100.00", "alipay")
	channel.Timestamp = &far

	st := store.New()
	st.AddSource("deposit", domain.DepositLedger, []domain.NormalizedRecord{ledger})
	st.AddSource("alipay", domain.Channel, []domain.NormalizedRecord{channel})

	results := New(st, Options{TimeTolerance: 24 * time.Hour, StrictCurrency: true}).Run([]string{"deposit"})

	require.Len(t, results, 1)
	assert.Equal(t, domain.TimeDrift, results[0].Verdict)
}

func TestMatcher_TimestampMissingOnOneSideSkipsTimeCheck(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	ledger := ledgerRecord("T1", "100.00", domain.Deposit)
	ledger.Timestamp = &base

	st := store.New()
	st.AddSource("deposit", domain.DepositLedger, []domain.NormalizedRecord{ledger})
	st.AddSource("alipay", domain.Channel, []domain.NormalizedRecord{
		channelRecord("T1", "100.00", "alipay"),
	})

	results := New(st, Options{TimeTolerance: time.Minute, StrictCurrency: true}).Run([]string{"deposit"})

	require.Len(t, results, 1)
	assert.Equal(t, domain.Matched, results[0].Verdict)
}

func TestMatcher_CurrencyPolicy(t *testing.T) {
	ledger := ledgerRecord("T1", "100.00", domain.Deposit)
	channel := channelRecord("T1", "100.00", "alipay")
	channel.Currency = "EUR"

	build := func() *store.Store {
		st := store.New()
		st.AddSource("deposit", domain.DepositLedger, []domain.NormalizedRecord{ledger})
		st.AddSource("alipay", domain.Channel, []domain.NormalizedRecord{channel})
		return st
	}

	strict := New(build(), Options{StrictCurrency: true}).Run([]string{"deposit"})
	require.Len(t, strict, 1)
	assert.Equal(t, domain.AmountMismatch, strict[0].Verdict)

	lenient := New(build(), Options{StrictCurrency: false}).Run([]string{"deposit"})
	require.Len(t, lenient, 1)
	assert.Equal(t, domain.Matched, lenient[0].Verdict)
}

// A channel record consumed by the deposit pass cannot be matched again by
// the withdraw pass.
func TestMatcher_ChannelRecordConsumedOnce(t *testing.T) {
	st := store.New()
	st.AddSource("deposit", domain.DepositLedger, []domain.NormalizedRecord{
		ledgerRecord("T1", "100.00", domain.Deposit),
	})
	st.AddSource("withdraw", domain.WithdrawLedger, []domain.NormalizedRecord{
		ledgerRecord("T1", "100.00", domain.Withdraw),
	})
	st.AddSource("alipay", domain.Channel, []domain.NormalizedRecord{
		channelRecord("T1", "100.00", "alipay"),
	})

	results := New(st, Options{StrictCurrency: true}).Run([]string{"deposit", "withdraw"})

	counts := verdicts(results)
	assert.Equal(t, 1, counts[domain.Matched])
	assert.Equal(t, 1, counts[domain.MissingInChannel])

	seen := make(map[*domain.NormalizedRecord]int)
	for _, r := range results {
		if r.Channel != nil {
			seen[r.Channel]++
		}
	}
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
}

func TestMatcher_DeterministicAcrossRuns(t *testing.T) {
	build := func() *store.Store {
		st := store.New()
		st.AddSource("deposit", domain.DepositLedger, []domain.NormalizedRecord{
			ledgerRecord("T2", "20.00", domain.Deposit),
			ledgerRecord("T1", "10.00", domain.Deposit),
			ledgerRecord("T3", "30.00", domain.Deposit),
		})
		st.AddSource("alipay", domain.Channel, []domain.NormalizedRecord{
			channelRecord("T3", "30.00", "alipay"),
			channelRecord("T1", "10.00", "alipay"),
		})
		return st
	}

	first := New(build(), Options{StrictCurrency: true}).Run([]string{"deposit"})
	second := New(build(), Options{StrictCurrency: true}).Run([]string{"deposit"})

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Verdict, second[i].Verdict)
		assert.Equal(t, first[i].TransactionID, second[i].TransactionID)
	}
}
