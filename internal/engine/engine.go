// Package engine wires the reconciliation pipeline: normalize every file,
// load the record store, run the matching pass, classify, aggregate. Each
// call to Reconcile is a self-contained batch computation over inputs it
// owns exclusively; the shared column mapping is read-only.
package engine

import (
	"sync"

	"payment-recon/internal/classifier"
	"payment-recon/internal/config"
	"payment-recon/internal/domain"
	"payment-recon/internal/matcher"
	"payment-recon/internal/normalizer"
	"payment-recon/internal/report"
	"payment-recon/internal/store"
	"payment-recon/pkg/logger"
)

// Source names stamped on ledger records and used for anomaly ordering.
const (
	DepositSource  = "deposit"
	WithdrawSource = "withdraw"
)

// Input is one reconciliation request. An omitted file is represented by
// an empty RawTable. Channel declaration order is significant: it breaks
// ties when the same business key appears in several statements.
type Input struct {
	Deposit  domain.RawTable
	Withdraw domain.RawTable
	Channels []domain.NamedTable
}

type Engine struct {
	mapping *config.ColumnMapping
}

// New validates the mapping up front; a broken mapping can never resolve
// any file, so it aborts before any work happens.
func New(mapping *config.ColumnMapping) (*Engine, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	return &Engine{mapping: mapping}, nil
}

// Reconcile runs the full pipeline and returns the structured report.
// Per-file and per-row problems become report diagnostics; the only error
// path out of here is configuration-level.
func (e *Engine) Reconcile(input Input) (*domain.ReconciliationReport, error) {
	deposit := normalizer.Normalize(input.Deposit, domain.DepositLedger, DepositSource, e.mapping)
	withdraw := normalizer.Normalize(input.Withdraw, domain.WithdrawLedger, WithdrawSource, e.mapping)

	// Channel files are independent of each other; normalize them
	// concurrently into pre-sized slots so completion order never leaks
	// into the output.
	channelResults := make([]normalizer.Result, len(input.Channels))
	var wg sync.WaitGroup
	for i, channel := range input.Channels {
		wg.Add(1)
		go func(i int, channel domain.NamedTable) {
			defer wg.Done()
			channelResults[i] = normalizer.Normalize(channel.Table, domain.Channel, channel.Name, e.mapping)
		}(i, channel)
	}
	wg.Wait()

	st := store.New()
	diagnostics := make([]domain.Diagnostic, 0)
	skipped := make(map[string]int)
	duplicates := make(map[string]int)
	needsAdaptation := false

	// Ledgers register first so a channel file named after a ledger
	// source is rejected by the store instead of clobbering it.
	load := func(source string, kind domain.RecordKind, res normalizer.Result) {
		diagnostics = append(diagnostics, res.Diagnostics...)
		diagnostics = append(diagnostics, st.AddSource(source, kind, res.Records)...)
		if res.SkippedRows > 0 {
			skipped[source] = res.SkippedRows
		}
		if n := st.DuplicateCount(source); n > 0 {
			duplicates[source] = n
		}
		needsAdaptation = needsAdaptation || res.NeedsAdaptation
	}

	load(DepositSource, domain.DepositLedger, deposit)
	load(WithdrawSource, domain.WithdrawLedger, withdraw)
	for i, channel := range input.Channels {
		load(channel.Name, domain.Channel, channelResults[i])
	}

	results := matcher.New(st, matcher.Options{
		TimeTolerance:  e.mapping.TimeTolerance,
		StrictCurrency: e.mapping.CurrencyPolicy == config.CurrencyStrict,
	}).Run([]string{DepositSource, WithdrawSource})

	cls := classifier.Classify(results)

	out := report.Aggregate(report.Input{
		Classification:  cls,
		Channels:        st.Channels(),
		NeedsAdaptation: needsAdaptation,
		Diagnostics:     diagnostics,
		SkippedRows:     skipped,
		DuplicateKeys:   duplicates,
	})

	logger.GetLogger().WithFields(map[string]interface{}{
		"deposit_count":    out.Summary.TotalDeposit.Count,
		"withdraw_count":   out.Summary.TotalWithdraw.Count,
		"channels":         len(out.Channels),
		"anomalies":        len(cls.Anomalies),
		"needs_adaptation": out.NeedsAdaptation,
	}).Info("Reconciliation pipeline completed")

	return out, nil
}
