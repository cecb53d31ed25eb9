package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-recon/internal/config"
	"payment-recon/internal/domain"
	"payment-recon/internal/engine"
)

type fakeRepo struct {
	created []*domain.ReconciliationRun
	updated []*domain.ReconciliationRun
	fail    bool
}

func (r *fakeRepo) CreateRun(run *domain.ReconciliationRun) error {
	if r.fail {
		return errors.New("db down")
	}
	r.created = append(r.created, run)
	return nil
}

func (r *fakeRepo) UpdateRun(run *domain.ReconciliationRun) error {
	if r.fail {
		return errors.New("db down")
	}
	r.updated = append(r.updated, run)
	return nil
}

func (r *fakeRepo) GetRunByID(runID string) (*domain.ReconciliationRun, error) {
	for _, run := range r.created {
		if run.RunID == runID {
			return run, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeRepo) ListRuns(int) ([]domain.ReconciliationRun, error) {
	out := make([]domain.ReconciliationRun, 0, len(r.created))
	for _, run := range r.created {
		out = append(out, *run)
	}
	return out, nil
}

type fakeEnricher struct {
	analysis      string
	analyzeErr    error
	suggestErr    error
	headersSeen   map[string][]string
	analyzeCalled bool
	suggestCalled bool
}

func (e *fakeEnricher) Analyze(context.Context, *domain.ReconciliationReport) (string, error) {
	e.analyzeCalled = true
	return e.analysis, e.analyzeErr
}

func (e *fakeEnricher) SuggestAliases(_ context.Context, headers map[string][]string) (map[string][]string, error) {
	e.suggestCalled = true
	e.headersSeen = headers
	if e.suggestErr != nil {
		return nil, e.suggestErr
	}
	return map[string][]string{domain.FieldTransactionID: {"spalte_eins"}}, nil
}

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(config.DefaultColumnMapping())
	require.NoError(t, err)
	return eng
}

func simpleInput() engine.Input {
	ledger := domain.RawTable{
		Headers: []string{"transaction_id", "amount"},
		Rows:    []domain.Row{{"transaction_id": "T1", "amount": "100.00"}},
	}
	return engine.Input{
		Deposit:  ledger,
		Channels: []domain.NamedTable{{Name: "alipay", Table: ledger}},
	}
}

func TestService_ReconcilePersistsRun(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewReconciliationService(newTestEngine(t), repo, nil)

	result, err := svc.Reconcile(context.Background(), simpleInput())
	require.NoError(t, err)
	require.NotNil(t, result.Report)
	assert.NotEmpty(t, result.RunID)

	// The run row is created in flight and settled by update.
	require.Len(t, repo.created, 1)
	assert.Equal(t, domain.RunProcessing, repo.created[0].Status)
	assert.Equal(t, result.RunID, repo.created[0].RunID)

	require.Len(t, repo.updated, 1)
	run := repo.updated[0]
	assert.Equal(t, result.RunID, run.RunID)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 1, run.TotalRecords)
	assert.Equal(t, 1, run.TotalMatched)
	assert.NotEmpty(t, run.Report)

	loaded, err := svc.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, loaded.RunID)
}

func TestService_WorksWithoutRepository(t *testing.T) {
	svc := NewReconciliationService(newTestEngine(t), nil, nil)

	result, err := svc.Reconcile(context.Background(), simpleInput())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Report.Summary.TotalDeposit.Matched)

	_, err = svc.GetRun(result.RunID)
	assert.Error(t, err)
}

func TestService_PersistenceFailureIsNonFatal(t *testing.T) {
	svc := NewReconciliationService(newTestEngine(t), &fakeRepo{fail: true}, nil)

	result, err := svc.Reconcile(context.Background(), simpleInput())
	require.NoError(t, err)
	assert.NotNil(t, result.Report)
}

func TestService_EnrichmentFailureIsNonFatal(t *testing.T) {
	enricher := &fakeEnricher{analyzeErr: errors.New("service unavailable")}
	svc := NewReconciliationService(newTestEngine(t), nil, enricher)

	result, err := svc.Reconcile(context.Background(), simpleInput())
	require.NoError(t, err)
	assert.True(t, enricher.analyzeCalled)
	assert.Empty(t, result.Analysis)
}

func TestService_SuggestsAliasesForUnmappableFiles(t *testing.T) {
	enricher := &fakeEnricher{analysis: "all good"}
	svc := NewReconciliationService(newTestEngine(t), nil, enricher)

	input := simpleInput()
	input.Channels = append(input.Channels, domain.NamedTable{
		Name: "broken",
		Table: domain.RawTable{
			Headers: []string{"spalte_eins", "spalte_zwei"},
			Rows:    []domain.Row{{"spalte_eins": "T1", "spalte_zwei": "1"}},
		},
	})

	result, err := svc.Reconcile(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "all good", result.Analysis)
	require.True(t, enricher.suggestCalled)
	assert.Equal(t, []string{"spalte_eins", "spalte_zwei"}, enricher.headersSeen["broken"])
	assert.NotContains(t, enricher.headersSeen, "alipay")
	assert.Equal(t, []string{"spalte_eins"}, result.AliasSuggestions[domain.FieldTransactionID])
}

func TestService_NoSuggestionsWhenNothingNeedsAdaptation(t *testing.T) {
	enricher := &fakeEnricher{}
	svc := NewReconciliationService(newTestEngine(t), nil, enricher)

	_, err := svc.Reconcile(context.Background(), simpleInput())
	require.NoError(t, err)
	assert.False(t, enricher.suggestCalled)
}
