package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"payment-recon/internal/domain"
	"payment-recon/internal/engine"
	"payment-recon/internal/enrichment"
	"payment-recon/internal/repository"
	"payment-recon/pkg/logger"
)

type ReconciliationService interface {
	Reconcile(ctx context.Context, input engine.Input) (*domain.RunResult, error)
	GetRun(runID string) (*domain.ReconciliationRun, error)
	ListRuns(limit int) ([]domain.ReconciliationRun, error)
}

type reconciliationService struct {
	engine   *engine.Engine
	repo     repository.RunRepository
	enricher enrichment.Service
}

// NewReconciliationService wires the pipeline with its optional
// collaborators. repo may be nil (no persistence) and enricher may be nil
// (no enrichment); the pipeline itself is unaffected by either.
func NewReconciliationService(
	eng *engine.Engine,
	repo repository.RunRepository,
	enricher enrichment.Service,
) ReconciliationService {
	if enricher == nil {
		enricher = enrichment.Noop{}
	}
	return &reconciliationService{
		engine:   eng,
		repo:     repo,
		enricher: enricher,
	}
}

func (s *reconciliationService) Reconcile(ctx context.Context, input engine.Input) (*domain.RunResult, error) {
	runID := uuid.New().String()
	log := logger.GetLogger().WithField("run_id", runID)
	log.WithField("channels", len(input.Channels)).Info("Starting reconciliation run")

	// The run row is created up front in PROCESSING state and settled via
	// update, so an operator can see in-flight runs next to finished ones.
	s.createPending(runID)

	rpt, err := s.engine.Reconcile(input)
	if err != nil {
		s.settleFailure(runID, err)
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}

	s.settleCompleted(runID, rpt)

	result := &domain.RunResult{
		RunID:  runID,
		Report: rpt,
	}

	// Enrichment is best-effort; its absence or failure never degrades
	// the report itself.
	if analysis, err := s.enricher.Analyze(ctx, rpt); err != nil {
		log.WithError(err).Warn("Enrichment analysis failed, continuing without it")
	} else {
		result.Analysis = analysis
	}

	if rpt.NeedsAdaptation {
		headers := unresolvedHeaders(rpt, input)
		if suggestions, err := s.enricher.SuggestAliases(ctx, headers); err != nil {
			log.WithError(err).Warn("Alias suggestion failed, continuing without it")
		} else {
			result.AliasSuggestions = suggestions
		}
	}

	log.Info("Reconciliation run completed")
	return result, nil
}

func (s *reconciliationService) GetRun(runID string) (*domain.ReconciliationRun, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("run history is not available without a database")
	}
	return s.repo.GetRunByID(runID)
}

func (s *reconciliationService) ListRuns(limit int) ([]domain.ReconciliationRun, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("run history is not available without a database")
	}
	return s.repo.ListRuns(limit)
}

func (s *reconciliationService) createPending(runID string) {
	if s.repo == nil {
		return
	}

	run := &domain.ReconciliationRun{
		RunID:  runID,
		Status: domain.RunProcessing,
	}
	if err := s.repo.CreateRun(run); err != nil {
		logger.GetLogger().WithError(err).WithField("run_id", runID).Error("Failed to persist run")
	}
}

func (s *reconciliationService) settleCompleted(runID string, rpt *domain.ReconciliationReport) {
	if s.repo == nil {
		return
	}

	raw, err := json.Marshal(rpt)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to serialize report")
		return
	}

	run := &domain.ReconciliationRun{
		RunID:           runID,
		Status:          domain.RunCompleted,
		TotalRecords:    rpt.Summary.TotalDeposit.Count + rpt.Summary.TotalWithdraw.Count,
		TotalMatched:    rpt.Summary.TotalDeposit.Matched + rpt.Summary.TotalWithdraw.Matched,
		TotalAnomalies:  len(rpt.Mismatched) + len(rpt.MissingInChannel) + len(rpt.MissingInLedger) + len(rpt.Anomalies),
		NeedsAdaptation: rpt.NeedsAdaptation,
		Report:          raw,
	}

	if err := s.repo.UpdateRun(run); err != nil {
		logger.GetLogger().WithError(err).WithField("run_id", runID).Error("Failed to persist run")
	}
}

func (s *reconciliationService) settleFailure(runID string, cause error) {
	if s.repo == nil {
		return
	}

	msg := cause.Error()
	run := &domain.ReconciliationRun{
		RunID:        runID,
		Status:       domain.RunFailed,
		ErrorMessage: &msg,
	}
	if err := s.repo.UpdateRun(run); err != nil {
		logger.GetLogger().WithError(err).WithField("run_id", runID).Error("Failed to persist failed run")
	}
}

// unresolvedHeaders collects the raw headers of every source flagged with
// a schema diagnostic, so the enrichment service can propose aliases.
func unresolvedHeaders(rpt *domain.ReconciliationReport, input engine.Input) map[string][]string {
	flagged := make(map[string]bool)
	for _, diag := range rpt.Diagnostics {
		if diag.Code == domain.DiagSchemaUnresolved {
			flagged[diag.Source] = true
		}
	}

	headers := make(map[string][]string)
	if flagged[engine.DepositSource] {
		headers[engine.DepositSource] = input.Deposit.Headers
	}
	if flagged[engine.WithdrawSource] {
		headers[engine.WithdrawSource] = input.Withdraw.Headers
	}
	for _, channel := range input.Channels {
		if flagged[channel.Name] {
			headers[channel.Name] = channel.Table.Headers
		}
	}
	return headers
}
