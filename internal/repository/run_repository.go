package repository

import (
	"database/sql"
	"fmt"

	"payment-recon/internal/domain"
	"payment-recon/pkg/logger"
)

// RunRepository persists reconciliation runs and their reports. Storage is
// outside the core pipeline: the engine never touches it, and the service
// treats persistence failures as non-fatal.
type RunRepository interface {
	CreateRun(run *domain.ReconciliationRun) error
	UpdateRun(run *domain.ReconciliationRun) error
	GetRunByID(runID string) (*domain.ReconciliationRun, error)
	ListRuns(limit int) ([]domain.ReconciliationRun, error)
}

type runRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) CreateRun(run *domain.ReconciliationRun) error {
	query := `
		INSERT INTO reconciliation_runs (
			run_id, status, total_records, total_matched,
			total_anomalies, needs_adaptation, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		run.RunID,
		run.Status,
		run.TotalRecords,
		run.TotalMatched,
		run.TotalAnomalies,
		run.NeedsAdaptation,
		run.Report,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)

	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to create reconciliation run")
		return err
	}

	return nil
}

func (r *runRepository) UpdateRun(run *domain.ReconciliationRun) error {
	query := `
		UPDATE reconciliation_runs
		SET status = $1, total_records = $2, total_matched = $3,
			total_anomalies = $4, needs_adaptation = $5, report = $6,
			error_message = $7, updated_at = NOW()
		WHERE run_id = $8
	`

	_, err := r.db.Exec(
		query,
		run.Status,
		run.TotalRecords,
		run.TotalMatched,
		run.TotalAnomalies,
		run.NeedsAdaptation,
		run.Report,
		run.ErrorMessage,
		run.RunID,
	)

	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to update reconciliation run")
		return err
	}

	return nil
}

func (r *runRepository) GetRunByID(runID string) (*domain.ReconciliationRun, error) {
	query := `
		SELECT id, run_id, status, total_records, total_matched,
			total_anomalies, needs_adaptation, report, error_message,
			created_at, updated_at
		FROM reconciliation_runs
		WHERE run_id = $1
	`

	var run domain.ReconciliationRun
	err := r.db.QueryRow(query, runID).Scan(
		&run.ID,
		&run.RunID,
		&run.Status,
		&run.TotalRecords,
		&run.TotalMatched,
		&run.TotalAnomalies,
		&run.NeedsAdaptation,
		&run.Report,
		&run.ErrorMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		logger.GetLogger().WithError(err).WithField("run_id", runID).Error("Failed to load reconciliation run")
		return nil, err
	}

	return &run, nil
}

func (r *runRepository) ListRuns(limit int) ([]domain.ReconciliationRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, run_id, status, total_records, total_matched,
			total_anomalies, needs_adaptation, error_message,
			created_at, updated_at
		FROM reconciliation_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list reconciliation runs")
		return nil, err
	}
	defer rows.Close()

	runs := make([]domain.ReconciliationRun, 0)
	for rows.Next() {
		var run domain.ReconciliationRun
		if err := rows.Scan(
			&run.ID,
			&run.RunID,
			&run.Status,
			&run.TotalRecords,
			&run.TotalMatched,
			&run.TotalAnomalies,
			&run.NeedsAdaptation,
			&run.ErrorMessage,
			&run.CreatedAt,
			&run.UpdatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
