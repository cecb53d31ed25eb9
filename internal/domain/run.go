package domain

import (
	"encoding/json"
	"time"
)

// RunStatus represents the lifecycle state of a reconciliation run.
type RunStatus string

const (
	RunProcessing RunStatus = "PROCESSING"
	RunCompleted  RunStatus = "COMPLETED"
	RunFailed     RunStatus = "FAILED"
)

// ReconciliationRun is the persisted record of one reconciliation run.
type ReconciliationRun struct {
	ID              int             `json:"id" db:"id"`
	RunID           string          `json:"run_id" db:"run_id"`
	Status          RunStatus       `json:"status" db:"status"`
	TotalRecords    int             `json:"total_records" db:"total_records"`
	TotalMatched    int             `json:"total_matched" db:"total_matched"`
	TotalAnomalies  int             `json:"total_anomalies" db:"total_anomalies"`
	NeedsAdaptation bool            `json:"needs_adaptation" db:"needs_adaptation"`
	Report          json.RawMessage `json:"report,omitempty" db:"report"`
	ErrorMessage    *string         `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// RunResult is what the service hands back to the API layer: the report
// plus optional enrichment output.
type RunResult struct {
	RunID            string                `json:"run_id"`
	Report           *ReconciliationReport `json:"report"`
	Analysis         string                `json:"analysis,omitempty"`
	AliasSuggestions map[string][]string   `json:"alias_suggestions,omitempty"`
}
