package models

import "time"

// Model names used in PredictionRecords and reports.
const (
	ModelBaseline = "baseline"
	ModelAdvanced = "advanced"
)

// PredictionRecord is one (passage, model) prediction within a run.
// Append-only; a run never overwrites another run's records.
type PredictionRecord struct {
	RunID        string  `db:"run_id" json:"run_id"`
	DocumentID   string  `db:"document_id" json:"document_id"`
	PassageIndex int     `db:"passage_index" json:"passage_index"`
	Model        string  `db:"model" json:"model"`
	Probability  float64 `db:"probability" json:"probability"`
	Predicted    int     `db:"predicted_class" json:"predicted_class"`
}

// Key returns the scored passage's identifier.
func (p *PredictionRecord) Key() PassageKey {
	return PassageKey{DocumentID: p.DocumentID, PassageIndex: p.PassageIndex}
}

// RunStatus tracks the lifecycle of a pipeline run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// Run is the persisted record of one end-to-end pipeline execution.
type Run struct {
	ID         string     `db:"id" json:"id"`
	Status     RunStatus  `db:"status" json:"status"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	Seed       int64      `db:"seed" json:"seed"`
	ConfigYAML string     `db:"config_yaml" json:"config_yaml"`
	Error      *string    `db:"error" json:"error,omitempty"`
}
