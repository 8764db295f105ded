package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// ReportRepository stores one evaluation report per run, encoded as JSON.
type ReportRepository interface {
	Save(ctx context.Context, runID string, report *models.EvaluationReport) error
	Get(ctx context.Context, runID string) (*models.EvaluationReport, error)
}

type reportRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func newReportRepository(db *sqlx.DB, log *zap.Logger) ReportRepository {
	return &reportRepository{db: db, log: log}
}

// Save replaces any previous report for the run, so re-evaluating a stored
// run is safe.
func (r *reportRepository) Save(ctx context.Context, runID string, report *models.EvaluationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report for run %s: %w", runID, err)
	}
	err = inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM reports WHERE run_id = ?`), runID); err != nil {
			return fmt.Errorf("replace report for run %s: %w", runID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO reports (run_id, payload) VALUES (?, ?)`),
			runID, string(payload)); err != nil {
			return fmt.Errorf("insert report for run %s: %w", runID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("report saved", zap.String("run_id", runID), zap.Int("bytes", len(payload)))
	return nil
}

func (r *reportRepository) Get(ctx context.Context, runID string) (*models.EvaluationReport, error) {
	var payload string
	query := r.db.Rebind(`SELECT payload FROM reports WHERE run_id = ?`)
	if err := r.db.GetContext(ctx, &payload, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report for run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("get report for run %s: %w", runID, err)
	}
	var report models.EvaluationReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decode report for run %s: %w", runID, err)
	}
	return &report, nil
}
