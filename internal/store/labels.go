package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// LabelRepository stores the merged evasiveness and market labels of a run.
type LabelRepository interface {
	Save(ctx context.Context, runID string, labels []models.Label) error
	List(ctx context.Context, runID string) ([]models.Label, error)
}

type labelRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func newLabelRepository(db *sqlx.DB, log *zap.Logger) LabelRepository {
	return &labelRepository{db: db, log: log}
}

type labelRow struct {
	RunID string `db:"run_id"`
	models.Label
}

func (r *labelRepository) Save(ctx context.Context, runID string, labels []models.Label) error {
	if len(labels) == 0 {
		return nil
	}
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO labels (
				run_id, document_id, passage_index,
				evasive, label_source, ambiguity_score,
				market_adverse, forward_return, window_days
			) VALUES (
				:run_id, :document_id, :passage_index,
				:evasive, :label_source, :ambiguity_score,
				:market_adverse, :forward_return, :window_days
			)`)
		if err != nil {
			return fmt.Errorf("prepare label insert: %w", err)
		}
		defer stmt.Close()
		for i := range labels {
			if _, err := stmt.ExecContext(ctx, labelRow{RunID: runID, Label: labels[i]}); err != nil {
				return fmt.Errorf("insert label %s: %w", labels[i].Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("labels saved", zap.String("run_id", runID), zap.Int("count", len(labels)))
	return nil
}

func (r *labelRepository) List(ctx context.Context, runID string) ([]models.Label, error) {
	query := r.db.Rebind(`
		SELECT document_id, passage_index,
		       evasive, label_source, ambiguity_score,
		       market_adverse, forward_return, window_days
		FROM labels WHERE run_id = ? ORDER BY document_id, passage_index`)
	var labels []models.Label
	if err := r.db.SelectContext(ctx, &labels, query, runID); err != nil {
		return nil, fmt.Errorf("list labels for run %s: %w", runID, err)
	}
	return labels, nil
}
