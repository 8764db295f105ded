package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// PredictionRepository stores per-passage classifier outputs.
type PredictionRepository interface {
	Save(ctx context.Context, preds []models.PredictionRecord) error
	// List returns the predictions of a run, optionally restricted to one
	// model. An empty model name selects every model.
	List(ctx context.Context, runID, model string) ([]models.PredictionRecord, error)
}

type predictionRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func newPredictionRepository(db *sqlx.DB, log *zap.Logger) PredictionRepository {
	return &predictionRepository{db: db, log: log}
}

func (r *predictionRepository) Save(ctx context.Context, preds []models.PredictionRecord) error {
	if len(preds) == 0 {
		return nil
	}
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO predictions (run_id, document_id, passage_index, model, probability, predicted_class)
			VALUES (:run_id, :document_id, :passage_index, :model, :probability, :predicted_class)`)
		if err != nil {
			return fmt.Errorf("prepare prediction insert: %w", err)
		}
		defer stmt.Close()
		for i := range preds {
			if _, err := stmt.ExecContext(ctx, preds[i]); err != nil {
				return fmt.Errorf("insert prediction %s/%s: %w", preds[i].Model, preds[i].Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("predictions saved", zap.Int("count", len(preds)))
	return nil
}

func (r *predictionRepository) List(ctx context.Context, runID, model string) ([]models.PredictionRecord, error) {
	query := `
		SELECT run_id, document_id, passage_index, model, probability, predicted_class
		FROM predictions WHERE run_id = ?`
	args := []any{runID}
	if model != "" {
		query += ` AND model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY model, document_id, passage_index`

	var preds []models.PredictionRecord
	if err := r.db.SelectContext(ctx, &preds, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list predictions for run %s: %w", runID, err)
	}
	return preds, nil
}
