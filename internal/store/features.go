package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// FeatureRepository stores the extracted feature vectors of a run.
type FeatureRepository interface {
	Save(ctx context.Context, runID string, feats []models.FeatureVector) error
	List(ctx context.Context, runID string) ([]models.FeatureVector, error)
}

type featureRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func newFeatureRepository(db *sqlx.DB, log *zap.Logger) FeatureRepository {
	return &featureRepository{db: db, log: log}
}

type featureRow struct {
	RunID string `db:"run_id"`
	models.FeatureVector
}

func (r *featureRepository) Save(ctx context.Context, runID string, feats []models.FeatureVector) error {
	if len(feats) == 0 {
		return nil
	}
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO features (
				run_id, document_id, passage_index,
				hedge_density, modal_rate, vague_density, passive_rate, numeric_density,
				sentiment, readability, avg_sentence_len, lexical_diversity
			) VALUES (
				:run_id, :document_id, :passage_index,
				:hedge_density, :modal_rate, :vague_density, :passive_rate, :numeric_density,
				:sentiment, :readability, :avg_sentence_len, :lexical_diversity
			)`)
		if err != nil {
			return fmt.Errorf("prepare feature insert: %w", err)
		}
		defer stmt.Close()
		for i := range feats {
			if _, err := stmt.ExecContext(ctx, featureRow{RunID: runID, FeatureVector: feats[i]}); err != nil {
				return fmt.Errorf("insert features %s: %w", feats[i].Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("features saved", zap.String("run_id", runID), zap.Int("count", len(feats)))
	return nil
}

func (r *featureRepository) List(ctx context.Context, runID string) ([]models.FeatureVector, error) {
	query := r.db.Rebind(`
		SELECT document_id, passage_index,
		       hedge_density, modal_rate, vague_density, passive_rate, numeric_density,
		       sentiment, readability, avg_sentence_len, lexical_diversity
		FROM features WHERE run_id = ? ORDER BY document_id, passage_index`)
	var feats []models.FeatureVector
	if err := r.db.SelectContext(ctx, &feats, query, runID); err != nil {
		return nil, fmt.Errorf("list features for run %s: %w", runID, err)
	}
	return feats, nil
}
