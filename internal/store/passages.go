package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// PassageRepository stores the segmented passages of a run.
type PassageRepository interface {
	Save(ctx context.Context, runID string, passages []models.Passage) error
	List(ctx context.Context, runID string) ([]models.Passage, error)
}

type passageRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func newPassageRepository(db *sqlx.DB, log *zap.Logger) PassageRepository {
	return &passageRepository{db: db, log: log}
}

type passageRow struct {
	RunID string `db:"run_id"`
	models.Passage
}

func (r *passageRepository) Save(ctx context.Context, runID string, passages []models.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO passages (run_id, document_id, passage_index, section, start_offset, end_offset, text)
			VALUES (:run_id, :document_id, :passage_index, :section, :start_offset, :end_offset, :text)`)
		if err != nil {
			return fmt.Errorf("prepare passage insert: %w", err)
		}
		defer stmt.Close()
		for i := range passages {
			if _, err := stmt.ExecContext(ctx, passageRow{RunID: runID, Passage: passages[i]}); err != nil {
				return fmt.Errorf("insert passage %s: %w", passages[i].Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("passages saved", zap.String("run_id", runID), zap.Int("count", len(passages)))
	return nil
}

func (r *passageRepository) List(ctx context.Context, runID string) ([]models.Passage, error) {
	query := r.db.Rebind(`
		SELECT document_id, passage_index, section, start_offset, end_offset, text
		FROM passages WHERE run_id = ? ORDER BY document_id, passage_index`)
	var passages []models.Passage
	if err := r.db.SelectContext(ctx, &passages, query, runID); err != nil {
		return nil, fmt.Errorf("list passages for run %s: %w", runID, err)
	}
	return passages, nil
}
