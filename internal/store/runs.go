package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
)

// RunRepository records pipeline runs and their lifecycle.
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	Finish(ctx context.Context, id string, status models.RunStatus, finishedAt time.Time, runErr *string) error
	Get(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context) ([]models.Run, error)
}

type runRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func newRunRepository(db *sqlx.DB, log *zap.Logger) RunRepository {
	return &runRepository{db: db, log: log}
}

func (r *runRepository) Create(ctx context.Context, run *models.Run) error {
	query := r.db.Rebind(`
		INSERT INTO runs (id, status, started_at, finished_at, seed, config_yaml, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.StartedAt, run.FinishedAt, run.Seed, run.ConfigYAML, run.Error); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	r.log.Debug("run recorded", zap.String("run_id", run.ID), zap.String("status", string(run.Status)))
	return nil
}

func (r *runRepository) Finish(ctx context.Context, id string, status models.RunStatus, finishedAt time.Time, runErr *string) error {
	query := r.db.Rebind(`UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, status, finishedAt, runErr, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *runRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	query := r.db.Rebind(`
		SELECT id, status, started_at, finished_at, seed, config_yaml, error
		FROM runs WHERE id = ?`)
	var run models.Run
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &run, nil
}

func (r *runRepository) List(ctx context.Context) ([]models.Run, error) {
	query := `
		SELECT id, status, started_at, finished_at, seed, config_yaml, error
		FROM runs ORDER BY started_at DESC, id`
	var runs []models.Run
	if err := r.db.SelectContext(ctx, &runs, query); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
