// Package store persists pipeline artifacts in a relational database.
//
// Two drivers are supported: "sqlite" keeps everything in a single file and
// applies the schema inline at open, "postgres" connects through lib/pq and
// applies versioned migrations from the configured directory.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound reports that a requested row does not exist.
var ErrNotFound = errors.New("not found")

func init() {
	// modernc registers itself under "sqlite", a driver name sqlx does not
	// know out of the box.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Options configure the database connection.
type Options struct {
	Driver        string
	DSN           string
	MigrationsDir string
}

// Store bundles the repositories backed by a single database handle.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger

	Runs        RunRepository
	Passages    PassageRepository
	Features    FeatureRepository
	Labels      LabelRepository
	Predictions PredictionRepository
	Reports     ReportRepository
}

// Open connects to the configured database and brings the schema up to date.
func Open(opts Options, log *zap.Logger) (*Store, error) {
	var db *sqlx.DB
	var err error

	switch opts.Driver {
	case DriverSQLite:
		db, err = sqlx.Connect(DriverSQLite, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// modernc hands SQLITE_BUSY to concurrent writers.
		db.SetMaxOpenConns(1)
		if _, err = db.Exec(sqliteSchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply sqlite schema: %w", err)
		}
	case DriverPostgres:
		db, err = sqlx.Connect("postgres", opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err = migrateUp(db, opts.MigrationsDir); err != nil {
			db.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}

	s := &Store{db: db, log: log}
	s.Runs = newRunRepository(db, log)
	s.Passages = newPassageRepository(db, log)
	s.Features = newFeatureRepository(db, log)
	s.Labels = newLabelRepository(db, log)
	s.Predictions = newPredictionRepository(db, log)
	s.Reports = newReportRepository(db, log)

	log.Info("artifact store ready", zap.String("driver", opts.Driver))
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrateUp(db *sqlx.DB, dir string) error {
	if dir == "" {
		dir = "migrations"
	}
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "finreports", driver)
	if err != nil {
		return fmt.Errorf("load migrations from %s: %w", dir, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
