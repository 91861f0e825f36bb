// package database provides the activity collector with a wrapper around an
// sql database connection pool and the public methods to store finalized
// activity datasets in it
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// the injected postgres and sqlite interface implementations for Go SQL
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"github.com/open-sauced/pizza/activity/pkg/insights"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS activity_runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		event_count INTEGER NOT NULL,
		complete BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activity_events (
		run_id TEXT NOT NULL REFERENCES activity_runs(id),
		row_index INTEGER NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		username TEXT NOT NULL,
		name TEXT NOT NULL,
		action_type TEXT NOT NULL,
		repository TEXT NOT NULL,
		PRIMARY KEY (run_id, row_index)
	)`,
}

// ActivityDbHandler is a wrapper around *sql.DB. It provides a single
// point where the collector can access the activity database connection pool.
type ActivityDbHandler struct {
	db     *sql.DB
	driver string
}

// PostgresDSN builds a postgres connection string from discrete parameters
func PostgresDSN(host, port, user, pwd, dbName, sslMode string) string {
	if sslMode == "" {
		sslMode = "require"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", host, port, user, pwd, dbName, sslMode)
}

// NewActivityDbHandler opens a connection pool for the given driver, pings it
// once to ensure the connection parameters are valid and creates the activity
// tables if needed
func NewActivityDbHandler(ctx context.Context, driver, dsn string) (*ActivityDbHandler, error) {
	if driver != DriverPostgres && driver != DriverSqlite {
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	// Acquire the *sql.DB instance
	dbPool, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database connection: %w", err)
	}

	if driver == DriverSqlite {
		// sqlite serializes writers, and every connection to ":memory:"
		// would otherwise see its own empty database
		dbPool.SetMaxOpenConns(1)
	}

	// ping once to ensure the database values and connection are valid and working
	err = dbPool.PingContext(ctx)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("could not ping database: %w", err)
	}

	p := &ActivityDbHandler{
		db:     dbPool,
		driver: driver,
	}

	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("could not create activity tables: %w", err)
		}
	}

	return p, nil
}

// Close releases the connection pool
func (p *ActivityDbHandler) Close() error {
	return p.db.Close()
}

// Write stores a dataset as one run and its ordered events in a single
// transaction
func (p *ActivityDbHandler) Write(ctx context.Context, dataset *insights.Dataset) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	//nolint:errcheck
	defer tx.Rollback()

	err = p.insertRun(ctx, tx, dataset)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, p.query("INSERT INTO activity_events(run_id, row_index, occurred_at, username, name, action_type, repository) VALUES(%s)", 7))
	if err != nil {
		return fmt.Errorf("could not prepare event insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range dataset.Events {
		_, err = stmt.ExecContext(ctx, dataset.RunID.String(), i, e.Timestamp.UTC(), e.Username, e.Name, string(e.ActionType), e.Repository)
		if err != nil {
			return fmt.Errorf("could not insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit activity run: %w", err)
	}

	return nil
}

// insertRun inserts the run record of a dataset
func (p *ActivityDbHandler) insertRun(ctx context.Context, tx *sql.Tx, dataset *insights.Dataset) error {
	_, err := tx.ExecContext(ctx, p.query("INSERT INTO activity_runs(id, created_at, event_count, complete) VALUES(%s)", 4),
		dataset.RunID.String(), dataset.CreatedAt.UTC(), len(dataset.Events), dataset.Complete)
	if err != nil {
		return fmt.Errorf("could not insert activity run: %w", err)
	}
	return nil
}

// GetRunEventCount queries the number of events stored for a run and whether
// the run was complete
func (p *ActivityDbHandler) GetRunEventCount(ctx context.Context, runID uuid.UUID) (int, bool, error) {
	var count int
	var complete bool
	err := p.db.QueryRowContext(ctx, p.query("SELECT event_count, complete FROM activity_runs WHERE id=%s", 1), runID.String()).Scan(&count, &complete)
	return count, complete, err
}

// GetRunActions queries the "username action_type repository" triples of a
// run in row order
func (p *ActivityDbHandler) GetRunActions(ctx context.Context, runID uuid.UUID) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, p.query("SELECT username, action_type, repository FROM activity_events WHERE run_id=%s ORDER BY row_index", 1), runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var username, action, repo string
		if err := rows.Scan(&username, &action, &repo); err != nil {
			return nil, err
		}
		actions = append(actions, fmt.Sprintf("%s %s %s", username, action, repo))
	}

	return actions, rows.Err()
}

// query fills the %s verb of format with n placeholders in the style of the
// handler's driver
func (p *ActivityDbHandler) query(format string, n int) string {
	placeholders := make([]string, n)
	for i := range placeholders {
		if p.driver == DriverPostgres {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	return fmt.Sprintf(format, strings.Join(placeholders, ", "))
}
