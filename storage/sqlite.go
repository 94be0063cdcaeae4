package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Landmarklens/ImobiliareScraper/models"
)

// SQLiteStore is the local operational store: ingest run journal and
// the command queue the scheduler polls. Application data lives in
// Postgres; this file only holds daemon bookkeeping.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingest_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL DEFAULT 'running',
		observations INTEGER NOT NULL DEFAULT 0,
		records_new INTEGER NOT NULL DEFAULT 0,
		price_changes INTEGER NOT NULL DEFAULT 0,
		unchanged INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL,
		params TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Ingest runs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.IngestRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (source, started_at, status)
		VALUES (?, ?, ?)`,
		run.Source, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.IngestRun) error {
	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			finished_at = ?, status = ?, observations = ?,
			records_new = ?, price_changes = ?, unchanged = ?,
			errors_count = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Observations,
		run.RecordsNew, run.PriceChanges, run.Unchanged,
		run.ErrorsCount, run.ErrorMessage, run.ID)
	return err
}

func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]models.IngestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, finished_at, status,
			observations, records_new, price_changes, unchanged,
			errors_count, error_message
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.IngestRun
	for rows.Next() {
		var r models.IngestRun
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.Observations, &r.RecordsNew, &r.PriceChanges, &r.Unchanged,
			&r.ErrorsCount, &errMsg); err != nil {
			return nil, err
		}
		r.ErrorMessage = errMsg.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// Command queue
// =============================================================================

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO commands (command, params, created_at)
		VALUES (?, ?, ?)`,
		string(cmd), string(params), time.Now())
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at
		FROM commands
		WHERE processed_at IS NULL
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []models.Command
	for rows.Next() {
		var c models.Command
		var params sql.NullString
		if err := rows.Scan(&c.ID, &c.Command, &params, &c.CreatedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			c.Params = []byte(params.String)
		}
		commands = append(commands, c)
	}
	return commands, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}
