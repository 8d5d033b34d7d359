package audit

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"folio/internal/config"
)

// Event kinds recorded by the journal.
const (
	EventLease  = "lease"
	EventUpdate = "update"
)

// Event is one row of the coordination journal.
type Event struct {
	ID         int64
	Kind       string
	Ledger     string
	Identifier string
	State      string
	Client     string
	Lease      string
	CreatedAt  time.Time
}

// Journal persists lease and update events in a SQLite database so
// operators can reconstruct which client touched which record when.
type Journal struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database under the
// configured log directory.
func Open(cfg *config.Config) (*Journal, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	journal := &Journal{db: db, path: dbPath}
	if err := journal.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return journal, nil
}

func (j *Journal) applyMigrations(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS events (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        kind TEXT NOT NULL,
        ledger TEXT NOT NULL,
        identifier TEXT NOT NULL,
        state TEXT NOT NULL,
        client TEXT NOT NULL DEFAULT '',
        lease TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_events_ledger ON events(ledger, identifier);`
	if _, err := j.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply journal schema: %w", err)
	}
	return nil
}

// Path reports the journal database location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordLease journals a record being handed to a client.
func (j *Journal) RecordLease(ctx context.Context, ledger, identifier, state, client, lease string) error {
	return j.insert(ctx, EventLease, ledger, identifier, state, client, lease)
}

// RecordUpdate journals a state change posted by a client.
func (j *Journal) RecordUpdate(ctx context.Context, ledger, identifier, state, client string) error {
	return j.insert(ctx, EventUpdate, ledger, identifier, state, client, "")
}

func (j *Journal) insert(ctx context.Context, kind, ledger, identifier, state, client, lease string) error {
	if j == nil || j.db == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (kind, ledger, identifier, state, client, lease, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		kind, ledger, identifier, state, client, lease,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert journal event: %w", err)
	}
	return nil
}

// Events returns journal rows for a ledger, newest first, capped at limit.
// A non-positive limit returns everything.
func (j *Journal) Events(ctx context.Context, ledger string, limit int) ([]Event, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	query := `SELECT id, kind, ledger, identifier, state, client, lease, created_at
        FROM events WHERE ledger = ? ORDER BY id DESC`
	args := []any{ledger}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var createdAt string
		if err := rows.Scan(&event.ID, &event.Kind, &event.Ledger, &event.Identifier,
			&event.State, &event.Client, &event.Lease, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal event: %w", err)
		}
		if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			event.CreatedAt = parsed
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal events: %w", err)
	}
	return events, nil
}
