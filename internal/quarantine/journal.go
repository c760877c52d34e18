package quarantine

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

var (
	// ErrSchemaMismatch indicates the journal was written by an incompatible version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrNotFound reports an unknown journal id.
	ErrNotFound = errors.New("journal entry not found")
)

// Record is one quarantined file as remembered by the journal.
type Record struct {
	ID           string    `json:"id"`
	OriginalPath string    `json:"original_path"`
	StoredName   string    `json:"stored_name"`
	SizeBytes    int64     `json:"size_bytes"`
	MovedAt      time.Time `json:"moved_at"`
}

// Journal records where quarantined files came from so they can be listed
// and restored. It lives outside the quarantine directory so a purge never
// removes it.
type Journal struct {
	db   *sql.DB
	path string
}

// OpenJournal opens or creates the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

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

	j := &Journal{db: db, path: path}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return j.createSchema(ctx)
	}

	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: journal has version %d, expected %d (delete %s to reset it)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}
	return nil
}

func (j *Journal) createSchema(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Add records a quarantined file and returns the stored record. A previous
// row with the same stored name is replaced.
func (j *Journal) Add(ctx context.Context, originalPath, storedName string, size int64, movedAt time.Time) (Record, error) {
	rec := Record{
		ID:           uuid.NewString(),
		OriginalPath: originalPath,
		StoredName:   storedName,
		SizeBytes:    size,
		MovedAt:      movedAt.UTC(),
	}
	err := j.exec(ctx,
		`INSERT INTO trash_entries (id, original_path, stored_name, size_bytes, moved_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(stored_name) DO UPDATE SET
		   id = excluded.id,
		   original_path = excluded.original_path,
		   size_bytes = excluded.size_bytes,
		   moved_at = excluded.moved_at`,
		rec.ID, rec.OriginalPath, rec.StoredName, rec.SizeBytes, rec.MovedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert journal entry: %w", err)
	}
	return rec, nil
}

// Get returns the record with id.
func (j *Journal) Get(ctx context.Context, id string) (Record, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, original_path, stored_name, size_bytes, moved_at FROM trash_entries WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// List returns every record, oldest first.
func (j *Journal) List(ctx context.Context) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, original_path, stored_name, size_bytes, moved_at FROM trash_entries ORDER BY moved_at, stored_name`)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RemoveByName deletes the record for a stored file name, if any.
func (j *Journal) RemoveByName(ctx context.Context, storedName string) error {
	if err := j.exec(ctx, `DELETE FROM trash_entries WHERE stored_name = ?`, storedName); err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec     Record
		movedAt string
	)
	if err := row.Scan(&rec.ID, &rec.OriginalPath, &rec.StoredName, &rec.SizeBytes, &movedAt); err != nil {
		return Record{}, err
	}
	if parsed, err := time.Parse(time.RFC3339Nano, movedAt); err == nil {
		rec.MovedAt = parsed
	}
	return rec, nil
}

func (j *Journal) exec(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = j.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
