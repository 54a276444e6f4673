package segments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Repository defines the CRUD operations on segment Records.
type Repository interface {
	// Add stores a new Record.
	Add(ctx context.Context, record *Record) error

	// GetByID retrieves a Record by its ID, or nil if absent.
	GetByID(ctx context.Context, id string) (*Record, error)

	// List returns all Records, newest first.
	List(ctx context.Context) ([]*Record, error)

	// Delete removes a Record by its ID.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed Repository, creating the
// schema if needed.
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	repo := &SQLiteRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return repo, nil
}

func (r *SQLiteRepository) createTables() error {
	createSegmentsTable := `
	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		size INTEGER NOT NULL,
		mime_type TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		received_at TEXT NOT NULL
	);`

	_, err := r.db.Exec(createSegmentsTable)
	return err
}

// Add stores a new Record.
func (r *SQLiteRepository) Add(ctx context.Context, record *Record) error {
	query := `
	INSERT INTO segments (id, filename, size, mime_type, width, height, received_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.Filename, record.Size, record.MimeType,
		record.Width, record.Height, record.ReceivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert segment record: %w", err)
	}
	return nil
}

// GetByID retrieves a Record by its ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	query := `
	SELECT id, filename, size, mime_type, width, height, received_at
	FROM segments WHERE id = ?`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get segment record: %w", err)
	}
	return record, nil
}

// List returns all Records, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Record, error) {
	query := `
	SELECT id, filename, size, mime_type, width, height, received_at
	FROM segments ORDER BY received_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query segment records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Delete removes a Record by its ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM segments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete segment record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	record := &Record{}
	var receivedAt string
	err := row.Scan(&record.ID, &record.Filename, &record.Size, &record.MimeType,
		&record.Width, &record.Height, &receivedAt)
	if err != nil {
		return nil, err
	}
	record.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse received_at: %w", err)
	}
	return record, nil
}
