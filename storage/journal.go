package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"virtual-ward-intake/models"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var journalSchema string

var ErrPendingNotFound = errors.New("pending append not found")

type SQLiteJournal struct {
	db     *sql.DB
	dbPath string
}

func NewSQLiteJournal(dbPath string) *SQLiteJournal {
	return &SQLiteJournal{
		dbPath: dbPath,
	}
}

func (s *SQLiteJournal) Initialize() error {
	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA journal_mode=WAL;")
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	_, err = db.Exec(journalSchema)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	s.db = db
	return nil
}

func (s *SQLiteJournal) SavePending(ctx context.Context, p models.PendingAppend) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	rowJSON, err := json.Marshal(p.Row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_appends (id, idempotency_key, row_json, blob_id, link, last_error, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.IdempotencyKey, string(rowJSON), p.BlobID, p.Link, p.LastError, p.Attempts,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save pending append: %w", err)
	}
	return nil
}

func (s *SQLiteJournal) ListPending(ctx context.Context) ([]models.PendingAppend, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, idempotency_key, row_json, blob_id, link, last_error, attempts, created_at
		 FROM pending_appends
		 WHERE resolved_at IS NULL
		 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending appends: %w", err)
	}
	defer rows.Close()

	var out []models.PendingAppend
	for rows.Next() {
		var (
			p         models.PendingAppend
			rowJSON   string
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.IdempotencyKey, &rowJSON, &p.BlobID, &p.Link, &p.LastError, &p.Attempts, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending append: %w", err)
		}
		if err := json.Unmarshal([]byte(rowJSON), &p.Row); err != nil {
			return nil, fmt.Errorf("failed to decode row for %s: %w", p.ID, err)
		}
		p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteJournal) RecordAttempt(ctx context.Context, id string, lastErr string) error {
	return s.update(ctx,
		`UPDATE pending_appends SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		lastErr, id)
}

func (s *SQLiteJournal) MarkResolved(ctx context.Context, id string) error {
	return s.update(ctx,
		`UPDATE pending_appends SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
}

func (s *SQLiteJournal) update(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update pending append: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update pending append: %w", err)
	}
	if n == 0 {
		return ErrPendingNotFound
	}
	return nil
}

func (s *SQLiteJournal) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
