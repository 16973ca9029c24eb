package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelbrown/mcpskill/internal/storage"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const callColumns = `id, server, tool, arguments, result, is_error, error_kind, duration_ms, created_at`

// SQLiteStore implements storage.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every :memory: connection is a separate database.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RecordCall(ctx context.Context, c *storage.CallRecord) error {
	if c.ID == "" {
		return errors.New("call id is required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	args := string(c.Arguments)
	if args == "" {
		args = "{}"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (`+callColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Server, c.Tool, args, c.Result, c.IsError, c.ErrorKind, c.DurationMS,
		c.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting call: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCall(ctx context.Context, id string) (*storage.CallRecord, error) {
	// Try exact match first, then prefix match
	c, err := scanCall(s.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE id = ?`, id))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("querying call: %w", err)
	}

	if id == "" {
		return nil, fmt.Errorf("%w: empty id", storage.ErrNotFound)
	}

	// Literal prefix comparison; LIKE would treat % and _ as wildcards.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE substr(id, 1, length(?1)) = ?1 LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("querying call: %w", err)
	}
	defer rows.Close()

	var matches []*storage.CallRecord
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous call prefix %q", id)
	}
}

func (s *SQLiteStore) ListCalls(ctx context.Context, opts storage.CallListOptions) ([]storage.CallRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + callColumns + ` FROM calls WHERE 1 = 1`
	var args []any

	if opts.Server != "" {
		query += ` AND server = ?`
		args = append(args, opts.Server)
	}
	if opts.Tool != "" {
		query += ` AND tool = ?`
		args = append(args, opts.Tool)
	}
	if opts.ErrorsOnly {
		query += ` AND is_error = 1`
	}

	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing calls: %w", err)
	}
	defer rows.Close()

	var calls []storage.CallRecord
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *c)
	}
	return calls, rows.Err()
}

func (s *SQLiteStore) DeleteCall(ctx context.Context, id string) error {
	// Resolve prefix first
	c, err := s.GetCall(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM calls WHERE id = ?`, c.ID)
	return err
}

func (s *SQLiteStore) PruneCalls(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calls WHERE created_at < ?`,
		before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning calls: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scanner interface to work with both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanCall(s scanner) (*storage.CallRecord, error) {
	var c storage.CallRecord
	var args, createdAt string
	err := s.Scan(&c.ID, &c.Server, &c.Tool, &args, &c.Result, &c.IsError,
		&c.ErrorKind, &c.DurationMS, &createdAt)
	if err != nil {
		return nil, err
	}
	c.Arguments = []byte(args)
	c.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &c, nil
}
