package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements HistoryStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		address TEXT NOT NULL,
		chain_id INTEGER NOT NULL,
		contract_name TEXT NOT NULL,
		name_source TEXT,
		compiler_version TEXT,
		status TEXT,
		message TEXT,
		result TEXT,
		accepted INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_address ON submissions(address, chain_id);
	CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	s.logger.Debug("sqlite history schema ready")
	return nil
}

// RecordSubmission stores a submission, assigning ID and CreatedAt when unset
func (s *SQLiteStore) RecordSubmission(ctx context.Context, sub *Submission) error {
	prepare(sub)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, run_id, address, chain_id, contract_name, name_source, compiler_version, status, message, result, accepted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.RunID, sub.Address, sub.ChainID, sub.ContractName, sub.NameSource, sub.CompilerVersion,
		sub.Status, sub.Message, sub.Result, sub.Accepted, formatTime(sub.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("recording submission: %w", err)
	}
	return nil
}

const sqliteColumns = `id, run_id, address, chain_id, contract_name, name_source, compiler_version, status, message, result, accepted, created_at`

// GetSubmission returns a submission by ID
func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sqliteColumns+" FROM submissions WHERE id = ?", id)
	sub, err := scanSQLiteSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

// ListSubmissions lists submissions newest first
func (s *SQLiteStore) ListSubmissions(ctx context.Context, filter SubmissionFilter, pagination PaginationParams) (*PaginatedResult[Submission], error) {
	limit := normalizeLimit(pagination.Limit)

	query := "SELECT " + sqliteColumns + " FROM submissions"
	var conditions []string
	var args []any
	if filter.Address != "" {
		conditions = append(conditions, "LOWER(address) = LOWER(?)")
		args = append(args, filter.Address)
	}
	if filter.ChainID != 0 {
		conditions = append(conditions, "chain_id = ?")
		args = append(args, filter.ChainID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []Submission
	for rows.Next() {
		sub, err := scanSQLiteSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *sub)
	}

	hasMore := len(submissions) > limit
	if hasMore {
		submissions = submissions[:limit]
	}

	return &PaginatedResult[Submission]{Data: submissions, HasMore: hasMore}, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSubmission(row rowScanner) (*Submission, error) {
	var sub Submission
	var nameSource, compiler, status, message, result sql.NullString
	var createdAt string
	if err := row.Scan(&sub.ID, &sub.RunID, &sub.Address, &sub.ChainID, &sub.ContractName, &nameSource, &compiler,
		&status, &message, &result, &sub.Accepted, &createdAt); err != nil {
		return nil, err
	}
	sub.NameSource = nameSource.String
	sub.CompilerVersion = compiler.String
	sub.Status = status.String
	sub.Message = message.String
	sub.Result = result.String

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	sub.CreatedAt = t
	return &sub, nil
}
