package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements HistoryStore using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		seq BIGSERIAL,
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL,
		address TEXT NOT NULL,
		chain_id BIGINT NOT NULL,
		contract_name TEXT NOT NULL,
		name_source TEXT,
		compiler_version TEXT,
		status TEXT,
		message TEXT,
		result TEXT,
		accepted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_address ON submissions(LOWER(address), chain_id);
	CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	s.logger.Debug("postgres history schema ready")
	return nil
}

// RecordSubmission stores a submission, assigning ID and CreatedAt when unset
func (s *PostgresStore) RecordSubmission(ctx context.Context, sub *Submission) error {
	prepare(sub)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, run_id, address, chain_id, contract_name, name_source, compiler_version, status, message, result, accepted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sub.ID, sub.RunID, sub.Address, sub.ChainID, sub.ContractName, sub.NameSource, sub.CompilerVersion,
		sub.Status, sub.Message, sub.Result, sub.Accepted, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording submission: %w", err)
	}
	return nil
}

const postgresColumns = `id, run_id, address, chain_id, contract_name, COALESCE(name_source, ''), COALESCE(compiler_version, ''),
	COALESCE(status, ''), COALESCE(message, ''), COALESCE(result, ''), accepted, created_at`

// GetSubmission returns a submission by ID
func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+postgresColumns+" FROM submissions WHERE id = $1", id)
	sub, err := scanPostgresSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

// ListSubmissions lists submissions newest first
func (s *PostgresStore) ListSubmissions(ctx context.Context, filter SubmissionFilter, pagination PaginationParams) (*PaginatedResult[Submission], error) {
	limit := normalizeLimit(pagination.Limit)

	query := "SELECT " + postgresColumns + " FROM submissions"
	var conditions []string
	var args []any
	argNum := 1
	if filter.Address != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(address) = LOWER($%d)", argNum))
		args = append(args, filter.Address)
		argNum++
	}
	if filter.ChainID != 0 {
		conditions = append(conditions, fmt.Sprintf("chain_id = $%d", argNum))
		args = append(args, filter.ChainID)
		argNum++
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, seq DESC LIMIT $%d", argNum)
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []Submission
	for rows.Next() {
		sub, err := scanPostgresSubmission(rows)
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

func scanPostgresSubmission(row rowScanner) (*Submission, error) {
	var sub Submission
	if err := row.Scan(&sub.ID, &sub.RunID, &sub.Address, &sub.ChainID, &sub.ContractName, &sub.NameSource,
		&sub.CompilerVersion, &sub.Status, &sub.Message, &sub.Result, &sub.Accepted, &sub.CreatedAt); err != nil {
		return nil, err
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	return &sub, nil
}
