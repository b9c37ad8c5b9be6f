package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pendergraft/berarelay/internal/config"
)

// HistoryStore records verification submissions
type HistoryStore interface {
	RecordSubmission(ctx context.Context, s *Submission) error
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter, pagination PaginationParams) (*PaginatedResult[Submission], error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Submission is one verification request sent to the explorer and its answer
type Submission struct {
	ID              string
	RunID           string
	Address         string
	ChainID         int
	ContractName    string
	NameSource      string // which candidate produced ContractName
	CompilerVersion string
	Status          string
	Message         string
	Result          string // GUID when accepted, otherwise the rejection reason
	Accepted        bool
	CreatedAt       time.Time
}

// SubmissionFilter contains filter options for listing submissions
type SubmissionFilter struct {
	Address string
	ChainID int
}

// PaginationParams contains pagination options
type PaginationParams struct {
	Limit int
}

// PaginatedResult contains paginated results
type PaginatedResult[T any] struct {
	Data    []T
	HasMore bool
}

// New creates a history store based on configuration. Type "none" returns a
// store that discards writes.
func New(cfg config.HistoryConfig, logger *slog.Logger) (HistoryStore, error) {
	switch cfg.Type {
	case "", "none":
		return NoopStore{}, nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case "postgres":
		return NewPostgresStore(cfg.PostgresURL, logger)
	default:
		return nil, fmt.Errorf("unknown history store: %s", cfg.Type)
	}
}

// Open creates the configured store and runs its migrations
func Open(ctx context.Context, cfg config.HistoryConfig, logger *slog.Logger) (HistoryStore, error) {
	store, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating history store: %w", err)
	}
	return store, nil
}
