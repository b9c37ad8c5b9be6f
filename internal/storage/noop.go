package storage

import "context"

// NoopStore discards submissions. It backs HISTORY_STORE=none.
type NoopStore struct{}

// RecordSubmission does nothing
func (NoopStore) RecordSubmission(ctx context.Context, s *Submission) error {
	return nil
}

// GetSubmission always returns ErrDisabled
func (NoopStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	return nil, ErrDisabled
}

// ListSubmissions always returns ErrDisabled
func (NoopStore) ListSubmissions(ctx context.Context, filter SubmissionFilter, pagination PaginationParams) (*PaginatedResult[Submission], error) {
	return nil, ErrDisabled
}

// Close does nothing
func (NoopStore) Close() error { return nil }

// Migrate does nothing
func (NoopStore) Migrate(ctx context.Context) error { return nil }
