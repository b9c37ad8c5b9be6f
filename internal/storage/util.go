package storage

import (
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// prepare fills in the ID and timestamp of a submission about to be stored
func prepare(s *Submission) {
	if s.ID == "" {
		s.ID = generateID()
	}
	if s.RunID == "" {
		s.RunID = generateID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.CreatedAt = s.CreatedAt.UTC()
}

// normalizeLimit clamps a page size into [1, maxListLimit]
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
