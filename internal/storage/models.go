package storage

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Job statuses. A record is written once as pending and mutated exactly once
// more to a terminal status by the background pipeline.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Job is one optimization run keyed by (user, project). Result holds the
// serialized recommendation on success, a serialized error object on failure,
// or the "processing" placeholder right after seeding.
type Job struct {
	UserID    string
	ProjectID string
	RunID     string
	Status    string
	Result    string // JSON stored as text
	CreatedAt time.Time
}

func marshalErrorResult(errMsg string) (string, error) {
	b, err := json.Marshal(map[string]string{"error": errMsg})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
