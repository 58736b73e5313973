// Package runlog keeps a local history of agent runs.
package runlog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no run matches an ID or prefix.
var ErrNotFound = errors.New("run not found")

// Store is the interface for run persistence.
type Store interface {
	Create(ctx context.Context, r *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	// Resolve finds a run by full ID or unique ID prefix.
	Resolve(ctx context.Context, idOrPrefix string) (*Run, error)
	UpdateProgress(ctx context.Context, id string, iterations, toolCalls int, threadID string) error
	Finish(ctx context.Context, id string, status RunStatus, limitReached bool, errMsg string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]Run, error)

	AddMessage(ctx context.Context, runID string, msg *Message) error
	GetMessages(ctx context.Context, runID string) ([]Message, error)

	Close() error
}

// NewStore returns a sqlite store at path, or a no-op store when disabled.
func NewStore(enabled bool, path string) (Store, error) {
	if !enabled {
		return &NoopStore{}, nil
	}
	return NewSQLiteStore(path)
}
