// Package storage defines persistence for pipeline runs and their traces.
package storage

import (
	"context"
	"errors"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// ErrNotFound is returned when a run id does not exist in the store.
var ErrNotFound = errors.New("run not found")

// ListOptions narrows and pages ListRuns results.
type ListOptions struct {
	// Status filters by derived run status when non-empty.
	Status domain.RunStatus
	Limit  int
	Offset int
}

// RunStore persists finished runs. Implementations must be safe for
// concurrent use.
type RunStore interface {
	// SaveRun inserts or replaces a run and its full trace.
	SaveRun(ctx context.Context, run *domain.Run) error
	// GetRun returns the run with the given id, or ErrNotFound.
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	// ListRuns returns runs ordered by creation time, newest first.
	ListRuns(ctx context.Context, opts ListOptions) ([]*domain.Run, error)
	// Close releases store resources.
	Close() error
}
