// Package memory provides an in-memory RunStore for tests and storage-less
// deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mwrenn/research-pipeline/internal/domain"
	"github.com/mwrenn/research-pipeline/internal/storage"
)

// Store is an in-memory implementation of storage.RunStore.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*domain.Run
}

var _ storage.RunStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{runs: make(map[string]*domain.Run)}
}

func (s *Store) SaveRun(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run.Clone()
	return nil
}

func (s *Store) GetRun(_ context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return run.Clone(), nil
}

func (s *Store) ListRuns(_ context.Context, opts storage.ListOptions) ([]*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		if opts.Status != "" && run.Status() != opts.Status {
			continue
		}
		result = append(result, run.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	start := opts.Offset
	if start >= len(result) {
		return []*domain.Run{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (s *Store) Close() error { return nil }
