package memory

import (
	"context"
	"sync"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driven"
)

// Ensure SyncRunStore implements the interface.
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore is an in-memory implementation of driven.SyncRunStore.
type SyncRunStore struct {
	mu   sync.RWMutex
	runs []domain.SyncRun
}

// NewSyncRunStore creates a new in-memory run store.
func NewSyncRunStore() *SyncRunStore {
	return &SyncRunStore{}
}

// Create inserts the run row at run start.
func (s *SyncRunStore) Create(_ context.Context, run *domain.SyncRun) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

// Finalize records the run totals and completion time.
func (s *SyncRunStore) Finalize(_ context.Context, run *domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = *run
			return nil
		}
	}
	return domain.ErrNotFound
}

// List returns the most recent runs, newest first.
func (s *SyncRunStore) List(_ context.Context, limit int) ([]domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.SyncRun, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, s.runs[i])
	}
	return runs, nil
}
