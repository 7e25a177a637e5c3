// Package memory provides in-memory implementations of the driven
// storage ports, used in tests and for ephemeral runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driven"
)

// Ensure CaseStateStore implements the interface.
var _ driven.CaseStateStore = (*CaseStateStore)(nil)

// CaseStateStore is an in-memory implementation of driven.CaseStateStore.
type CaseStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.CaseState
}

// NewCaseStateStore creates a new in-memory case state store.
func NewCaseStateStore() *CaseStateStore {
	return &CaseStateStore{
		states: make(map[string]domain.CaseState),
	}
}

// LoadStates bulk-fetches states for the given case IDs.
func (s *CaseStateStore) LoadStates(_ context.Context, caseIDs []string) (map[string]domain.CaseState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]domain.CaseState)
	for _, id := range caseIDs {
		if state, ok := s.states[id]; ok {
			found[id] = state
		}
	}
	return found, nil
}

// UpsertBatch persists a batch of observations, last occurrence wins.
func (s *CaseStateStore) UpsertBatch(_ context.Context, records []domain.CaseRecord) error {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range domain.DedupeRecords(records) {
		state := domain.NewCaseState(rec, now)
		if prev, ok := s.states[rec.CaseID]; ok {
			state.TicketID = prev.TicketID
			state.CreatedAt = prev.CreatedAt
		} else {
			state.CreatedAt = now
		}
		s.states[rec.CaseID] = state
	}
	return nil
}

// LinkTicket caches the remote ticket ID for a case.
func (s *CaseStateStore) LinkTicket(_ context.Context, caseID, ticketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[caseID]
	if !ok {
		// Linking before the closing upsert is legal; remember only
		// the link so the upsert can preserve it.
		s.states[caseID] = domain.CaseState{CaseID: caseID, TicketID: ticketID}
		return nil
	}
	state.TicketID = ticketID
	s.states[caseID] = state
	return nil
}

// LinkedTicket returns the cached remote ticket ID, empty when none.
func (s *CaseStateStore) LinkedTicket(_ context.Context, caseID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.states[caseID].TicketID, nil
}

// Get returns a copy of one stored state, for test assertions.
func (s *CaseStateStore) Get(caseID string) (domain.CaseState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[caseID]
	return state, ok
}

// Len returns the number of stored cases.
func (s *CaseStateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
