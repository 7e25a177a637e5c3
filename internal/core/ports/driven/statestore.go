package driven

import (
	"context"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
)

// CaseStateStore persists the last-known state per case.
type CaseStateStore interface {
	// LoadStates bulk-fetches states for the given case IDs.
	// IDs with no stored state are simply absent from the result.
	LoadStates(ctx context.Context, caseIDs []string) (map[string]domain.CaseState, error)

	// UpsertBatch persists a batch of observations, one row per case,
	// last occurrence winning for duplicated IDs. Status and
	// fingerprint are derived per record and last_seen_at is always
	// refreshed. Implementations chunk large batches; durability is
	// all-or-nothing per chunk, not across the whole batch.
	UpsertBatch(ctx context.Context, records []domain.CaseRecord) error

	// LinkTicket caches the remote ticket ID for a case.
	// Redundant calls are safe.
	LinkTicket(ctx context.Context, caseID, ticketID string) error

	// LinkedTicket returns the cached remote ticket ID, empty when
	// no link is cached.
	LinkedTicket(ctx context.Context, caseID string) (string, error)
}

// SyncRunStore persists run audit records.
type SyncRunStore interface {
	// Create inserts the run row at run start.
	Create(ctx context.Context, run *domain.SyncRun) error

	// Finalize records the run totals and completion time.
	Finalize(ctx context.Context, run *domain.SyncRun) error

	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
