package driving

import (
	"context"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
)

// RunOptions configure one reconciliation run.
type RunOptions struct {
	// DryRun logs would-be remote actions and skips them before any
	// remote call. The batch is still persisted and the run completes.
	DryRun bool

	// Metadata is attached to the persisted SyncRun row.
	Metadata map[string]string
}

// RunSummary accounts for every case in a run in exactly one bucket.
type RunSummary struct {
	// RunID is the persisted SyncRun identifier.
	RunID string

	// Total is the deduplicated batch size.
	Total int

	// Rejected counts records dropped for malformed case IDs.
	Rejected int

	// Changed counts cases carrying new information.
	Changed int

	// Updated counts remote tickets actually written.
	Updated int

	// NotFound counts changed cases with no matching ticket.
	NotFound int

	// AlreadyCurrent counts matched tickets needing no write.
	AlreadyCurrent int

	// Skipped counts changes skipped by dry-run.
	Skipped int

	// Errors counts per-case remote failures tolerated by the run.
	Errors int
}

// SyncEngine drives one reconciliation run end-to-end.
type SyncEngine interface {
	// Run reconciles one snapshot batch against the remote ticket
	// store. Local state is persisted regardless of remote outcomes;
	// only state store failures abort the run.
	Run(ctx context.Context, records []domain.CaseRecord, opts RunOptions) (*RunSummary, error)
}
