package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driven"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driving"
	"github.com/aqueducts-ai/corona-case-upsert/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.SyncEngine = (*Engine)(nil)

// Engine drives one reconciliation run end-to-end: change detection,
// per-case ticket reconciliation, batch persistence and run audit.
type Engine struct {
	states   driven.CaseStateStore
	runs     driven.SyncRunStore
	tickets  driven.TicketStore
	detector *Detector
	resolver *Resolver

	mu      sync.Mutex
	running bool
}

// NewEngine creates a sync engine. The resolver carries the shared
// search capability; construct it once per process.
func NewEngine(
	states driven.CaseStateStore,
	runs driven.SyncRunStore,
	tickets driven.TicketStore,
	resolver *Resolver,
) *Engine {
	return &Engine{
		states:   states,
		runs:     runs,
		tickets:  tickets,
		detector: NewDetector(states),
		resolver: resolver,
	}
}

// Run reconciles one snapshot batch.
//
// Per-case remote errors are counted and the loop continues; state
// store errors abort the run. Either way the SyncRun row is finalized
// and the summary accounts for every case in exactly one bucket. The
// deduplicated batch is persisted at run end even when nothing
// changed, so the fingerprint baseline and last_seen_at advance.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (e *Engine) Run(
	ctx context.Context,
	records []domain.CaseRecord,
	opts driving.RunOptions,
) (*driving.RunSummary, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, domain.ErrRunInProgress
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	accepted, rejected := partitionValid(records)
	batch := domain.DedupeRecords(accepted)

	run := &domain.SyncRun{
		ID:           uuid.NewString(),
		StartedAt:    time.Now().UTC(),
		TotalRecords: len(batch),
		Metadata:     opts.Metadata,
	}
	summary := &driving.RunSummary{
		RunID:    run.ID,
		Total:    len(batch),
		Rejected: rejected,
	}

	if err := e.runs.Create(ctx, run); err != nil {
		return summary, fmt.Errorf("create run: %w", err)
	}

	logger.Info("Run %s: %d records (%d rejected), dry-run=%v",
		run.ID, len(batch), rejected, opts.DryRun)

	changes, err := e.detector.Detect(ctx, batch)
	if err != nil {
		return summary, e.fail(ctx, run, summary, err)
	}
	summary.Changed = len(changes)
	run.ChangedRecords = len(changes)
	logger.Info("Run %s: %d cases carry new information", run.ID, len(changes))

	for _, change := range changes {
		if opts.DryRun {
			logger.Info("Dry run: would reconcile case %s (new=%v, fingerprint %.8s)",
				change.CaseID, change.IsNew, change.NewFingerprint)
			summary.Skipped++
			continue
		}

		if err := e.reconcileCase(ctx, change, summary); err != nil {
			run.ErrorCount = summary.Errors
			return summary, e.fail(ctx, run, summary, err)
		}
	}

	if err := e.states.UpsertBatch(ctx, batch); err != nil {
		run.ErrorCount = summary.Errors
		return summary, e.fail(ctx, run, summary, fmt.Errorf("persist batch: %w", err))
	}

	run.ErrorCount = summary.Errors
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := e.runs.Finalize(ctx, run); err != nil {
		return summary, fmt.Errorf("finalize run: %w", err)
	}

	logger.Info("Run %s complete: %d updated, %d current, %d not found, %d errors",
		run.ID, summary.Updated, summary.AlreadyCurrent, summary.NotFound, summary.Errors)
	return summary, nil
}

// reconcileCase resolves, diffs and conditionally writes one case.
// Remote failures are counted on the summary and return nil; only
// state store failures return an error, which is fatal for the run.
func (e *Engine) reconcileCase(
	ctx context.Context,
	change domain.CaseStateChange,
	summary *driving.RunSummary,
) error {
	res, err := e.resolver.Resolve(ctx, change)
	if err != nil {
		summary.Errors++
		logger.Warn("Case %s: resolve failed: %v", change.CaseID, err)
		return nil
	}

	switch res.Outcome {
	case ResolutionNotFound, ResolutionSearchDisabled:
		summary.NotFound++
		logger.Debug("Case %s: no remote ticket (%s)", change.CaseID, res.Outcome)
		return nil
	case ResolvedViaCache, ResolvedViaSearch:
	}

	payload := DiffFields(change, res.Ticket)
	if payload == nil {
		// A match was found; cache the link even without a write.
		if err := e.states.LinkTicket(ctx, change.CaseID, res.Ticket.ID); err != nil {
			return fmt.Errorf("link ticket for %s: %w", change.CaseID, err)
		}
		summary.AlreadyCurrent++
		logger.Debug("Case %s: ticket %s already current", change.CaseID, res.Ticket.ID)
		return nil
	}

	if err := e.tickets.UpdateTicket(ctx, res.Ticket.ID, payload); err != nil {
		summary.Errors++
		logger.Warn("Case %s: update ticket %s failed: %v", change.CaseID, res.Ticket.ID, err)
		return nil
	}

	if err := e.states.LinkTicket(ctx, change.CaseID, res.Ticket.ID); err != nil {
		return fmt.Errorf("link ticket for %s: %w", change.CaseID, err)
	}

	summary.Updated++
	logger.Info("Case %s: updated ticket %s (%d fields)", change.CaseID, res.Ticket.ID, len(payload))
	return nil
}

// fail finalizes the run row with the fatal error, then returns it.
func (e *Engine) fail(
	ctx context.Context,
	run *domain.SyncRun,
	summary *driving.RunSummary,
	cause error,
) error {
	run.ErrorMessage = cause.Error()
	run.ErrorCount = summary.Errors
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := e.runs.Finalize(ctx, run); err != nil {
		logger.Warn("Failed to finalize run %s: %v", run.ID, err)
	}
	return cause
}

// partitionValid drops records with malformed case IDs, returning the
// survivors and the rejection count.
func partitionValid(records []domain.CaseRecord) ([]domain.CaseRecord, int) {
	accepted := make([]domain.CaseRecord, 0, len(records))
	rejected := 0
	for _, rec := range records {
		if !domain.ValidateCaseID(rec.CaseID) {
			logger.Warn("Rejecting record with malformed case id %q", rec.CaseID)
			rejected++
			continue
		}
		accepted = append(accepted, rec)
	}
	return accepted, rejected
}
