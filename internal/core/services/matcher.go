package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driven"
	"github.com/aqueducts-ai/corona-case-upsert/internal/logger"
)

// ResolutionOutcome tags how (or whether) a case was matched to a ticket.
type ResolutionOutcome string

const (
	// ResolvedViaCache means the cached ticket link was still valid.
	ResolvedViaCache ResolutionOutcome = "cache"

	// ResolvedViaSearch means a remote search found the ticket.
	ResolvedViaSearch ResolutionOutcome = "search"

	// ResolutionNotFound means neither cache nor search produced a match.
	ResolutionNotFound ResolutionOutcome = "not-found"

	// ResolutionSearchDisabled means search is disabled for the process
	// and no cached link was usable.
	ResolutionSearchDisabled ResolutionOutcome = "search-disabled"
)

// Resolution is the result of resolving a case to a remote ticket.
// Ticket is non-nil only for the two found outcomes.
type Resolution struct {
	Outcome ResolutionOutcome
	Ticket  *domain.Ticket
}

// SearchCapability is the process-wide flag recording whether the
// remote deployment supports ticket search. It is constructed once
// per process, disabled at most once, and never resets.
type SearchCapability struct {
	mu       sync.RWMutex
	disabled bool
}

// NewSearchCapability creates an enabled capability.
func NewSearchCapability() *SearchCapability {
	return &SearchCapability{}
}

// Enabled reports whether search may still be attempted.
func (c *SearchCapability) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled
}

// Disable turns search off for the remainder of the process lifetime.
func (c *SearchCapability) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = true
}

// Resolver matches a changed case to its remote ticket, preferring
// the cached link and falling back to search.
type Resolver struct {
	tickets    driven.TicketStore
	capability *SearchCapability
}

// NewResolver creates a resolver. The capability object is shared
// process-wide so one unsupported-search signal silences all
// subsequent search attempts.
func NewResolver(tickets driven.TicketStore, capability *SearchCapability) *Resolver {
	return &Resolver{tickets: tickets, capability: capability}
}

// Resolve finds the remote ticket for a change. A stale cached link
// (remote reports not-found) falls through to search and is not
// trusted further for this run. Remote errors other than not-found
// and the unsupported-search signal propagate.
func (r *Resolver) Resolve(ctx context.Context, change domain.CaseStateChange) (Resolution, error) {
	if change.TicketID != "" {
		ticket, err := r.tickets.GetTicket(ctx, change.TicketID)
		switch {
		case err == nil:
			return Resolution{Outcome: ResolvedViaCache, Ticket: ticket}, nil
		case errors.Is(err, domain.ErrNotFound):
			logger.Warn("Cached ticket %s for case %s is stale, falling back to search",
				change.TicketID, change.CaseID)
		default:
			return Resolution{}, fmt.Errorf("get ticket %s: %w", change.TicketID, err)
		}
	}

	if !r.capability.Enabled() {
		return Resolution{Outcome: ResolutionSearchDisabled}, nil
	}

	tickets, err := r.tickets.SearchByCaseID(ctx, change.CaseID, driven.SearchOptions{
		IncludeClosed: true,
		Limit:         1,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTicketSearchUnsupported) {
			logger.Warn("Remote deployment does not support ticket search, disabling for this process")
			r.capability.Disable()
			return Resolution{Outcome: ResolutionSearchDisabled}, nil
		}
		return Resolution{}, fmt.Errorf("search tickets for %s: %w", change.CaseID, err)
	}

	if len(tickets) == 0 {
		return Resolution{Outcome: ResolutionNotFound}, nil
	}

	ticket := tickets[0]
	return Resolution{Outcome: ResolvedViaSearch, Ticket: &ticket}, nil
}
