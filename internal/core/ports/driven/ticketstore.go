package driven

import (
	"context"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
)

// SearchOptions control a ticket search.
type SearchOptions struct {
	// IncludeClosed widens the search to closed/archived tickets.
	// A case must be matchable even after its ticket is closed.
	IncludeClosed bool

	// Limit caps the number of results.
	Limit int
}

// TicketStore is the remote ticketing system surface the core needs.
type TicketStore interface {
	// SearchByCaseID finds tickets filed under a case number.
	// Returns domain.ErrTicketSearchUnsupported when the deployment
	// structurally lacks search; callers disable search for the
	// process lifetime on seeing it.
	SearchByCaseID(ctx context.Context, caseID string, opts SearchOptions) ([]domain.Ticket, error)

	// GetTicket fetches a ticket by its remote ID.
	// Returns domain.ErrNotFound for unknown or deleted tickets.
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)

	// UpdateTicket applies a field update payload to a ticket.
	UpdateTicket(ctx context.Context, id string, payload domain.UpdatePayload) error
}
