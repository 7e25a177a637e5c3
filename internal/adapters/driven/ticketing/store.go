package ticketing

import (
	"context"
	"fmt"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.TicketStore = (*Store)(nil)

// Store implements driven.TicketStore against the ticketing API.
type Store struct {
	client *Client
}

// NewStore creates a ticket store over the given client.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// SearchByCaseID finds tickets filed under a case number. A 405 from
// the deployment means search is structurally absent and maps to
// domain.ErrTicketSearchUnsupported so callers can disable search
// for the process lifetime.
func (s *Store) SearchByCaseID(ctx context.Context, caseID string, opts driven.SearchOptions) ([]domain.Ticket, error) {
	payloads, err := s.client.searchTickets(ctx, caseID, opts.IncludeClosed, opts.Limit)
	if err != nil {
		if IsMethodNotAllowed(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrTicketSearchUnsupported, err)
		}
		return nil, fmt.Errorf("search tickets: %w", err)
	}

	tickets := make([]domain.Ticket, len(payloads))
	for i, p := range payloads {
		tickets[i] = toDomain(p)
	}
	return tickets, nil
}

// GetTicket fetches a ticket by its remote ID.
func (s *Store) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	payload, err := s.client.getTicket(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: ticket %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	ticket := toDomain(*payload)
	return &ticket, nil
}

// UpdateTicket applies a field update payload to a ticket.
func (s *Store) UpdateTicket(ctx context.Context, id string, payload domain.UpdatePayload) error {
	if len(payload) == 0 {
		return nil
	}
	if err := s.client.updateTicket(ctx, id, payload); err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	return nil
}

// toDomain maps a wire ticket onto the domain type.
func toDomain(p ticketPayload) domain.Ticket {
	return domain.Ticket{
		ID:     p.ID,
		CaseID: p.CaseID,
		Fields: domain.TicketFields{
			OpenDate:  p.Fields[domain.FieldCaseOpenDate],
			CloseDate: p.Fields[domain.FieldCaseCloseDate],
			Status:    p.Fields[domain.FieldLastCaseStatus],
		},
	}
}
