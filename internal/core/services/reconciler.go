package services

import (
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
)

// DiffFields compares the ticket's remote-visible fields against the
// values the change wants and returns a payload containing only the
// fields that actually differ. Nil means the ticket is already
// current and no write should be issued.
//
// Comparison is null-normalised: an absent remote value and an empty
// desired value are the same thing, not a mismatch. An empty desired
// open date is never written, so a remote open date is not clobbered
// with emptiness; close date and status do not share that asymmetry,
// since clearing them is a legitimate instruction.
func DiffFields(change domain.CaseStateChange, ticket *domain.Ticket) domain.UpdatePayload {
	desiredOpen := domain.DateString(change.Record.OpenedDate)
	desiredClose := domain.DateString(change.Record.ClosedDate)
	desiredStatus := string(domain.DeriveStatus(change.Record.OpenedDate, change.Record.ClosedDate))

	payload := domain.UpdatePayload{}

	if desiredOpen != "" &&
		domain.NormalizeFieldValue(ticket.Fields.OpenDate) != domain.NormalizeFieldValue(desiredOpen) {
		payload[domain.FieldCaseOpenDate] = desiredOpen
	}

	if domain.NormalizeFieldValue(ticket.Fields.CloseDate) != domain.NormalizeFieldValue(desiredClose) {
		payload[domain.FieldCaseCloseDate] = desiredClose
	}

	if domain.NormalizeFieldValue(ticket.Fields.Status) != domain.NormalizeFieldValue(desiredStatus) {
		payload[domain.FieldLastCaseStatus] = desiredStatus
	}

	if len(payload) == 0 {
		return nil
	}
	return payload
}
