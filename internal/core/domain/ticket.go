package domain

import "strings"

// Remote custom field keys understood by the ticketing deployment.
const (
	// FieldCaseOpenDate holds the case open date, YYYY-MM-DD.
	FieldCaseOpenDate = "case_open_date"

	// FieldCaseCloseDate holds the case close date, YYYY-MM-DD.
	FieldCaseCloseDate = "case_close_date"

	// FieldLastCaseStatus holds the derived status ("open"/"closed").
	FieldLastCaseStatus = "last_case_status"
)

// Ticket is the remote ticketing system's view of a case.
// Only the identifier and the custom field values the reconciler
// compares are modelled here.
type Ticket struct {
	// ID is the remote ticket identifier.
	ID string

	// CaseID is the case number the ticket was filed under.
	CaseID string

	// Fields holds the current remote custom field values.
	Fields TicketFields
}

// TicketFields are the remote-visible field values, rendered as
// strings the way the remote API reports them. Empty means unset.
type TicketFields struct {
	OpenDate  string
	CloseDate string
	Status    string
}

// UpdatePayload carries only the fields whose values must change,
// keyed by remote field name. An empty value clears the field.
type UpdatePayload map[string]string

// NormalizeFieldValue collapses the remote representations of "no
// value" (empty, whitespace, literal null) and case differences so
// field comparison is uniform.
func NormalizeFieldValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return ""
	}
	return strings.ToLower(v)
}
