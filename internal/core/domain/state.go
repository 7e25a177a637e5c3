package domain

import "time"

// CaseState is the persisted last-known state of a case, one row per
// case ID. It is owned exclusively by the state store and mutated only
// through upsert; cases absent from a later snapshot are never deleted.
type CaseState struct {
	// CaseID is the primary key.
	CaseID string

	// OpenedDate is the last observed open date.
	OpenedDate *time.Time

	// ClosedDate is the last observed close date.
	ClosedDate *time.Time

	// Status is derived from the two dates, never set directly.
	Status CaseStatus

	// Category is the enforcement category.
	Category string

	// SubCategory is the enforcement sub-category.
	SubCategory string

	// Address is the site address.
	Address string

	// RawFields is the full extract row as last observed.
	RawFields map[string]string

	// Fingerprint is the content fingerprint of the last observation.
	Fingerprint string

	// TicketID caches the linked remote ticket, empty when unresolved.
	TicketID string

	// LastSeenAt is when the case last appeared in a snapshot.
	LastSeenAt time.Time

	// CreatedAt is when the case was first observed.
	CreatedAt time.Time
}

// NewCaseState builds the persisted state for one observation,
// deriving status and fingerprint from the record.
func NewCaseState(rec CaseRecord, seenAt time.Time) CaseState {
	return CaseState{
		CaseID:      rec.CaseID,
		OpenedDate:  rec.OpenedDate,
		ClosedDate:  rec.ClosedDate,
		Status:      DeriveStatus(rec.OpenedDate, rec.ClosedDate),
		Category:    rec.Category,
		SubCategory: rec.SubCategory,
		Address:     rec.Address,
		RawFields:   rec.RawFields,
		Fingerprint: Fingerprint(rec),
		LastSeenAt:  seenAt,
	}
}

// CaseStateChange describes one case whose incoming observation
// carries new information. Produced by the change detector, consumed
// once per run.
type CaseStateChange struct {
	// CaseID is the case natural key.
	CaseID string

	// Record is the incoming observation.
	Record CaseRecord

	// PreviousFingerprint is the stored fingerprint, empty for new cases.
	PreviousFingerprint string

	// NewFingerprint is the fingerprint of the incoming record.
	NewFingerprint string

	// IsNew is true when no prior state exists for the case.
	IsNew bool

	// PreviousOpened is the stored open date, nil for new cases.
	PreviousOpened *time.Time

	// PreviousClosed is the stored close date, nil for new cases.
	PreviousClosed *time.Time

	// PreviousStatus is the stored status, empty for new cases.
	PreviousStatus CaseStatus

	// TicketID is the cached remote ticket link, empty when none.
	TicketID string
}
