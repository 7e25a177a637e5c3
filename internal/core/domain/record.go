package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the canonical rendering for case dates.
// It drives both fingerprinting and remote field comparison, so it
// must never change without a data migration.
const DateLayout = "2006-01-02"

// caseIDPattern matches case numbers of the form CE24-0001:
// two letters, two digits, a hyphen and a numeric suffix.
var caseIDPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}-[0-9]+$`)

// CaseStatus is the derived lifecycle status of a case.
type CaseStatus string

const (
	// StatusOpen indicates the case is still active.
	StatusOpen CaseStatus = "open"

	// StatusClosed indicates the case has both an open and a close date.
	StatusClosed CaseStatus = "closed"
)

// CaseRecord is one observation of a case from a snapshot extract.
// It is immutable once parsed.
type CaseRecord struct {
	// CaseID is the stable natural key (e.g. "CE24-0001").
	CaseID string

	// OpenedDate is when the case was opened, nil if not reported.
	OpenedDate *time.Time

	// ClosedDate is when the case was closed, nil while open.
	ClosedDate *time.Time

	// Category is the enforcement category.
	Category string

	// SubCategory is the enforcement sub-category.
	SubCategory string

	// Address is the site address.
	Address string

	// RawFields preserves the full extract row for storage and audit.
	RawFields map[string]string
}

// ValidateCaseID reports whether id matches the case number pattern.
// Records failing validation never enter the pipeline.
func ValidateCaseID(id string) bool {
	return caseIDPattern.MatchString(id)
}

// DeriveStatus returns the status implied by the two dates: closed iff
// both are present, open otherwise (including neither present).
func DeriveStatus(opened, closed *time.Time) CaseStatus {
	if opened != nil && closed != nil {
		return StatusClosed
	}
	return StatusOpen
}

// DateString renders a date in the canonical layout, empty when nil.
func DateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// Fingerprint computes the content fingerprint of a record.
// Only the identity and the two dates participate: two records with
// the same fingerprint are informationally identical even if other
// raw fields differ. SHA-256 keeps the digest stable across process
// restarts, unlike a language-default hash.
func Fingerprint(rec CaseRecord) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s",
		rec.CaseID, DateString(rec.OpenedDate), DateString(rec.ClosedDate))))
	return hex.EncodeToString(sum[:])
}

// DedupeRecords collapses a batch to one record per case ID.
// The last occurrence wins; the order of first appearance is kept.
// Snapshot deliveries may legitimately repeat a case within one batch.
func DedupeRecords(records []CaseRecord) []CaseRecord {
	index := make(map[string]int, len(records))
	deduped := make([]CaseRecord, 0, len(records))

	for _, rec := range records {
		if i, ok := index[rec.CaseID]; ok {
			deduped[i] = rec
			continue
		}
		index[rec.CaseID] = len(deduped)
		deduped = append(deduped, rec)
	}

	return deduped
}
