package services

import (
	"context"
	"fmt"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driven"
	"github.com/aqueducts-ai/corona-case-upsert/internal/logger"
)

// Detector classifies an incoming batch against stored case state.
type Detector struct {
	states driven.CaseStateStore
}

// NewDetector creates a change detector backed by the given store.
func NewDetector(states driven.CaseStateStore) *Detector {
	return &Detector{states: states}
}

// Detect compares a deduplicated batch against stored state and
// returns one change per case that is unseen or whose fingerprint
// differs. Unchanged cases produce nothing here; they are still
// persisted by the run's closing upsert.
func (d *Detector) Detect(ctx context.Context, records []domain.CaseRecord) ([]domain.CaseStateChange, error) {
	records = domain.DedupeRecords(records)

	caseIDs := make([]string, len(records))
	for i, rec := range records {
		caseIDs[i] = rec.CaseID
	}

	existing, err := d.states.LoadStates(ctx, caseIDs)
	if err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}

	var changes []domain.CaseStateChange
	for _, rec := range records {
		newFingerprint := domain.Fingerprint(rec)

		prev, seen := existing[rec.CaseID]
		if !seen {
			changes = append(changes, domain.CaseStateChange{
				CaseID:         rec.CaseID,
				Record:         rec,
				NewFingerprint: newFingerprint,
				IsNew:          true,
			})
			continue
		}

		if prev.Fingerprint == newFingerprint {
			continue
		}

		logger.Debug("Change detected for %s: fingerprint %.8s -> %.8s",
			rec.CaseID, prev.Fingerprint, newFingerprint)

		changes = append(changes, domain.CaseStateChange{
			CaseID:              rec.CaseID,
			Record:              rec,
			PreviousFingerprint: prev.Fingerprint,
			NewFingerprint:      newFingerprint,
			PreviousOpened:      prev.OpenedDate,
			PreviousClosed:      prev.ClosedDate,
			PreviousStatus:      prev.Status,
			TicketID:            prev.TicketID,
		})
	}

	return changes, nil
}
