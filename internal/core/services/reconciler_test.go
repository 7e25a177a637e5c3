package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
)

func changeFor(opened, closed *time.Time) domain.CaseStateChange {
	rec := domain.CaseRecord{CaseID: "CE24-0001", OpenedDate: opened, ClosedDate: closed}
	return domain.CaseStateChange{
		CaseID:         rec.CaseID,
		Record:         rec,
		NewFingerprint: domain.Fingerprint(rec),
	}
}

func TestDiffFields_NoOpGuard(t *testing.T) {
	change := changeFor(datePtr(2025, time.January, 1), datePtr(2025, time.February, 1))
	ticket := &domain.Ticket{
		ID: "tkt-1",
		Fields: domain.TicketFields{
			OpenDate:  "2025-01-01",
			CloseDate: "2025-02-01",
			Status:    "closed",
		},
	}

	assert.Nil(t, DiffFields(change, ticket))
}

func TestDiffFields_CloseDateArrives(t *testing.T) {
	change := changeFor(datePtr(2025, time.January, 1), datePtr(2025, time.February, 1))
	ticket := &domain.Ticket{
		ID: "tkt-1",
		Fields: domain.TicketFields{
			OpenDate: "2025-01-01",
			Status:   "open",
		},
	}

	payload := DiffFields(change, ticket)

	require.NotNil(t, payload)
	assert.Equal(t, domain.UpdatePayload{
		domain.FieldCaseCloseDate:  "2025-02-01",
		domain.FieldLastCaseStatus: "closed",
	}, payload)
}

func TestDiffFields_EmptyOpenDateNeverWritten(t *testing.T) {
	change := changeFor(nil, nil)
	ticket := &domain.Ticket{
		ID: "tkt-1",
		Fields: domain.TicketFields{
			OpenDate: "2025-01-01",
			Status:   "open",
		},
	}

	payload := DiffFields(change, ticket)

	require.NotNil(t, payload)
	_, hasOpen := payload[domain.FieldCaseOpenDate]
	assert.False(t, hasOpen, "an empty desired open date must not clobber the remote value")
}

func TestDiffFields_ClearsCloseDateAndStatus(t *testing.T) {
	// Locally the case reverted to open with no close date; the remote
	// still carries both. Clearing those two fields is legitimate.
	change := changeFor(datePtr(2025, time.January, 1), nil)
	ticket := &domain.Ticket{
		ID: "tkt-1",
		Fields: domain.TicketFields{
			OpenDate:  "2025-01-01",
			CloseDate: "2025-02-01",
			Status:    "closed",
		},
	}

	payload := DiffFields(change, ticket)

	require.NotNil(t, payload)
	assert.Equal(t, "", payload[domain.FieldCaseCloseDate])
	assert.Equal(t, "open", payload[domain.FieldLastCaseStatus])
}

func TestDiffFields_NullNormalization(t *testing.T) {
	change := changeFor(datePtr(2025, time.January, 1), nil)
	ticket := &domain.Ticket{
		ID: "tkt-1",
		Fields: domain.TicketFields{
			OpenDate:  " 2025-01-01 ",
			CloseDate: "null",
			Status:    "Open",
		},
	}

	assert.Nil(t, DiffFields(change, ticket), "whitespace, literal null and case differences are not changes")
}

func TestDiffFields_OnlyChangedFieldsIncluded(t *testing.T) {
	change := changeFor(datePtr(2025, time.January, 2), nil)
	ticket := &domain.Ticket{
		ID: "tkt-1",
		Fields: domain.TicketFields{
			OpenDate: "2025-01-01",
			Status:   "open",
		},
	}

	payload := DiffFields(change, ticket)

	require.NotNil(t, payload)
	assert.Len(t, payload, 1)
	assert.Equal(t, "2025-01-02", payload[domain.FieldCaseOpenDate])
}
