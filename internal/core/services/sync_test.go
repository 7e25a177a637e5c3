package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqueducts-ai/corona-case-upsert/internal/adapters/driven/storage/memory"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driving"
)

func newTestEngine(tickets *mockTicketStore) (*Engine, *memory.CaseStateStore, *memory.SyncRunStore) {
	states := memory.NewCaseStateStore()
	runs := memory.NewSyncRunStore()
	resolver := NewResolver(tickets, NewSearchCapability())
	return NewEngine(states, runs, tickets, resolver), states, runs
}

func TestEngine_NewCaseNoRemoteMatch(t *testing.T) {
	ctx := context.Background()
	tickets := newMockTicketStore()
	engine, states, runs := newTestEngine(tickets)

	summary, err := engine.Run(ctx, []domain.CaseRecord{
		{CaseID: "CE24-0001", OpenedDate: datePtr(2025, time.January, 1)},
	}, driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 1, summary.NotFound)
	assert.Zero(t, summary.Updated)
	assert.Zero(t, tickets.updateCalls)

	state, ok := states.Get("CE24-0001")
	require.True(t, ok)
	assert.Equal(t, domain.StatusOpen, state.Status)

	persisted, err := runs.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.NotNil(t, persisted[0].CompletedAt)
	assert.Equal(t, 1, persisted[0].ChangedRecords)
}

func TestEngine_CloseDateTriggersOneWrite(t *testing.T) {
	ctx := context.Background()
	tickets := newMockTicketStore()
	tickets.searchResult = []domain.Ticket{{
		ID:     "tkt-1",
		CaseID: "CE24-0001",
		Fields: domain.TicketFields{OpenDate: "2025-01-01", Status: "open"},
	}}
	engine, states, _ := newTestEngine(tickets)

	opened := domain.CaseRecord{CaseID: "CE24-0001", OpenedDate: datePtr(2025, time.January, 1)}
	require.NoError(t, states.UpsertBatch(ctx, []domain.CaseRecord{opened}))

	closed := opened
	closed.ClosedDate = datePtr(2025, time.February, 1)

	summary, err := engine.Run(ctx, []domain.CaseRecord{closed}, driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, tickets.updateCalls)
	assert.Equal(t, "tkt-1", tickets.lastUpdated)
	assert.Equal(t, domain.UpdatePayload{
		domain.FieldCaseCloseDate:  "2025-02-01",
		domain.FieldLastCaseStatus: "closed",
	}, tickets.lastPayload)

	link, err := states.LinkedTicket(ctx, "CE24-0001")
	require.NoError(t, err)
	assert.Equal(t, "tkt-1", link)
}

func TestEngine_Idempotence(t *testing.T) {
	ctx := context.Background()
	tickets := newMockTicketStore()
	tickets.searchResult = []domain.Ticket{{
		ID:     "tkt-1",
		CaseID: "CE24-0001",
		Fields: domain.TicketFields{OpenDate: "2025-01-01", Status: "open"},
	}}
	engine, states, _ := newTestEngine(tickets)

	batch := []domain.CaseRecord{{CaseID: "CE24-0001", OpenedDate: datePtr(2025, time.January, 1)}}

	first, err := engine.Run(ctx, batch, driving.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Changed)
	stateAfterFirst, _ := states.Get("CE24-0001")
	writesAfterFirst := tickets.updateCalls

	second, err := engine.Run(ctx, batch, driving.RunOptions{})
	require.NoError(t, err)

	assert.Zero(t, second.Changed, "identical batch must produce no reconciliation work")
	assert.Equal(t, writesAfterFirst, tickets.updateCalls, "no additional remote writes on the second run")
	stateAfterSecond, _ := states.Get("CE24-0001")
	assert.Equal(t, stateAfterFirst.Fingerprint, stateAfterSecond.Fingerprint)
	assert.False(t, stateAfterSecond.LastSeenAt.Before(stateAfterFirst.LastSeenAt),
		"last_seen_at must still advance")
}

func TestEngine_AlreadyCurrentCachesLink(t *testing.T) {
	ctx := context.Background()
	tickets := newMockTicketStore()
	tickets.searchResult = []domain.Ticket{{
		ID:     "tkt-1",
		CaseID: "CE24-0001",
		Fields: domain.TicketFields{OpenDate: "2025-01-01", Status: "open"},
	}}
	engine, states, _ := newTestEngine(tickets)

	summary, err := engine.Run(ctx, []domain.CaseRecord{
		{CaseID: "CE24-0001", OpenedDate: datePtr(2025, time.January, 1)},
	}, driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.AlreadyCurrent)
	assert.Zero(t, tickets.updateCalls)

	link, err := states.LinkedTicket(ctx, "CE24-0001")
	require.NoError(t, err)
	assert.Equal(t, "tkt-1", link, "a found match is cached even without a write")
}

func TestEngine_DryRunSkipsRemoteButPersists(t *testing.T) {
	ctx := context.Background()
	tickets := newMockTicketStore()
	tickets.searchResult = []domain.Ticket{{ID: "tkt-1", CaseID: "CE24-0001"}}
	engine, states, runs := newTestEngine(tickets)

	summary, err := engine.Run(ctx, []domain.CaseRecord{
		{CaseID: "CE24-0001", OpenedDate: datePtr(2025, time.January, 1)},
	}, driving.RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, tickets.searchCalls)
	assert.Zero(t, tickets.getCalls)
	assert.Zero(t, tickets.updateCalls)

	assert.Equal(t, 1, states.Len(), "dry run still persists the batch")
	persisted, err := runs.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.NotNil(t, persisted[0].CompletedAt)
}

func TestEngine_MalformedIDsRejected(t *testing.T) {
	ctx := context.Background()
	tickets := newMockTicketStore()
	engine, states, _ := newTestEngine(tickets)

	summary, err := engine.Run(ctx, []domain.CaseRecord{
		{CaseID: "not-a-case"},
		{CaseID: "CE24-0001"},
	}, driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 1, summary.Total)
	_, ok := states.Get("not-a-case")
	assert.False(t, ok, "rejected records never reach the state store")
}

func TestEngine_PerCaseRemoteErrorDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	tickets := newMockTicketStore()
	tickets.searchErr = errors.New("remote 500")
	engine, states, _ := newTestEngine(tickets)

	summary, err := engine.Run(ctx, []domain.CaseRecord{
		{CaseID: "CE24-0001"},
		{CaseID: "CE24-0002"},
	}, driving.RunOptions{})
	require.NoError(t, err, "per-case remote errors are tolerated")

	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, 2, states.Len(), "batch is persisted despite remote errors")
}

func TestEngine_SearchUnsupportedCountsNotFound(t *testing.T) {
	ctx := context.Background()
	tickets := newMockTicketStore()
	tickets.searchErr = domain.ErrTicketSearchUnsupported
	engine, _, _ := newTestEngine(tickets)

	summary, err := engine.Run(ctx, []domain.CaseRecord{
		{CaseID: "CE24-0001"},
		{CaseID: "CE24-0002"},
		{CaseID: "CE24-0003"},
	}, driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.NotFound)
	assert.Zero(t, summary.Errors)
	assert.Equal(t, 1, tickets.searchCalls, "only the first case touches the remote")
}

// failingUpsertStore fails the closing batch persist.
type failingUpsertStore struct {
	*memory.CaseStateStore
	upsertErr error
}

func (f *failingUpsertStore) UpsertBatch(context.Context, []domain.CaseRecord) error {
	return f.upsertErr
}

func TestEngine_StoreErrorIsFatalAndFinalizesRun(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("disk full")
	states := &failingUpsertStore{CaseStateStore: memory.NewCaseStateStore(), upsertErr: storeErr}
	runs := memory.NewSyncRunStore()
	tickets := newMockTicketStore()
	engine := NewEngine(states, runs, tickets, NewResolver(tickets, NewSearchCapability()))

	_, err := engine.Run(ctx, []domain.CaseRecord{{CaseID: "CE24-0001"}}, driving.RunOptions{})
	require.ErrorIs(t, err, storeErr)

	persisted, listErr := runs.List(ctx, 1)
	require.NoError(t, listErr)
	require.Len(t, persisted, 1)
	assert.NotNil(t, persisted[0].CompletedAt, "a fatal run still finalizes its audit row")
	assert.Contains(t, persisted[0].ErrorMessage, "disk full")
}

func TestEngine_ZeroChangeRunStillPersists(t *testing.T) {
	ctx := context.Background()
	tickets := newMockTicketStore()
	engine, states, runs := newTestEngine(tickets)

	batch := []domain.CaseRecord{{CaseID: "CE24-0001", OpenedDate: datePtr(2025, time.January, 1)}}
	_, err := engine.Run(ctx, batch, driving.RunOptions{})
	require.NoError(t, err)

	before, _ := states.Get("CE24-0001")

	summary, err := engine.Run(ctx, batch, driving.RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, summary.Changed)

	after, _ := states.Get("CE24-0001")
	assert.False(t, after.LastSeenAt.Before(before.LastSeenAt))

	persisted, err := runs.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, persisted, 2, "every run gets an audit row, even zero-change runs")
}
