package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
)

// mockRunStore implements driven.SyncRunStore for testing.
type mockRunStore struct {
	runs []domain.SyncRun
	err  error
}

func (m *mockRunStore) Create(_ context.Context, _ *domain.SyncRun) error   { return nil }
func (m *mockRunStore) Finalize(_ context.Context, _ *domain.SyncRun) error { return nil }

func (m *mockRunStore) List(_ context.Context, limit int) ([]domain.SyncRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func setupRunsTest(store *mockRunStore) func() {
	old := syncRuns
	syncRuns = store
	return func() {
		syncRuns = old
		runsLimit = 20
	}
}

func TestRunsCmd_ListsRuns(t *testing.T) {
	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(3 * time.Second)
	cleanup := setupRunsTest(&mockRunStore{runs: []domain.SyncRun{
		{
			ID:             "run-2",
			StartedAt:      started,
			CompletedAt:    &completed,
			TotalRecords:   10,
			ChangedRecords: 3,
			Metadata:       map[string]string{"source_file": "cases.csv", "dry_run": "true"},
		},
		{
			ID:           "run-1",
			StartedAt:    started.Add(-time.Hour),
			ErrorMessage: "disk full",
		},
	}})
	defer cleanup()

	out, err := executeCommand("runs")

	require.NoError(t, err)
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "10 records, 3 changed")
	assert.Contains(t, out, "source: cases.csv (dry-run)")
	assert.Contains(t, out, "failed: disk full")
}

func TestRunsCmd_Empty(t *testing.T) {
	cleanup := setupRunsTest(&mockRunStore{})
	defer cleanup()

	out, err := executeCommand("runs")

	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestRunsCmd_LimitFlag(t *testing.T) {
	store := &mockRunStore{runs: []domain.SyncRun{
		{ID: "run-3", StartedAt: time.Now()},
		{ID: "run-2", StartedAt: time.Now()},
		{ID: "run-1", StartedAt: time.Now()},
	}}
	cleanup := setupRunsTest(store)
	defer cleanup()

	out, err := executeCommand("runs", "--limit", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "run-3")
	assert.NotContains(t, out, "run-1")
}

func TestRunsCmd_InvalidLimit(t *testing.T) {
	cleanup := setupRunsTest(&mockRunStore{})
	defer cleanup()

	_, err := executeCommand("runs", "--limit", "0")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid limit")
}

func TestRunsCmd_StoreError(t *testing.T) {
	cleanup := setupRunsTest(&mockRunStore{err: errors.New("db locked")})
	defer cleanup()

	_, err := executeCommand("runs")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing runs")
}

func TestRunsCmd_ServiceNotConfigured(t *testing.T) {
	old := syncRuns
	syncRuns = nil
	defer func() { syncRuns = old }()

	_, err := executeCommand("runs")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run store not configured")
}
