package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driving"
)

// mockSyncEngine implements driving.SyncEngine for testing.
type mockSyncEngine struct {
	lastRecords []domain.CaseRecord
	lastOpts    driving.RunOptions
	summary     *driving.RunSummary
	err         error
}

func (m *mockSyncEngine) Run(_ context.Context, records []domain.CaseRecord, opts driving.RunOptions) (*driving.RunSummary, error) {
	m.lastRecords = records
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.summary != nil {
		return m.summary, nil
	}
	return &driving.RunSummary{RunID: "run-1", Total: len(records)}, nil
}

func setupSyncTest(engine *mockSyncEngine) func() {
	oldEngine := syncEngine
	oldRemote := remoteConfigured
	syncEngine = engine
	remoteConfigured = true
	return func() {
		syncEngine = oldEngine
		remoteConfigured = oldRemote
	}
}

func writeExtract(t *testing.T, rows string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "extract.csv")
	content := "Case Number,Date Opened,Date Closed\n" + rows
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync <extract.csv>", syncCmd.Use)
}

func TestSyncCmd_ReconcilesExtract(t *testing.T) {
	engine := &mockSyncEngine{summary: &driving.RunSummary{
		RunID: "run-42", Total: 2, Changed: 1, Updated: 1, AlreadyCurrent: 1,
	}}
	cleanup := setupSyncTest(engine)
	defer cleanup()

	path := writeExtract(t, "CE24-0001,2024-03-15,\nCE24-0002,2024-04-01,2024-06-20\n")

	out, err := executeCommand("sync", path)

	require.NoError(t, err)
	assert.Len(t, engine.lastRecords, 2)
	assert.False(t, engine.lastOpts.DryRun)
	assert.Equal(t, "extract.csv", engine.lastOpts.Metadata["source_file"])
	assert.Contains(t, out, "Run run-42 complete")
	assert.Contains(t, out, "1 updated")
}

func TestSyncCmd_DryRunFlag(t *testing.T) {
	engine := &mockSyncEngine{}
	cleanup := setupSyncTest(engine)
	defer cleanup()
	defer func() { syncDryRun = false }()

	path := writeExtract(t, "CE24-0001,2024-03-15,\n")

	_, err := executeCommand("sync", "--dry-run", path)

	require.NoError(t, err)
	assert.True(t, engine.lastOpts.DryRun)
	assert.Equal(t, "true", engine.lastOpts.Metadata["dry_run"])
}

func TestSyncCmd_ForcesDryRunWithoutToken(t *testing.T) {
	engine := &mockSyncEngine{}
	cleanup := setupSyncTest(engine)
	defer cleanup()
	remoteConfigured = false

	path := writeExtract(t, "CE24-0001,2024-03-15,\n")

	_, err := executeCommand("sync", path)

	require.NoError(t, err)
	assert.True(t, engine.lastOpts.DryRun)
}

func TestSyncCmd_MissingFile(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncEngine{})
	defer cleanup()

	_, err := executeCommand("sync", filepath.Join(t.TempDir(), "absent.csv"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestSyncCmd_EngineError(t *testing.T) {
	engine := &mockSyncEngine{err: errors.New("disk full")}
	cleanup := setupSyncTest(engine)
	defer cleanup()

	path := writeExtract(t, "CE24-0001,2024-03-15,\n")

	_, err := executeCommand("sync", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed")
}

func TestSyncCmd_ServiceNotConfigured(t *testing.T) {
	oldEngine := syncEngine
	syncEngine = nil
	defer func() { syncEngine = oldEngine }()

	path := writeExtract(t, "CE24-0001,2024-03-15,\n")

	_, err := executeCommand("sync", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync service not configured")
}
