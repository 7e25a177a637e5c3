// Package sqlite provides the durable case state and run audit store
// on a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aqueducts-ai/corona-case-upsert/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driven"
)

const (
	// upsertChunkSize bounds how many rows one upsert transaction touches.
	upsertChunkSize = 200

	// loadChunkSize bounds the IN-list length of one bulk select.
	loadChunkSize = 500
)

// Store is a SQLite-backed storage providing the case state and sync
// run store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.casesync/data/casesync.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".casesync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "casesync.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CaseStateStore returns a CaseStateStore interface backed by this store.
func (s *Store) CaseStateStore() driven.CaseStateStore {
	return &caseStateStore{store: s}
}

// SyncRunStore returns a SyncRunStore interface backed by this store.
func (s *Store) SyncRunStore() driven.SyncRunStore {
	return &syncRunStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Case State Store ====================

// caseStateStore implements driven.CaseStateStore.
type caseStateStore struct {
	store *Store
}

var _ driven.CaseStateStore = (*caseStateStore)(nil)

// LoadStates bulk-fetches states for the given case IDs. The IN list
// is chunked so no single statement is unbounded; IDs with no stored
// state are simply absent from the result.
func (s *caseStateStore) LoadStates(ctx context.Context, caseIDs []string) (map[string]domain.CaseState, error) {
	found := make(map[string]domain.CaseState, len(caseIDs))

	for _, group := range chunks(caseIDs, loadChunkSize) {
		placeholders := strings.Repeat("?,", len(group))
		placeholders = placeholders[:len(placeholders)-1]

		args := make([]any, len(group))
		for i, id := range group {
			args[i] = id
		}

		rows, err := s.store.db.QueryContext(ctx, `
			SELECT case_id, opened_date, closed_date, status, category, sub_category,
			       address, raw_fields, fingerprint, ticket_id, last_seen_at, created_at
			FROM case_states WHERE case_id IN (`+placeholders+`)
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("querying case states: %w", err)
		}

		if err := collectCaseStates(rows, found); err != nil {
			return nil, err
		}
	}

	return found, nil
}

// UpsertBatch persists a batch of observations in fixed-size chunks,
// one transaction per chunk. A failed chunk aborts the batch; chunks
// already committed stay committed.
func (s *caseStateStore) UpsertBatch(ctx context.Context, records []domain.CaseRecord) error {
	deduped := domain.DedupeRecords(records)
	now := time.Now().UTC()

	for _, group := range chunks(deduped, upsertChunkSize) {
		if err := s.upsertChunk(ctx, group, now); err != nil {
			return err
		}
	}
	return nil
}

// upsertChunk writes one group of rows inside a single transaction.
func (s *caseStateStore) upsertChunk(ctx context.Context, records []domain.CaseRecord, now time.Time) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO case_states
			(case_id, opened_date, closed_date, status, category, sub_category,
			 address, raw_fields, fingerprint, ticket_id, last_seen_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT(case_id) DO UPDATE SET
			opened_date = excluded.opened_date,
			closed_date = excluded.closed_date,
			status = excluded.status,
			category = excluded.category,
			sub_category = excluded.sub_category,
			address = excluded.address,
			raw_fields = excluded.raw_fields,
			fingerprint = excluded.fingerprint,
			last_seen_at = excluded.last_seen_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		state := domain.NewCaseState(rec, now)

		rawJSON, err := json.Marshal(state.RawFields)
		if err != nil {
			return fmt.Errorf("marshalling raw fields: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			state.CaseID,
			nullDate(state.OpenedDate), nullDate(state.ClosedDate),
			string(state.Status), state.Category, state.SubCategory, state.Address,
			string(rawJSON), state.Fingerprint, state.LastSeenAt, now); err != nil {
			return fmt.Errorf("upserting case %s: %w", state.CaseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LinkTicket caches the remote ticket ID for a case. The link may be
// set before the case's closing upsert lands, so this is itself an
// upsert; the batch upsert never touches ticket_id. A placeholder row
// has not been sighted in any snapshot, so last_seen_at stays at the
// zero time until a real upsert refreshes it.
func (s *caseStateStore) LinkTicket(ctx context.Context, caseID, ticketID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO case_states (case_id, status, fingerprint, ticket_id, last_seen_at, created_at)
		VALUES (?, ?, '', ?, ?, ?)
		ON CONFLICT(case_id) DO UPDATE SET
			ticket_id = excluded.ticket_id
	`, caseID, string(domain.StatusOpen), ticketID, time.Time{}, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("linking ticket: %w", err)
	}
	return nil
}

// LinkedTicket returns the cached remote ticket ID, empty when none.
func (s *caseStateStore) LinkedTicket(ctx context.Context, caseID string) (string, error) {
	var ticketID sql.NullString
	err := s.store.db.QueryRowContext(ctx,
		"SELECT ticket_id FROM case_states WHERE case_id = ?", caseID).Scan(&ticketID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("querying ticket link: %w", err)
	}
	return ticketID.String, nil
}

// ==================== Sync Run Store ====================

// syncRunStore implements driven.SyncRunStore.
type syncRunStore struct {
	store *Store
}

var _ driven.SyncRunStore = (*syncRunStore)(nil)

// Create inserts the run row at run start.
func (s *syncRunStore) Create(ctx context.Context, run *domain.SyncRun) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}

	metadataJSON, err := json.Marshal(run.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs
			(id, started_at, completed_at, total_records, changed_records,
			 error_count, error_message, metadata)
		VALUES (?, ?, NULL, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.TotalRecords, run.ChangedRecords,
		run.ErrorCount, nullString(run.ErrorMessage), string(metadataJSON))
	if err != nil {
		return fmt.Errorf("creating sync run: %w", err)
	}
	return nil
}

// Finalize records the run totals and completion time.
func (s *syncRunStore) Finalize(ctx context.Context, run *domain.SyncRun) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE sync_runs SET
			completed_at = ?,
			total_records = ?,
			changed_records = ?,
			error_count = ?,
			error_message = ?
		WHERE id = ?
	`, run.CompletedAt, run.TotalRecords, run.ChangedRecords,
		run.ErrorCount, nullString(run.ErrorMessage), run.ID)
	if err != nil {
		return fmt.Errorf("finalizing sync run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking finalize result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *syncRunStore) List(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, total_records, changed_records,
		       error_count, error_message, metadata
		FROM sync_runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}

	return runs, nil
}

// ==================== Helper Functions ====================

// nullDate renders a date for storage, NULL when absent.
func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: domain.DateString(t), Valid: true}
}

// nullString maps an empty string to NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseDate parses a stored date column back into a *time.Time.
func parseDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, v.String)
	if err != nil {
		return nil, fmt.Errorf("parsing stored date %q: %w", v.String, err)
	}
	return &t, nil
}

// collectCaseStates scans all rows into the result map.
func collectCaseStates(rows *sql.Rows, found map[string]domain.CaseState) error {
	defer rows.Close()

	for rows.Next() {
		var state domain.CaseState
		var opened, closed, ticketID sql.NullString
		var status, rawJSON string

		if err := rows.Scan(&state.CaseID, &opened, &closed, &status,
			&state.Category, &state.SubCategory, &state.Address, &rawJSON,
			&state.Fingerprint, &ticketID, &state.LastSeenAt, &state.CreatedAt); err != nil {
			return fmt.Errorf("scanning case state: %w", err)
		}

		var err error
		if state.OpenedDate, err = parseDate(opened); err != nil {
			return err
		}
		if state.ClosedDate, err = parseDate(closed); err != nil {
			return err
		}
		state.Status = domain.CaseStatus(status)
		state.TicketID = ticketID.String

		if rawJSON != "" {
			if err := json.Unmarshal([]byte(rawJSON), &state.RawFields); err != nil {
				return fmt.Errorf("unmarshaling raw fields: %w", err)
			}
		}

		found[state.CaseID] = state
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating case states: %w", err)
	}
	return nil
}

// scanSyncRun scans one run row.
func scanSyncRun(rows *sql.Rows) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var completedAt sql.NullTime
	var errorMessage sql.NullString
	var metadataJSON string

	if err := rows.Scan(&run.ID, &run.StartedAt, &completedAt, &run.TotalRecords,
		&run.ChangedRecords, &run.ErrorCount, &errorMessage, &metadataJSON); err != nil {
		return nil, fmt.Errorf("scanning sync run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.ErrorMessage = errorMessage.String

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &run.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &run, nil
}
