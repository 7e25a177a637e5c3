package domain

import "time"

// SyncRun is the persisted audit record of one reconciliation run.
// Created at run start and finalized at run end on every code path,
// success or failure. Never left open.
type SyncRun struct {
	// ID is the unique run identifier.
	ID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// CompletedAt is when the run finished, nil while in flight.
	CompletedAt *time.Time

	// TotalRecords is the deduplicated batch size.
	TotalRecords int

	// ChangedRecords is how many cases carried new information.
	ChangedRecords int

	// ErrorCount is how many per-case errors were tolerated.
	ErrorCount int

	// ErrorMessage records the fatal error for failed runs.
	ErrorMessage string

	// Metadata holds free-form run context (source file, dry-run flag).
	Metadata map[string]string
}
