package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCaseID indicates a case number that fails structural
	// validation. Such records are rejected before the pipeline.
	ErrInvalidCaseID = errors.New("invalid case id")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTicketSearchUnsupported indicates the remote deployment
	// structurally lacks the search capability. Search is disabled
	// for the process lifetime when this is seen.
	ErrTicketSearchUnsupported = errors.New("ticket search unsupported")

	// ErrStoreClosed indicates the state store has been closed.
	ErrStoreClosed = errors.New("store closed")

	// ErrRunInProgress indicates a reconciliation run is already running.
	ErrRunInProgress = errors.New("run in progress")
)
