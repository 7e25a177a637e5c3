// Package domain contains the core business types for case
// synchronisation: incoming case records, persisted case state,
// remote tickets and sync run summaries.
//
// Types here are pure data with derivation rules (status, content
// fingerprint) and carry no storage or transport concerns.
package domain
