// Package driven defines the interfaces the core depends on:
// durable case state, run audit records and the remote ticket store.
// Adapters under internal/adapters/driven implement them.
package driven
