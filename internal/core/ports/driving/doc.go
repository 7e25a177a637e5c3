// Package driving defines the interfaces through which the outside
// world (CLI, drop-directory watcher) drives the core.
package driving
