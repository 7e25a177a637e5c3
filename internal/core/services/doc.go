// Package services implements the reconciliation core: change
// detection against stored case state, remote ticket resolution,
// field diffing and the run orchestrator.
package services
