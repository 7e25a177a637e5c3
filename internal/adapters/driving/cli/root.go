// Package cli implements the casesync command-line interface.
package cli

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driven"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driving"
	"github.com/aqueducts-ai/corona-case-upsert/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by the binary before Execute. Package-level so
// tests can swap in mocks; commands nil-check the services they use.
var (
	syncEngine driving.SyncEngine
	caseStates driven.CaseStateStore
	syncRuns   driven.SyncRunStore

	// remoteConfigured reports whether an API token is present.
	// Without one, sync runs are forced into dry-run.
	remoteConfigured bool

	// defaultDryRun is the configured sync.dry_run value.
	defaultDryRun bool

	// defaultDropDir is the configured intake drop directory.
	defaultDropDir string
)

var (
	verbose    bool
	configPath string

	// initServices builds the real services once flags are parsed,
	// so --config takes effect before anything opens the store.
	initServices func() error
	initOnce     sync.Once
)

var rootCmd = &cobra.Command{
	Use:   "casesync",
	Short: "Reconcile code-enforcement case snapshots with the ticketing system",
	Long: `casesync ingests snapshot extracts of code-enforcement case records,
tracks their state locally and pushes date and status changes to the
remote ticketing system. Runs are idempotent: re-processing the same
extract issues no remote writes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		var err error
		if initServices != nil {
			initOnce.Do(func() { err = initServices() })
		}
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config file (default ~/.casesync/config.toml)")
}

// Wiring carries the services the binary assembles for the CLI.
type Wiring struct {
	Engine           driving.SyncEngine
	CaseStates       driven.CaseStateStore
	SyncRuns         driven.SyncRunStore
	RemoteConfigured bool
	DefaultDryRun    bool
	DropDir          string
}

// Configure injects the assembled services.
func Configure(w Wiring) {
	syncEngine = w.Engine
	caseStates = w.CaseStates
	syncRuns = w.SyncRuns
	remoteConfigured = w.RemoteConfigured
	defaultDryRun = w.DefaultDryRun
	defaultDropDir = w.DropDir
}

// resolveDryRun combines the flag, the configured default and the
// token presence. No token always means dry-run.
func resolveDryRun(flag bool) bool {
	dryRun := flag || defaultDryRun
	if !dryRun && !remoteConfigured {
		logger.Warn("No remote token configured; forcing dry-run")
		dryRun = true
	}
	return dryRun
}

// SetInit registers the lazy service builder. It runs once, after
// flag parsing and before the first command.
func SetInit(fn func() error) {
	initServices = fn
}

// ConfigPath returns the --config flag value after flag parsing.
func ConfigPath() string {
	return configPath
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command under ctx. Cancellation stops
// watch loops and in-flight remote calls.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
