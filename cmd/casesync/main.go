// Command casesync reconciles code-enforcement case snapshots with the
// remote ticketing system.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aqueducts-ai/corona-case-upsert/internal/adapters/driven/config/file"
	"github.com/aqueducts-ai/corona-case-upsert/internal/adapters/driven/storage/sqlite"
	"github.com/aqueducts-ai/corona-case-upsert/internal/adapters/driven/ticketing"
	"github.com/aqueducts-ai/corona-case-upsert/internal/adapters/driving/cli"
	"github.com/aqueducts-ai/corona-case-upsert/internal/core/services"
	"github.com/aqueducts-ai/corona-case-upsert/internal/logger"
)

// version is stamped at build time via
// -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)

	var store *sqlite.Store
	cli.SetInit(func() error {
		s, err := buildServices()
		if err != nil {
			return err
		}
		store = s
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.ExecuteContext(ctx)
	if store != nil {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("Closing store: %v", closeErr)
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

// buildServices loads the config and assembles the real adapters.
// Runs lazily after flag parsing so --config takes effect.
func buildServices() (*sqlite.Store, error) {
	path := cli.ConfigPath()
	if path == "" {
		var err error
		path, err = file.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
	}

	cfg, err := file.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	client := ticketing.NewClient(ticketing.ClientConfig{
		BaseURL:     cfg.Remote.BaseURL,
		Token:       cfg.Remote.Token,
		MinInterval: cfg.Remote.MinInterval(),
		Timeout:     cfg.Remote.Timeout(),
	})
	tickets := ticketing.NewStore(client)

	// One capability per process: a "method not allowed" on search
	// disables it for every later run in this process.
	capability := services.NewSearchCapability()
	resolver := services.NewResolver(tickets, capability)
	engine := services.NewEngine(
		store.CaseStateStore(), store.SyncRunStore(), tickets, resolver)

	cli.Configure(cli.Wiring{
		Engine:           engine,
		CaseStates:       store.CaseStateStore(),
		SyncRuns:         store.SyncRunStore(),
		RemoteConfigured: cfg.Remote.Token != "",
		DefaultDryRun:    cfg.Sync.DryRun,
		DropDir:          cfg.Intake.DropDir,
	})

	return store, nil
}
