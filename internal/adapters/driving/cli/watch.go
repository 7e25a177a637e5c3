package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driving"
	"github.com/aqueducts-ai/corona-case-upsert/internal/intake"
	"github.com/aqueducts-ai/corona-case-upsert/internal/logger"
)

var watchDryRun bool

var watchCmd = &cobra.Command{
	Use:   "watch [drop-dir]",
	Short: "Watch a drop directory for snapshot extracts",
	Long: `Watches a directory and reconciles each snapshot extract dropped
into it. The directory defaults to the configured intake drop_dir.
Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatchCmd,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false,
		"log remote actions without performing them")
	rootCmd.AddCommand(watchCmd)
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	if syncEngine == nil {
		return errors.New("sync service not configured")
	}

	dir := defaultDropDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return errors.New("no drop directory: pass one or set intake.drop_dir in the config")
	}

	dryRun := resolveDryRun(watchDryRun)

	watcher, err := intake.NewWatcher(dir)
	if err != nil {
		return err
	}
	defer watcher.Close()

	paths, err := watcher.Watch(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s. Press Ctrl+C to stop.\n", dir)

	for path := range paths {
		if err := reconcileExtract(cmd, path, dryRun); err != nil {
			// A bad extract must not stop the watch loop.
			logger.Warn("Reconciling %s failed: %v", path, err)
			cmd.PrintErrf("Error reconciling %s: %v\n", filepath.Base(path), err)
		}
	}

	return nil
}

func reconcileExtract(cmd *cobra.Command, path string, dryRun bool) error {
	records, report, err := intake.ParseSnapshotFile(path)
	if err != nil {
		return fmt.Errorf("parsing extract: %w", err)
	}
	if report.Skipped > 0 {
		cmd.Printf("Skipped %d broken row(s) of %d in %s.\n",
			report.Skipped, report.Rows, filepath.Base(path))
	}

	summary, err := syncEngine.Run(cmd.Context(), records, driving.RunOptions{
		DryRun: dryRun,
		Metadata: map[string]string{
			"source_file": filepath.Base(path),
			"dry_run":     strconv.FormatBool(dryRun),
			"trigger":     "watch",
		},
	})
	if err != nil {
		return err
	}

	printSummary(cmd, summary, dryRun)
	return nil
}
