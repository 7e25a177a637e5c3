package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/ports/driving"
	"github.com/aqueducts-ai/corona-case-upsert/internal/intake"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync <extract.csv>",
	Short: "Reconcile one snapshot extract",
	Long: `Parses a snapshot extract and runs one reconciliation pass: local
case state is updated and changed cases are pushed to the remote
ticketing system. With --dry-run, remote actions are logged but not
performed; local state is still persisted.`,
	Args: cobra.ExactArgs(1),
	RunE: runSyncCmd,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false,
		"log remote actions without performing them")
	rootCmd.AddCommand(syncCmd)
}

func runSyncCmd(cmd *cobra.Command, args []string) error {
	if syncEngine == nil {
		return errors.New("sync service not configured")
	}

	path := args[0]
	records, report, err := intake.ParseSnapshotFile(path)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if report.Skipped > 0 {
		cmd.Printf("Skipped %d broken row(s) of %d.\n", report.Skipped, report.Rows)
	}

	dryRun := resolveDryRun(syncDryRun)

	cmd.Printf("Reconciling %d record(s) from %s...\n", len(records), filepath.Base(path))

	summary, err := syncEngine.Run(cmd.Context(), records, driving.RunOptions{
		DryRun: dryRun,
		Metadata: map[string]string{
			"source_file": filepath.Base(path),
			"dry_run":     strconv.FormatBool(dryRun),
		},
	})
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	printSummary(cmd, summary, dryRun)
	return nil
}

func printSummary(cmd *cobra.Command, s *driving.RunSummary, dryRun bool) {
	cmd.Printf("Run %s complete: %d total, %d changed, %d updated, %d not found, %d already current",
		s.RunID, s.Total, s.Changed, s.Updated, s.NotFound, s.AlreadyCurrent)
	if dryRun {
		cmd.Printf(", %d skipped (dry-run)", s.Skipped)
	}
	if s.Rejected > 0 {
		cmd.Printf(", %d rejected", s.Rejected)
	}
	if s.Errors > 0 {
		cmd.Printf(", %d error(s)", s.Errors)
	}
	cmd.Println()
}
