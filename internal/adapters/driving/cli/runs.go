package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent reconciliation runs",
	RunE:  runRunsCmd,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	if syncRuns == nil {
		return errors.New("run store not configured")
	}
	if runsLimit <= 0 {
		return fmt.Errorf("invalid limit %d", runsLimit)
	}

	runs, err := syncRuns.List(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	for _, run := range runs {
		status := "running"
		duration := ""
		switch {
		case run.ErrorMessage != "":
			status = "failed: " + run.ErrorMessage
		case run.CompletedAt != nil:
			status = "ok"
			duration = fmt.Sprintf(" in %s", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
		}

		cmd.Printf("%s  %s  %d records, %d changed, %d errors  %s%s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), run.ID,
			run.TotalRecords, run.ChangedRecords, run.ErrorCount,
			status, duration)

		if file, ok := run.Metadata["source_file"]; ok {
			cmd.Printf("    source: %s", file)
			if run.Metadata["dry_run"] == "true" {
				cmd.Print(" (dry-run)")
			}
			cmd.Println()
		}
	}

	return nil
}
