package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
)

var casesCmd = &cobra.Command{
	Use:   "cases <case-id>",
	Short: "Show the stored state of one case",
	Args:  cobra.ExactArgs(1),
	RunE:  runCasesCmd,
}

func init() {
	rootCmd.AddCommand(casesCmd)
}

func runCasesCmd(cmd *cobra.Command, args []string) error {
	if caseStates == nil {
		return errors.New("state store not configured")
	}

	caseID := args[0]
	if !domain.ValidateCaseID(caseID) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCaseID, caseID)
	}

	states, err := caseStates.LoadStates(cmd.Context(), []string{caseID})
	if err != nil {
		return fmt.Errorf("loading case: %w", err)
	}
	state, ok := states[caseID]
	if !ok {
		return fmt.Errorf("%w: case %s", domain.ErrNotFound, caseID)
	}

	cmd.Printf("Case:        %s\n", state.CaseID)
	cmd.Printf("Status:      %s\n", state.Status)
	cmd.Printf("Opened:      %s\n", orDash(domain.DateString(state.OpenedDate)))
	cmd.Printf("Closed:      %s\n", orDash(domain.DateString(state.ClosedDate)))
	cmd.Printf("Category:    %s\n", orDash(state.Category))
	cmd.Printf("SubCategory: %s\n", orDash(state.SubCategory))
	cmd.Printf("Address:     %s\n", orDash(state.Address))
	cmd.Printf("Ticket:      %s\n", orDash(state.TicketID))
	cmd.Printf("Fingerprint: %s\n", state.Fingerprint)
	cmd.Printf("Last seen:   %s\n", state.LastSeenAt.Format("2006-01-02 15:04:05"))

	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
