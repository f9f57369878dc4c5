package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"anicat/internal/ui"
)

var ongoingCmd = &cobra.Command{
	Use:   "ongoing",
	Short: "Browse currently airing titles",
	Args:  cobra.NoArgs,
	RunE:  ongoingRun,
}

// ongoingRun lists the schedule, or opens the picker when attached to a terminal.
func ongoingRun(cmd *cobra.Command, args []string) error {
	results, err := svc.provider.Ongoing(cmd.Context())
	if err != nil {
		return fmt.Errorf("getting ongoing titles: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No airing titles found.")
		return nil
	}

	if flagJSON || !ui.IsTerminal(os.Stdout) {
		return printResults(cmd.OutOrStdout(), results)
	}
	return pickAndWatch(cmd.Context(), "Ongoing", results)
}
