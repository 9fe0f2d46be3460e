package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pfamflow/pfam-int/internal/models"
	"github.com/pfamflow/pfam-int/internal/progress"
)

// newStatusCmd creates the 'status' command.
func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current analysis status once",
		Long: `Query the server once and print the current pipeline step and progress.

Use 'pfam-int analyze' to follow a job until it finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			snap, err := client.Status(GetContext())
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printSnapshot(out, *snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status report as JSON")

	return cmd
}

// snapshotState summarises a snapshot in one word.
func snapshotState(snap models.JobSnapshot) string {
	switch {
	case snap.Running:
		return "running"
	case snap.Failed():
		return "failed"
	case snap.CurrentStep == models.StepComplete || snap.Progress >= 100:
		return "complete"
	default:
		return "idle"
	}
}

// printSnapshot renders a one-off status report.
func printSnapshot(out io.Writer, snap models.JobSnapshot) {
	v := progress.Render(snap)
	fmt.Fprintf(out, "State:    %s\n", snapshotState(snap))
	if v.Label != "" {
		fmt.Fprintf(out, "Step:     %s\n", v.Label)
	}
	fmt.Fprintf(out, "Progress: %d%%\n", v.Percent)
	if v.Message != "" {
		fmt.Fprintf(out, "Message:  %s\n", v.Message)
	}
	if snap.Failed() {
		fmt.Fprintf(out, "Error:    %s\n", snap.ErrorText())
	}
}
