package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newClearCmd creates the 'clear' command.
func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete uploaded files and results on the server",
		Long: `Remove every uploaded file and all analysis output from the server.

Asks for confirmation unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				p := newPrompter(cmd.InOrStdin(), out)
				if !p.YesNo("Delete all uploaded files and results?", false) {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			client, err := getAPIClient()
			if err != nil {
				return err
			}
			if err := client.ClearData(GetContext()); err != nil {
				return fmt.Errorf("failed to clear data: %w", err)
			}

			GetLogger().Info().Msg("Server data cleared")
			fmt.Fprintln(out, "✓ All data cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
