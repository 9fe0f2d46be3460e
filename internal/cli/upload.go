package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Validate and upload FASTA files to the analysis server",
		Long: `Upload nucleotide FASTA files to the analysis server.

The whole batch is checked before anything is sent:
  - at least one file
  - extension .fna, .fa or .fasta (see [upload] allowed_extensions)
  - no file over the size limit (default 100 MB)
  - no empty files

The first violation stops the upload.

Examples:
  pfam-int upload sample1.fna sample2.fna
  pfam-int upload "data/*.fasta"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			result, err := executeUpload(GetContext(), args, client, GetLogger(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", result.Message)
			fmt.Fprintln(cmd.OutOrStdout(), "Start the analysis with: pfam-int analyze")
			return nil
		},
	}

	return cmd
}
