package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/pfamflow/pfam-int/internal/api"
	"github.com/pfamflow/pfam-int/internal/logging"
	"github.com/pfamflow/pfam-int/internal/notify"
	"github.com/pfamflow/pfam-int/internal/pathutil"
	"github.com/pfamflow/pfam-int/internal/progress"
)

// newResultsCmd creates the 'results' command group.
func newResultsCmd() *cobra.Command {
	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Fetch or view the results of the last analysis",
		Long: `Results of the last completed analysis.

Commands:
  download - Download all_results.zip
  open     - Open the results page in a browser
  url      - Print the results page URL`,
	}

	resultsCmd.AddCommand(newResultsDownloadCmd())
	resultsCmd.AddCommand(newResultsOpenCmd())
	resultsCmd.AddCommand(newResultsURLCmd())

	return resultsCmd
}

func newResultsDownloadCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the results archive",
		Long: `Download all_results.zip (per-sample tables and summary) from the server.

Examples:
  pfam-int results download
  pfam-int results download --outdir ./results`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			logger := GetLogger()
			notifier := notify.NewNotifier(client.GetConfig().NotificationsEnabled, logger)
			_, err = downloadResults(GetContext(), client, outputDir, cmd.OutOrStdout(), notifier, logger)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", ".", "Output directory for the archive")

	return cmd
}

func newResultsOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open the results page in a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			url := cfg.ResultsURL()
			fmt.Fprintf(cmd.OutOrStdout(), "Opening %s\n", url)
			if err := browser.OpenURL(url); err != nil {
				return fmt.Errorf("failed to open browser: %w", err)
			}
			return nil
		},
	}
}

func newResultsURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the results page URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.ResultsURL())
			return nil
		},
	}
}

// downloadResults fetches the results archive into dir with a byte progress bar.
func downloadResults(ctx context.Context, client *api.Client, dir string, out io.Writer, notifier *notify.Notifier, logger *logging.Logger) (string, error) {
	dir, err := pathutil.ResolveOutputDir(dir)
	if err != nil {
		return "", fmt.Errorf("invalid output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	bar := progress.NewDownloadBar(out)
	path, err := client.DownloadAll(ctx, dir, bar.Track)
	bar.Finish()
	if err != nil {
		return "", fmt.Errorf("failed to download results: %w", err)
	}

	logger.Info().Str("path", path).Msg("Results downloaded")
	fmt.Fprintf(out, "✓ Results saved to: %s\n", path)
	notifier.ResultsDownloaded(path)
	return path, nil
}
