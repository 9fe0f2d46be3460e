package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pfamflow/pfam-int/internal/alert"
	"github.com/pfamflow/pfam-int/internal/api"
	"github.com/pfamflow/pfam-int/internal/core"
	"github.com/pfamflow/pfam-int/internal/events"
	"github.com/pfamflow/pfam-int/internal/logging"
	"github.com/pfamflow/pfam-int/internal/notify"
	"github.com/pfamflow/pfam-int/internal/progress"
	"github.com/pfamflow/pfam-int/internal/schedule"
)

// ErrAnalysisFailed is returned when the server reports a failed job or
// monitoring is lost.
var ErrAnalysisFailed = errors.New("analysis failed")

type analyzeOptions struct {
	open        bool
	downloadDir string
	noWait      bool
}

// newAnalyzeCmd creates the 'analyze' command.
func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [file...]",
		Short: "Start the analysis and follow it to completion",
		Long: `Start the PFAM analysis on the files already uploaded and show its progress.

Files given as arguments are validated and uploaded first.

The server is polled every second. The command returns once the job
completes or fails; Ctrl+C stops monitoring (the server job keeps running).

Examples:
  pfam-int analyze
  pfam-int analyze sample1.fna sample2.fna --download ./results
  pfam-int analyze --open
  pfam-int analyze --no-wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			ctx := GetContext()
			logger := GetLogger()

			if len(args) > 0 {
				result, err := executeUpload(ctx, args, client, logger, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", result.Message)
			}

			if opts.noWait {
				return startOnly(ctx, client, cmd.OutOrStdout())
			}
			return runAnalysis(ctx, client, opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
		},
	}

	cmd.Flags().BoolVar(&opts.open, "open", false, "Open the results page in a browser when the analysis completes")
	cmd.Flags().StringVarP(&opts.downloadDir, "download", "d", "", "Download all_results.zip into this directory when the analysis completes")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Start the analysis and return without monitoring it")
	cmd.MarkFlagsMutuallyExclusive("no-wait", "download")
	cmd.MarkFlagsMutuallyExclusive("no-wait", "open")

	return cmd
}

// startOnly issues the start request without monitoring.
func startOnly(ctx context.Context, client *api.Client, out io.Writer) error {
	resp, err := client.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start analysis: %w", err)
	}
	if resp.Rejected() {
		return api.RejectionError(resp)
	}
	fmt.Fprintf(out, "✓ %s\n", resp.Message)
	fmt.Fprintln(out, "Check progress with: pfam-int status")
	return nil
}

// runAnalysis drives one session through the controller and blocks until it
// settles. Cancelling ctx ends monitoring.
func runAnalysis(ctx context.Context, client *api.Client, opts analyzeOptions, out, errOut io.Writer, logger *logging.Logger) error {
	cfg := client.GetConfig()

	notifier := notify.NewNotifier(cfg.NotificationsEnabled, logger)
	logger.Debug().Str("server", cfg.BaseURL).Bool("notifications", notifier.Enabled()).Msg("Starting analysis session")
	sched := schedule.NewReal()
	board := alert.NewBoard(errOut, sched, notifier)

	bus := events.NewEventBus(0)
	defer func() {
		if n := bus.DroppedEvents(); n > 0 {
			logger.Debug().Int64("dropped", n).Msg("Event bus dropped deliveries")
		}
		bus.Close()
	}()
	completed := bus.Subscribe(events.EventComplete)

	nav := newResultsNavigator(out, cfg.ResultsURL(), opts.open, logger)
	ctl := core.NewController(client,
		&terminalSink{Terminal: progress.NewTerminal(out, logger), board: board},
		newStatusLine(errOut, logger),
		nav,
		core.Options{
			PollInterval:    cfg.Analysis.PollInterval,
			SuccessDelay:    cfg.Analysis.SuccessDelay,
			FailureDelay:    cfg.Analysis.FailureDelay,
			MaxPollDuration: cfg.Analysis.MaxPollDuration,
			Scheduler:       sched,
			Logger:          logger,
			Events:          bus,
		})

	if err := ctl.Submit(ctx); err != nil {
		return err
	}

	if err := ctl.Wait(ctx); err != nil {
		ctl.Cancel()
		return fmt.Errorf("monitoring stopped: %w", err)
	}

	var outcome *events.CompleteEvent
	select {
	case ev := <-completed:
		outcome, _ = ev.(*events.CompleteEvent)
	default:
	}
	if outcome == nil {
		// Settled without an end state: the session was cancelled.
		return context.Canceled
	}
	if !outcome.Success {
		notifier.Beep()
		return fmt.Errorf("%w: %s", ErrAnalysisFailed, outcome.Message)
	}

	logger.Info().Dur("duration", outcome.Duration).Msg("Analysis complete")
	notifier.AnalysisComplete()

	if opts.downloadDir != "" {
		if _, err := downloadResults(ctx, client, opts.downloadDir, out, notifier, logger); err != nil {
			return err
		}
	}
	return nil
}
