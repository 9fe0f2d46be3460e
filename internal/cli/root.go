// Package cli provides the command-line interface for pfam-int.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pfamflow/pfam-int/internal/logging"
	"github.com/pfamflow/pfam-int/internal/version"
)

var (
	// Global flags
	cfgFile   string
	serverURL string
	verbose   bool
	debug     bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pfam-int",
		Short: "pfam-int - client for the PFAM domain analysis server",
		Long: `pfam-int ` + version.Version + ` - Built: ` + version.BuildTime + `
Upload nucleotide FASTA files to a PFAM analysis server, start the
four-step pipeline and follow it to completion.

  1. Translation
  2. Database Search (hmmscan against Pfam-A)
  3. Processing Results
  4. Counting Hits

Typical session:
  pfam-int upload sample1.fna sample2.fna
  pfam-int analyze --download ./results`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "Analysis server base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newCompletionCmd(rootCmd))
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// completionShells maps each supported shell to its script generator and a
// one-line install hint.
var completionShells = []struct {
	name string
	hint string
	gen  func(root *cobra.Command, w io.Writer) error
}{
	{"bash", "source <(pfam-int completion bash)", func(r *cobra.Command, w io.Writer) error { return r.GenBashCompletion(w) }},
	{"zsh", "pfam-int completion zsh > ~/.zsh/completions/_pfam-int", func(r *cobra.Command, w io.Writer) error { return r.GenZshCompletion(w) }},
	{"fish", "pfam-int completion fish > ~/.config/fish/completions/pfam-int.fish", func(r *cobra.Command, w io.Writer) error { return r.GenFishCompletion(w, true) }},
	{"powershell", "pfam-int completion powershell >> $PROFILE", func(r *cobra.Command, w io.Writer) error { return r.GenPowerShellCompletion(w) }},
}

func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
	}
	for _, sh := range completionShells {
		sh := sh
		completionCmd.AddCommand(&cobra.Command{
			Use:   sh.name,
			Short: "Generate " + sh.name + " completion script",
			Long:  "Generate the autocompletion script for " + sh.name + ".\n\n  " + sh.hint,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return sh.gen(rootCmd, cmd.OutOrStdout())
			},
		})
	}
	return completionCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Drain every signal so a second Ctrl+C never blocks.
	go func() {
		for sig := range sigChan {
			fmt.Fprintf(os.Stderr, "\nReceived %v, stopping...\n", sig)
			cancelFunc()
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newResultsCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
