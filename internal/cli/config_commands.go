// Package cli provides configuration management commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfamflow/pfam-int/internal/api"
	"github.com/pfamflow/pfam-int/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pfam-int configuration",
		Long: `Configuration management commands for pfam-int.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test server connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// configPath resolves --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for pfam-int.

The configuration will be saved to ~/.config/pfam-int/config

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := runConfigWizard(newPrompter(cmd.InOrStdin(), out), out)
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Configuration saved to: %s\n", path)
			fmt.Fprintln(out, "Test your configuration with: pfam-int config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// runConfigWizard collects a configuration from p, starting from defaults.
func runConfigWizard(p *prompter, out io.Writer) (*config.Config, error) {
	cfg := config.NewConfig()

	fmt.Fprintln(out, "pfam-int Configuration Setup")
	fmt.Fprintln(out, "============================")
	fmt.Fprintln(out)

	cfg.BaseURL = strings.TrimSuffix(p.String("Server URL", cfg.BaseURL), "/")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Analysis Settings (press Enter for defaults)")
	fmt.Fprintln(out, "--------------------------------------------")
	cfg.Analysis.PollInterval = time.Duration(p.Int("Poll interval (ms)", int(cfg.Analysis.PollInterval/time.Millisecond))) * time.Millisecond
	cfg.Upload.MaxRetries = p.Int("Upload retries", cfg.Upload.MaxRetries)
	cfg.NotificationsEnabled = p.YesNo("Desktop notifications on failure?", false)

	fmt.Fprintln(out)
	if p.YesNo("Configure proxy?", false) {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Proxy Configuration")
		fmt.Fprintln(out, "-------------------")
		fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
		cfg.ProxyMode = p.String("Proxy mode", "system")
		if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
			cfg.ProxyHost = p.String("Proxy host", "")
			cfg.ProxyPort = p.Int("Proxy port", cfg.ProxyPort)
			cfg.ProxyUser = p.String("Proxy user", "")
			cfg.ProxyPassword = p.String("Proxy password", "")
			cfg.NoProxy = p.String("Bypass hosts (comma-separated)", "")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/pfam-int/config)
  2. Environment variable PFAM_INT_URL
  3. Command-line flag --url

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	}

	return cmd
}

func printConfig(out io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Server:")
	fmt.Fprintf(out, "  Base URL: %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "  Timeout:  %s\n", cfg.Timeout)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Analysis:")
	fmt.Fprintf(out, "  Poll Interval: %s\n", cfg.Analysis.PollInterval)
	fmt.Fprintf(out, "  Success Delay: %s\n", cfg.Analysis.SuccessDelay)
	fmt.Fprintf(out, "  Failure Delay: %s\n", cfg.Analysis.FailureDelay)
	if cfg.Analysis.MaxPollDuration > 0 {
		fmt.Fprintf(out, "  Max Poll:      %s\n", cfg.Analysis.MaxPollDuration)
	} else {
		fmt.Fprintln(out, "  Max Poll:      unlimited")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Upload:")
	fmt.Fprintf(out, "  Max File Size: %d MB\n", cfg.Upload.MaxFileSize/(1024*1024))
	fmt.Fprintf(out, "  Extensions:    %s\n", strings.Join(cfg.Upload.AllowedExtensions, ", "))
	fmt.Fprintf(out, "  Max Retries:   %d\n", cfg.Upload.MaxRetries)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Proxy Settings:")
	fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	if cfg.ProxyPassword != "" {
		fmt.Fprintln(out, "  Password:   <set>")
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Notifications: %t\n", cfg.NotificationsEnabled)
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "  (file does not exist - using defaults)")
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test server connection",
		Long: `Test the connection to the analysis server with current configuration.

Issues a single status request and reports what the server is doing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			client, err := getAPIClient()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Server URL: %s\n", client.GetConfig().BaseURL)
			fmt.Fprintln(out, "Testing connection...")
			fmt.Fprintln(out)

			ctx, cancel := context.WithTimeout(GetContext(), 10*time.Second)
			defer cancel()

			snap, err := client.Status(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				var te *api.TransportError
				if errors.As(err, &te) {
					fmt.Fprintf(out, "  Class: %s\n", te.Class())
				}
				return fmt.Errorf("connection test failed")
			}

			logger.Info().Msg("Connection test successful")
			fmt.Fprintln(out, "✓ Connection SUCCESSFUL")
			fmt.Fprintln(out)
			printSnapshot(out, *snap)
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, err := configPath()
			if err != nil {
				return err
			}
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(out, "  %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist)")
			} else {
				fmt.Fprintln(out, "  (file exists)")
			}
			return nil
		},
	}

	return cmd
}
