// Package main is the entry point for the pulsefeed CLI.
//
// Pulsefeed can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	pulsefeed serve -c config.yaml         # Start the dashboard
//	pulsefeed validate -c config.yaml      # Validate configuration
//	pulsefeed watch -c config.yaml "Team"  # Print one feed's states
//	pulsefeed version                      # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "pulsefeed",
	Short: "A live dashboard for polled JSON feeds",
	Long: `Pulsefeed keeps cached views of remote JSON resources fresh.

It polls each feed on its own interval, retries failures with linear
backoff, flags stale data, and serves everything on a web dashboard
with Server-Sent Events for live updates.

Quick start:
  1. Create a config file (pulsefeed.yaml)
  2. Run: pulsefeed serve -c pulsefeed.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  feeds:
    - name: Platform Stats
      url: https://api.example.com/api/stats/platform
      kind: platform_stats`,
	PersistentPreRunE: loadEnvFile,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the config (ignored if missing)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format: json or text")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(versionCmd)
}

// loadEnvFile makes .env values visible to ${VAR} expansion in the config.
// Variables already set in the environment win.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pulsefeed binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulsefeed %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}
