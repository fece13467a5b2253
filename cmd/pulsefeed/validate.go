package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsefeed/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a Pulsefeed configuration file without starting the server.

This command parses the YAML, expands environment variables, validates
all fields and builds every source. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pulsefeed validate -c config.yaml
  pulsefeed validate --config /etc/pulsefeed/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// building catches template keys and URLs only known after expansion
	sources, err := config.BuildSources(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	direct := len(cfg.Feeds)
	fromGrids := len(sources) - direct

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:          %d\n", cfg.Port)
	fmt.Printf("  Feeds:         %d direct + %d from grids = %d total\n",
		direct, fromGrids, len(sources))
	for _, src := range sources {
		kind := src.Kind()
		if kind == "" {
			kind = "raw"
		}
		state := "every " + src.RefreshInterval().String()
		if !src.Enabled() {
			state = "disabled"
		}
		fmt.Printf("    - %s [%s] %s, %d retries\n", src.Name(), kind, state, src.MaxRetries())
	}

	return nil
}
