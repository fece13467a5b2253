package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsefeed"
	"github.com/jpalmerr/pulsefeed/config"
	"github.com/jpalmerr/pulsefeed/feeds"
)

// watchCmd polls a single feed and prints each state change.
var watchCmd = &cobra.Command{
	Use:   "watch <feed name>",
	Short: "Poll one feed and print its state changes",
	Long: `Poll one configured feed without starting the dashboard, printing a
line for every state change until interrupted.

Example:
  pulsefeed watch -c config.yaml "Platform Stats"
  pulsefeed watch -c config.yaml "Platform Stats" --data`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	watchCmd.Flags().Bool("data", false, "print the payload after each successful fetch")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd, os.Stderr)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	sources, err := config.BuildSources(cfg)
	if err != nil {
		return fmt.Errorf("failed to build sources: %w", err)
	}

	src, ok := findSource(sources, args[0])
	if !ok {
		return fmt.Errorf("no feed named %q", args[0])
	}

	showData, _ := cmd.Flags().GetBool("data")
	out := cmd.OutOrStdout()

	p, err := pulsefeed.NewPoller[json.RawMessage](src,
		pulsefeed.WithPollerLogger[json.RawMessage](logger),
		pulsefeed.WithEnvironment[json.RawMessage](pulsefeed.StaticEnvironment{Narrow: cfg.NarrowViewport}),
		pulsefeed.WithObserver(func(s pulsefeed.State[json.RawMessage]) {
			printState(out, s, showData)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
	<-p.Done()
	return nil
}

func findSource(sources []pulsefeed.Source, name string) (pulsefeed.Source, bool) {
	for _, src := range sources {
		if src.Name() == name {
			return src, true
		}
	}
	return pulsefeed.Source{}, false
}

// printState writes one line per state change.
func printState(w io.Writer, s pulsefeed.State[json.RawMessage], showData bool) {
	updated := "never"
	if !s.LastUpdated.IsZero() {
		updated = feeds.TimeAgo(s.LastUpdated, time.Now())
	}

	line := fmt.Sprintf("v%-4d %-16s health=%-8s updated=%s", s.Version, s.Phase,
		feeds.Health(s.HasData, s.Error), updated)
	switch {
	case s.Loading:
		line += " loading"
	case s.IsUpdating:
		line += " updating"
	}
	if s.IsStale {
		line += " stale"
	}
	if s.RetryCount > 0 {
		line += fmt.Sprintf(" retry=%d", s.RetryCount)
	}
	if s.HasError() {
		line += fmt.Sprintf(" error=%q", s.Error)
	}
	fmt.Fprintln(w, line)

	if showData && s.HasData && !s.Loading && !s.IsUpdating && !s.HasError() {
		fmt.Fprintf(w, "      %s\n", s.Data)
	}
}
