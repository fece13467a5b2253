package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pulsefeed"
	"github.com/jpalmerr/pulsefeed/example/mockapi"
	"github.com/jpalmerr/pulsefeed/feeds"
)

func main() {
	// start the mock feed API
	api := mockapi.New(mockapi.Options{FailRate: 0.2, MaxLatency: 300 * time.Millisecond})
	go func() {
		if err := http.ListenAndServe(":9999", api.Handler()); err != nil {
			slog.Error("mock server error", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	var sources []pulsefeed.Source
	for _, f := range []struct{ name, path, kind string }{
		{"Platform Stats", "/api/stats/platform", feeds.KindPlatformStats},
		{"Team", "/api/team", feeds.KindTeam},
		{"Testimonials", "/api/testimonials", feeds.KindTestimonials},
	} {
		// each bundled kind brings its own cadence
		c, _ := feeds.Defaults(f.kind)
		src, err := pulsefeed.NewSource(f.name, "http://localhost:9999"+f.path,
			pulsefeed.WithKind(f.kind),
			pulsefeed.WithRefreshInterval(c.RefreshInterval),
			pulsefeed.WithMaxRetries(c.MaxRetries),
			pulsefeed.WithRetryDelay(c.RetryDelay),
		)
		if err != nil {
			slog.Error("failed to create source", "error", err)
			os.Exit(1)
		}
		sources = append(sources, src)
	}

	hub, err := pulsefeed.New(
		pulsefeed.WithSources(sources...),
		pulsefeed.WithPort(8080),
		pulsefeed.WithTitle("Pulsefeed Demo"),
		pulsefeed.WithPauseWithoutViewers(true),
		pulsefeed.WithStateCallback(func(fs pulsefeed.FeedState) {
			if fs.Health == feeds.HealthOutage && !fs.State.Loading {
				slog.Warn("feed unavailable", "feed", fs.Source.Name(), "error", fs.State.Error)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create hub", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Pulsefeed Demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Feeds: platform stats, team, testimonials           ║")
	fmt.Println("  ║   20% of upstream requests fail, so watch retries     ║")
	fmt.Println("  ║   Polling pauses while no browser tab is open         ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := hub.Start(ctx); err != nil {
		slog.Error("pulsefeed error", "error", err)
		os.Exit(1)
	}
}
