// Standalone mock feed API for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/pulsefeed serve -c example/config.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jpalmerr/pulsefeed/example/mockapi"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	failRate := flag.Float64("fail-rate", 0.2, "share of requests answered with 503")
	flag.Parse()

	fmt.Printf("Mock feed API starting on %s\n", *addr)
	fmt.Println("  GET  /api/stats/platform")
	fmt.Println("  GET  /api/team")
	fmt.Println("  GET  /api/testimonials")
	fmt.Println("  POST /api/outage?down=true|false")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	api := mockapi.New(mockapi.Options{
		FailRate:   *failRate,
		MaxLatency: 300 * time.Millisecond,
	})

	if err := http.ListenAndServe(*addr, api.Handler()); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
