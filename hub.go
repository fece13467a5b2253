package pulsefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/pulsefeed/dashboard"
	"github.com/jpalmerr/pulsefeed/feeds"
	"github.com/jpalmerr/pulsefeed/internal/metrics"
	"github.com/jpalmerr/pulsefeed/internal/poller"
	"github.com/jpalmerr/pulsefeed/internal/server"
	"github.com/jpalmerr/pulsefeed/internal/store"
)

const (
	defaultPort           = 8080
	defaultMaxConcurrency = 10
	defaultRefetchRate    = rate.Limit(1)
	defaultRefetchBurst   = 3
)

// ErrUnknownFeed is returned by [Hub.Refetch] for a name no source has.
var ErrUnknownFeed = errors.New("unknown feed")

// FeedState is the state of one hub feed as passed to state callbacks.
type FeedState struct {
	Source Source
	State  State[json.RawMessage]

	// Health is "ok", "degraded" or "outage".
	Health string
}

// Hub polls many sources and serves their state on a dashboard.
//
// Each source gets its own [Poller] over raw JSON. Every state change is
// rendered for the source's kind, written to the dashboard store and passed
// to state callbacks. The hub is created using [New] and started with
// [Hub.Start]:
//
//	hub, err := pulsefeed.New(pulsefeed.WithSources(sources...))
//	if err != nil {
//	    slog.Error("failed to create hub", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	hub.Start(ctx) // blocks until context cancelled
type Hub struct {
	title               string
	sources             []Source
	port                int
	maxConcurrency      int
	narrow              bool
	pauseWithoutViewers bool
	refetchRate         rate.Limit
	refetchBurst        int
	logger              *slog.Logger
	stateCallbacks      []func(FeedState)

	pollers map[string]*Poller[json.RawMessage]
	store   store.Store
	ready   chan struct{}
}

// New creates a new [Hub] with the given options.
//
// At least one source must be configured via [WithSource] or [WithSources].
// Other options have sensible defaults:
//   - Port: 8080
//   - Max concurrency: 10
//   - Manual refetch rate: 1 per second per feed, burst 3
//
// Returns an error if no sources are configured, if two sources share a
// name, or if any option is invalid.
func New(opts ...Option) (*Hub, error) {
	cfg := &hubConfig{
		port:           defaultPort,
		maxConcurrency: defaultMaxConcurrency,
		refetchRate:    defaultRefetchRate,
		refetchBurst:   defaultRefetchBurst,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.sources) == 0 {
		return nil, errors.New("at least one source is required")
	}

	// names key the store and the refetch endpoint
	seen := make(map[string]bool, len(cfg.sources))
	for _, src := range cfg.sources {
		if seen[src.name] {
			return nil, fmt.Errorf("duplicate source name: %q", src.name)
		}
		seen[src.name] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		title:               cfg.title,
		sources:             cfg.sources,
		port:                cfg.port,
		maxConcurrency:      cfg.maxConcurrency,
		narrow:              cfg.narrow,
		pauseWithoutViewers: cfg.pauseWithoutViewers,
		refetchRate:         cfg.refetchRate,
		refetchBurst:        cfg.refetchBurst,
		logger:              logger,
		stateCallbacks:      cfg.stateCallbacks,
		ready:               make(chan struct{}),
	}, nil
}

// Start begins polling every source and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - Every enabled source is fetched immediately, then at its own interval
//   - The HTTP server starts on the configured port
//   - The dashboard is available at http://localhost:<port>
//   - Prometheus metrics are served at /metrics
//
// Returns nil on graceful shutdown. Returns an error if a poller cannot be
// built or the HTTP server fails to start. Start must be called at most once.
func (h *Hub) Start(ctx context.Context) error {
	h.logger.Info("pulsefeed starting", "source_count", len(h.sources))
	h.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", h.port))

	if ctx.Err() != nil {
		return nil
	}

	st := store.NewMemoryStore()
	m := metrics.New()
	client := poller.NewClient()
	defer client.Close()
	limiter := poller.NewLimiter(h.maxConcurrency)

	var env Environment = StaticEnvironment{Narrow: h.narrow}
	var viewers *ManualEnvironment
	if h.pauseWithoutViewers {
		viewers = NewManualEnvironment(h.narrow)
		viewers.SetHidden(true)
		env = viewers
	}
	st.OnSubscribersChanged(func(n int) {
		m.SetViewers(n)
		if viewers != nil {
			viewers.SetHidden(n == 0)
		}
	})

	pollers := make(map[string]*Poller[json.RawMessage], len(h.sources))
	for _, src := range h.sources {
		p, err := NewPoller(src,
			WithEnvironment[json.RawMessage](env),
			WithPollerLogger[json.RawMessage](h.logger),
			WithObserver(h.observer(src, st, m)),
			withTransport(client, limiter, metricsProbes(src.name, m)),
		)
		if err != nil {
			return fmt.Errorf("create poller for %q: %w", src.name, err)
		}
		pollers[src.name] = p
	}
	h.pollers = pollers
	h.store = st
	close(h.ready)

	for _, p := range pollers {
		p.Start(ctx)
	}

	stopAll := func() {
		for _, p := range pollers {
			p.Stop()
		}
		for _, p := range pollers {
			<-p.Done()
		}
	}

	srv := server.NewServer(st, h.port, dashboard.Assets, h.title, h.logger,
		server.WithRefetcher(h, h.refetchRate, h.refetchBurst),
		server.WithMetricsHandler(m.Handler()),
	)
	if err := srv.Start(ctx); err != nil {
		stopAll()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	stopAll()
	h.logger.Info("pulsefeed stopped")
	return nil
}

// Refetch triggers an immediate fetch of the named feed and waits for it to
// resolve. It returns [ErrUnknownFeed] for a name no source has, and
// [ErrStopped] before [Hub.Start] has built the pollers or after shutdown.
func (h *Hub) Refetch(ctx context.Context, name string) error {
	select {
	case <-h.ready:
	default:
		return ErrStopped
	}
	p, ok := h.pollers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFeed, name)
	}
	if err := p.Refetch(ctx); err != nil {
		return err
	}
	// observers run behind the loop; publish now so callers read the result
	h.store.Update(snapshotOf(p.Source(), p.State(), time.Now(), h.logger))
	return nil
}

// Sources returns a copy of the configured sources.
func (h *Hub) Sources() []Source {
	cp := make([]Source, len(h.sources))
	copy(cp, h.sources)
	return cp
}

// Port returns the configured HTTP port for the dashboard server.
func (h *Hub) Port() int {
	return h.port
}

// observer publishes one source's state changes.
func (h *Hub) observer(src Source, st store.Store, m *metrics.Metrics) func(State[json.RawMessage]) {
	logger := h.logger.With("feed", src.name)
	var lastErr string

	return func(s State[json.RawMessage]) {
		snap := snapshotOf(src, s, time.Now(), logger)
		st.Update(snap)
		m.SetStale(src.name, s.IsStale)

		switch {
		case s.Error != "" && s.Error != lastErr:
			logger.Warn("feed fetch failed", "error", s.Error, "health", snap.Health, "retry_count", s.RetryCount)
		case s.Error == "" && lastErr != "" && !s.Loading && !s.IsUpdating:
			logger.Info("feed recovered")
		}
		if !s.Loading && !s.IsUpdating {
			lastErr = s.Error
		}

		if len(h.stateCallbacks) > 0 {
			fs := FeedState{Source: src, State: s, Health: snap.Health}
			for _, cb := range h.stateCallbacks {
				invokeCallbackSafe(cb, fs, h.logger)
			}
		}
	}
}

// snapshotOf converts a poller state to its stored form.
func snapshotOf(src Source, s State[json.RawMessage], now time.Time, logger *slog.Logger) store.Snapshot {
	snap := store.Snapshot{
		Name:       src.name,
		URL:        src.url,
		Kind:       src.kind,
		Labels:     src.Labels(),
		Phase:      string(s.Phase),
		Loading:    s.Loading,
		IsUpdating: s.IsUpdating,
		IsStale:    s.IsStale,
		RetryCount: s.RetryCount,
		Enabled:    s.Enabled,
		Health:     feeds.Health(s.HasData, s.Error),
		Version:    s.Version,
	}
	if s.Error != "" {
		msg := s.Error
		snap.Error = &msg
	}
	if !s.LastUpdated.IsZero() {
		t := s.LastUpdated
		snap.LastUpdated = &t
	}

	if s.HasData {
		snap.Data = s.Data
		view, err := feeds.Render(src.kind, s.Data, now)
		if err != nil {
			logger.Debug("feed view not rendered", "kind", src.kind, "error", err)
		}
		snap.View = view
	}

	window := 2 * src.refreshInterval
	if c, ok := feeds.Defaults(src.kind); ok {
		window = c.FreshFor
	}
	snap.Fresh = s.HasData && feeds.IsFresh(s.LastUpdated, now, window)
	return snap
}

// metricsProbes feeds engine activity for one source into m.
func metricsProbes(name string, m *metrics.Metrics) poller.Hooks[json.RawMessage] {
	return poller.Hooks[json.RawMessage]{
		OnAttempt: func(kind poller.AttemptKind) {
			m.RecordAttempt(name, string(kind))
		},
		OnResult: func(_ poller.AttemptKind, elapsed time.Duration, err error) {
			m.RecordResult(name, elapsed, poller.ErrorKind(err))
		},
		OnRetryScheduled: func(int, time.Duration) {
			m.RecordRetry(name)
		},
	}
}

// invokeCallbackSafe calls a state callback with panic recovery.
// Panics are logged with a correlation id but do not propagate.
func invokeCallbackSafe(cb func(FeedState), fs FeedState, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("state callback panicked",
				"panic", r,
				"feed", fs.Source.name,
				"correlation_id", uuid.NewString(),
			)
		}
	}()
	cb(fs)
}
