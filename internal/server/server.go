package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jpalmerr/pulsefeed/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Refetcher triggers an immediate fetch of a named feed and waits for it
// to resolve.
type Refetcher interface {
	Refetch(ctx context.Context, name string) error
}

// Server serves the dashboard, the JSON API and the event stream for the
// snapshots held in a [store.Store].
//
// Routes:
//   - GET /                          dashboard page
//   - GET /api/feeds                 every snapshot, sorted by name
//   - GET /api/feeds/{name}          one snapshot
//   - POST /api/feeds/{name}/refetch fetch now and return the result
//   - GET /api/sse                   snapshot stream
//   - GET /metrics                   Prometheus exposition, if configured
type Server struct {
	store  store.Store
	port   int
	assets fs.FS
	title  string
	logger *slog.Logger

	refetcher Refetcher
	limiters  *feedLimiters
	metrics   http.Handler

	pageOnce sync.Once
	page     []byte
	pageErr  error

	httpServer *http.Server
}

// Option configures optional [Server] features.
type Option func(*Server)

// WithRefetcher enables the refetch endpoint, allowing limit requests per
// second per feed with the given burst.
func WithRefetcher(r Refetcher, limit rate.Limit, burst int) Option {
	return func(s *Server) {
		s.refetcher = r
		s.limiters = newFeedLimiters(limit, burst)
	}
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer returns a server for st. assets may be nil, in which case no
// dashboard is served; an empty title falls back to "Pulsefeed".
// Nothing listens until [Server.Start].
func NewServer(st store.Store, port int, assets fs.FS, title string, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		store:  st,
		port:   port,
		assets: assets,
		title:  title,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feeds", s.handleFeeds)
	mux.HandleFunc("GET /api/feeds/{name}", s.handleFeed)
	mux.HandleFunc("POST /api/feeds/{name}/refetch", s.handleRefetch)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	if s.assets != nil {
		mux.HandleFunc("GET /{$}", s.handleDashboard)
	}
	return mux
}

// Start binds the port and serves in the background until ctx is
// cancelled, then shuts down gracefully. Only the bind can fail.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// SSE handlers watch the request context, so tie it to ctx
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go s.serve(ln)
	go s.shutdownOnDone(ctx)
	return nil
}

func (s *Server) serve(ln net.Listener) {
	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("http server stopped", "error", err)
	}
}

func (s *Server) shutdownOnDone(ctx context.Context) {
	<-ctx.Done()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(sctx); err != nil {
		s.logger.Error("http server shutdown", "error", err)
	}
}
