package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/jpalmerr/pulsefeed/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededStore(names ...string) *store.MemoryStore {
	st := store.NewMemoryStore()
	for _, name := range names {
		st.Update(store.Snapshot{Name: name, Phase: "idle", Health: "ok", Enabled: true})
	}
	return st
}

// fakeRefetcher records refetch calls and updates the store like a hub would.
type fakeRefetcher struct {
	st    *store.MemoryStore
	err   error
	calls atomic.Int32
}

func (f *fakeRefetcher) Refetch(_ context.Context, name string) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}
	snap, _ := f.st.Get(name)
	snap.Version++
	snap.Data = json.RawMessage(`{"refetched":true}`)
	f.st.Update(snap)
	return nil
}

// parseSSEEvents extracts the snapshots from an SSE response body.
func parseSSEEvents(body string) []store.Snapshot {
	var results []store.Snapshot
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap store.Snapshot
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap); err == nil {
			results = append(results, snap)
		}
	}
	return results
}

// --- REST API ---

func TestHandleFeeds(t *testing.T) {
	srv := NewServer(seededStore("b-team", "a-stats"), 0, nil, "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feeds", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var snaps []store.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snaps); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(snaps) != 2 || snaps[0].Name != "a-stats" || snaps[1].Name != "b-team" {
		t.Errorf("snapshots = %+v, want a-stats then b-team", snaps)
	}
}

func TestHandleFeeds_MethodNotAllowed(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/feeds", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleFeed(t *testing.T) {
	srv := NewServer(seededStore("stats"), 0, nil, "", testLogger())
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feeds/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if snap.Name != "stats" || snap.Health != "ok" {
		t.Errorf("snapshot = %+v", snap)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feeds/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown feed status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleRefetch(t *testing.T) {
	st := seededStore("stats")
	ref := &fakeRefetcher{st: st}
	srv := NewServer(st, 0, nil, "", testLogger(), WithRefetcher(ref, rate.Inf, 1))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/feeds/stats/refetch", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ref.calls.Load() != 1 {
		t.Errorf("refetch calls = %d, want 1", ref.calls.Load())
	}

	var snap store.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if string(snap.Data) != `{"refetched":true}` {
		t.Errorf("Data = %s, want the refetched payload", snap.Data)
	}
}

func TestHandleRefetch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		method     string
		refetchErr error
		withRef    bool
		wantStatus int
	}{
		{"unknown feed", "/api/feeds/missing/refetch", http.MethodPost, nil, true, http.StatusNotFound},
		{"not enabled", "/api/feeds/stats/refetch", http.MethodPost, nil, false, http.StatusNotFound},
		{"wrong method", "/api/feeds/stats/refetch", http.MethodGet, nil, true, http.StatusMethodNotAllowed},
		{"stopped", "/api/feeds/stats/refetch", http.MethodPost, errors.New("poller stopped"), true, http.StatusServiceUnavailable},
		{"timeout", "/api/feeds/stats/refetch", http.MethodPost, context.DeadlineExceeded, true, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := seededStore("stats")
			var opts []Option
			if tt.withRef {
				opts = append(opts, WithRefetcher(&fakeRefetcher{st: st, err: tt.refetchErr}, rate.Inf, 1))
			}
			srv := NewServer(st, 0, nil, "", testLogger(), opts...)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleRefetch_RateLimitedPerFeed(t *testing.T) {
	st := seededStore("stats", "team")
	ref := &fakeRefetcher{st: st}
	// one token, refilled far slower than the test runs
	srv := NewServer(st, 0, nil, "", testLogger(), WithRefetcher(ref, rate.Every(time.Hour), 1))
	h := srv.Handler()

	post := func(name string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/feeds/"+name+"/refetch", nil))
		return rec
	}

	if rec := post("stats"); rec.Code != http.StatusOK {
		t.Fatalf("first refetch status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec := post("stats")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second refetch status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}

	// other feeds have their own bucket
	if rec := post("team"); rec.Code != http.StatusOK {
		t.Errorf("team refetch status = %d, want %d", rec.Code, http.StatusOK)
	}

	if got := ref.calls.Load(); got != 2 {
		t.Errorf("refetch calls = %d, want 2", got)
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pulsefeed_fetch_attempts_total 1\n")
	})

	withMetrics := NewServer(seededStore(), 0, nil, "", testLogger(), WithMetricsHandler(metrics))
	rec := httptest.NewRecorder()
	withMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "pulsefeed_fetch_attempts_total") {
		t.Errorf("metrics body = %q", rec.Body.String())
	}

	without := NewServer(seededStore(), 0, nil, "", testLogger())
	rec = httptest.NewRecorder()
	without.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status without metrics = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// --- SSE ---

func TestHandleSSE_BasicFlow(t *testing.T) {
	srv := NewServer(seededStore("API-1", "API-2"), 0, nil, "", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("got %d initial events, want 2: %s", len(events), rec.Body.String())
	}
	if events[0].Name != "API-1" || events[1].Name != "API-2" {
		t.Errorf("events = %s, %s; want API-1, API-2", events[0].Name, events[1].Name)
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	st := seededStore()
	srv := NewServer(st, 0, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// wait for the handler to subscribe
	deadline := time.Now().Add(time.Second)
	for st.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	st.Update(store.Snapshot{Name: "NewFeed", Health: "degraded"})
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	if !strings.Contains(rec.Body.String(), "NewFeed") {
		t.Errorf("response should contain streamed update NewFeed, got: %s", rec.Body.String())
	}
	if st.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after disconnect, want 0", st.SubscriberCount())
	}
}

func TestHandleSSE_ViewerCountChanges(t *testing.T) {
	st := seededStore()
	var mu sync.Mutex
	var counts []int
	st.OnSubscribersChanged(func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	})

	srv := NewServer(st, 0, nil, "", testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	srv.handleSSE(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx))

	mu.Lock()
	defer mu.Unlock()
	if len(counts) != 2 || counts[0] != 1 || counts[1] != 0 {
		t.Errorf("viewer counts = %v, want [1 0]", counts)
	}
}

func TestHandleSSE_ServerShutdown(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())

	// handleSSE is called directly, so derive the request context from the
	// server context by hand; BaseContext does this in production.
	serverCtx, serverCancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)

	done := make(chan struct{})
	go func() {
		srv.handleSSE(httptest.NewRecorder(), req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	serverCancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after server shutdown")
	}
}

func TestHandleSSE_NoGoroutineLeaks(t *testing.T) {
	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	before := runtime.NumGoroutine()

	srv := NewServer(seededStore("API"), 0, nil, "", testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	runtime.GC()
	time.Sleep(200 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after > before+2 { // small tolerance for runtime variance
		t.Errorf("potential goroutine leak: before=%d, after=%d", before, after)
	}
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
	body       []byte
}

func (n *nonFlushWriter) Header() http.Header { return n.header }

func (n *nonFlushWriter) Write(b []byte) (int, error) {
	n.body = append(n.body, b...)
	return len(b), nil
}

func (n *nonFlushWriter) WriteHeader(statusCode int) { n.statusCode = statusCode }

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())
	w := &nonFlushWriter{header: make(http.Header)}

	srv.handleSSE(w, httptest.NewRequest(http.MethodGet, "/api/sse", nil))

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

func TestHandleSSE_Headers(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	srv.handleSSE(rec, httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx))

	expectedHeaders := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}
	for key, expected := range expectedHeaders {
		if got := rec.Header().Get(key); got != expected {
			t.Errorf("header %s = %q, want %q", key, got, expected)
		}
	}
}

func TestHandleSSE_JSONFormat(t *testing.T) {
	st := store.NewMemoryStore()
	updated := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	errMsg := "unexpected HTTP status: 503"
	st.Update(store.Snapshot{
		Name:        "stats",
		URL:         "https://example.com/api/stats/platform",
		Kind:        "platform_stats",
		Labels:      map[string]string{"env": "prod"},
		Phase:       "retry_scheduled",
		Error:       &errMsg,
		LastUpdated: &updated,
		IsStale:     true,
		RetryCount:  2,
		Health:      "degraded",
		Data:        json.RawMessage(`{"totalMembers":10}`),
		Version:     7,
	})
	srv := NewServer(st, 0, nil, "", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	srv.handleSSE(rec, httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx))

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %s", len(events), rec.Body.String())
	}
	got := events[0]
	if got.Error == nil || *got.Error != errMsg {
		t.Errorf("Error = %v, want %q", got.Error, errMsg)
	}
	if got.LastUpdated == nil || !got.LastUpdated.Equal(updated) {
		t.Errorf("LastUpdated = %v, want %v", got.LastUpdated, updated)
	}
	if !got.IsStale || got.RetryCount != 2 || got.Health != "degraded" || got.Version != 7 {
		t.Errorf("snapshot = %+v", got)
	}
	if string(got.Data) != `{"totalMembers":10}` {
		t.Errorf("Data = %s", got.Data)
	}
}

// TestHandleSSE_ServerShutdownIntegration uses a real connection, which
// supports write deadlines unlike httptest.ResponseRecorder.
func TestHandleSSE_ServerShutdownIntegration(t *testing.T) {
	srv := NewServer(seededStore("IntegrationFeed"), 0, nil, "", testLogger())

	serverCtx, serverCancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.handleSSE(w, r.WithContext(serverCtx))
	}))
	defer ts.Close()

	connDone := make(chan string, 1)
	go func() {
		resp, err := ts.Client().Get(ts.URL)
		if err != nil {
			connDone <- ""
			return
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		connDone <- string(body)
	}()

	time.Sleep(100 * time.Millisecond)
	serverCancel()

	select {
	case body := <-connDone:
		if !strings.Contains(body, "IntegrationFeed") {
			t.Errorf("expected initial snapshot in stream, got: %s", body)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("SSE connection did not close after server shutdown")
	}
}

// --- Server Start ---

func TestStart_AvailablePort_ReturnsNil(t *testing.T) {
	// port 0 lets the OS choose; the public hub API requires port > 0
	srv := NewServer(seededStore(), 0, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Errorf("Start() on available port returned error: %v", err)
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := NewServer(seededStore(), port, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

// --- Dashboard ---

// mockFS implements fs.ReadFileFS for testing dashboard rendering.
type mockFS struct {
	content string
}

func (m *mockFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *mockFS) ReadFile(name string) ([]byte, error) {
	if name == "assets/index.html" {
		return []byte(m.content), nil
	}
	return nil, fs.ErrNotExist
}

func TestHandleDashboard(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		assets     fs.FS
		path       string
		wantStatus int
		wantBody   string
		denyBody   string
	}{
		{
			name:       "custom title",
			title:      "Community Pulse",
			assets:     &mockFS{content: "<title>{{.Title}}</title><h1>{{.Title}}</h1>"},
			path:       "/",
			wantStatus: http.StatusOK,
			wantBody:   "<title>Community Pulse</title><h1>Community Pulse</h1>",
		},
		{
			name:       "default title",
			assets:     &mockFS{content: "<title>{{.Title}}</title>"},
			path:       "/",
			wantStatus: http.StatusOK,
			wantBody:   "<title>Pulsefeed</title>",
		},
		{
			name:       "title is escaped",
			title:      "<script>alert('xss')</script>",
			assets:     &mockFS{content: "<title>{{.Title}}</title>"},
			path:       "/",
			wantStatus: http.StatusOK,
			wantBody:   "&lt;script&gt;",
			denyBody:   "<script>",
		},
		{
			name:       "ampersand is escaped",
			title:      "Stats & Team",
			assets:     &mockFS{content: "<title>{{.Title}}</title>"},
			path:       "/",
			wantStatus: http.StatusOK,
			wantBody:   "Stats &amp; Team",
		},
		{
			name:       "missing assets",
			assets:     nil,
			path:       "/",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "non-root path",
			assets:     &mockFS{content: "<title>{{.Title}}</title>"},
			path:       "/other",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(seededStore(), 0, tt.assets, tt.title, testLogger())
			rec := httptest.NewRecorder()

			srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := rec.Body.String()
			if tt.wantBody != "" && !strings.Contains(body, tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantBody)
			}
			if tt.denyBody != "" && strings.Contains(body, tt.denyBody) {
				t.Errorf("body = %q, must not contain %q", body, tt.denyBody)
			}
		})
	}
}

func BenchmarkHandleSSE_SingleClient(b *testing.B) {
	st := store.NewMemoryStore()
	for i := 0; i < 10; i++ {
		st.Update(store.Snapshot{Name: "feed-" + string(rune('A'+i)), Health: "ok"})
	}
	srv := NewServer(st, 0, nil, "", testLogger())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
		srv.handleSSE(httptest.NewRecorder(), req)
		cancel()
	}
}

func TestHandler_DashboardDoesNotShadowAPI(t *testing.T) {
	st := seededStore("stats")
	srv := NewServer(st, 0, &mockFS{content: "<title>{{.Title}}</title>"}, "", testLogger(),
		WithRefetcher(&fakeRefetcher{st: st}, rate.Inf, 1))
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feeds/stats/refetch", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET refetch status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>Pulsefeed</title>") {
		t.Errorf("dashboard status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestSSEStream_Comment(t *testing.T) {
	rec := httptest.NewRecorder()
	stream := &sseStream{w: rec, rc: http.NewResponseController(rec), deadlines: true}

	if err := stream.write(": ping\n\n"); err != nil {
		t.Fatalf("write() error = %v", err)
	}
	if stream.deadlines {
		t.Error("recorder has no deadlines; expected the stream to stop setting them")
	}
	if got := rec.Body.String(); got != ": ping\n\n" {
		t.Errorf("body = %q", got)
	}
	if len(parseSSEEvents(rec.Body.String())) != 0 {
		t.Error("comment lines must not parse as events")
	}
}
