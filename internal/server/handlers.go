package server

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

const (
	// refetchTimeout bounds how long a manual refetch waits for its attempt.
	refetchTimeout = 30 * time.Second

	defaultTitle     = "Pulsefeed"
	titlePlaceholder = "{{.Title}}"
	indexPath        = "assets/index.html"
)

func (s *Server) handleFeeds(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.GetAll())
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.store.Get(r.PathValue("name"))
	if !ok {
		http.Error(w, "Feed not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// handleRefetch runs a manual refetch and answers with the resulting
// snapshot. Failures map to 503, or 504 when the attempt timed out.
func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	switch _, known := s.store.Get(name); {
	case s.refetcher == nil:
		http.Error(w, "Refetch not enabled", http.StatusNotFound)
		return
	case !known:
		http.Error(w, "Feed not found", http.StatusNotFound)
		return
	case !s.limiters.allow(name):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "Too many refetch requests", http.StatusTooManyRequests)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), refetchTimeout)
	defer cancel()

	if err := s.refetcher.Refetch(ctx, name); err != nil {
		s.logger.Warn("manual refetch failed", "feed", name, "error", err)
		code := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		http.Error(w, "Refetch failed", code)
		return
	}

	snap, _ := s.store.Get(name)
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleDashboard serves the index page with the title filled in. The page
// is rendered once per server.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page, err := s.dashboardPage()
	if err != nil {
		s.logger.Error("dashboard unavailable", "error", err)
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(page); err != nil {
		s.logger.Debug("dashboard write failed", "error", err)
	}
}

func (s *Server) dashboardPage() ([]byte, error) {
	s.pageOnce.Do(func() {
		if s.assets == nil {
			s.pageErr = errors.New("no dashboard assets configured")
			return
		}
		raw, err := fs.ReadFile(s.assets, indexPath)
		if err != nil {
			s.pageErr = err
			return
		}
		title := s.title
		if title == "" {
			title = defaultTitle
		}
		s.page = []byte(strings.ReplaceAll(string(raw), titlePlaceholder, html.EscapeString(title)))
	})
	return s.page, s.pageErr
}
