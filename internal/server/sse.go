package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jpalmerr/pulsefeed/internal/store"
)

const (
	// sseWriteTimeout caps a single event write so a stalled client cannot
	// pin its handler. It must not exceed shutdownTimeout.
	sseWriteTimeout = 5 * time.Second

	// sseKeepAlive is how often an idle stream gets a comment line.
	sseKeepAlive = 15 * time.Second
)

// sseStream writes Server-Sent Events to one client.
type sseStream struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	// cleared after the first SetWriteDeadline failure
	deadlines bool
}

func (st *sseStream) write(format string, args ...any) error {
	if st.deadlines {
		if err := st.rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
			st.deadlines = false
		}
	}
	if _, err := fmt.Fprintf(st.w, format, args...); err != nil {
		return err
	}
	return st.rc.Flush()
}

func (st *sseStream) send(snap store.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil // skip the event, keep the stream
	}
	return st.write("data: %s\n\n", data)
}

// handleSSE streams every current snapshot, then each update, until the
// client goes away or the server shuts down. Each open stream is one
// store subscription, which the hub counts as a viewer.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	updates := s.store.Subscribe()
	defer s.store.Unsubscribe(updates)

	stream := &sseStream{w: w, rc: http.NewResponseController(w), deadlines: true}
	for _, snap := range s.store.GetAll() {
		if err := stream.send(snap); err != nil {
			return
		}
	}

	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			err = stream.send(snap)
		case <-ping.C:
			err = stream.write(": ping\n\n")
		}
		if err != nil {
			s.logger.Debug("sse client dropped", "error", err)
			return
		}
	}
}
