package store

import (
	"encoding/json"
	"time"
)

// Snapshot is the published state of one feed.
//
// Snapshot is the storage representation of a poller's state, optimized for
// JSON serialization (used by the REST API and SSE). It is decoupled from
// the poller's generic state type so the dashboard can carry any payload.
type Snapshot struct {
	// Name is the feed's display name and the store key.
	Name string `json:"name"`

	// URL is the polled resource.
	URL string `json:"url"`

	// Kind selects the dashboard renderer (e.g., "platform_stats").
	Kind string `json:"kind,omitempty"`

	Labels map[string]string `json:"labels"`

	// Phase is the poller's state machine phase.
	Phase string `json:"phase"`

	Loading    bool `json:"loading"`
	IsUpdating bool `json:"is_updating"`

	// Error is the message of the most recent failed attempt; nil when the
	// last attempt did not fail.
	Error *string `json:"error"`

	// LastUpdated is nil until the first successful fetch.
	LastUpdated *time.Time `json:"last_updated"`

	IsStale    bool `json:"is_stale"`
	RetryCount int  `json:"retry_count"`
	Enabled    bool `json:"enabled"`

	// Fresh is true while LastUpdated lies inside the kind's freshness window.
	Fresh bool `json:"fresh"`

	// Health is "ok", "degraded" or "outage".
	Health string `json:"health"`

	// Data is the last successfully fetched payload, unwrapped.
	Data json.RawMessage `json:"data,omitempty"`

	// View is the formatted display model for Kind, if any.
	View any `json:"view,omitempty"`

	Version uint64 `json:"version"`
}

// Store defines the interface for storing and subscribing to feed snapshots.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a snapshot and notifies all subscribers.
	// Snapshots are keyed by Name, so later updates replace earlier ones.
	Update(s Snapshot)

	// Get returns the snapshot stored under name.
	Get(name string) (Snapshot, bool)

	// GetAll returns all snapshots sorted by name.
	// The returned slice is a copy; modifications do not affect the store.
	GetAll() []Snapshot

	// Subscribe returns a channel that receives snapshot updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)

	// SubscriberCount returns the number of active subscriptions.
	SubscriberCount() int
}
