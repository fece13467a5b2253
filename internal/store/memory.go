package store

import (
	"sort"
	"sync"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore provides thread-safe storage with a publish-subscribe mechanism
// for real-time updates. Snapshots are keyed by feed name, with new snapshots
// replacing previous values. An update carrying an older Version than the
// stored snapshot is ignored.
//
// Subscribers receive updates via buffered channels (buffer size 100). Updates
// are sent non-blocking; if a subscriber's buffer is full, the update is dropped
// for that subscriber to prevent blocking the entire system.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot

	subMu       sync.RWMutex
	subscribers map[chan Snapshot]struct{}
	watchers    []func(count int)
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots:   make(map[string]Snapshot),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update stores a [Snapshot] and notifies all subscribers.
func (m *MemoryStore) Update(s Snapshot) {
	m.mu.Lock()
	if prev, ok := m.snapshots[s.Name]; ok && s.Version != 0 && s.Version < prev.Version {
		m.mu.Unlock()
		return
	}
	m.snapshots[s.Name] = s
	m.mu.Unlock()

	m.notifySubscribers(s)
}

// Get returns the snapshot stored under name.
func (m *MemoryStore) Get(name string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[name]
	return s, ok
}

// GetAll returns a snapshot of everything stored, sorted by name.
func (m *MemoryStore) GetAll() []Snapshot {
	m.mu.RLock()
	results := make([]Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		results = append(results, s)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	count := len(m.subscribers)
	watchers := m.watchers
	m.subMu.Unlock()

	notifyWatchers(watchers, count)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	removed := false
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			removed = true
			break
		}
	}
	count := len(m.subscribers)
	watchers := m.watchers
	m.subMu.Unlock()

	if removed {
		notifyWatchers(watchers, count)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (m *MemoryStore) SubscriberCount() int {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	return len(m.subscribers)
}

// OnSubscribersChanged registers fn to be called with the new subscriber
// count after every Subscribe and effective Unsubscribe. fn runs on the
// caller's goroutine and must not block.
func (m *MemoryStore) OnSubscribersChanged(fn func(count int)) {
	if fn == nil {
		return
	}
	m.subMu.Lock()
	m.watchers = append(m.watchers[:len(m.watchers):len(m.watchers)], fn)
	m.subMu.Unlock()
}

func notifyWatchers(watchers []func(int), count int) {
	for _, fn := range watchers {
		fn(count)
	}
}

// notifySubscribers sends the snapshot to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the message
// is dropped for that subscriber rather than blocking the update path.
func (m *MemoryStore) notifySubscribers(s Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			// subscriber is slow, drop the message
		}
	}
}
