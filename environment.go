package pulsefeed

import "sync"

// Environment tells a poller about its host.
//
// Pollers read IsNarrowViewport once, at construction, and double their
// refresh interval when it reports true. While IsHidden reports true the
// refresh timer is suspended; the transition back to visible triggers one
// immediate fetch.
type Environment interface {
	IsHidden() bool
	IsNarrowViewport() bool

	// OnVisibilityChange registers cb for visibility transitions and returns
	// a function that removes the registration. cb must not block.
	OnVisibilityChange(cb func(hidden bool)) (cancel func())
}

// StaticEnvironment is an [Environment] whose answers never change.
// The zero value is a visible, wide host.
type StaticEnvironment struct {
	Hidden bool
	Narrow bool
}

func (e StaticEnvironment) IsHidden() bool         { return e.Hidden }
func (e StaticEnvironment) IsNarrowViewport() bool { return e.Narrow }

// OnVisibilityChange never calls cb.
func (e StaticEnvironment) OnVisibilityChange(func(bool)) func() {
	return func() {}
}

// ManualEnvironment is an [Environment] whose visibility is driven by the
// host application, for example from focus events of a terminal UI or from
// the number of connected dashboard viewers.
//
// ManualEnvironment is safe for concurrent use.
type ManualEnvironment struct {
	narrow bool

	mu     sync.Mutex
	hidden bool
	subs   map[uint64]func(bool)
	nextID uint64
}

// NewManualEnvironment returns a visible ManualEnvironment.
func NewManualEnvironment(narrow bool) *ManualEnvironment {
	return &ManualEnvironment{
		narrow: narrow,
		subs:   make(map[uint64]func(bool)),
	}
}

func (e *ManualEnvironment) IsHidden() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hidden
}

func (e *ManualEnvironment) IsNarrowViewport() bool {
	return e.narrow
}

func (e *ManualEnvironment) OnVisibilityChange(cb func(bool)) func() {
	e.mu.Lock()
	if e.subs == nil {
		e.subs = make(map[uint64]func(bool))
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = cb
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// SetHidden updates visibility and notifies subscribers when it changed.
func (e *ManualEnvironment) SetHidden(hidden bool) {
	e.mu.Lock()
	if e.hidden == hidden {
		e.mu.Unlock()
		return
	}
	e.hidden = hidden
	cbs := make([]func(bool), 0, len(e.subs))
	for _, cb := range e.subs {
		cbs = append(cbs, cb)
	}
	e.mu.Unlock()

	for _, cb := range cbs {
		cb(hidden)
	}
}
