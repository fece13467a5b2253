package pulsefeed

import (
	"time"

	"github.com/jpalmerr/pulsefeed/internal/poller"
)

// Phase is a poller's position in its fetch lifecycle.
type Phase = poller.Phase

const (
	PhaseIdle           = poller.PhaseIdle
	PhaseFetching       = poller.PhaseFetching
	PhaseRetryScheduled = poller.PhaseRetryScheduled
	PhaseDisabled       = poller.PhaseDisabled
	PhaseStopped        = poller.PhaseStopped
)

// State is an immutable snapshot of a [Poller].
//
// Loading and IsUpdating are never both true, and both are false whenever
// no attempt is in flight. Data survives failed attempts: it is only
// replaced by a successful fetch or by [Poller.UpdateData].
type State[T any] struct {
	// Data is the last successfully fetched (or optimistically set) payload.
	// It is the zero value of T until HasData is true.
	Data    T
	HasData bool

	// Loading is true while the initial load is in flight, which spans the
	// first attempt and its retries.
	Loading bool

	// IsUpdating is true while a later background attempt is in flight.
	IsUpdating bool

	// Error is the message of the most recent failed attempt. It is cleared
	// when the next attempt starts.
	Error string

	// LastUpdated is the time of the last successful fetch or optimistic
	// update; zero until then.
	LastUpdated time.Time

	// IsStale is true when the last attempt failed or LastUpdated is older
	// than twice the effective interval.
	IsStale bool

	Phase      Phase
	RetryCount int
	Enabled    bool

	// Hidden mirrors the environment's visibility while polling.
	Hidden bool

	// Version increases with every state change.
	Version uint64
}

// HasError reports whether the most recent attempt failed.
func (s State[T]) HasError() bool {
	return s.Error != ""
}

func fromEngineState[T any](s poller.State[T]) State[T] {
	return State[T]{
		Data:        s.Data,
		HasData:     s.HasData,
		Loading:     s.Loading,
		IsUpdating:  s.IsUpdating,
		Error:       s.Error,
		LastUpdated: s.LastUpdated,
		IsStale:     s.IsStale,
		Phase:       s.Phase,
		RetryCount:  s.RetryCount,
		Enabled:     s.Enabled,
		Hidden:      s.Hidden,
		Version:     s.Version,
	}
}
