package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Defaults applied by [NewEngine] to zero-valued [Config] fields.
const (
	DefaultRefreshInterval    = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryDelay         = time.Second
	DefaultTimeout            = 10 * time.Second
	DefaultStaleCheckInterval = 5 * time.Second
)

// Config is the immutable polling policy of one [Engine].
type Config struct {
	// Resource identifies the data source, normally a URL.
	Resource string

	// RefreshInterval is the nominal cadence. Doubled on narrow viewports.
	RefreshInterval time.Duration

	// Enabled controls whether the engine fetches at all.
	Enabled bool

	// MaxRetries is the number of backoff retries after a failure.
	MaxRetries int

	// RetryDelay is the linear backoff unit: retry n waits n*RetryDelay.
	RetryDelay time.Duration

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// StaleCheckInterval is the watchdog cadence.
	StaleCheckInterval time.Duration
}

// Fetcher issues the network request for a resource and returns the raw body.
type Fetcher interface {
	Fetch(ctx context.Context, resource string) ([]byte, error)
}

// Environment supplies the host facts the engine adapts to.
type Environment interface {
	// IsHidden reports whether the host is currently not visible.
	IsHidden() bool

	// IsNarrowViewport reports a mobile-class host. Read once per engine.
	IsNarrowViewport() bool

	// OnVisibilityChange registers cb for visibility transitions and
	// returns a function that removes the registration.
	OnVisibilityChange(cb func(hidden bool)) (cancel func())
}

// AttemptKind labels why an attempt was dispatched.
type AttemptKind string

const (
	AttemptInitial    AttemptKind = "initial"
	AttemptBackground AttemptKind = "background"
	AttemptRetry      AttemptKind = "retry"
	AttemptManual     AttemptKind = "manual"
	AttemptResume     AttemptKind = "resume"
)

// Hooks are optional callbacks fired by an [Engine]. They run one at a
// time, in order, on a goroutine separate from the polling loop, with panic
// recovery. A hook may call back into the engine, including [Engine.Refetch].
type Hooks[T any] struct {
	// OnSuccess fires once per successful attempt with the new data.
	OnSuccess func(T)

	// OnError fires once per failed attempt.
	OnError func(error)

	// OnState fires after every state change with a fresh snapshot.
	// Versions observed by one callback are strictly increasing.
	OnState func(State[T])

	// OnAttempt fires when an attempt is dispatched.
	OnAttempt func(kind AttemptKind)

	// OnResult fires when the current attempt resolves.
	OnResult func(kind AttemptKind, elapsed time.Duration, err error)

	// OnRetryScheduled fires when a backoff retry is armed.
	OnRetryScheduled func(retry int, delay time.Duration)
}

// State is a point-in-time snapshot of an [Engine].
type State[T any] struct {
	Data        T
	HasData     bool
	Loading     bool
	IsUpdating  bool
	Error       string
	LastUpdated time.Time
	IsStale     bool
	Phase       Phase
	RetryCount  int
	Enabled     bool
	Hidden      bool
	Version     uint64
}

// Engine is a single-resource polling state machine.
//
// An Engine fetches its resource on start, then on every tick of the
// effective interval, retrying failures with linear backoff. All timers and
// fetch completions are handled by one loop goroutine per enabled session;
// state is guarded by a mutex so that [Engine.State] and
// [Engine.UpdateData] are safe from any goroutine.
//
// Every attempt carries a token. Dispatching a new attempt cancels the
// previous one, and a completion whose token is no longer current is
// discarded, so a slow response can never overwrite a newer one.
type Engine[T any] struct {
	cfg      Config
	interval time.Duration
	fetcher  Fetcher
	decode   func(json.RawMessage) (T, error)
	clock    clockwork.Clock
	env      Environment
	hooks    Hooks[T]
	logger   *slog.Logger

	mu          sync.Mutex
	data        T
	hasData     bool
	loading     bool
	updating    bool
	errMsg      string
	lastUpdated time.Time
	failed      bool
	stale       bool
	phase       Phase
	retries     int
	hidden      bool
	version     uint64
	initial     bool
	token       uint64
	enabled     bool
	started     bool
	stopped     bool
	parent      context.Context
	sess        *session[T]
	loopDone    chan struct{}

	calls hookQueue

	emitMu       sync.Mutex
	statePending bool
	lastEmitted  uint64
}

// hookQueue runs callbacks serially on a goroutine that exists only while
// the queue is non-empty.
type hookQueue struct {
	mu      sync.Mutex
	pending []func()
	running bool
}

func (q *hookQueue) push(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()
	go q.drain()
}

func (q *hookQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()
		fn()
	}
}

// session is one enabled run of the loop goroutine.
type session[T any] struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cmds    chan chan struct{}
	results chan result[T]
	visSig  chan struct{}
	visNow  atomic.Bool
	done    chan struct{}
}

type attempt struct {
	token   uint64
	kind    AttemptKind
	cancel  context.CancelFunc
	waiters []chan struct{}
	started time.Time
}

func (a *attempt) release() {
	for _, w := range a.waiters {
		close(w)
	}
	a.waiters = nil
}

type result[T any] struct {
	token uint64
	data  T
	err   error
}

// Option configures an [Engine].
type Option[T any] func(*Engine[T])

// WithClock sets the clock driving tickers, timers and timestamps.
func WithClock[T any](c clockwork.Clock) Option[T] {
	return func(e *Engine[T]) { e.clock = c }
}

// WithEnvironment sets the host probe.
func WithEnvironment[T any](env Environment) Option[T] {
	return func(e *Engine[T]) { e.env = env }
}

// WithHooks sets the engine callbacks.
func WithHooks[T any](h Hooks[T]) Option[T] {
	return func(e *Engine[T]) { e.hooks = h }
}

// WithLogger sets the logger.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(e *Engine[T]) { e.logger = l }
}

// WithDecoder replaces the default JSON payload decoder.
func WithDecoder[T any](fn func(json.RawMessage) (T, error)) Option[T] {
	return func(e *Engine[T]) { e.decode = fn }
}

// NewEngine validates cfg, applies defaults and returns a stopped engine.
// Zero durations and a zero MaxRetries keep their defaults; use a negative
// MaxRetries to disable retries.
func NewEngine[T any](cfg Config, fetcher Fetcher, opts ...Option[T]) (*Engine[T], error) {
	if cfg.Resource == "" {
		return nil, errors.New("resource cannot be empty")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher cannot be nil")
	}
	if cfg.RefreshInterval < 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", cfg.RefreshInterval)
	}
	if cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("retry delay cannot be negative, got %s", cfg.RetryDelay)
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.StaleCheckInterval <= 0 {
		cfg.StaleCheckInterval = DefaultStaleCheckInterval
	}

	e := &Engine[T]{
		cfg:     cfg,
		fetcher: fetcher,
		decode:  DecodeJSON[T],
		clock:   clockwork.NewRealClock(),
		env:     staticEnvironment{},
		logger:  slog.Default(),
		enabled: cfg.Enabled,
		phase:   PhaseIdle,
		initial: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.interval = cfg.RefreshInterval
	if e.env.IsNarrowViewport() {
		e.interval *= 2
	}
	e.logger = e.logger.With("resource", cfg.Resource)
	if !e.enabled {
		e.moveLocked(evDisable)
	}

	return e, nil
}

// Interval returns the effective refresh interval.
func (e *Engine[T]) Interval() time.Duration {
	return e.interval
}

// Start begins polling. It fetches immediately when enabled and arms the
// refresh ticker unless the host is hidden. Cancelling ctx ends polling;
// a later SetEnabled(true) polls again under the same ctx only if it is
// still live. Start is a no-op after the first call or after Stop.
func (e *Engine[T]) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	e.mu.Lock()
	if e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.parent = ctx
	if !e.enabled {
		e.mu.Unlock()
		return
	}
	s := e.newSessionLocked()
	e.mu.Unlock()

	go e.run(s)
}

// Stop cancels all timers, pending retries and in-flight attempts. Once
// Stop returns no further state mutation takes effect and no queued hook
// starts. Stop is idempotent.
func (e *Engine[T]) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.token++
	e.moveLocked(evStop)
	e.stopped = true
	s := e.sess
	e.sess = nil
	e.mu.Unlock()

	if s != nil {
		s.cancel()
	}
}

// Done returns a channel closed when the most recent session's loop has
// exited and released its timers. It is closed immediately when no session
// was ever started.
func (e *Engine[T]) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loopDone == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return e.loopDone
}

// SetEnabled toggles fetching. Disabling tears down timers and discards
// in-flight attempts; enabling afterwards starts a fresh initial load.
func (e *Engine[T]) SetEnabled(enabled bool) {
	e.mu.Lock()
	if e.stopped || e.enabled == enabled {
		e.mu.Unlock()
		return
	}
	e.enabled = enabled

	if !enabled {
		s := e.sess
		e.sess = nil
		e.token++
		e.loading = false
		e.updating = false
		e.moveLocked(evDisable)
		e.bumpLocked()
		e.mu.Unlock()

		if s != nil {
			s.cancel()
		}
		e.logger.Debug("poller disabled")
		e.emit()
		return
	}

	e.moveLocked(evEnable)
	e.initial = true
	e.retries = 0
	e.bumpLocked()
	var s *session[T]
	if e.started {
		s = e.newSessionLocked()
	}
	e.mu.Unlock()

	e.logger.Debug("poller enabled")
	e.emit()
	if s != nil {
		go e.run(s)
	}
}

// Refetch dispatches an attempt now, resetting the retry counter and
// cancelling any pending retry. The refresh ticker keeps its phase.
//
// Refetch returns once the attempt has resolved or been superseded. Fetch
// failures are recorded in [Engine.State], never returned; the error is
// non-nil only for ctx cancellation or a stopped engine.
func (e *Engine[T]) Refetch(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	s := e.sess
	e.mu.Unlock()

	if s == nil {
		// disabled or not started: nothing to fetch
		return nil
	}

	done := make(chan struct{})
	select {
	case s.cmds <- done:
	case <-s.ctx.Done():
		return e.endedErr()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-s.ctx.Done():
		return e.endedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateData overwrites the data without a network call. The retry counter
// and loading flags are left alone; staleness is cleared.
func (e *Engine[T]) UpdateData(v T) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.data = v
	e.hasData = true
	e.lastUpdated = e.clock.Now()
	e.failed = false
	e.bumpLocked()
	e.mu.Unlock()

	e.emit()
}

// State returns a snapshot. Staleness is evaluated against the current time.
func (e *Engine[T]) State() State[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(e.clock.Now())
}

func (e *Engine[T]) endedErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	return nil
}

func (e *Engine[T]) newSessionLocked() *session[T] {
	ctx, cancel := context.WithCancel(e.parent)
	s := &session[T]{
		ctx:     ctx,
		cancel:  cancel,
		cmds:    make(chan chan struct{}),
		results: make(chan result[T], 1),
		visSig:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	e.sess = s
	e.loopDone = s.done
	return s
}

// run is the session loop. It owns every timer of the session.
func (e *Engine[T]) run(s *session[T]) {
	defer close(s.done)

	var (
		ticker   clockwork.Ticker
		tickC    <-chan time.Time
		retry    clockwork.Timer
		retryC   <-chan time.Time
		inflight *attempt
	)

	armTicker := func() {
		if ticker != nil {
			ticker.Stop()
		}
		ticker = e.clock.NewTicker(e.interval)
		tickC = ticker.Chan()
	}
	disarmTicker := func() {
		if ticker != nil {
			ticker.Stop()
		}
		ticker, tickC = nil, nil
	}
	cancelRetry := func() {
		if retry != nil {
			retry.Stop()
		}
		retry, retryC = nil, nil
	}
	dispatch := func(kind AttemptKind, waiter chan struct{}) {
		if inflight != nil {
			inflight.cancel()
			inflight.release()
		}
		inflight = e.begin(s, kind)
		if inflight == nil {
			if waiter != nil {
				close(waiter)
			}
			return
		}
		if waiter != nil {
			inflight.waiters = append(inflight.waiters, waiter)
		}
	}

	watchdog := e.clock.NewTicker(e.cfg.StaleCheckInterval)
	unsubscribe := e.env.OnVisibilityChange(func(hidden bool) {
		s.visNow.Store(hidden)
		select {
		case s.visSig <- struct{}{}:
		default:
		}
	})

	defer func() {
		unsubscribe()
		watchdog.Stop()
		disarmTicker()
		cancelRetry()
		if inflight != nil {
			inflight.cancel()
			inflight.release()
		}
	}()

	hidden := e.env.IsHidden()
	e.setHidden(hidden)
	dispatch(e.initialKind(), nil)
	if !hidden {
		armTicker()
	}

	for {
		select {
		case <-s.ctx.Done():
			e.endSession(s)
			return

		case <-tickC:
			if inflight != nil {
				e.logger.Debug("tick skipped, attempt in flight")
				continue
			}
			cancelRetry()
			dispatch(AttemptBackground, nil)

		case <-retryC:
			retry, retryC = nil, nil
			dispatch(AttemptRetry, nil)

		case <-watchdog.Chan():
			e.checkStale()

		case <-s.visSig:
			now := s.visNow.Load()
			if now == hidden {
				continue
			}
			hidden = now
			e.setHidden(hidden)
			if hidden {
				disarmTicker()
				if retry != nil {
					cancelRetry()
					e.move(evCancelRetry)
				}
				e.logger.Debug("host hidden, polling paused")
				continue
			}
			e.logger.Debug("host visible, polling resumed")
			cancelRetry()
			dispatch(AttemptResume, nil)
			armTicker()

		case waiter := <-s.cmds:
			cancelRetry()
			e.resetRetries()
			dispatch(AttemptManual, waiter)

		case res := <-s.results:
			if inflight == nil || res.token != inflight.token {
				continue
			}
			delay, again := e.complete(inflight, res)
			inflight.release()
			inflight = nil
			if again {
				retry = e.clock.NewTimer(delay)
				retryC = retry.Chan()
			}
		}
	}
}

func (e *Engine[T]) initialKind() AttemptKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initial {
		return AttemptInitial
	}
	return AttemptBackground
}

// begin marks a new attempt in state and launches its fetch. It returns
// nil when the engine was stopped or disabled concurrently.
func (e *Engine[T]) begin(s *session[T], kind AttemptKind) *attempt {
	e.mu.Lock()
	if e.stopped || e.sess != s {
		e.mu.Unlock()
		return nil
	}
	e.token++
	e.loading = e.initial
	e.updating = !e.initial
	e.errMsg = ""
	e.moveLocked(evDispatch)
	e.bumpLocked()
	if e.initial && kind == AttemptBackground {
		kind = AttemptInitial
	}
	ctx, cancel := context.WithTimeout(s.ctx, e.cfg.Timeout)
	a := &attempt{
		token:   e.token,
		kind:    kind,
		cancel:  cancel,
		started: e.clock.Now(),
	}
	e.mu.Unlock()

	e.logger.Debug("fetch attempt dispatched", "kind", string(kind), "token", a.token)
	e.emit()
	if e.hooks.OnAttempt != nil {
		e.notify("on_attempt", func() { e.hooks.OnAttempt(kind) })
	}

	go func() {
		data, err := e.load(ctx)
		select {
		case s.results <- result[T]{token: a.token, data: data, err: err}:
		case <-s.ctx.Done():
		}
	}()

	return a
}

// load performs one fetch, normalizes the envelope and decodes the payload.
func (e *Engine[T]) load(ctx context.Context) (T, error) {
	var zero T

	body, err := e.fetcher.Fetch(ctx, e.cfg.Resource)
	if err != nil {
		var statusErr *StatusError
		var transportErr *TransportError
		var decodeErr *DecodeError
		if errors.As(err, &statusErr) || errors.As(err, &transportErr) || errors.As(err, &decodeErr) {
			return zero, err
		}
		return zero, &TransportError{Err: err}
	}

	payload, err := Normalize(body)
	if err != nil {
		return zero, err
	}

	data, err := e.decode(payload)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			return zero, err
		}
		return zero, &DecodeError{Err: err}
	}
	return data, nil
}

// complete applies the outcome of the current attempt and reports whether
// a backoff retry should be armed and after how long.
func (e *Engine[T]) complete(a *attempt, res result[T]) (time.Duration, bool) {
	e.mu.Lock()
	if e.stopped || a.token != e.token {
		e.mu.Unlock()
		return 0, false
	}

	now := e.clock.Now()
	elapsed := now.Sub(a.started)
	e.loading = false
	e.updating = false

	var (
		delay time.Duration
		again bool
		retry int
	)
	if res.err == nil {
		e.data = res.data
		e.hasData = true
		e.lastUpdated = now
		e.errMsg = ""
		e.failed = false
		e.retries = 0
		e.initial = false
		e.moveLocked(evSucceed)
	} else {
		e.errMsg = res.err.Error()
		e.failed = true
		switch {
		case e.hidden:
			e.moveLocked(evFail)
		case e.retries < e.cfg.MaxRetries:
			e.retries++
			retry = e.retries
			delay = e.cfg.RetryDelay * time.Duration(e.retries)
			again = true
			e.moveLocked(evRetry)
		default:
			e.initial = false
			e.moveLocked(evFail)
		}
	}
	e.bumpLocked()
	data := e.data
	e.mu.Unlock()

	if res.err == nil {
		e.logger.Debug("fetch succeeded", "kind", string(a.kind), "elapsed", elapsed)
	} else {
		e.logger.Warn("fetch failed",
			"kind", string(a.kind),
			"error", res.err.Error(),
			"error_kind", ErrorKind(res.err),
		)
	}
	if again {
		e.logger.Info("retry scheduled", "retry", retry, "delay", delay)
	}

	e.emit()

	if e.hooks.OnResult != nil {
		e.notify("on_result", func() { e.hooks.OnResult(a.kind, elapsed, res.err) })
	}
	if again && e.hooks.OnRetryScheduled != nil {
		e.notify("on_retry_scheduled", func() { e.hooks.OnRetryScheduled(retry, delay) })
	}
	if res.err == nil {
		if e.hooks.OnSuccess != nil {
			e.notify("on_success", func() { e.hooks.OnSuccess(data) })
		}
	} else if e.hooks.OnError != nil {
		e.notify("on_error", func() { e.hooks.OnError(res.err) })
	}

	return delay, again
}

// endSession clears the attempt flags when the session ended because the
// Start context was cancelled rather than through Stop or SetEnabled.
func (e *Engine[T]) endSession(s *session[T]) {
	e.mu.Lock()
	if e.stopped || e.sess != s {
		e.mu.Unlock()
		return
	}
	e.sess = nil
	e.token++
	e.loading = false
	e.updating = false
	e.moveLocked(evHalt)
	e.bumpLocked()
	e.mu.Unlock()

	e.logger.Debug("poller context done")
	e.emit()
}

func (e *Engine[T]) resetRetries() {
	e.mu.Lock()
	e.retries = 0
	e.mu.Unlock()
}

func (e *Engine[T]) setHidden(hidden bool) {
	e.mu.Lock()
	if e.stopped || e.hidden == hidden {
		e.mu.Unlock()
		return
	}
	e.hidden = hidden
	e.bumpLocked()
	e.mu.Unlock()
	e.emit()
}

func (e *Engine[T]) move(ev event) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.moveLocked(ev)
	e.bumpLocked()
	e.mu.Unlock()
	e.emit()
}

func (e *Engine[T]) moveLocked(ev event) {
	to, ok := e.phase.next(ev)
	if !ok {
		e.logger.Debug("ignored transition", "phase", string(e.phase), "event", string(ev))
		return
	}
	e.phase = to
}

// checkStale publishes a staleness change detected by the watchdog.
func (e *Engine[T]) checkStale() {
	e.mu.Lock()
	if e.stopped || e.staleLocked(e.clock.Now()) == e.stale {
		e.mu.Unlock()
		return
	}
	e.bumpLocked()
	e.mu.Unlock()

	e.logger.Debug("staleness changed")
	e.emit()
}

func (e *Engine[T]) staleLocked(now time.Time) bool {
	if e.failed {
		return true
	}
	return !e.lastUpdated.IsZero() && now.Sub(e.lastUpdated) > 2*e.interval
}

func (e *Engine[T]) bumpLocked() {
	e.version++
	e.stale = e.staleLocked(e.clock.Now())
}

func (e *Engine[T]) snapshotLocked(now time.Time) State[T] {
	return State[T]{
		Data:        e.data,
		HasData:     e.hasData,
		Loading:     e.loading,
		IsUpdating:  e.updating,
		Error:       e.errMsg,
		LastUpdated: e.lastUpdated,
		IsStale:     e.staleLocked(now),
		Phase:       e.phase,
		RetryCount:  e.retries,
		Enabled:     e.enabled,
		Hidden:      e.hidden,
		Version:     e.version,
	}
}

// emit queues delivery of the latest snapshot to OnState. At most one
// delivery is queued at a time; it reads the state when it runs, so bursts
// of changes coalesce and observers see versions in increasing order.
func (e *Engine[T]) emit() {
	if e.hooks.OnState == nil {
		return
	}

	e.emitMu.Lock()
	if e.statePending {
		e.emitMu.Unlock()
		return
	}
	e.statePending = true
	e.emitMu.Unlock()

	e.calls.push(e.deliverState)
}

// deliverState runs on the hook queue only.
func (e *Engine[T]) deliverState() {
	e.emitMu.Lock()
	e.statePending = false
	e.emitMu.Unlock()

	e.mu.Lock()
	stopped := e.stopped
	snap := e.snapshotLocked(e.clock.Now())
	e.mu.Unlock()

	if stopped || snap.Version <= e.lastEmitted {
		return
	}
	e.lastEmitted = snap.Version
	e.safeCall("on_state", func() { e.hooks.OnState(snap) })
}

// notify queues a user callback behind every earlier hook.
func (e *Engine[T]) notify(name string, fn func()) {
	e.calls.push(func() { e.safeCall(name, fn) })
}

// safeCall runs a user callback, logging panics with a correlation id.
// Callbacks are dropped once the engine is stopped.
func (e *Engine[T]) safeCall(name string, fn func()) {
	e.mu.Lock()
	stopped := e.stopped
	e.mu.Unlock()
	if stopped {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("callback panic",
				"callback", name,
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// staticEnvironment is always visible and never narrow.
type staticEnvironment struct{}

func (staticEnvironment) IsHidden() bool                             { return false }
func (staticEnvironment) IsNarrowViewport() bool                     { return false }
func (staticEnvironment) OnVisibilityChange(func(bool)) (cancel func()) { return func() {} }
