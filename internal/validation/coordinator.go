package validation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"infranest/internal/clock"
	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
)

// DefaultDebounce is the quiet period between the last change and the
// validator call.
const DefaultDebounce = 500 * time.Millisecond

// Coordinator turns a stream of specification changes into at most one
// validator call per quiet period.
//
// Every Observe bumps an edit counter. A call is stamped with the counter
// value at the moment it is issued, and its response is dropped unless the
// counter still holds that value when it arrives. Failed calls are not
// retried; they resolve to Invalid with a synthetic message until the next
// change or an explicit Retry.
type Coordinator struct {
	validator Validator
	clock     clock.Clock
	debounce  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	gen       uint64
	spec      dsl.Specification
	hasSpec   bool
	timer     clock.Timer
	state     State
	seq       uint64
	closed    bool
	listeners map[int]func(State)
	nextID    int

	notifyMu  sync.Mutex
	delivered uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) { c.debounce = d }
}

// WithClock replaces the real clock.
func WithClock(cl clock.Clock) Option {
	return func(c *Coordinator) { c.clock = cl }
}

// WithTimeout bounds each validator call. Zero means no bound beyond the
// validator's own.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator returns an idle coordinator.
func NewCoordinator(v Validator, opts ...Option) *Coordinator {
	c := &Coordinator{
		validator: v,
		clock:     clock.RealClock{},
		debounce:  DefaultDebounce,
		logger:    zerolog.Nop(),
		listeners: make(map[int]func(State)),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With().Str("component", "validation").Logger()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Observe records spec as the latest specification, moves to Pending and
// restarts the quiet period. It returns the new generation.
func (c *Coordinator) Observe(spec dsl.Specification) uint64 {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	c.gen++
	gen := c.gen
	c.spec, c.hasSpec = spec, true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clock.AfterFunc(c.debounce, func() { c.run(gen) })
	st, seq := c.setLocked(State{Status: StatusPending, Generation: gen})
	c.mu.Unlock()

	c.logger.Debug().Uint64("generation", gen).Dur("debounce", c.debounce).Msg("validation scheduled")
	c.publish(st, seq)
	return gen
}

// Retry re-validates the latest specification immediately. It reports
// false when nothing has been observed.
func (c *Coordinator) Retry() bool {
	c.mu.Lock()
	if c.closed || !c.hasSpec {
		c.mu.Unlock()
		return false
	}
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	st, seq := c.setLocked(State{Status: StatusPending, Generation: gen})
	c.mu.Unlock()

	c.logger.Debug().Uint64("generation", gen).Msg("validation retry")
	c.publish(st, seq)
	go c.run(gen)
	return true
}

// Reset forgets the specification and returns to Idle. Outstanding
// responses are discarded.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.spec, c.hasSpec = dsl.Specification{}, false
	st, seq := c.setLocked(State{Status: StatusIdle, Generation: c.gen})
	c.mu.Unlock()
	c.publish(st, seq)
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every state change and returns a function that
// removes it. Callbacks are serialized and must not call Observe, Retry or
// Reset.
func (c *Coordinator) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close stops the timer, cancels calls in flight and waits for them.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) run(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	spec := c.spec
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := c.clock.Now()
	res, err := c.validator.Validate(ctx, spec)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug().Uint64("generation", gen).Msg("stale validation response discarded")
		return
	}
	var next State
	if err != nil {
		if !errors.Is(err, nesterrors.ErrValidationTransport) {
			err = nesterrors.Mark(err, nesterrors.ErrValidationTransport)
		}
		next = State{
			Status:     StatusInvalid,
			Result:     &Result{Valid: false, Errors: []string{err.Error()}, Warnings: []string{}},
			Generation: gen,
			Err:        err,
		}
	} else {
		status := StatusInvalid
		if res.Valid {
			status = StatusValid
		}
		r := normalize(res)
		next = State{Status: status, Result: &r, Generation: gen}
	}
	st, seq := c.setLocked(next)
	c.mu.Unlock()

	ev := c.logger.Debug()
	if err != nil {
		ev = c.logger.Warn().Err(err)
	}
	ev.Uint64("generation", gen).
		Str("status", st.Status.String()).
		Dur("elapsed", c.clock.Now().Sub(start)).
		Msg("validation resolved")
	c.publish(st, seq)
}

func (c *Coordinator) setLocked(st State) (State, uint64) {
	c.state = st
	c.seq++
	return st, c.seq
}

// publish delivers st unless a newer state has already gone out.
func (c *Coordinator) publish(st State, seq uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if seq <= c.delivered {
		return
	}
	c.delivered = seq

	c.mu.Lock()
	fns := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func normalize(r Result) Result {
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return r
}
