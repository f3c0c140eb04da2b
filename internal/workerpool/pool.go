// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package workerpool implements the bounded worker pool and the admission
// gate that feeds it.
//
// A Pool runs at most max units at once on worker goroutines that it grows
// on demand and shrinks after an idle keep-alive. Units that find every
// worker busy wait in a FIFO queue of fixed capacity; with a capacity of
// zero a unit is either handed to a worker immediately or rejected.
package workerpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/zap"
)

// Pool is a bounded set of workers executing units with one handler.
type Pool struct {
	handler   dispatch.Handler
	core      int
	max       int
	queueCap  int
	keepAlive time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	observer  dispatch.Observer
	event     dispatch.Event

	// ctx is the parent of every handler context. It is cancelled when the
	// pool terminates.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	workers    int
	idle       int
	running    int
	callerRuns int
	queue      []*dispatch.Unit
	inflight   map[*dispatch.Unit]struct{}
	// handoff carries units to idle workers. Every send is preceded by an
	// idle-- under mu, so it never holds more than max units and a send
	// never blocks.
	handoff   chan *dispatch.Unit
	closed    bool
	stopCh    chan struct{}
	drained   chan struct{}
	isDrained bool

	wg sync.WaitGroup
}

// New builds a pool that runs h. No workers are started until the first
// unit is submitted.
func New(h dispatch.Handler, opts ...Option) *Pool {
	options := defaultPoolOptions
	for _, opt := range opts {
		opt.apply(&options)
	}

	if options.max < 1 {
		options.max = 1
	}
	if options.core < 0 {
		options.core = 0
	}
	if options.core > options.max {
		options.core = options.max
	}
	if options.queue < 0 {
		options.queue = 0
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := options.observer
	if observer == nil {
		observer = dispatch.NopObserver
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		handler:   h,
		core:      options.core,
		max:       options.max,
		queueCap:  options.queue,
		keepAlive: options.keepAlive,
		timeout:   options.timeout,
		logger:    logger,
		observer:  observer,
		event:     options.event,
		ctx:       ctx,
		cancel:    cancel,
		inflight:  make(map[*dispatch.Unit]struct{}),
		handoff:   make(chan *dispatch.Unit, options.max),
		stopCh:    make(chan struct{}),
		drained:   make(chan struct{}),
	}
}

// Stats returns a snapshot of the pool's accounting.
func (p *Pool) Stats() dispatch.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return dispatch.PoolStats{
		Workers:    p.workers,
		Idle:       p.idle,
		Running:    p.running,
		Queued:     len(p.queue),
		CallerRuns: p.callerRuns,
		Max:        p.max,
	}
}

// submit admits u to a worker or the queue. It never blocks. It returns a
// *bertherrors.PoolSaturatedError when there is no room, or an Unavailable
// status once the pool is shutting down.
func (p *Pool) submit(u *dispatch.Unit) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.errClosed()
	}

	if p.running < p.max {
		p.running++
		p.inflight[u] = struct{}{}
		if p.idle > 0 {
			p.idle--
			p.handoff <- u
		} else {
			p.workers++
			p.wg.Add(1)
			go p.worker(u)
		}
		return nil
	}

	if len(p.queue) < p.queueCap {
		p.queue = append(p.queue, u)
		return nil
	}

	return &bertherrors.PoolSaturatedError{
		Endpoint: p.event.Endpoint,
		Active:   p.running,
		Queued:   len(p.queue),
		Max:      p.max,
	}
}

// runInline executes u on the calling goroutine. It is used by the
// CallerRuns policy and does not count against max.
func (p *Pool) runInline(u *dispatch.Unit) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.errClosed()
	}
	p.callerRuns++
	p.inflight[u] = struct{}{}
	p.mu.Unlock()

	p.observer.OnAdmitted(p.event)
	res, outcome := p.execute(u)
	p.complete(u, res, outcome)

	p.mu.Lock()
	p.callerRuns--
	delete(p.inflight, u)
	p.checkDrainedLocked()
	p.mu.Unlock()
	return nil
}

func (p *Pool) worker(u *dispatch.Unit) {
	defer p.wg.Done()

	for u != nil {
		var (
			res     dispatch.Result
			outcome dispatch.Outcome
			skipped = u.Responded()
		)
		// A unit that was terminated before a worker picked it up is not
		// run.
		if !skipped {
			res, outcome = p.execute(u)
		}

		// Free the slot before responding so that a client reacting to this
		// response finds the worker available.
		next, idle := p.release(u)
		if !skipped {
			p.complete(u, res, outcome)
		}

		switch {
		case next != nil:
			u = next
		case idle:
			u = p.waitIdle()
		default:
			return
		}
	}
}

// execute runs the handler for u under the response timeout.
func (p *Pool) execute(u *dispatch.Unit) (dispatch.Result, dispatch.Outcome) {
	ctx, cancel := p.ctx, context.CancelFunc(func() {})
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(p.ctx, p.timeout)
		timer := time.AfterFunc(p.timeout, func() {
			p.complete(u, p.timedOut(), dispatch.OutcomeTimeout)
		})
		defer timer.Stop()
	}
	defer cancel()

	payload, err := dispatch.InvokeHandler(ctx, p.handler, u, p.logger)
	if p.timeout > 0 && ctx.Err() == context.DeadlineExceeded {
		return p.timedOut(), dispatch.OutcomeTimeout
	}
	if err != nil {
		return dispatch.Failure(err), dispatch.OutcomeFailure
	}
	return dispatch.Success(payload), dispatch.OutcomeSuccess
}

func (p *Pool) timedOut() dispatch.Result {
	return dispatch.Failure(bertherrors.DeadlineExceededErrorf(
		"endpoint %q did not respond within %v", p.event.Endpoint, p.timeout))
}

// release returns the slot held for u. It hands back the next queued unit,
// or reports whether the worker should wait for more work (idle) or exit.
func (p *Pool) release(u *dispatch.Unit) (next *dispatch.Unit, idle bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.inflight, u)

	if len(p.queue) > 0 {
		next = p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.inflight[next] = struct{}{}
		return next, false
	}

	p.running--
	if p.closed || (p.keepAlive <= 0 && p.workers > p.core) {
		p.workers--
		p.checkDrainedLocked()
		return nil, false
	}

	p.idle++
	p.checkDrainedLocked()
	return nil, true
}

// waitIdle blocks an idle worker until it is handed a unit, the pool
// closes, or the keep-alive expires for a worker beyond the core size. It
// returns nil when the worker should exit.
func (p *Pool) waitIdle() *dispatch.Unit {
	var (
		timer   *time.Timer
		timeout <-chan time.Time
	)
	if p.keepAlive > 0 {
		timer = time.NewTimer(p.keepAlive)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case u := <-p.handoff:
			return u

		case <-p.stopCh:
			u, _ := p.retire(true)
			return u

		case <-timeout:
			if u, exited := p.retire(false); u != nil || exited {
				return u
			}
			timer.Reset(p.keepAlive)
		}
	}
}

// retire takes a pending hand-off if there is one, otherwise removes the
// calling idle worker when the pool is stopping or above its core size.
func (p *Pool) retire(stopping bool) (u *dispatch.Unit, exited bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case u := <-p.handoff:
		return u, false
	default:
	}

	if stopping || p.workers > p.core {
		p.idle--
		p.workers--
		return nil, true
	}
	return nil, false
}

// complete delivers res to u's sink and notifies the observer, unless the
// unit was already answered by a timeout or termination.
func (p *Pool) complete(u *dispatch.Unit, res dispatch.Result, outcome dispatch.Outcome) {
	if u.Respond(res) {
		p.observer.OnCompleted(p.event, time.Since(u.Arrived), outcome)
	}
}

// Shutdown stops admitting units and waits for admitted ones, queued units
// included, to complete. If ctx ends first the pool is terminated as by
// ShutdownNow and a *bertherrors.ShutdownTimeoutError is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	start := time.Now()

	p.mu.Lock()
	p.closeLocked()
	p.checkDrainedLocked()
	drained := p.isDrained
	p.mu.Unlock()

	// An idle pool drains even when ctx has already ended.
	if !drained {
		select {
		case <-p.drained:
		case <-ctx.Done():
			elapsed := time.Since(start)
			stats := p.Stats()
			p.logger.Error("worker pool did not drain in time, terminating remaining units",
				zap.String("endpoint", p.event.Endpoint),
				zap.Duration("waited", elapsed),
				zap.Int("running", stats.Running+stats.CallerRuns),
				zap.Int("queued", stats.Queued),
			)
			p.ShutdownNow()
			return &bertherrors.ShutdownTimeoutError{
				Stage:   "drain",
				Port:    p.event.Port,
				Timeout: elapsed.Round(time.Millisecond),
			}
		}
	}

	p.wg.Wait()
	p.cancel()
	return nil
}

// ShutdownNow stops admitting units, answers every queued and in-flight
// unit with a *bertherrors.UnitTerminatedError and cancels handler
// contexts. It does not wait for handlers to return.
func (p *Pool) ShutdownNow() {
	p.mu.Lock()
	p.closeLocked()
	victims := make([]*dispatch.Unit, 0, len(p.inflight)+len(p.queue))
	for u := range p.inflight {
		victims = append(victims, u)
	}
	victims = append(victims, p.queue...)
	p.queue = nil
	p.checkDrainedLocked()
	p.mu.Unlock()

	terminated := dispatch.Failure(&bertherrors.UnitTerminatedError{Endpoint: p.event.Endpoint})
	for _, u := range victims {
		p.complete(u, terminated, dispatch.OutcomeTerminated)
	}
	p.cancel()
}

// Closed reports whether the pool has stopped admitting units.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) closeLocked() {
	if !p.closed {
		p.closed = true
		close(p.stopCh)
	}
}

func (p *Pool) checkDrainedLocked() {
	if p.closed && !p.isDrained && p.running == 0 && p.callerRuns == 0 && len(p.queue) == 0 {
		p.isDrained = true
		close(p.drained)
	}
}

func (p *Pool) errClosed() error {
	return bertherrors.UnavailableErrorf("endpoint %q is shutting down", p.event.Endpoint)
}
