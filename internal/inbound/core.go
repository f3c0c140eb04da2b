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

// Package inbound implements the protocol independent half of a berth
// listener: binding, admission into the worker pool, and the stop sequence.
// Transports supply a Server that reads requests off the wire and call
// Core.Dispatch for each of them.
package inbound

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/bertherrors"
	berthnet "go.uber.org/berth/internal/net"
	"go.uber.org/berth/internal/workerpool"
	"go.uber.org/berth/pkg/lifecycle"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Server is the protocol specific half of a listener.
type Server interface {
	// Serve accepts connections from lis until lis is closed. Returning
	// because lis was closed is not an error.
	Serve(lis net.Listener) error

	// Shutdown closes the connections that remain after the worker pool has
	// drained. If ctx ends first, connections are closed forcibly.
	Shutdown(ctx context.Context) error
}

// Core binds a port and feeds the requests its Server reads into a bounded
// worker pool. It implements every dispatch.Listener method except Start,
// which transports provide so they can build their Server.
type Core struct {
	name      string
	transport string
	logger    *zap.Logger
	observer  dispatch.Observer

	once *lifecycle.Once

	// The following are written once by Start and read-only afterwards.
	cfg       dispatch.EndpointConfig
	gate      *workerpool.Gate
	srv       Server
	serveDone chan error

	mu  sync.RWMutex
	lis net.Listener
}

// NewCore builds a Core for the endpoint name. transport names the protocol
// in logs and observer events.
func NewCore(name, transport string, logger *zap.Logger, observer dispatch.Observer) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = dispatch.NopObserver
	}
	return &Core{
		name:      name,
		transport: transport,
		logger:    logger.Named(transport).With(zap.String("endpoint", name)),
		observer:  observer,
		once:      lifecycle.NewOnce(),
	}
}

// Name returns the endpoint name.
func (c *Core) Name() string { return c.name }

// Transport returns the protocol name.
func (c *Core) Transport() string { return c.transport }

// Logger returns the endpoint's logger.
func (c *Core) Logger() *zap.Logger { return c.logger }

// Config returns the configuration the core was started with.
func (c *Core) Config() dispatch.EndpointConfig { return c.cfg }

// Start validates cfg, creates the worker pool, binds the port and runs srv
// in the background. A bind refused because the address is taken is
// reported as a *bertherrors.PortInUseError with no owner.
func (c *Core) Start(cfg dispatch.EndpointConfig, h dispatch.Handler, srv Server) error {
	return c.once.Start(func() error {
		if h == nil {
			return bertherrors.InvalidArgumentErrorf("endpoint %q has no handler", c.name)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		cfg = cfg.WithDefaults()
		c.logger = c.logger.With(zap.Int("port", cfg.Port))

		ev := dispatch.Event{
			Endpoint:  c.name,
			Transport: c.transport,
			Port:      cfg.Port,
			Policy:    cfg.RejectionPolicy,
		}
		pool := workerpool.New(h,
			workerpool.FromEndpointConfig(cfg),
			workerpool.WithLogger(c.logger),
			workerpool.WithObserver(c.observer, ev),
		)

		lis, err := berthnet.Listen(context.Background(), cfg.Address())
		if err != nil {
			pool.ShutdownNow()
			if berthnet.IsAddrInUse(err) {
				return &bertherrors.PortInUseError{Port: cfg.Port, Requester: c.name, Cause: err}
			}
			return err
		}
		throttled := berthnet.Throttle(lis, cfg.AcceptRate, cfg.AcceptBurst)

		c.cfg = cfg
		c.gate = workerpool.NewGate(pool, cfg.RejectionPolicy)
		c.srv = srv
		c.serveDone = make(chan error, 1)

		c.mu.Lock()
		c.lis = throttled
		c.mu.Unlock()

		go c.serve(throttled)

		c.logger.Info("listening",
			zap.Stringer("addr", lis.Addr()),
			zap.Int("corePoolSize", cfg.CorePoolSize),
			zap.Int("maxPoolSize", cfg.MaxPoolSize),
			zap.Int("queueCapacity", cfg.QueueCapacity),
			zap.Stringer("rejectionPolicy", cfg.RejectionPolicy),
		)
		return nil
	})
}

func (c *Core) serve(lis net.Listener) {
	err := c.srv.Serve(lis)
	if err != nil && c.once.State() == lifecycle.Listening {
		c.logger.Error("accept loop stopped unexpectedly", zap.Error(err))
	}
	c.serveDone <- err
}

// Dispatch submits one request through the admission gate and waits for its
// result. It returns early with ctx's error if ctx ends first; the unit
// still runs to completion and its result is dropped.
func (c *Core) Dispatch(ctx context.Context, payload []byte, md map[string]string) dispatch.Result {
	if !c.startedOK() {
		return dispatch.Failure(bertherrors.UnavailableErrorf("endpoint %q is not listening", c.name))
	}

	results := make(chan dispatch.Result, 1)
	u := dispatch.NewUnit(payload, md, dispatch.SinkFunc(func(r dispatch.Result) {
		results <- r
	}))
	c.gate.Admit(u)

	select {
	case r := <-results:
		return r
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return dispatch.Failure(bertherrors.DeadlineExceededErrorf("caller gave up waiting for endpoint %q", c.name))
		}
		return dispatch.Failure(bertherrors.Newf(bertherrors.CodeCancelled, "caller cancelled request to endpoint %q", c.name))
	}
}

// Submit submits u through the admission gate without waiting.
func (c *Core) Submit(u *dispatch.Unit) workerpool.Decision {
	if !c.startedOK() {
		u.Respond(dispatch.Failure(bertherrors.UnavailableErrorf("endpoint %q is not listening", c.name)))
		return workerpool.Rejected
	}
	return c.gate.Admit(u)
}

// Stop refuses new connections, drains the worker pool, shuts down the
// remaining connections and waits until the port can be bound again.
//
// When ctx has no deadline the configured DrainTimeout applies. If draining
// times out, in-flight units are terminated and the returned error includes
// a *bertherrors.ShutdownTimeoutError; the port is released either way.
func (c *Core) Stop(ctx context.Context) error {
	return c.once.Stop(func() error {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.cfg.DrainTimeout)
			defer cancel()
		}

		start := time.Now()
		c.logger.Info("stopping")

		c.mu.Lock()
		lis := c.lis
		c.lis = nil
		c.mu.Unlock()

		var err error
		if cerr := lis.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}

		err = multierr.Append(err, c.gate.Pool().Shutdown(ctx))

		if serr := c.srv.Shutdown(ctx); serr != nil {
			if errors.Is(serr, context.DeadlineExceeded) || errors.Is(serr, context.Canceled) {
				serr = &bertherrors.ShutdownTimeoutError{Stage: "connections", Port: c.cfg.Port}
			}
			err = multierr.Append(err, serr)
		}

		select {
		case serr := <-c.serveDone:
			err = multierr.Append(err, serr)
		case <-time.After(c.cfg.ReleaseTimeout):
			err = multierr.Append(err, &bertherrors.ShutdownTimeoutError{
				Stage:   "accept-loop",
				Port:    c.cfg.Port,
				Timeout: c.cfg.ReleaseTimeout,
			})
		}

		err = multierr.Append(err, berthnet.WaitPortReleased(
			context.Background(), c.cfg.Host, c.cfg.Port, c.cfg.ReleasePollInterval, c.cfg.ReleaseTimeout))

		if err != nil {
			c.logger.Error("stopped with errors", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		} else {
			c.logger.Info("stopped", zap.Duration("elapsed", time.Since(start)))
		}
		return err
	})
}

// Addr returns the bound address, or nil when not listening.
func (c *Core) Addr() net.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lis == nil {
		return nil
	}
	return c.lis.Addr()
}

// State returns the listener's lifecycle state.
func (c *Core) State() lifecycle.State {
	return c.once.State()
}

// Stats returns the worker pool statistics, or zero values before Start.
func (c *Core) Stats() dispatch.PoolStats {
	if !c.startedOK() {
		return dispatch.PoolStats{}
	}
	return c.gate.Pool().Stats()
}

// startedOK reports whether Start completed successfully, which makes the
// fields it wrote safe to read.
func (c *Core) startedOK() bool {
	select {
	case <-c.once.Started():
	default:
		return false
	}
	return c.gate != nil
}
