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

package workerpool

import (
	"time"

	"go.uber.org/berth/api/dispatch"
	"go.uber.org/zap"
)

// Option customizes a Pool.
type Option interface {
	apply(*poolOptions)
}

type poolOptionFunc func(*poolOptions)

func (f poolOptionFunc) apply(opts *poolOptions) { f(opts) }

type poolOptions struct {
	core      int
	max       int
	queue     int
	keepAlive time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	observer  dispatch.Observer
	event     dispatch.Event
}

var defaultPoolOptions = poolOptions{
	core:      1,
	max:       1,
	keepAlive: dispatch.DefaultIdleKeepAlive,
}

// WithSize sets the core and maximum number of workers.
func WithSize(core, max int) Option {
	return poolOptionFunc(func(opts *poolOptions) {
		opts.core = core
		opts.max = max
	})
}

// WithQueueCapacity sets the number of admitted units that may wait for a
// worker. Zero means direct hand-off.
func WithQueueCapacity(n int) Option {
	return poolOptionFunc(func(opts *poolOptions) {
		opts.queue = n
	})
}

// WithIdleKeepAlive sets how long workers beyond the core size wait for
// work before exiting. Zero retires them as soon as they become idle.
func WithIdleKeepAlive(d time.Duration) Option {
	return poolOptionFunc(func(opts *poolOptions) {
		opts.keepAlive = d
	})
}

// WithResponseTimeout bounds each handler call. Zero disables it.
func WithResponseTimeout(d time.Duration) Option {
	return poolOptionFunc(func(opts *poolOptions) {
		opts.timeout = d
	})
}

// WithLogger sets the logger for handler panics and shutdown.
func WithLogger(logger *zap.Logger) Option {
	return poolOptionFunc(func(opts *poolOptions) {
		opts.logger = logger
	})
}

// WithObserver sets the observer notified of admissions and completions,
// and the event identifying this pool's endpoint.
func WithObserver(o dispatch.Observer, ev dispatch.Event) Option {
	return poolOptionFunc(func(opts *poolOptions) {
		opts.observer = o
		opts.event = ev
	})
}

// FromEndpointConfig applies the pool related fields of cfg.
func FromEndpointConfig(cfg dispatch.EndpointConfig) Option {
	return poolOptionFunc(func(opts *poolOptions) {
		opts.core = cfg.CorePoolSize
		opts.max = cfg.MaxPoolSize
		opts.queue = cfg.QueueCapacity
		opts.keepAlive = cfg.IdleKeepAlive
		opts.timeout = cfg.ResponseTimeout
	})
}
