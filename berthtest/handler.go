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

package berthtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/berth/api/dispatch"
)

// EchoHandler returns the payload it receives.
var EchoHandler = dispatch.HandlerFunc(func(_ context.Context, payload []byte, _ map[string]string) ([]byte, error) {
	return payload, nil
})

// PanicHandler panics with msg on every call.
func PanicHandler(msg string) dispatch.Handler {
	return dispatch.HandlerFunc(func(context.Context, []byte, map[string]string) ([]byte, error) {
		panic(msg)
	})
}

// SleepHandler waits d, or until its context ends, then replies with reply.
func SleepHandler(d time.Duration, reply string) dispatch.Handler {
	return dispatch.HandlerFunc(func(ctx context.Context, _ []byte, _ map[string]string) ([]byte, error) {
		select {
		case <-time.After(d):
			return []byte(reply), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// BlockingHandler holds every call until Release is called or the call's
// context ends. Calls echo their payload once released.
type BlockingHandler struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

// NewBlockingHandler returns a BlockingHandler that records up to 1024
// pending starts.
func NewBlockingHandler() *BlockingHandler {
	return &BlockingHandler{
		started: make(chan struct{}, 1024),
		release: make(chan struct{}),
	}
}

// Handle implements dispatch.Handler.
func (b *BlockingHandler) Handle(ctx context.Context, payload []byte, _ map[string]string) ([]byte, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AwaitStarted waits until n more calls have started.
func (b *BlockingHandler) AwaitStarted(t testing.TB, n int) {
	t.Helper()
	timeout := time.After(5 * Second)
	for i := 0; i < n; i++ {
		select {
		case <-b.started:
		case <-timeout:
			require.FailNow(t, "handler calls did not start", "%d of %d started", i, n)
		}
	}
}

// Release lets every pending and future call return.
func (b *BlockingHandler) Release() {
	b.once.Do(func() { close(b.release) })
}

// ConcurrencyTracker wraps a handler and records the highest number of
// calls that were in progress at the same time.
type ConcurrencyTracker struct {
	Handler dispatch.Handler

	current atomic.Int32
	max     atomic.Int32
	calls   atomic.Int32
}

// Handle implements dispatch.Handler.
func (c *ConcurrencyTracker) Handle(ctx context.Context, payload []byte, md map[string]string) ([]byte, error) {
	c.calls.Inc()
	n := c.current.Inc()
	for {
		m := c.max.Load()
		if n <= m || c.max.CAS(m, n) {
			break
		}
	}
	defer c.current.Dec()
	return c.Handler.Handle(ctx, payload, md)
}

// Max returns the highest observed concurrency.
func (c *ConcurrencyTracker) Max() int { return int(c.max.Load()) }

// Calls returns the number of calls made.
func (c *ConcurrencyTracker) Calls() int { return int(c.calls.Load()) }
