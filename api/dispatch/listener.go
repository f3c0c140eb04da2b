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

package dispatch

import (
	"context"
	"net"

	"go.uber.org/berth/pkg/lifecycle"
)

// PoolStats is a point-in-time view of an endpoint's worker pool.
type PoolStats struct {
	// Workers is the number of live worker goroutines.
	Workers int
	// Idle is the number of workers waiting for a unit.
	Idle int
	// Running is the number of units currently executing on workers.
	Running int
	// Queued is the number of admitted units waiting for a worker.
	Queued int
	// CallerRuns is the number of units executing on I/O goroutines.
	CallerRuns int
	// Max is the configured maximum pool size.
	Max int
}

// Listener binds one port and feeds the units it reads to a bounded worker
// pool. A Listener is single use: after Stop it must be replaced.
type Listener interface {
	// Start binds cfg.Port and begins accepting. It returns once the socket
	// is listening or binding failed.
	Start(cfg EndpointConfig, h Handler) error

	// Stop refuses new connections, drains the worker pool, closes the
	// socket and waits for the port to be released. It returns a
	// *bertherrors.ShutdownTimeoutError when a step had to be forced.
	Stop(ctx context.Context) error

	// Addr returns the bound address, or nil when not listening.
	Addr() net.Addr

	// State returns the listener's lifecycle state.
	State() lifecycle.State

	// Stats returns the worker pool statistics.
	Stats() PoolStats
}
