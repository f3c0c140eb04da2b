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

package net

import (
	"context"
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// ThrottledListener limits the rate at which connections are handed out by
// Accept. Connections beyond the rate wait in the kernel backlog.
type ThrottledListener struct {
	net.Listener

	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// Throttle wraps l so that at most r connections per second are accepted,
// with bursts of up to burst. A non-positive r returns a listener that
// never waits but still closes idempotently.
func Throttle(l net.Listener, r float64, burst int) *ThrottledListener {
	ctx, cancel := context.WithCancel(context.Background())
	tl := &ThrottledListener{
		Listener: l,
		ctx:      ctx,
		cancel:   cancel,
	}
	if r > 0 {
		if burst < 1 {
			burst = 1
		}
		tl.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
	return tl
}

// Accept waits for the rate limiter and then for the next connection.
func (tl *ThrottledListener) Accept() (net.Conn, error) {
	if tl.limiter != nil {
		if err := tl.limiter.Wait(tl.ctx); err != nil {
			// Only Close cancels the context.
			return nil, &net.OpError{Op: "accept", Net: "tcp", Addr: tl.Addr(), Err: net.ErrClosed}
		}
	}
	return tl.Listener.Accept()
}

// Close closes the underlying listener. Later calls return the result of
// the first one.
func (tl *ThrottledListener) Close() error {
	tl.closeOnce.Do(func() {
		tl.cancel()
		tl.closeErr = tl.Listener.Close()
	})
	return tl.closeErr
}
