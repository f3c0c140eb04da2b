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
	"time"

	"go.uber.org/berth/bertherrors"
)

// PortFree reports whether host:port can be bound right now. It binds and
// immediately closes a probe listener.
func PortFree(ctx context.Context, host string, port int) bool {
	l, err := Listen(ctx, JoinHostPort(host, port))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// WaitPortReleased polls host:port every interval until it can be bound
// again. Some network stacks release a closed socket asynchronously; this
// keeps a caller that rebinds the same port from racing the release.
//
// It returns a *bertherrors.ShutdownTimeoutError if the port is still
// taken after timeout, or when ctx ends first.
func WaitPortReleased(ctx context.Context, host string, port int, interval, timeout time.Duration) error {
	if PortFree(ctx, host, port) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &bertherrors.ShutdownTimeoutError{Stage: "port-release", Port: port, Timeout: timeout}
		case <-ticker.C:
			if PortFree(ctx, host, port) {
				return nil
			}
		}
	}
}
