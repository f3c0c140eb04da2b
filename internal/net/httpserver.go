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
	"errors"
	"net"
	"net/http"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

var (
	errServerStopped    = errors.New("the server has been stopped")
	errAlreadyListening = errors.New("the server is already listening")
)

// HTTPServer wraps an http.Server so it can serve a listener it does not
// own and be stopped in two phases: stop accepting, then shut down the
// remaining connections.
type HTTPServer struct {
	*http.Server

	lock     sync.Mutex
	listener net.Listener
	done     chan error
	stopped  atomic.Bool
}

// NewHTTPServer wraps the given http.Server into an HTTPServer.
func NewHTTPServer(s *http.Server) *HTTPServer {
	return &HTTPServer{
		Server: s,
		done:   make(chan error, 1),
	}
}

// Listener returns the listener for this server or nil if the server isn't
// yet listening.
func (h *HTTPServer) Listener() net.Listener {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.listener
}

// Serve accepts connections from lis until lis is closed or the server is
// shut down. It blocks. Closing the listener is not an error. A server
// that was already shut down closes lis and returns immediately.
func (h *HTTPServer) Serve(lis net.Listener) error {
	if h.stopped.Load() {
		if err := lis.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	}
	err := h.Server.Serve(lis)
	if h.stopped.Load() || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// ListenAndServe binds the configured Addr, or ":http" if unconfigured,
// starts serving in the background and returns immediately.
//
// An error is returned if the server failed to start up, if the server was
// already listening, or if the server was stopped.
func (h *HTTPServer) ListenAndServe() error {
	if h.stopped.Load() {
		return errServerStopped
	}

	addr := h.Server.Addr
	if addr == "" {
		addr = ":http"
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if h.listener != nil {
		return errAlreadyListening
	}

	listener, err := Listen(context.Background(), addr)
	if err != nil {
		return err
	}

	go func(done chan<- error) {
		done <- h.Serve(listener)
	}(h.done)

	h.listener = listener
	return nil
}

// Shutdown stops the server gracefully, waiting for active connections
// until ctx ends, after which remaining connections are closed. A server
// that was shut down cannot be started again.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	if h.stopped.Swap(true) {
		return nil
	}

	err := h.Server.Shutdown(ctx)
	if err != nil {
		err = multierr.Append(err, h.Server.Close())
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	if h.listener != nil {
		h.listener = nil
		err = multierr.Append(err, <-h.done)
	}
	return err
}
