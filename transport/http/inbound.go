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

// Package http implements a berth listener for HTTP. The body of every
// request, whatever its method and path, is a unit of work; the handler's
// reply becomes the response body.
package http

import (
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/internal/inbound"
	berthnet "go.uber.org/berth/internal/net"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// InboundOption is an option for an HTTP inbound.
type InboundOption func(*Inbound)

// WithLogger sets the logger for the inbound.
func WithLogger(logger *zap.Logger) InboundOption {
	return func(i *Inbound) { i.logger = logger }
}

// WithObserver sets the observer notified of admission decisions and
// completed units.
func WithObserver(o dispatch.Observer) InboundOption {
	return func(i *Inbound) { i.observer = o }
}

// WithTracer sets the tracer used to start a span for every request.
// Defaults to opentracing.GlobalTracer().
func WithTracer(tracer opentracing.Tracer) InboundOption {
	return func(i *Inbound) { i.tracer = tracer }
}

// WithMaxBodySize bounds request bodies. Larger requests are answered with
// 413 without reaching the worker pool.
func WithMaxBodySize(n int64) InboundOption {
	return func(i *Inbound) { i.maxBodySize = n }
}

// WithRetryAfter sets the Retry-After value, in seconds, sent with replies
// to requests rejected by a saturated endpoint. Defaults to 1.
func WithRetryAfter(seconds int) InboundOption {
	return func(i *Inbound) { i.retryAfter = seconds }
}

// WithH2C serves HTTP/2 over cleartext connections alongside HTTP/1.
func WithH2C() InboundOption {
	return func(i *Inbound) { i.h2c = true }
}

// WithReadHeaderTimeout bounds the time allowed to read request headers.
func WithReadHeaderTimeout(d time.Duration) InboundOption {
	return func(i *Inbound) { i.readHeaderTimeout = d }
}

// Mux specifies the ServeMux that the HTTP server should use and the pattern
// under which the endpoint should be registered.
func Mux(pattern string, mux *http.ServeMux) InboundOption {
	return func(i *Inbound) {
		i.mux = mux
		i.muxPattern = pattern
	}
}

// Inbound is an HTTP listener.
type Inbound struct {
	*inbound.Core

	logger            *zap.Logger
	observer          dispatch.Observer
	tracer            opentracing.Tracer
	maxBodySize       int64
	retryAfter        int
	h2c               bool
	readHeaderTimeout time.Duration
	mux               *http.ServeMux
	muxPattern        string
}

var _ dispatch.Listener = (*Inbound)(nil)

// NewInbound builds an HTTP listener for the endpoint name.
func NewInbound(name string, opts ...InboundOption) *Inbound {
	i := &Inbound{
		maxBodySize: DefaultMaxBodySize,
		retryAfter:  1,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.tracer == nil {
		i.tracer = opentracing.GlobalTracer()
	}
	if i.maxBodySize <= 0 {
		i.maxBodySize = DefaultMaxBodySize
	}
	i.Core = inbound.NewCore(name, TransportName, i.logger, i.observer)
	return i
}

// Start binds cfg.Port and starts serving requests.
func (i *Inbound) Start(cfg dispatch.EndpointConfig, h dispatch.Handler) error {
	var httpHandler http.Handler = handler{i: i}
	if i.mux != nil {
		i.mux.Handle(i.muxPattern, httpHandler)
		httpHandler = i.mux
	}
	if i.h2c {
		httpHandler = h2c.NewHandler(httpHandler, &http2.Server{})
	}

	server := berthnet.NewHTTPServer(&http.Server{
		Handler:           httpHandler,
		ReadHeaderTimeout: i.readHeaderTimeout,
		ErrorLog:          zap.NewStdLog(i.Logger()),
	})
	return i.Core.Start(cfg, h, server)
}
