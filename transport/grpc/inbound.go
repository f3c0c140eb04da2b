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

// Package grpc implements a berth listener for gRPC. Every method of every
// service is accepted: the raw request message is the unit payload and the
// handler's reply is sent back as the raw response message. Only unary
// calls are supported.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/internal/inbound"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// InboundOption is an option for a gRPC inbound.
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

// WithTracer sets the tracer used to start a span for every call.
// Defaults to opentracing.GlobalTracer().
func WithTracer(tracer opentracing.Tracer) InboundOption {
	return func(i *Inbound) { i.tracer = tracer }
}

// WithMaxRecvMsgSize bounds the size of request messages.
func WithMaxRecvMsgSize(n int) InboundOption {
	return func(i *Inbound) {
		i.serverOptions = append(i.serverOptions, grpc.MaxRecvMsgSize(n))
	}
}

// WithServerOptions passes additional options to the grpc.Server.
func WithServerOptions(opts ...grpc.ServerOption) InboundOption {
	return func(i *Inbound) {
		i.serverOptions = append(i.serverOptions, opts...)
	}
}

// Inbound is a gRPC listener.
type Inbound struct {
	*inbound.Core

	logger        *zap.Logger
	observer      dispatch.Observer
	tracer        opentracing.Tracer
	serverOptions []grpc.ServerOption
}

var _ dispatch.Listener = (*Inbound)(nil)

// NewInbound builds a gRPC listener for the endpoint name.
func NewInbound(name string, opts ...InboundOption) *Inbound {
	i := &Inbound{}
	for _, opt := range opts {
		opt(i)
	}
	if i.tracer == nil {
		i.tracer = opentracing.GlobalTracer()
	}
	i.Core = inbound.NewCore(name, TransportName, i.logger, i.observer)
	return i
}

// Start binds cfg.Port and starts serving calls.
func (i *Inbound) Start(cfg dispatch.EndpointConfig, h dispatch.Handler) error {
	opts := append([]grpc.ServerOption{
		grpc.CustomCodec(rawCodec{}),
		grpc.UnknownServiceHandler(handler{i: i}.handle),
	}, i.serverOptions...)
	return i.Core.Start(cfg, h, &server{grpc.NewServer(opts...)})
}

// server adapts a grpc.Server to the inbound core.
type server struct {
	*grpc.Server
}

func (s *server) Serve(lis net.Listener) error {
	err := s.Server.Serve(lis)
	if err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully. Calls still running when ctx ends
// are cancelled.
func (s *server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.Server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.Server.Stop()
		<-done
		return ctx.Err()
	}
}
