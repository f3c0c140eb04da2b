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

// Package tchannel implements a berth listener for TChannel. Every method
// of the listener's service is accepted using the raw arg scheme: arg3 is
// the unit payload and the handler's reply is returned as arg3.
package tchannel

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/tchannel-go"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/internal/inbound"
	"go.uber.org/zap"
)

const closePollInterval = 10 * time.Millisecond

// InboundOption is an option for a TChannel inbound.
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

// WithTracer sets the tracer used to continue the caller's span.
// Defaults to opentracing.GlobalTracer().
func WithTracer(tracer opentracing.Tracer) InboundOption {
	return func(i *Inbound) { i.tracer = tracer }
}

// WithServiceName sets the TChannel service name callers must address.
// Defaults to the endpoint name.
func WithServiceName(name string) InboundOption {
	return func(i *Inbound) { i.serviceName = name }
}

// Inbound is a TChannel listener.
type Inbound struct {
	*inbound.Core

	logger      *zap.Logger
	observer    dispatch.Observer
	tracer      opentracing.Tracer
	serviceName string
}

var _ dispatch.Listener = (*Inbound)(nil)

// NewInbound builds a TChannel listener for the endpoint name.
func NewInbound(name string, opts ...InboundOption) *Inbound {
	i := &Inbound{serviceName: name}
	for _, opt := range opts {
		opt(i)
	}
	if i.tracer == nil {
		i.tracer = opentracing.GlobalTracer()
	}
	i.Core = inbound.NewCore(name, TransportName, i.logger, i.observer)
	return i
}

// ServiceName returns the TChannel service name of the inbound.
func (i *Inbound) ServiceName() string { return i.serviceName }

// Start binds cfg.Port and starts serving calls.
func (i *Inbound) Start(cfg dispatch.EndpointConfig, h dispatch.Handler) error {
	ch, err := tchannel.NewChannel(i.serviceName, &tchannel.ChannelOptions{
		Logger: newZapLogger(i.Logger()),
		Tracer: i.tracer,
	})
	if err != nil {
		return err
	}
	ch.GetSubChannel(i.serviceName).SetHandler(handler{i: i})
	if err := i.Core.Start(cfg, h, newServer(ch)); err != nil {
		ch.Close()
		return err
	}
	return nil
}

// server adapts a tchannel.Channel to the inbound core.
type server struct {
	ch *tchannel.Channel

	// closing is closed once the channel has begun closing. The accept loop
	// of the channel treats a closed listener as fatal until then.
	closing   chan struct{}
	closeOnce sync.Once
}

func newServer(ch *tchannel.Channel) *server {
	return &server{ch: ch, closing: make(chan struct{})}
}

func (s *server) markClosing() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// Serve starts the channel on lis and blocks until the channel closes.
func (s *server) Serve(lis net.Listener) error {
	if err := s.ch.Serve(&gatedListener{Listener: lis, srv: s}); err != nil {
		// Shutdown won the race against the serve goroutine.
		if s.ch.State() >= tchannel.ChannelStartClose {
			_ = lis.Close()
			return nil
		}
		return err
	}
	<-s.closing
	return nil
}

// Shutdown closes the channel and waits for its connections to drain.
func (s *server) Shutdown(ctx context.Context) error {
	s.ch.Close()
	s.markClosing()

	ticker := time.NewTicker(closePollInterval)
	defer ticker.Stop()
	for s.ch.State() != tchannel.ChannelClosed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// gatedListener holds back the error of Accept on a closed listener until
// the channel closes it. Channel.Close calls Close with the channel state
// locked, so the accept loop then observes the channel as closing.
type gatedListener struct {
	net.Listener

	srv *server
}

func (l *gatedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil && errors.Is(err, net.ErrClosed) {
		<-l.srv.closing
	}
	return conn, err
}

func (l *gatedListener) Close() error {
	l.srv.markClosing()
	if err := l.Listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
