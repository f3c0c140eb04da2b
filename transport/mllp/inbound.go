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

// Package mllp implements a berth listener for HL7 v2 messages framed with
// the Minimal Lower Layer Protocol.
//
// Each connection is served by its own goroutine which reads one framed
// message at a time, submits it to the worker pool and writes the
// acknowledgment before reading the next message. A handler may return a
// complete reply message; if it returns an empty payload the listener
// acknowledges the message with MSA|AA on its behalf.
package mllp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/berth/internal/inbound"
	"go.uber.org/zap"
)

// TransportName is the protocol name of MLLP listeners.
const TransportName = "mllp"

// InboundOption customizes an MLLP Inbound.
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

// WithMaxMessageSize bounds the size of a single framed message.
// Connections sending larger messages are closed.
func WithMaxMessageSize(n int) InboundOption {
	return func(i *Inbound) { i.maxMessageSize = n }
}

// WithReadTimeout closes connections that stay idle between messages for
// longer than d. Zero disables the timeout.
func WithReadTimeout(d time.Duration) InboundOption {
	return func(i *Inbound) { i.readTimeout = d }
}

// Inbound is an MLLP listener.
type Inbound struct {
	*inbound.Core

	logger         *zap.Logger
	observer       dispatch.Observer
	maxMessageSize int
	readTimeout    time.Duration
	now            func() time.Time
}

var _ dispatch.Listener = (*Inbound)(nil)

// NewInbound builds an MLLP listener for the endpoint name.
func NewInbound(name string, opts ...InboundOption) *Inbound {
	i := &Inbound{
		maxMessageSize: DefaultMaxMessageSize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.maxMessageSize <= 0 {
		i.maxMessageSize = DefaultMaxMessageSize
	}
	i.Core = inbound.NewCore(name, TransportName, i.logger, i.observer)
	return i
}

// Start binds cfg.Port and starts accepting connections.
func (i *Inbound) Start(cfg dispatch.EndpointConfig, h dispatch.Handler) error {
	return i.Core.Start(cfg, h, newServer(i))
}

// server tracks the open connections of one Inbound.
type server struct {
	in *Inbound

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	stopping bool
	wg       sync.WaitGroup
}

func newServer(in *Inbound) *server {
	return &server{in: in, conns: make(map[net.Conn]struct{})}
}

func (s *server) Serve(lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		go s.handle(conn)
	}
}

func (s *server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *server) handle(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	logger := s.in.Logger().With(zap.String("remote", remote))
	logger.Debug("connection opened")

	r := bufio.NewReader(conn)
	for {
		if !s.armRead(conn) {
			logger.Debug("listener stopping, closing connection")
			return
		}
		msg, err := readFrame(r, s.in.maxMessageSize)
		if err != nil {
			s.logReadError(logger, err)
			return
		}

		reply, ok := s.dispatch(msg, remote)
		if !ok {
			continue
		}
		if err := writeFrame(conn, reply); err != nil {
			logger.Debug("failed to write acknowledgment", zap.Error(err))
			return
		}
	}
}

// armRead prepares conn for the next message. It returns false once
// Shutdown has begun.
func (s *server) armRead(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	if s.in.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.in.readTimeout))
	}
	return true
}

func (s *server) logReadError(logger *zap.Logger, err error) {
	var tooLarge errFrameTooLarge
	var ne net.Error
	switch {
	case err == io.EOF, errors.Is(err, net.ErrClosed):
		logger.Debug("connection closed")
	case errors.As(err, &tooLarge):
		logger.Warn("closing connection", zap.Error(err))
	case errors.As(err, &ne) && ne.Timeout():
		logger.Debug("connection idle, closing")
	default:
		logger.Debug("connection read failed", zap.Error(err))
	}
}

// dispatch runs one message through the worker pool and returns the reply
// to write. ok is false when no reply must be sent.
func (s *server) dispatch(msg []byte, remote string) (reply []byte, ok bool) {
	h, parsed := parseHeader(msg)
	if !parsed {
		return buildAck(h, AckError, "malformed message: missing MSH segment", s.in.now()), true
	}

	md := h.metadata()
	md[RemoteAddrKey] = remote

	res := s.in.Dispatch(context.Background(), msg, md)
	if res.Err != nil {
		if bertherrors.IsDiscarded(res.Err) {
			return nil, false
		}
		return buildAck(h, ackCodeFor(res.Err), ackText(res.Err), s.in.now()), true
	}
	if len(res.Payload) == 0 {
		return buildAck(h, AckAccept, "", s.in.now()), true
	}
	return res.Payload, true
}

func ackText(err error) string {
	if st := bertherrors.FromError(err); st != nil && st.Message() != "" {
		return st.Message()
	}
	return err.Error()
}

// Shutdown interrupts reads on every connection so connection goroutines
// exit after writing any pending acknowledgment. Connections still open
// when ctx ends are closed.
func (s *server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	for conn := range s.conns {
		_ = conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	<-done
	return ctx.Err()
}
