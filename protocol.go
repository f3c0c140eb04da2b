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

package berth

import (
	"github.com/opentracing/opentracing-go"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/transport/grpc"
	"go.uber.org/berth/transport/http"
	"go.uber.org/berth/transport/mllp"
	"go.uber.org/berth/transport/tchannel"
	"go.uber.org/zap"
)

// Names of the built-in protocols.
const (
	ProtocolMLLP     = mllp.TransportName
	ProtocolHTTP     = http.TransportName
	ProtocolGRPC     = grpc.TransportName
	ProtocolTChannel = tchannel.TransportName
)

// ListenerDeps are the shared dependencies handed to a ListenerFactory.
type ListenerDeps struct {
	Logger   *zap.Logger
	Observer dispatch.Observer
	Tracer   opentracing.Tracer
}

// ListenerFactory builds an unstarted listener for the endpoint name.
type ListenerFactory func(name string, deps ListenerDeps) dispatch.Listener

// DefaultProtocols returns factories for every built-in protocol.
func DefaultProtocols() map[string]ListenerFactory {
	return map[string]ListenerFactory{
		ProtocolMLLP: func(name string, d ListenerDeps) dispatch.Listener {
			return mllp.NewInbound(name, mllp.WithLogger(d.Logger), mllp.WithObserver(d.Observer))
		},
		ProtocolHTTP: func(name string, d ListenerDeps) dispatch.Listener {
			return http.NewInbound(name, http.WithLogger(d.Logger), http.WithObserver(d.Observer), http.WithTracer(d.Tracer))
		},
		ProtocolGRPC: func(name string, d ListenerDeps) dispatch.Listener {
			return grpc.NewInbound(name, grpc.WithLogger(d.Logger), grpc.WithObserver(d.Observer), grpc.WithTracer(d.Tracer))
		},
		ProtocolTChannel: func(name string, d ListenerDeps) dispatch.Listener {
			return tchannel.NewInbound(name, tchannel.WithLogger(d.Logger), tchannel.WithObserver(d.Observer), tchannel.WithTracer(d.Tracer))
		},
	}
}
