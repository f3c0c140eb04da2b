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

// Package berth runs bounded inbound listeners ("berths").
//
// An endpoint is a named listener bound to one port. Every unit of work an
// endpoint reads off the wire (an HL7 message, an HTTP request, a gRPC or
// TChannel call) passes through an admission gate into a worker pool of
// bounded size, so that a burst of traffic on one port can neither exhaust
// the process nor starve other endpoints. When the pool is saturated the
// endpoint's rejection policy decides what happens to the unit:
//
//	abort        the caller receives an explicit "try again later" error
//	discard      the unit is dropped without a reply
//	caller-runs  the unit runs on the connection's own goroutine
//
// The Manager starts and stops endpoints and guarantees that a port is
// owned by at most one endpoint at a time:
//
//	m := berth.NewManager(berth.Config{Logging: berth.LoggingConfig{Zap: logger}})
//	_, err := m.StartEndpoint(berth.Endpoint{
//		Name:     "adt-feed",
//		Protocol: berth.ProtocolMLLP,
//		Config:   dispatch.EndpointConfig{Port: 2575, MaxPoolSize: 8},
//		Handler:  h,
//	})
//	...
//	err = m.StopAll(ctx)
//
// Stopping an endpoint drains its worker pool, closes its socket and waits
// until the operating system has released the port, so the port can be
// bound again as soon as StopEndpoint returns.
package berth
