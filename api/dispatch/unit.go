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
	"time"

	"go.uber.org/atomic"
)

// Result is the outcome of one unit: a response payload or an error.
type Result struct {
	Payload []byte
	Err     error
}

// Success builds a successful Result.
func Success(payload []byte) Result {
	return Result{Payload: payload}
}

// Failure builds a failed Result.
func Failure(err error) Result {
	return Result{Err: err}
}

// Sink receives the Result of a unit. It is called exactly once per unit,
// from whichever goroutine completes it.
type Sink interface {
	Send(Result)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Result)

// Send calls f.
func (f SinkFunc) Send(r Result) { f(r) }

// Unit is one inbound request: an opaque payload, transport metadata, the
// time it arrived and the sink its result goes to. A unit is owned by
// exactly one goroutine at a time until it has been responded to.
type Unit struct {
	Payload  []byte
	Metadata map[string]string
	Arrived  time.Time

	sink      Sink
	responded atomic.Bool
}

// NewUnit builds a unit that arrived now.
func NewUnit(payload []byte, md map[string]string, sink Sink) *Unit {
	return &Unit{
		Payload:  payload,
		Metadata: md,
		Arrived:  time.Now(),
		sink:     sink,
	}
}

// Respond delivers r to the unit's sink. Only the first call has any
// effect; it returns false for every later call. Timeouts and forced
// shutdown race with handler completion, and whichever responds first wins.
func (u *Unit) Respond(r Result) bool {
	if !u.responded.CAS(false, true) {
		return false
	}
	if u.sink != nil {
		u.sink.Send(r)
	}
	return true
}

// Responded reports whether the unit's sink has been called.
func (u *Unit) Responded() bool {
	return u.responded.Load()
}
