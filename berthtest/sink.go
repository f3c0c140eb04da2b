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

package berthtest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/berth/api/dispatch"
)

// Sink records every Result it receives. Its first Result is kept
// separately so tests can assert both the value and that it was delivered
// exactly once.
type Sink struct {
	mu      sync.Mutex
	results []dispatch.Result
	at      time.Time
	done    chan struct{}
}

var _ dispatch.Sink = (*Sink)(nil)

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{done: make(chan struct{})}
}

// Send implements dispatch.Sink.
func (s *Sink) Send(r dispatch.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	if len(s.results) == 1 {
		s.at = time.Now()
		close(s.done)
	}
}

// Done returns a channel that closes on the first Send.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Calls returns the number of times Send was called.
func (s *Sink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Result returns the first Result, or the zero Result if none arrived.
func (s *Sink) Result() dispatch.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return dispatch.Result{}
	}
	return s.results[0]
}

// At returns when the first Result arrived.
func (s *Sink) At() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at
}

// Await waits up to timeout for the first Result and fails the test if
// none arrives.
func (s *Sink) Await(t testing.TB, timeout time.Duration) dispatch.Result {
	t.Helper()
	select {
	case <-s.done:
		return s.Result()
	case <-time.After(timeout):
		require.FailNow(t, "sink was not called", "waited %v", timeout)
		return dispatch.Result{}
	}
}

// Unit builds a unit with payload whose result goes to a new Sink.
func Unit(payload string) (*dispatch.Unit, *Sink) {
	sink := NewSink()
	return dispatch.NewUnit([]byte(payload), map[string]string{}, sink), sink
}
