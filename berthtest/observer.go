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
	"time"

	"go.uber.org/berth/api/dispatch"
)

// Observer records every notification it receives.
type Observer struct {
	mu        sync.Mutex
	admitted  []dispatch.Event
	rejected  []error
	outcomes  []dispatch.Outcome
	durations []time.Duration
}

var _ dispatch.Observer = (*Observer)(nil)

// OnAdmitted implements dispatch.Observer.
func (o *Observer) OnAdmitted(ev dispatch.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.admitted = append(o.admitted, ev)
}

// OnRejected implements dispatch.Observer.
func (o *Observer) OnRejected(_ dispatch.Event, reason error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, reason)
}

// OnCompleted implements dispatch.Observer.
func (o *Observer) OnCompleted(_ dispatch.Event, elapsed time.Duration, outcome dispatch.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
	o.durations = append(o.durations, elapsed)
}

// Admitted returns the number of admitted units.
func (o *Observer) Admitted() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.admitted)
}

// Rejected returns the rejection reasons in the order they were reported.
func (o *Observer) Rejected() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.rejected...)
}

// Outcomes returns the completion outcomes in the order they were reported.
func (o *Observer) Outcomes() []dispatch.Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]dispatch.Outcome(nil), o.outcomes...)
}

// Count returns how many completions had the given outcome.
func (o *Observer) Count(outcome dispatch.Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, got := range o.outcomes {
		if got == outcome {
			n++
		}
	}
	return n
}
