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

import "time"

// Outcome classifies how a unit that entered the pool completed.
type Outcome int

const (
	// OutcomeSuccess means the handler returned a payload.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure means the handler returned an error or panicked.
	OutcomeFailure
	// OutcomeTimeout means the response timeout elapsed first.
	OutcomeTimeout
	// OutcomeTerminated means the pool was shut down forcibly first.
	OutcomeTerminated
)

var _outcomeToString = map[Outcome]string{
	OutcomeSuccess:    "success",
	OutcomeFailure:    "failure",
	OutcomeTimeout:    "timeout",
	OutcomeTerminated: "terminated",
}

func (o Outcome) String() string {
	if s, ok := _outcomeToString[o]; ok {
		return s
	}
	return "unknown"
}

// Event identifies the endpoint an observer notification comes from.
type Event struct {
	Endpoint  string
	Transport string
	Port      int
	Policy    RejectionPolicy
}

// Observer is notified of admission decisions and completions. Calls are
// made synchronously from I/O and worker goroutines and may arrive in any
// order across units; implementations must be safe for concurrent use and
// must not block.
type Observer interface {
	// OnAdmitted is called when a unit is accepted into the pool, or is
	// about to run on the caller's goroutine under CallerRuns.
	OnAdmitted(Event)

	// OnRejected is called when the gate rejects a unit. reason is a
	// *bertherrors.PoolSaturatedError, or an Unavailable status when the
	// pool is shutting down.
	OnRejected(ev Event, reason error)

	// OnCompleted is called once for every admitted unit.
	OnCompleted(ev Event, elapsed time.Duration, outcome Outcome)
}

// NopObserver ignores every notification.
var NopObserver Observer = nopObserver{}

type nopObserver struct{}

func (nopObserver) OnAdmitted(Event)                          {}
func (nopObserver) OnRejected(Event, error)                   {}
func (nopObserver) OnCompleted(Event, time.Duration, Outcome) {}

// MultiObserver fans every notification out to all non-nil observers in
// order.
func MultiObserver(observers ...Observer) Observer {
	filtered := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o == nil {
			continue
		}
		if mo, ok := o.(multiObserver); ok {
			filtered = append(filtered, mo...)
			continue
		}
		filtered = append(filtered, o)
	}
	switch len(filtered) {
	case 0:
		return NopObserver
	case 1:
		return filtered[0]
	default:
		return filtered
	}
}

type multiObserver []Observer

func (mo multiObserver) OnAdmitted(ev Event) {
	for _, o := range mo {
		o.OnAdmitted(ev)
	}
}

func (mo multiObserver) OnRejected(ev Event, reason error) {
	for _, o := range mo {
		o.OnRejected(ev, reason)
	}
}

func (mo multiObserver) OnCompleted(ev Event, elapsed time.Duration, outcome Outcome) {
	for _, o := range mo {
		o.OnCompleted(ev, elapsed, outcome)
	}
}
