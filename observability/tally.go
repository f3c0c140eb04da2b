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

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/berth/api/dispatch"
)

// TallyObserver reports admission and completion statistics to a tally
// scope, tagged with the endpoint, transport, port and rejection policy.
type TallyObserver struct {
	scope tally.Scope

	mu     sync.RWMutex
	scopes map[dispatch.Event]tally.Scope
}

var _ dispatch.Observer = (*TallyObserver)(nil)

// NewTallyObserver builds a TallyObserver reporting under scope.
func NewTallyObserver(scope tally.Scope) *TallyObserver {
	if scope == nil {
		scope = tally.NoopScope
	}
	return &TallyObserver{
		scope:  scope,
		scopes: make(map[dispatch.Event]tally.Scope),
	}
}

// OnAdmitted implements dispatch.Observer.
func (o *TallyObserver) OnAdmitted(ev dispatch.Event) {
	o.tagged(ev).Counter("admitted").Inc(1)
}

// OnRejected implements dispatch.Observer.
func (o *TallyObserver) OnRejected(ev dispatch.Event, reason error) {
	o.tagged(ev).Tagged(map[string]string{_reason: rejectReason(reason)}).Counter("rejected").Inc(1)
}

// OnCompleted implements dispatch.Observer.
func (o *TallyObserver) OnCompleted(ev dispatch.Event, elapsed time.Duration, outcome dispatch.Outcome) {
	s := o.tagged(ev).Tagged(map[string]string{_outcome: outcome.String()})
	s.Counter("completed").Inc(1)
	s.Timer("latency").Record(elapsed)
}

func (o *TallyObserver) tagged(ev dispatch.Event) tally.Scope {
	o.mu.RLock()
	s, ok := o.scopes[ev]
	o.mu.RUnlock()
	if ok {
		return s
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.scopes[ev]; ok {
		return s
	}
	s = o.scope.Tagged(map[string]string{
		_endpoint:  unknownIfEmpty(ev.Endpoint),
		_transport: unknownIfEmpty(ev.Transport),
		_port:      strconv.Itoa(ev.Port),
		_policy:    ev.Policy.String(),
	})
	o.scopes[ev] = s
	return s
}
