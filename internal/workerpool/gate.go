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

package workerpool

import (
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/zap"
)

// Decision is the result of Gate.Admit.
type Decision int

const (
	// Admitted means the unit was handed to a worker or queued.
	Admitted Decision = iota
	// Rejected means the unit's sink has already been told it was refused.
	Rejected
	// RanInline means the unit was executed on the calling goroutine under
	// the CallerRuns policy and its sink has been called.
	RanInline
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case Rejected:
		return "rejected"
	case RanInline:
		return "ran-inline"
	default:
		return "unknown"
	}
}

// Gate decides whether a unit may enter its Pool and applies the rejection
// policy when the pool is saturated. It is safe for concurrent use by any
// number of I/O goroutines.
type Gate struct {
	pool   *Pool
	policy dispatch.RejectionPolicy
}

// NewGate returns a Gate in front of pool.
func NewGate(pool *Pool, policy dispatch.RejectionPolicy) *Gate {
	return &Gate{pool: pool, policy: policy}
}

// Pool returns the pool behind this gate.
func (g *Gate) Pool() *Pool {
	return g.pool
}

// Admit submits u to the pool. Admit never blocks, except under CallerRuns
// where it runs u to completion before returning.
//
// Whatever the decision, u's sink is called exactly once: by a worker for
// admitted units, before Admit returns otherwise. Rejected units receive a
// *bertherrors.PoolSaturatedError under Abort, the bertherrors.Discarded()
// marker under Discard, and an Unavailable status once the pool is closing.
func (g *Gate) Admit(u *dispatch.Unit) Decision {
	p := g.pool

	err := p.submit(u)
	if err == nil {
		p.observer.OnAdmitted(p.event)
		return Admitted
	}

	if bertherrors.IsPoolSaturated(err) {
		switch g.policy {
		case dispatch.CallerRuns:
			inlineErr := p.runInline(u)
			if inlineErr == nil {
				return RanInline
			}
			err = inlineErr
		case dispatch.Discard:
			p.observer.OnRejected(p.event, err)
			p.logger.Debug("discarded unit", zap.String("endpoint", p.event.Endpoint), zap.Error(err))
			u.Respond(dispatch.Failure(bertherrors.Discarded()))
			return Rejected
		}
	}

	p.observer.OnRejected(p.event, err)
	p.logger.Debug("rejected unit", zap.String("endpoint", p.event.Endpoint), zap.Error(err))
	u.Respond(dispatch.Failure(err))
	return Rejected
}
