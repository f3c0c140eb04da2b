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

// Package lifecycle provides the at-most-once start/stop state machine
// shared by berth listeners.
package lifecycle

import (
	"context"
	"errors"
	syncatomic "sync/atomic"

	"go.uber.org/atomic"
	"go.uber.org/berth/bertherrors"
)

// State is the externally visible state of a listener.
type State int

const (
	// Unbound indicates the listener holds no socket. Listeners begin and
	// end their life in this state.
	Unbound State = iota

	// Binding indicates Start has been called and the socket is being opened.
	Binding

	// Listening indicates the socket is open and units are being accepted.
	Listening

	// Stopping indicates Stop has been called. New connections are refused
	// while in-flight units drain and the port is released.
	Stopping
)

var stateToName = map[State]string{
	Unbound:   "unbound",
	Binding:   "binding",
	Listening: "listening",
	Stopping:  "stopping",
}

func (s State) String() string {
	if name, ok := stateToName[s]; ok {
		return name
	}
	return "unknown"
}

// phase is the monotonic internal progression. Both terminal phases report
// Unbound to callers.
type phase int32

const (
	phaseIdle phase = iota
	phaseBinding
	phaseListening
	phaseStopping
	phaseStopped
	phaseErrored
)

var _phaseToState = map[phase]State{
	phaseIdle:      Unbound,
	phaseBinding:   Binding,
	phaseListening: Listening,
	phaseStopping:  Stopping,
	phaseStopped:   Unbound,
	phaseErrored:   Unbound,
}

// Once runs a start function and a stop function at most once each and
// exposes the resulting state. A Once cannot be restarted: once it returns
// to Unbound after a stop, the owner must be replaced.
//
//  0. The internal phase only moves forward.
//  1. Start blocks until the listener is Listening or has failed.
//  2. Stop blocks until the listener is Unbound again.
//  3. Stop pre-empts Start if it occurs first.
type Once struct {
	// startCh closes once Start has finished, successfully or not.
	startCh chan struct{}
	// stoppingCh closes once the listener is Stopping or beyond.
	stoppingCh chan struct{}
	// stopCh closes once the listener has fully stopped.
	stopCh chan struct{}
	// err holds the error returned by whichever of start or stop failed.
	err   syncatomic.Value
	phase atomic.Int32
}

// NewOnce returns a lifecycle controller in the Unbound state.
func NewOnce() *Once {
	return &Once{
		startCh:    make(chan struct{}),
		stoppingCh: make(chan struct{}),
		stopCh:     make(chan struct{}),
	}
}

// Start runs f once and returns its error. Concurrent and later calls block
// until the first one finishes and return the same error. Calling Start on
// a Once that has already been stopped returns a FailedPrecondition error
// without running f.
func (o *Once) Start(f func() error) error {
	if o.phase.CAS(int32(phaseIdle), int32(phaseBinding)) {
		var err error
		if f != nil {
			err = f()
		}

		if err != nil {
			o.setError(err)
			o.phase.Store(int32(phaseErrored))
			close(o.stoppingCh)
			close(o.stopCh)
		} else {
			o.phase.Store(int32(phaseListening))
		}
		close(o.startCh)
		return err
	}

	<-o.startCh
	if p := phase(o.phase.Load()); p == phaseStopping || p == phaseStopped {
		return bertherrors.FailedPreconditionErrorf("cannot start: listener was already stopped")
	}
	return o.loadError()
}

// WaitUntilListening blocks until Start has completed successfully or ctx
// is done. ctx must carry a deadline.
func (o *Once) WaitUntilListening(ctx context.Context) error {
	state := o.State()
	if state == Listening {
		return nil
	}
	if phase(o.phase.Load()) > phaseListening {
		return bertherrors.FailedPreconditionErrorf("listener will not start listening: current state is %q", state)
	}
	if _, ok := ctx.Deadline(); !ok {
		return bertherrors.InvalidArgumentErrorf("could not wait for listener: deadline required on context")
	}

	select {
	case <-o.startCh:
		if state := o.State(); state != Listening {
			return bertherrors.FailedPreconditionErrorf("listener did not start listening: current state is %q", state)
		}
		return nil
	case <-ctx.Done():
		return bertherrors.DeadlineExceededErrorf("context finished while waiting for listener: %v", ctx.Err())
	}
}

// Stop runs f once and returns its error. If Start was never called, Stop
// succeeds without running f. If Start failed, Stop returns the start error.
func (o *Once) Stop(f func() error) error {
	if o.phase.CAS(int32(phaseIdle), int32(phaseStopped)) {
		close(o.startCh)
		close(o.stoppingCh)
		close(o.stopCh)
		return nil
	}

	<-o.startCh

	if o.phase.CAS(int32(phaseListening), int32(phaseStopping)) {
		close(o.stoppingCh)

		var err error
		if f != nil {
			err = f()
		}
		if err != nil {
			o.setError(err)
		}
		// The socket is released even when the stop sequence reports an
		// error, so the listener always ends up Unbound.
		o.phase.Store(int32(phaseStopped))
		close(o.stopCh)
		return err
	}

	<-o.stopCh
	return o.loadError()
}

// Started returns a channel that closes when Start finishes.
func (o *Once) Started() <-chan struct{} {
	return o.startCh
}

// Stopping returns a channel that closes when the listener starts stopping.
func (o *Once) Stopping() <-chan struct{} {
	return o.stoppingCh
}

// Stopped returns a channel that closes when the listener is fully stopped.
func (o *Once) Stopped() <-chan struct{} {
	return o.stopCh
}

// State returns the current state. The listener has at least reached the
// returned state and may have progressed further since.
func (o *Once) State() State {
	return _phaseToState[phase(o.phase.Load())]
}

// IsListening reports whether the listener is currently Listening.
func (o *Once) IsListening() bool {
	return o.State() == Listening
}

// Done reports whether the Once has reached a terminal phase and can no
// longer be started.
func (o *Once) Done() bool {
	p := phase(o.phase.Load())
	return p == phaseStopped || p == phaseErrored
}

func (o *Once) setError(err error) {
	o.err.Store(err)
}

func (o *Once) loadError() error {
	errVal := o.err.Load()
	if errVal == nil {
		return nil
	}
	if err, ok := errVal.(error); ok {
		return err
	}
	return errors.New("lifecycle err was not `error` type")
}
