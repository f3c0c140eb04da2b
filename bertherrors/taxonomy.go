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

package bertherrors

import (
	"errors"
	"fmt"
	"time"
)

// PortInUseError is returned when an endpoint tries to bind a port that is
// already owned by a different endpoint. It is fatal to the start attempt.
//
// Owner is empty when the port is held by something outside the process
// (the operating system refused the bind).
type PortInUseError struct {
	Port      int
	Owner     string
	Requester string
	Cause     error
}

func (e *PortInUseError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("port %d requested by %q is in use by another process", e.Port, e.Requester)
	}
	return fmt.Sprintf("port %d requested by %q is owned by endpoint %q", e.Port, e.Requester, e.Owner)
}

// Unwrap returns the bind error reported by the operating system, if any.
func (e *PortInUseError) Unwrap() error { return e.Cause }

// BerthStatus returns the Status for this error.
func (e *PortInUseError) BerthStatus() *Status {
	return &Status{code: CodeAlreadyExists, err: e}
}

// PoolSaturatedError is delivered to a unit's response sink when the
// admission gate rejects it under the ABORT policy.
type PoolSaturatedError struct {
	Endpoint string
	Active   int
	Queued   int
	Max      int
}

func (e *PoolSaturatedError) Error() string {
	return fmt.Sprintf("endpoint %q is saturated (%d/%d workers busy, %d queued): try again later",
		e.Endpoint, e.Active, e.Max, e.Queued)
}

// BerthStatus returns the Status for this error.
func (e *PoolSaturatedError) BerthStatus() *Status {
	return &Status{code: CodeResourceExhausted, err: e}
}

// HandlerError wraps a failure returned by, or a panic raised in, a
// caller-supplied handler. It never escapes the worker pool except as the
// failure result of the unit that caused it.
type HandlerError struct {
	Err      error
	Panicked bool
}

func (e *HandlerError) Error() string {
	if e.Panicked {
		return "handler panicked: " + e.Err.Error()
	}
	return "handler failed: " + e.Err.Error()
}

func (e *HandlerError) Unwrap() error { return e.Err }

// BerthStatus returns the Status of the underlying error when it carries
// one, CodeInternal otherwise.
func (e *HandlerError) BerthStatus() *Status {
	if st, ok := fromError(e.Err); ok {
		return st
	}
	return &Status{code: CodeInternal, err: e}
}

// ShutdownTimeoutError reports that a graceful stop step did not finish in
// time. The step that timed out was forced and the caller was released.
type ShutdownTimeoutError struct {
	// Stage is the step of the stop sequence that timed out, for example
	// "drain" or "port-release".
	Stage   string
	Port    int
	Timeout time.Duration
}

func (e *ShutdownTimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("shutdown of port %d timed out during %s after %v", e.Port, e.Stage, e.Timeout)
	}
	return fmt.Sprintf("shutdown of port %d timed out during %s", e.Port, e.Stage)
}

// BerthStatus returns the Status for this error.
func (e *ShutdownTimeoutError) BerthStatus() *Status {
	return &Status{code: CodeDeadlineExceeded, err: e}
}

// UnitTerminatedError is delivered to the sink of every unit that was in
// flight or queued when its pool was shut down forcibly.
type UnitTerminatedError struct {
	Endpoint string
}

func (e *UnitTerminatedError) Error() string {
	return fmt.Sprintf("unit terminated: endpoint %q shut down before it completed", e.Endpoint)
}

// BerthStatus returns the Status for this error.
func (e *UnitTerminatedError) BerthStatus() *Status {
	return &Status{code: CodeAborted, err: e}
}

// errDiscarded is delivered to the sink of units rejected under the DISCARD
// policy. Listeners recognize it and drop the request without replying.
var errDiscarded = Newf(CodeResourceExhausted, "unit discarded: worker pool saturated")

// Discarded returns the marker error for units dropped under DISCARD.
func Discarded() error { return errDiscarded }

// IsDiscarded reports whether err marks a unit dropped under DISCARD.
func IsDiscarded(err error) bool {
	return err != nil && errors.Is(err, errDiscarded)
}

// IsPortInUse reports whether err is, or wraps, a PortInUseError.
func IsPortInUse(err error) bool {
	var e *PortInUseError
	return errors.As(err, &e)
}

// IsPoolSaturated reports whether err is, or wraps, a PoolSaturatedError.
func IsPoolSaturated(err error) bool {
	var e *PoolSaturatedError
	return errors.As(err, &e)
}

// IsHandlerError reports whether err is, or wraps, a HandlerError.
func IsHandlerError(err error) bool {
	var e *HandlerError
	return errors.As(err, &e)
}

// IsShutdownTimeout reports whether err is, or wraps, a
// ShutdownTimeoutError.
func IsShutdownTimeout(err error) bool {
	var e *ShutdownTimeoutError
	return errors.As(err, &e)
}

// IsTerminated reports whether err is, or wraps, a UnitTerminatedError.
func IsTerminated(err error) bool {
	var e *UnitTerminatedError
	return errors.As(err, &e)
}
