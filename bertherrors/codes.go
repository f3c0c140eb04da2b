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
	"fmt"
	"strconv"
	"strings"
)

const (
	// CodeOK means no error.
	CodeOK Code = 0

	// CodeCancelled means the unit was cancelled, typically because the
	// client went away before a result was available.
	CodeCancelled Code = 1

	// CodeUnknown means an error that carried no Code of its own.
	CodeUnknown Code = 2

	// CodeInvalidArgument means the endpoint configuration or the inbound
	// payload was malformed.
	CodeInvalidArgument Code = 3

	// CodeDeadlineExceeded means a handler did not produce a result within
	// the endpoint's response timeout.
	CodeDeadlineExceeded Code = 4

	// CodeNotFound means no endpoint is bound to the requested port.
	CodeNotFound Code = 5

	// CodeAlreadyExists means a different endpoint already owns the port.
	CodeAlreadyExists Code = 6

	// CodeResourceExhausted means the worker pool was saturated and the
	// unit was rejected by the admission gate.
	CodeResourceExhausted Code = 8

	// CodeFailedPrecondition means the operation is not valid in the current
	// lifecycle state, for example stopping a listener that never started.
	CodeFailedPrecondition Code = 9

	// CodeAborted means a unit was terminated by a forced shutdown.
	CodeAborted Code = 10

	// CodeInternal means a handler failed or an invariant was broken.
	CodeInternal Code = 13

	// CodeUnavailable means the endpoint is shutting down or cannot accept
	// work right now. Clients may retry with a backoff.
	CodeUnavailable Code = 14
)

var (
	_codeToString = map[Code]string{
		CodeOK:                 "ok",
		CodeCancelled:          "cancelled",
		CodeUnknown:            "unknown",
		CodeInvalidArgument:    "invalid-argument",
		CodeDeadlineExceeded:   "deadline-exceeded",
		CodeNotFound:           "not-found",
		CodeAlreadyExists:      "already-exists",
		CodeResourceExhausted:  "resource-exhausted",
		CodeFailedPrecondition: "failed-precondition",
		CodeAborted:            "aborted",
		CodeInternal:           "internal",
		CodeUnavailable:        "unavailable",
	}
	_stringToCode = make(map[string]Code, len(_codeToString))
)

func init() {
	for code, s := range _codeToString {
		_stringToCode[s] = code
	}
}

// Code classifies the failure of an endpoint operation or a dispatch unit.
//
// The numbering matches gRPC status codes so transports can map
// them onto their wire representations one to one.
type Code int

// String returns the string representation of the Code.
func (c Code) String() string {
	if s, ok := _codeToString[c]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	if s, ok := _codeToString[c]; ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown code: %d", int(c))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	code, ok := _stringToCode[strings.ToLower(string(text))]
	if !ok {
		return fmt.Errorf("unknown code string: %s", string(text))
	}
	*c = code
	return nil
}
