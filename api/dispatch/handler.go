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
	"context"
	"fmt"

	"go.uber.org/berth/bertherrors"
	"go.uber.org/zap"
)

// Handler processes the payload of one unit. The context is cancelled when
// the endpoint's response timeout elapses or the pool is shut down forcibly;
// long-running handlers are expected to watch it.
type Handler interface {
	Handle(ctx context.Context, payload []byte, md map[string]string) ([]byte, error)
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(ctx context.Context, payload []byte, md map[string]string) ([]byte, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, payload []byte, md map[string]string) ([]byte, error) {
	return f(ctx, payload, md)
}

// InvokeHandler calls h for u and contains any panic. Errors and panics are
// both returned as *bertherrors.HandlerError; panics are logged with their
// stack.
func InvokeHandler(ctx context.Context, h Handler, u *Unit, logger *zap.Logger) (res []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("handler panicked",
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
			}
			res = nil
			err = &bertherrors.HandlerError{Err: fmt.Errorf("panic: %v", r), Panicked: true}
		}
	}()

	res, err = h.Handle(ctx, u.Payload, u.Metadata)
	if err != nil {
		return nil, &bertherrors.HandlerError{Err: err}
	}
	return res, nil
}
