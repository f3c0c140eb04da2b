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

package grpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/berth/bertherrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToGRPCError(t *testing.T) {
	assert.NoError(t, toGRPCError(nil))

	tests := []struct {
		desc    string
		give    error
		want    codes.Code
		wantMsg string
	}{
		{desc: "saturated", give: &bertherrors.PoolSaturatedError{Endpoint: "e", Max: 2}, want: codes.Unavailable},
		{desc: "shutting down", give: bertherrors.UnavailableErrorf("endpoint is shutting down"), want: codes.Unavailable, wantMsg: "endpoint is shutting down"},
		{desc: "timeout", give: bertherrors.DeadlineExceededErrorf("slow"), want: codes.DeadlineExceeded, wantMsg: "slow"},
		{desc: "handler failure", give: &bertherrors.HandlerError{Err: errors.New("boom")}, want: codes.Internal},
		{desc: "terminated", give: &bertherrors.UnitTerminatedError{Endpoint: "e"}, want: codes.Aborted},
		{desc: "plain", give: errors.New("boom"), want: codes.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			st, ok := status.FromError(toGRPCError(tt.give))
			assert.True(t, ok)
			assert.Equal(t, tt.want, st.Code())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, st.Message())
			}
		})
	}
}
