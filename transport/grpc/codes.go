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
	"go.uber.org/berth/bertherrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// _codeToGRPCCode maps all Codes to their corresponding gRPC Code.
var _codeToGRPCCode = map[bertherrors.Code]codes.Code{
	bertherrors.CodeOK:                 codes.OK,
	bertherrors.CodeCancelled:          codes.Canceled,
	bertherrors.CodeUnknown:            codes.Unknown,
	bertherrors.CodeInvalidArgument:    codes.InvalidArgument,
	bertherrors.CodeDeadlineExceeded:   codes.DeadlineExceeded,
	bertherrors.CodeNotFound:           codes.NotFound,
	bertherrors.CodeAlreadyExists:      codes.AlreadyExists,
	bertherrors.CodeResourceExhausted:  codes.ResourceExhausted,
	bertherrors.CodeFailedPrecondition: codes.FailedPrecondition,
	bertherrors.CodeAborted:            codes.Aborted,
	bertherrors.CodeInternal:           codes.Internal,
	bertherrors.CodeUnavailable:        codes.Unavailable,
}

// toGRPCError converts the failure of a unit into a gRPC status error.
// Units rejected by a saturated pool are reported as Unavailable, which
// gRPC clients treat as retryable.
func toGRPCError(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Unknown
	if c, ok := _codeToGRPCCode[bertherrors.ErrorCode(err)]; ok {
		code = c
	}
	if bertherrors.IsPoolSaturated(err) {
		code = codes.Unavailable
	}

	msg := err.Error()
	if st := bertherrors.FromError(err); st != nil && st.Message() != "" {
		msg = st.Message()
	}
	return status.Error(code, msg)
}
