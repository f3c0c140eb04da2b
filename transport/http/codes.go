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

package http

import (
	"net/http"

	"go.uber.org/berth/bertherrors"
)

// _codeToStatusCode maps all Codes to their corresponding HTTP status code.
var _codeToStatusCode = map[bertherrors.Code]int{
	bertherrors.CodeOK:                 200,
	bertherrors.CodeCancelled:          499,
	bertherrors.CodeUnknown:            500,
	bertherrors.CodeInvalidArgument:    400,
	bertherrors.CodeDeadlineExceeded:   504,
	bertherrors.CodeNotFound:           404,
	bertherrors.CodeAlreadyExists:      409,
	bertherrors.CodeResourceExhausted:  429,
	bertherrors.CodeFailedPrecondition: 400,
	bertherrors.CodeAborted:            409,
	bertherrors.CodeInternal:           500,
	bertherrors.CodeUnavailable:        503,
}

// statusCodeFor returns the HTTP status code for a failed unit. Units
// rejected by a saturated pool are reported as 503 so that clients and load
// balancers back off and retry.
func statusCodeFor(err error) int {
	if bertherrors.IsPoolSaturated(err) {
		return http.StatusServiceUnavailable
	}
	if status, ok := _codeToStatusCode[bertherrors.ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
