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

package tchannel

import (
	"github.com/uber/tchannel-go"
	"go.uber.org/berth/bertherrors"
)

// _codeToTChannelCode maps Codes to TChannel system error codes. Codes
// missing from the map are reported as ErrCodeUnexpected.
var _codeToTChannelCode = map[bertherrors.Code]tchannel.SystemErrCode{
	bertherrors.CodeCancelled:          tchannel.ErrCodeCancelled,
	bertherrors.CodeUnknown:            tchannel.ErrCodeUnexpected,
	bertherrors.CodeInvalidArgument:    tchannel.ErrCodeBadRequest,
	bertherrors.CodeDeadlineExceeded:   tchannel.ErrCodeTimeout,
	bertherrors.CodeResourceExhausted:  tchannel.ErrCodeBusy,
	bertherrors.CodeFailedPrecondition: tchannel.ErrCodeDeclined,
	bertherrors.CodeAborted:            tchannel.ErrCodeDeclined,
	bertherrors.CodeInternal:           tchannel.ErrCodeUnexpected,
	bertherrors.CodeUnavailable:        tchannel.ErrCodeDeclined,
}

func codeToTChannelCode(code bertherrors.Code) tchannel.SystemErrCode {
	tchannelCode, ok := _codeToTChannelCode[code]
	if !ok {
		return tchannel.ErrCodeUnexpected
	}
	return tchannelCode
}

// getSystemError converts the failure of a unit into a TChannel system
// error.
func getSystemError(err error) error {
	if _, ok := err.(tchannel.SystemError); ok {
		return err
	}
	st := bertherrors.FromError(err)
	msg := st.Message()
	if msg == "" {
		msg = err.Error()
	}
	return tchannel.NewSystemError(codeToTChannelCode(st.Code()), msg)
}
