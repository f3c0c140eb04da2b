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

package mllp

import (
	"strings"
	"time"

	"go.uber.org/berth/bertherrors"
)

// AckCode is the MSA-1 acknowledgment code.
type AckCode string

const (
	// AckAccept (AA) means the message was processed.
	AckAccept AckCode = "AA"
	// AckError (AE) means processing failed. The sender should not resend
	// the same message unchanged.
	AckError AckCode = "AE"
	// AckReject (AR) means the message was refused without processing,
	// because the endpoint is saturated or shutting down. The sender may
	// retry later.
	AckReject AckCode = "AR"
)

// ackCodeFor classifies a unit failure.
func ackCodeFor(err error) AckCode {
	if err == nil {
		return AckAccept
	}
	switch bertherrors.ErrorCode(err) {
	case bertherrors.CodeResourceExhausted, bertherrors.CodeUnavailable, bertherrors.CodeAborted:
		return AckReject
	default:
		return AckError
	}
}

// buildAck builds an ACK for the message described by h. text goes into
// MSA-3 and is truncated at the first segment separator.
func buildAck(h header, code AckCode, text string, now time.Time) []byte {
	sep := string(h.fieldSep)
	escape := strings.NewReplacer("\r", " ", "\n", " ", sep, " ")

	messageType := "ACK"
	if trigger := h.component(h.messageType, 2); trigger != "" {
		messageType += h.componentSep() + trigger
	}

	processingID := h.processingID
	if processingID == "" {
		processingID = "P"
	}

	msh := strings.Join([]string{
		"MSH",
		h.encodingChars,
		h.receivingApp,
		h.receivingFacility,
		h.sendingApp,
		h.sendingFacility,
		now.Format("20060102150405"),
		"",
		messageType,
		"ACK" + h.controlID,
		processingID,
		h.version,
	}, sep)

	msa := strings.Join([]string{"MSA", string(code), h.controlID}, sep)
	if text != "" {
		msa += sep + escape.Replace(text)
	}
	return []byte(msh + "\r" + msa + "\r")
}
