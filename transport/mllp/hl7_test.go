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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/berth/bertherrors"
)

const sampleADT = "MSH|^~\\&|SENDER|SFAC|RECEIVER|RFAC|20240101120000||ADT^A01|MSG00001|P|2.5||||||UNICODE UTF-8\r" +
	"PID|1||123456^^^HOSP^MR||DOE^JOHN\r"

func TestParseHeader(t *testing.T) {
	h, ok := parseHeader([]byte(sampleADT))
	assert.True(t, ok)
	assert.Equal(t, byte('|'), h.fieldSep)
	assert.Equal(t, `^~\&`, h.encodingChars)
	assert.Equal(t, "SENDER", h.sendingApp)
	assert.Equal(t, "SFAC", h.sendingFacility)
	assert.Equal(t, "RECEIVER", h.receivingApp)
	assert.Equal(t, "RFAC", h.receivingFacility)
	assert.Equal(t, "ADT^A01", h.messageType)
	assert.Equal(t, "MSG00001", h.controlID)
	assert.Equal(t, "P", h.processingID)
	assert.Equal(t, "2.5", h.version)
	assert.Equal(t, "UNICODE UTF-8", h.charset)

	assert.Equal(t, map[string]string{
		MessageTypeKey:          "ADT^A01",
		ControlIDKey:            "MSG00001",
		VersionKey:              "2.5",
		SendingApplicationKey:   "SENDER",
		SendingFacilityKey:      "SFAC",
		ReceivingApplicationKey: "RECEIVER",
		ReceivingFacilityKey:    "RFAC",
		CharsetKey:              "UNICODE UTF-8",
	}, h.metadata())
}

func TestParseHeaderShortAndMalformed(t *testing.T) {
	h, ok := parseHeader([]byte("MSH|^~\\&|APP\r"))
	assert.True(t, ok)
	assert.Equal(t, "APP", h.sendingApp)
	assert.Empty(t, h.controlID)
	assert.NotContains(t, h.metadata(), CharsetKey)

	for _, give := range []string{"", "PID|1", "MSH", "garbage\rMSH|^~\\&|APP"} {
		h, ok := parseHeader([]byte(give))
		assert.False(t, ok, "%q", give)
		assert.Equal(t, defaultHeader, h)
	}
}

func TestBuildAck(t *testing.T) {
	h, _ := parseHeader([]byte(sampleADT))
	now := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

	assert.Equal(t,
		"MSH|^~\\&|RECEIVER|RFAC|SENDER|SFAC|20240304050607||ACK^A01|ACKMSG00001|P|2.5\r"+
			"MSA|AA|MSG00001\r",
		string(buildAck(h, AckAccept, "", now)))

	assert.Equal(t,
		"MSH|^~\\&|RECEIVER|RFAC|SENDER|SFAC|20240304050607||ACK^A01|ACKMSG00001|P|2.5\r"+
			"MSA|AE|MSG00001|bad  input here\r",
		string(buildAck(h, AckError, "bad|\rinput here", now)))

	ack := string(buildAck(defaultHeader, AckReject, "", now))
	assert.Equal(t, "MSH|^~\\&|||||20240304050607||ACK|ACK|P|2.5\rMSA|AR|\r", ack)
}

func TestAckCodeFor(t *testing.T) {
	tests := []struct {
		desc string
		give error
		want AckCode
	}{
		{desc: "success", want: AckAccept},
		{desc: "saturated", give: &bertherrors.PoolSaturatedError{Endpoint: "adt", Max: 1}, want: AckReject},
		{desc: "shutting down", give: bertherrors.UnavailableErrorf("stopping"), want: AckReject},
		{desc: "terminated", give: &bertherrors.UnitTerminatedError{Endpoint: "adt"}, want: AckReject},
		{desc: "handler failure", give: &bertherrors.HandlerError{Err: errors.New("boom")}, want: AckError},
		{desc: "timeout", give: bertherrors.DeadlineExceededErrorf("slow"), want: AckError},
		{desc: "plain error", give: errors.New("boom"), want: AckError},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, ackCodeFor(tt.give))
		})
	}
}
