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
	"bytes"
	"strings"
)

// Metadata keys set on every unit read by an MLLP inbound.
const (
	MessageTypeKey          = "hl7.message_type"
	ControlIDKey            = "hl7.control_id"
	VersionKey              = "hl7.version"
	SendingApplicationKey   = "hl7.sending_application"
	SendingFacilityKey      = "hl7.sending_facility"
	ReceivingApplicationKey = "hl7.receiving_application"
	ReceivingFacilityKey    = "hl7.receiving_facility"
	CharsetKey              = "hl7.charset"
	RemoteAddrKey           = "remote_addr"
)

// header holds the MSH fields needed to route a message and acknowledge it.
type header struct {
	fieldSep          byte
	encodingChars     string
	sendingApp        string
	sendingFacility   string
	receivingApp      string
	receivingFacility string
	messageType       string
	controlID         string
	processingID      string
	version           string
	charset           string
}

// defaultHeader is used to acknowledge messages without a readable MSH
// segment.
var defaultHeader = header{
	fieldSep:      '|',
	encodingChars: `^~\&`,
	processingID:  "P",
	version:       "2.5",
}

// parseHeader extracts the MSH segment of msg. ok is false if msg does not
// start with a well-formed MSH segment.
func parseHeader(msg []byte) (h header, ok bool) {
	seg := msg
	if i := bytes.IndexAny(seg, "\r\n"); i >= 0 {
		seg = seg[:i]
	}
	if len(seg) < 8 || !bytes.HasPrefix(seg, []byte("MSH")) {
		return defaultHeader, false
	}

	h.fieldSep = seg[3]
	fields := strings.Split(string(seg), string(h.fieldSep))
	// fields[0] is "MSH" and MSH-1 is the separator itself, so MSH-n is
	// fields[n-1].
	field := func(n int) string {
		if n-1 < len(fields) {
			return fields[n-1]
		}
		return ""
	}

	h.encodingChars = field(2)
	h.sendingApp = field(3)
	h.sendingFacility = field(4)
	h.receivingApp = field(5)
	h.receivingFacility = field(6)
	h.messageType = field(9)
	h.controlID = field(10)
	h.processingID = field(11)
	h.version = field(12)
	h.charset = field(18)
	return h, true
}

func (h header) componentSep() string {
	if len(h.encodingChars) > 0 {
		return h.encodingChars[:1]
	}
	return "^"
}

// component returns the nth (1-based) component of a field.
func (h header) component(field string, n int) string {
	parts := strings.Split(field, h.componentSep())
	if n-1 < len(parts) {
		return parts[n-1]
	}
	return ""
}

// metadata returns the unit metadata for h.
func (h header) metadata() map[string]string {
	md := map[string]string{
		MessageTypeKey:          h.messageType,
		ControlIDKey:            h.controlID,
		VersionKey:              h.version,
		SendingApplicationKey:   h.sendingApp,
		SendingFacilityKey:      h.sendingFacility,
		ReceivingApplicationKey: h.receivingApp,
		ReceivingFacilityKey:    h.receivingFacility,
	}
	if h.charset != "" {
		md[CharsetKey] = h.charset
	}
	return md
}
