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

// Package builtin holds the handlers berthd can bind without custom code.
package builtin

import (
	"bytes"
	"context"

	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/berthconfig"
	"go.uber.org/berth/bertherrors"
)

// Handler names.
const (
	EchoName   = "echo"
	HL7AckName = "hl7-ack"
)

// Echo replies with the payload it receives.
var Echo dispatch.Handler = dispatch.HandlerFunc(func(_ context.Context, payload []byte, _ map[string]string) ([]byte, error) {
	return payload, nil
})

// HL7Ack accepts HL7 v2 messages without replying with content, which makes
// an MLLP endpoint acknowledge them with MSA|AA. Payloads that do not start
// with an MSH segment are rejected.
var HL7Ack dispatch.Handler = dispatch.HandlerFunc(func(_ context.Context, payload []byte, _ map[string]string) ([]byte, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(payload, " \t\r\n"), []byte("MSH")) {
		return nil, bertherrors.InvalidArgumentErrorf("payload is not an HL7 v2 message")
	}
	return nil, nil
})

// Register registers every built-in handler with c.
func Register(c *berthconfig.Configurator) error {
	if err := c.RegisterHandler(EchoName, Echo); err != nil {
		return err
	}
	return c.RegisterHandler(HL7AckName, HL7Ack)
}
