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
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// MLLP block delimiters.
const (
	startBlock     byte = 0x0B
	endBlock       byte = 0x1C
	carriageReturn byte = 0x0D
)

// DefaultMaxMessageSize bounds a single framed message.
const DefaultMaxMessageSize = 1 << 20

// errFrameTooLarge is returned when a message exceeds the size limit.
type errFrameTooLarge struct {
	limit int
}

func (e errFrameTooLarge) Error() string {
	return fmt.Sprintf("mllp: message exceeds %d bytes", e.limit)
}

// readFrame reads one MLLP block from r and returns its content. Bytes
// before the start block are skipped. It returns io.EOF when the peer
// closed the connection between messages.
func readFrame(r *bufio.Reader, maxSize int) ([]byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == startBlock {
			break
		}
	}

	var buf bytes.Buffer
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		if err != nil {
			return nil, err
		}

		if b == endBlock {
			next, err := r.ReadByte()
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			if err != nil {
				return nil, err
			}
			if next == carriageReturn {
				return buf.Bytes(), nil
			}
			// Not a terminator; keep both bytes as content.
			buf.WriteByte(b)
			if err := r.UnreadByte(); err != nil {
				return nil, err
			}
			continue
		}

		if buf.Len() >= maxSize {
			return nil, errFrameTooLarge{limit: maxSize}
		}
		buf.WriteByte(b)
	}
}

// writeFrame writes msg to w as one MLLP block.
func writeFrame(w io.Writer, msg []byte) error {
	framed := make([]byte, 0, len(msg)+3)
	framed = append(framed, startBlock)
	framed = append(framed, msg...)
	framed = append(framed, endBlock, carriageReturn)
	_, err := w.Write(framed)
	return err
}
