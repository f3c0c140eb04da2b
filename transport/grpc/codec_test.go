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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawCodec(t *testing.T) {
	var c rawCodec
	assert.Equal(t, "raw", c.String())

	b, err := c.Marshal([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), b)

	in := []byte("b")
	b, err = c.Marshal(&in)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), b)

	_, err = c.Marshal("nope")
	assert.Error(t, err)

	var out []byte
	require.NoError(t, c.Unmarshal([]byte("c"), &out))
	assert.Equal(t, []byte("c"), out)
	assert.Error(t, c.Unmarshal([]byte("c"), out))
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		give          string
		wantService   string
		wantProcedure string
	}{
		{give: "/hl7.Router/Route", wantService: "hl7.Router", wantProcedure: "Route"},
		{give: "/a/b/c", wantService: "a/b", wantProcedure: "c"},
		{give: "Route", wantService: "", wantProcedure: "Route"},
	}
	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			service, procedure := splitMethod(tt.give)
			assert.Equal(t, tt.wantService, service)
			assert.Equal(t, tt.wantProcedure, procedure)
		})
	}
}
