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
	"strings"
)

// headerMapper converts HTTP headers into unit metadata.
type headerMapper struct{ Prefix string }

var applicationHeaders = headerMapper{ApplicationHeaderPrefix}

// FromHTTPHeaders copies headers carrying the mapper's prefix into to, with
// the prefix removed and the key lowercased. Only the first value of a
// repeated header is kept.
//
// If 'to' is nil, a new map will be assigned.
func (hm headerMapper) FromHTTPHeaders(from http.Header, to map[string]string) map[string]string {
	if to == nil {
		to = make(map[string]string, len(from))
	}
	for key, vals := range from {
		if len(vals) == 0 || !hasPrefixFold(key, hm.Prefix) {
			continue
		}
		suffix := strings.ToLower(key[len(hm.Prefix):])
		if suffix == "" {
			continue
		}
		if _, ok := to[suffix]; !ok {
			to[suffix] = vals[0]
		}
	}
	return to
}

// hasPrefixFold reports whether s begins with prefix, performing an
// ASCII case-insensitive comparison without allocating.
func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}
