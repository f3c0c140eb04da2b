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

// TransportName is the protocol name of HTTP listeners.
const TransportName = "http"

// HTTP headers read from requests and written to responses.
const (
	// ApplicationHeaderPrefix prefixes request headers that are passed to
	// handlers as metadata, with the prefix removed and the name lowercased.
	ApplicationHeaderPrefix = "Berth-Header-"

	// TTLMSHeader is the time, in milliseconds, the caller is willing to
	// wait for a reply.
	TTLMSHeader = "Context-TTL-MS"

	// ErrorCodeHeader contains the string representation of the error code
	// of a failed unit.
	ErrorCodeHeader = "Berth-Error-Code"

	// EndpointHeader names the endpoint that served the request.
	EndpointHeader = "Berth-Endpoint"

	// RetryAfterHeader is set on replies to requests rejected because the
	// endpoint was saturated.
	RetryAfterHeader = "Retry-After"
)

// Metadata keys set on every unit read by an HTTP inbound.
const (
	MethodKey      = "http.method"
	PathKey        = "http.path"
	ContentTypeKey = "http.content_type"
	RemoteAddrKey  = "remote_addr"
)

// DefaultMaxBodySize bounds request bodies unless WithMaxBodySize is used.
const DefaultMaxBodySize = 4 << 20
