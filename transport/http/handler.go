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
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/zap"
)

// handler adapts an Inbound into a handler for net/http.
type handler struct {
	i *Inbound
}

func (h handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	defer req.Body.Close()

	w.Header().Set(EndpointHeader, h.i.Name())

	body, err := io.ReadAll(io.LimitReader(req.Body, h.i.maxBodySize+1))
	if err != nil {
		h.writeError(w, bertherrors.InvalidArgumentErrorf("failed to read request body: %v", err))
		return
	}
	if int64(len(body)) > h.i.maxBodySize {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	md := applicationHeaders.FromHTTPHeaders(req.Header, nil)
	md[MethodKey] = req.Method
	md[PathKey] = req.URL.Path
	md[RemoteAddrKey] = req.RemoteAddr
	if ct := req.Header.Get("Content-Type"); ct != "" {
		md[ContentTypeKey] = ct
	}

	ctx, cancel, err := parseTTL(req.Context(), req.Header.Get(TTLMSHeader))
	defer cancel()
	if err != nil {
		h.writeError(w, err)
		return
	}

	span := h.createSpan(req, start)
	defer span.Finish()
	if err := h.i.tracer.Inject(span.Context(), opentracing.TextMap, opentracing.TextMapCarrier(md)); err != nil {
		h.i.Logger().Debug("failed to inject span context", zap.Error(err))
	}

	res := h.i.Dispatch(ctx, body, md)
	if res.Err != nil {
		updateSpanWithErr(span, res.Err)
		if bertherrors.IsDiscarded(res.Err) {
			// Drop the connection without a reply.
			panic(http.ErrAbortHandler)
		}
		h.writeError(w, res.Err)
		return
	}

	if ct := req.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Payload); err != nil {
		h.i.Logger().Debug("failed to write response", zap.Error(err))
	}
}

func (h handler) writeError(w http.ResponseWriter, err error) {
	status := statusCodeFor(err)
	w.Header().Set(ErrorCodeHeader, bertherrors.ErrorCode(err).String())
	if bertherrors.IsPoolSaturated(err) {
		w.Header().Set(RetryAfterHeader, strconv.Itoa(h.i.retryAfter))
	}

	msg := err.Error()
	if st := bertherrors.FromError(err); st != nil && st.Message() != "" {
		msg = st.Message()
	}
	http.Error(w, msg, status)
}

func (h handler) createSpan(req *http.Request, start time.Time) opentracing.Span {
	tracer := h.i.tracer
	carrier := opentracing.HTTPHeadersCarrier(req.Header)
	parentSpanCtx, _ := tracer.Extract(opentracing.HTTPHeaders, carrier)
	// parentSpanCtx may be nil, ext.RPCServerOption handles a nil parent
	// gracefully.
	span := tracer.StartSpan(
		h.i.Name(),
		opentracing.StartTime(start),
		opentracing.Tags{
			"berth.endpoint":  h.i.Name(),
			"berth.transport": TransportName,
			"http.method":     req.Method,
			"http.url":        req.URL.Path,
		},
		ext.RPCServerOption(parentSpanCtx),
	)
	return span
}

func updateSpanWithErr(span opentracing.Span, err error) {
	ext.Error.Set(span, true)
	span.SetTag("berth.error_code", bertherrors.ErrorCode(err).String())
	span.LogKV("event", "error", "message", err.Error())
}

// parseTTL bounds ctx by the TTL header if present.
func parseTTL(ctx context.Context, ttl string) (context.Context, context.CancelFunc, error) {
	if ttl == "" {
		return ctx, func() {}, nil
	}
	ms, err := strconv.Atoi(ttl)
	if err != nil || ms <= 0 {
		return ctx, func() {}, bertherrors.InvalidArgumentErrorf("invalid value %q for header %s", ttl, TTLMSHeader)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
	return ctx, cancel, nil
}
