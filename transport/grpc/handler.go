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
	"context"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// handler serves every gRPC method through the inbound's worker pool.
type handler struct {
	i *Inbound
}

// handle is a grpc.StreamHandler registered as the unknown service handler.
// It reads one request message, dispatches it and writes the reply.
func (h handler) handle(_ interface{}, stream grpc.ServerStream) error {
	start := time.Now()
	ctx := stream.Context()

	method, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "could not determine the method of the stream")
	}

	var payload []byte
	if err := stream.RecvMsg(&payload); err != nil {
		return toGRPCError(bertherrors.InvalidArgumentErrorf("failed to read request: %v", err))
	}

	md := toMetadata(ctx)
	md[MethodKey] = method
	md[ServiceKey], md[ProcedureKey] = splitMethod(method)
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		md[RemoteAddrKey] = p.Addr.String()
	}

	span := h.createSpan(md, method, start)
	defer span.Finish()
	if err := h.i.tracer.Inject(span.Context(), opentracing.TextMap, opentracing.TextMapCarrier(md)); err != nil {
		h.i.Logger().Debug("failed to inject span context", zap.Error(err))
	}

	res := h.i.Dispatch(ctx, payload, md)
	if res.Err != nil {
		if bertherrors.IsDiscarded(res.Err) {
			// Discarded units are answered with an empty message so the
			// caller sees no error.
			return stream.SendMsg(&[]byte{})
		}
		updateSpanWithErr(span, res.Err)
		return toGRPCError(res.Err)
	}
	return stream.SendMsg(&res.Payload)
}

func (h handler) createSpan(md map[string]string, method string, start time.Time) opentracing.Span {
	tracer := h.i.tracer
	parentSpanCtx, _ := tracer.Extract(opentracing.TextMap, opentracing.TextMapCarrier(md))
	// parentSpanCtx may be nil, ext.RPCServerOption handles a nil parent
	// gracefully.
	return tracer.StartSpan(
		method,
		opentracing.StartTime(start),
		opentracing.Tags{
			"berth.endpoint":  h.i.Name(),
			"berth.transport": TransportName,
		},
		ext.RPCServerOption(parentSpanCtx),
	)
}

func updateSpanWithErr(span opentracing.Span, err error) {
	ext.Error.Set(span, true)
	span.SetTag("berth.error_code", bertherrors.ErrorCode(err).String())
	span.LogKV("event", "error", "message", err.Error())
}

// toMetadata flattens the incoming gRPC metadata, keeping the first value
// of each key. Pseudo headers are dropped.
func toMetadata(ctx context.Context) map[string]string {
	out := make(map[string]string)
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return out
	}
	for k, vals := range md {
		if len(vals) == 0 || strings.HasPrefix(k, ":") {
			continue
		}
		out[k] = vals[0]
	}
	return out
}

// splitMethod splits "/service/procedure" into its two halves.
func splitMethod(method string) (service, procedure string) {
	method = strings.TrimPrefix(method, "/")
	if i := strings.LastIndex(method, "/"); i >= 0 {
		return method[:i], method[i+1:]
	}
	return "", method
}
