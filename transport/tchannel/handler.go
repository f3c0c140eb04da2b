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

package tchannel

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/uber/tchannel-go"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/zap"
)

// handler serves every method of the inbound's service through its worker
// pool. arg2 is read and ignored; arg3 is the unit payload.
type handler struct {
	i *Inbound
}

var _ tchannel.Handler = handler{}

func (h handler) Handle(ctx context.Context, call *tchannel.InboundCall) {
	logger := h.i.Logger()

	var arg2, arg3 []byte
	if err := tchannel.NewArgReader(call.Arg2Reader()).Read(&arg2); err != nil {
		h.sendSystemError(ctx, call, bertherrors.InvalidArgumentErrorf("failed to read arg2: %v", err))
		return
	}
	if err := tchannel.NewArgReader(call.Arg3Reader()).Read(&arg3); err != nil {
		h.sendSystemError(ctx, call, bertherrors.InvalidArgumentErrorf("failed to read arg3: %v", err))
		return
	}

	md := map[string]string{
		CallerKey:     call.CallerName(),
		ServiceKey:    call.ServiceName(),
		MethodKey:     call.MethodString(),
		FormatKey:     string(call.Format()),
		RemoteAddrKey: call.RemotePeer().HostPort,
	}
	if sk := call.ShardKey(); sk != "" {
		md[ShardKeyKey] = sk
	}

	ctx = tchannel.ExtractInboundSpan(ctx, call, nil, h.i.tracer)
	span := opentracing.SpanFromContext(ctx)
	if span != nil {
		span.SetTag("berth.endpoint", h.i.Name())
		span.SetTag("berth.transport", TransportName)
		if err := h.i.tracer.Inject(span.Context(), opentracing.TextMap, opentracing.TextMapCarrier(md)); err != nil {
			logger.Debug("failed to inject span context", zap.Error(err))
		}
	}

	res := h.i.Dispatch(ctx, arg3, md)
	if res.Err != nil {
		if span != nil {
			ext.Error.Set(span, true)
			span.SetTag("berth.error_code", bertherrors.ErrorCode(res.Err).String())
		}
		switch {
		case bertherrors.IsDiscarded(res.Err):
			// The caller times out as if the request was lost.
			call.Response().Blackhole()
		case bertherrors.IsHandlerError(res.Err) && bertherrors.ErrorCode(res.Err) == bertherrors.CodeInternal:
			h.sendApplicationError(ctx, call, res.Err)
		default:
			h.sendSystemError(ctx, call, res.Err)
		}
		return
	}

	if err := writeArgs(call.Response(), nil, res.Payload); err != nil && ctx.Err() == nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

func (h handler) sendSystemError(ctx context.Context, call *tchannel.InboundCall, err error) {
	if sendErr := call.Response().SendSystemError(getSystemError(err)); sendErr != nil && ctx.Err() == nil {
		// only log errors if the client is still waiting for our response
		h.i.Logger().Error("SendSystemError failed", zap.Error(sendErr))
	}
}

func (h handler) sendApplicationError(ctx context.Context, call *tchannel.InboundCall, err error) {
	res := call.Response()
	if setErr := res.SetApplicationError(); setErr != nil {
		h.sendSystemError(ctx, call, err)
		return
	}
	msg := bertherrors.FromError(err).Message()
	if writeErr := writeArgs(res, nil, []byte(msg)); writeErr != nil && ctx.Err() == nil {
		h.i.Logger().Error("failed to write application error", zap.Error(writeErr))
	}
}

func writeArgs(res *tchannel.InboundCallResponse, arg2, arg3 []byte) error {
	if err := tchannel.NewArgWriter(res.Arg2Writer()).Write(arg2); err != nil {
		return err
	}
	return tchannel.NewArgWriter(res.Arg3Writer()).Write(arg3)
}
