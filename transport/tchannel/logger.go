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
	"fmt"

	"github.com/uber/tchannel-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a zap.Logger to tchannel.Logger. Fatal messages are
// logged at Error; a listener never exits the process.
type zapLogger struct {
	l      *zap.Logger
	fields tchannel.LogFields
}

var _ tchannel.Logger = (*zapLogger)(nil)

func newZapLogger(l *zap.Logger) tchannel.Logger {
	return &zapLogger{l: l}
}

func (z *zapLogger) Enabled(level tchannel.LogLevel) bool {
	var zl zapcore.Level
	switch level {
	case tchannel.LogLevelAll, tchannel.LogLevelDebug:
		zl = zapcore.DebugLevel
	case tchannel.LogLevelInfo:
		zl = zapcore.InfoLevel
	case tchannel.LogLevelWarn:
		zl = zapcore.WarnLevel
	default:
		zl = zapcore.ErrorLevel
	}
	return z.l.Core().Enabled(zl)
}

func (z *zapLogger) Fatal(msg string) { z.l.Error(msg) }
func (z *zapLogger) Error(msg string) { z.l.Error(msg) }
func (z *zapLogger) Warn(msg string)  { z.l.Warn(msg) }
func (z *zapLogger) Info(msg string)  { z.l.Info(msg) }
func (z *zapLogger) Debug(msg string) { z.l.Debug(msg) }

func (z *zapLogger) Infof(msg string, args ...interface{}) {
	z.l.Info(fmt.Sprintf(msg, args...))
}

func (z *zapLogger) Debugf(msg string, args ...interface{}) {
	z.l.Debug(fmt.Sprintf(msg, args...))
}

func (z *zapLogger) Fields() tchannel.LogFields {
	return z.fields
}

func (z *zapLogger) WithFields(fields ...tchannel.LogField) tchannel.Logger {
	zfields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zfields[i] = zap.Any(f.Key, f.Value)
	}
	all := make(tchannel.LogFields, 0, len(z.fields)+len(fields))
	all = append(all, z.fields...)
	all = append(all, fields...)
	return &zapLogger{l: z.l.With(zfields...), fields: all}
}
