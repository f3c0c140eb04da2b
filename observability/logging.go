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

package observability

import (
	"time"

	"go.uber.org/berth/api/dispatch"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Levels are the log levels used by a LoggingObserver for each kind of
// notification.
type Levels struct {
	Admitted   zapcore.Level
	Rejected   zapcore.Level
	Success    zapcore.Level
	Failure    zapcore.Level
	Timeout    zapcore.Level
	Terminated zapcore.Level
}

// DefaultLevels logs successful traffic at Debug and problems at Warn or
// Error.
var DefaultLevels = Levels{
	Admitted:   zapcore.DebugLevel,
	Rejected:   zapcore.WarnLevel,
	Success:    zapcore.DebugLevel,
	Failure:    zapcore.ErrorLevel,
	Timeout:    zapcore.WarnLevel,
	Terminated: zapcore.ErrorLevel,
}

// LoggingObserver writes a log entry for every notification.
type LoggingObserver struct {
	logger *zap.Logger
	levels Levels
}

var _ dispatch.Observer = (*LoggingObserver)(nil)

// NewLoggingObserver builds a LoggingObserver that logs to logger.
func NewLoggingObserver(logger *zap.Logger, levels Levels) *LoggingObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingObserver{logger: logger, levels: levels}
}

// OnAdmitted implements dispatch.Observer.
func (o *LoggingObserver) OnAdmitted(ev dispatch.Event) {
	if ce := o.logger.Check(o.levels.Admitted, "Unit admitted."); ce != nil {
		ce.Write(eventFields(ev)...)
	}
}

// OnRejected implements dispatch.Observer.
func (o *LoggingObserver) OnRejected(ev dispatch.Event, reason error) {
	if ce := o.logger.Check(o.levels.Rejected, "Unit rejected."); ce != nil {
		ce.Write(append(eventFields(ev),
			zap.String(_reason, rejectReason(reason)),
			zap.Error(reason),
		)...)
	}
}

// OnCompleted implements dispatch.Observer.
func (o *LoggingObserver) OnCompleted(ev dispatch.Event, elapsed time.Duration, outcome dispatch.Outcome) {
	var lvl zapcore.Level
	switch outcome {
	case dispatch.OutcomeSuccess:
		lvl = o.levels.Success
	case dispatch.OutcomeTimeout:
		lvl = o.levels.Timeout
	case dispatch.OutcomeTerminated:
		lvl = o.levels.Terminated
	default:
		lvl = o.levels.Failure
	}
	if ce := o.logger.Check(lvl, "Unit completed."); ce != nil {
		ce.Write(append(eventFields(ev),
			zap.Stringer(_outcome, outcome),
			zap.Duration("latency", elapsed),
		)...)
	}
}

func eventFields(ev dispatch.Event) []zap.Field {
	return []zap.Field{
		zap.String(_endpoint, ev.Endpoint),
		zap.String(_transport, ev.Transport),
		zap.Int(_port, ev.Port),
		zap.Stringer(_policy, ev.Policy),
	}
}
