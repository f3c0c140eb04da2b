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
	"strconv"
	"sync"
	"time"

	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/net/metrics"
	"go.uber.org/net/metrics/bucket"
	"go.uber.org/zap"
)

const (
	_endpoint  = "endpoint"
	_transport = "transport"
	_port      = "port"
	_policy    = "policy"
	_reason    = "reason"
	_outcome   = "outcome"

	_reasonSaturated    = "saturated"
	_reasonShuttingDown = "shutting_down"
	_reasonOther        = "other"
)

// Latency buckets for histograms.
var _bucketsMs = bucket.NewRPCLatency()

// MetricsObserver records admission and completion statistics in a
// go.uber.org/net/metrics scope. Each endpoint gets its own edge of
// counters, created on first use and reused afterwards.
type MetricsObserver struct {
	meter  *metrics.Scope
	logger *zap.Logger

	edgesMu sync.RWMutex
	edges   map[dispatch.Event]*edge
}

var _ dispatch.Observer = (*MetricsObserver)(nil)

// NewMetricsObserver builds a MetricsObserver that emits into meter.
func NewMetricsObserver(meter *metrics.Scope, logger *zap.Logger) *MetricsObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsObserver{
		meter:  meter,
		logger: logger,
		edges:  make(map[dispatch.Event]*edge),
	}
}

// OnAdmitted implements dispatch.Observer.
func (o *MetricsObserver) OnAdmitted(ev dispatch.Event) {
	o.getOrCreateEdge(ev).admitted.Inc()
}

// OnRejected implements dispatch.Observer.
func (o *MetricsObserver) OnRejected(ev dispatch.Event, reason error) {
	if c, err := o.getOrCreateEdge(ev).rejected.Get(_reason, rejectReason(reason)); err == nil {
		c.Inc()
	}
}

// OnCompleted implements dispatch.Observer.
func (o *MetricsObserver) OnCompleted(ev dispatch.Event, elapsed time.Duration, outcome dispatch.Outcome) {
	e := o.getOrCreateEdge(ev)
	if c, err := e.completed.Get(_outcome, outcome.String()); err == nil {
		c.Inc()
	}
	if outcome == dispatch.OutcomeSuccess {
		e.latencies.Observe(elapsed)
	}
}

func (o *MetricsObserver) getOrCreateEdge(ev dispatch.Event) *edge {
	if e := o.getEdge(ev); e != nil {
		return e
	}
	return o.createEdge(ev)
}

func (o *MetricsObserver) getEdge(ev dispatch.Event) *edge {
	o.edgesMu.RLock()
	e := o.edges[ev]
	o.edgesMu.RUnlock()
	return e
}

func (o *MetricsObserver) createEdge(ev dispatch.Event) *edge {
	o.edgesMu.Lock()
	defer o.edgesMu.Unlock()

	if e, ok := o.edges[ev]; ok {
		// Someone beat us to the punch.
		return e
	}
	e := newEdge(o.logger, o.meter, ev)
	o.edges[ev] = e
	return e
}

// An edge is the collection of stats for one endpoint.
type edge struct {
	admitted  *metrics.Counter
	rejected  *metrics.CounterVector
	completed *metrics.CounterVector
	latencies *metrics.Histogram
}

// newEdge constructs a new edge. Since scopes enforce metric uniqueness,
// edges must be cached and re-used for each unit.
func newEdge(logger *zap.Logger, meter *metrics.Scope, ev dispatch.Event) *edge {
	tags := eventTags(ev)

	admitted, err := meter.Counter(metrics.Spec{
		Name:      "admitted",
		Help:      "Number of units admitted into the worker pool.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create admitted counter.", zap.Error(err))
	}
	rejected, err := meter.CounterVector(metrics.Spec{
		Name:      "rejected",
		Help:      "Number of units rejected by the admission gate.",
		ConstTags: tags,
		VarTags:   []string{_reason},
	})
	if err != nil {
		logger.Error("Failed to create rejected vector.", zap.Error(err))
	}
	completed, err := meter.CounterVector(metrics.Spec{
		Name:      "completed",
		Help:      "Number of admitted units that completed, by outcome.",
		ConstTags: tags,
		VarTags:   []string{_outcome},
	})
	if err != nil {
		logger.Error("Failed to create completed vector.", zap.Error(err))
	}
	latencies, err := meter.Histogram(metrics.HistogramSpec{
		Spec: metrics.Spec{
			Name:      "success_latency_ms",
			Help:      "Latency distribution of successful units, from arrival to result.",
			ConstTags: tags,
		},
		Unit:    time.Millisecond,
		Buckets: _bucketsMs,
	})
	if err != nil {
		logger.Error("Failed to create success latency distribution.", zap.Error(err))
	}

	return &edge{
		admitted:  admitted,
		rejected:  rejected,
		completed: completed,
		latencies: latencies,
	}
}

func eventTags(ev dispatch.Event) metrics.Tags {
	return metrics.Tags{
		_endpoint:  unknownIfEmpty(ev.Endpoint),
		_transport: unknownIfEmpty(ev.Transport),
		_port:      strconv.Itoa(ev.Port),
		_policy:    ev.Policy.String(),
	}
}

// rejectReason classifies the error handed to OnRejected.
func rejectReason(err error) string {
	switch {
	case bertherrors.IsPoolSaturated(err):
		return _reasonSaturated
	case bertherrors.ErrorCode(err) == bertherrors.CodeUnavailable:
		return _reasonShuttingDown
	default:
		return _reasonOther
	}
}

func unknownIfEmpty(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
