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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/multierr"
)

const _namespace = "berth"

var _eventLabels = []string{_endpoint, _transport, _port, _policy}

// PrometheusObserver exports admission and completion statistics as
// Prometheus collectors.
type PrometheusObserver struct {
	admitted  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	completed *prometheus.CounterVec
	latencies *prometheus.HistogramVec
}

var _ dispatch.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver builds a PrometheusObserver and registers its
// collectors with reg.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "admitted_total",
			Help:      "Number of units admitted into the worker pool.",
		}, _eventLabels),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "rejected_total",
			Help:      "Number of units rejected by the admission gate.",
		}, append(_eventLabels[:len(_eventLabels):len(_eventLabels)], _reason)),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "completed_total",
			Help:      "Number of admitted units that completed, by outcome.",
		}, append(_eventLabels[:len(_eventLabels):len(_eventLabels)], _outcome)),
		latencies: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: _namespace,
			Name:      "unit_duration_seconds",
			Help:      "Time from arrival to result of admitted units.",
			Buckets:   prometheus.DefBuckets,
		}, append(_eventLabels[:len(_eventLabels):len(_eventLabels)], _outcome)),
	}

	var err error
	for _, c := range []prometheus.Collector{o.admitted, o.rejected, o.completed, o.latencies} {
		err = multierr.Append(err, reg.Register(c))
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// OnAdmitted implements dispatch.Observer.
func (o *PrometheusObserver) OnAdmitted(ev dispatch.Event) {
	o.admitted.WithLabelValues(labelValues(ev)...).Inc()
}

// OnRejected implements dispatch.Observer.
func (o *PrometheusObserver) OnRejected(ev dispatch.Event, reason error) {
	o.rejected.WithLabelValues(labelValues(ev, rejectReason(reason))...).Inc()
}

// OnCompleted implements dispatch.Observer.
func (o *PrometheusObserver) OnCompleted(ev dispatch.Event, elapsed time.Duration, outcome dispatch.Outcome) {
	values := labelValues(ev, outcome.String())
	o.completed.WithLabelValues(values...).Inc()
	o.latencies.WithLabelValues(values...).Observe(elapsed.Seconds())
}

func labelValues(ev dispatch.Event, extra ...string) []string {
	values := make([]string, 0, len(_eventLabels)+len(extra))
	values = append(values,
		unknownIfEmpty(ev.Endpoint),
		unknownIfEmpty(ev.Transport),
		strconv.Itoa(ev.Port),
		ev.Policy.String(),
	)
	return append(values, extra...)
}
