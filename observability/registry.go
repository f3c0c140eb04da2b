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
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uber-go/tally"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

// Names of the observers available from DefaultRegistry.
const (
	LogObserverName        = "log"
	MetricsObserverName    = "metrics"
	TallyObserverName      = "tally"
	PrometheusObserverName = "prometheus"
)

// Deps are the sinks an observer may report to. Builders fail when a sink
// they need is missing.
type Deps struct {
	Logger     *zap.Logger
	Levels     *Levels
	Metrics    *metrics.Scope
	Tally      tally.Scope
	Prometheus prometheus.Registerer
}

// Builder builds an observer from its dependencies.
type Builder func(Deps) (dispatch.Observer, error)

// Registry maps observer names to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// DefaultRegistry returns a Registry holding the log, metrics, tally and
// prometheus observers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(LogObserverName, func(d Deps) (dispatch.Observer, error) {
		levels := DefaultLevels
		if d.Levels != nil {
			levels = *d.Levels
		}
		return NewLoggingObserver(d.Logger, levels), nil
	})
	r.MustRegister(MetricsObserverName, func(d Deps) (dispatch.Observer, error) {
		if d.Metrics == nil {
			return nil, fmt.Errorf("observer %q requires a metrics scope", MetricsObserverName)
		}
		return NewMetricsObserver(d.Metrics, d.Logger), nil
	})
	r.MustRegister(TallyObserverName, func(d Deps) (dispatch.Observer, error) {
		if d.Tally == nil {
			return nil, fmt.Errorf("observer %q requires a tally scope", TallyObserverName)
		}
		return NewTallyObserver(d.Tally), nil
	})
	r.MustRegister(PrometheusObserverName, func(d Deps) (dispatch.Observer, error) {
		if d.Prometheus == nil {
			return nil, fmt.Errorf("observer %q requires a prometheus registerer", PrometheusObserverName)
		}
		return NewPrometheusObserver(d.Prometheus)
	})
	return r
}

// Register adds a builder under name. Names are unique.
func (r *Registry) Register(name string, b Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[name]; ok {
		return fmt.Errorf("observer %q is already registered", name)
	}
	r.builders[name] = b
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, b Builder) {
	if err := r.Register(name, b); err != nil {
		panic(err)
	}
}

// Names returns the registered observer names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build builds the named observers and fans notifications out to all of
// them. Unknown names and builder failures are errors.
func (r *Registry) Build(names []string, deps Deps) (dispatch.Observer, error) {
	observers := make([]dispatch.Observer, 0, len(names))
	for _, name := range names {
		r.mu.RLock()
		b, ok := r.builders[name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown observer %q, available: %v", name, r.Names())
		}
		o, err := b(deps)
		if err != nil {
			return nil, err
		}
		observers = append(observers, o)
	}
	return dispatch.MultiObserver(observers...), nil
}
