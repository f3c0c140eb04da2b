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

// Package registry records which logical endpoint owns each port.
//
// The Registry is the only authority on port ownership; listeners never
// register themselves. It performs no I/O and is safe for concurrent use.
// Operations on different ports never wait on each other.
package registry

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/berth/bertherrors"
)

// Binding is one (port, protocol, owner) triple.
type Binding struct {
	Port     int
	Endpoint string
	Protocol string
	Since    time.Time
}

// Status is the result of a successful Register.
type Status int

const (
	// Registered means the port was free and now belongs to the endpoint.
	Registered Status = iota + 1
	// AlreadyRegistered means the endpoint already owned the port.
	AlreadyRegistered
)

func (s Status) String() string {
	switch s {
	case Registered:
		return "registered"
	case AlreadyRegistered:
		return "already-registered"
	default:
		return "unknown"
	}
}

// slot guards one port. A slot is created the first time a port is seen
// and kept afterwards so that its lock is stable for the process lifetime.
type slot struct {
	mu      sync.Mutex
	binding *Binding
}

// Registry maps ports to the endpoints that own them.
type Registry struct {
	slots sync.Map // map[int]*slot
	now   func() time.Time
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{now: time.Now}
}

func (r *Registry) slot(port int) *slot {
	if s, ok := r.slots.Load(port); ok {
		return s.(*slot)
	}
	s, _ := r.slots.LoadOrStore(port, &slot{})
	return s.(*slot)
}

// Register claims port for endpoint. Registering a port the endpoint
// already owns succeeds with AlreadyRegistered. Registering a port owned by
// a different endpoint fails with a *bertherrors.PortInUseError and leaves
// the existing binding untouched.
func (r *Registry) Register(b Binding) (Status, error) {
	if b.Port <= 0 || b.Port > 65535 {
		return 0, bertherrors.InvalidArgumentErrorf("port must be in [1, 65535], got %d", b.Port)
	}
	if b.Endpoint == "" {
		return 0, bertherrors.InvalidArgumentErrorf("endpoint name is required to register port %d", b.Port)
	}

	s := r.slot(b.Port)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.binding != nil {
		if s.binding.Endpoint == b.Endpoint {
			return AlreadyRegistered, nil
		}
		return 0, &bertherrors.PortInUseError{
			Port:      b.Port,
			Owner:     s.binding.Endpoint,
			Requester: b.Endpoint,
		}
	}

	if b.Since.IsZero() {
		b.Since = r.now()
	}
	s.binding = &b
	return Registered, nil
}

// Unregister frees port. It reports whether the port was bound.
func (r *Registry) Unregister(port int) bool {
	v, ok := r.slots.Load(port)
	if !ok {
		return false
	}
	s := v.(*slot)
	s.mu.Lock()
	defer s.mu.Unlock()

	bound := s.binding != nil
	s.binding = nil
	return bound
}

// UnregisterOwned frees port only if endpoint owns it. It reports whether
// a binding was removed.
func (r *Registry) UnregisterOwned(port int, endpoint string) bool {
	v, ok := r.slots.Load(port)
	if !ok {
		return false
	}
	s := v.(*slot)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.binding == nil || s.binding.Endpoint != endpoint {
		return false
	}
	s.binding = nil
	return true
}

// OwnerOf returns the endpoint bound to port, if any.
func (r *Registry) OwnerOf(port int) (string, bool) {
	b, ok := r.Lookup(port)
	if !ok {
		return "", false
	}
	return b.Endpoint, true
}

// Lookup returns the binding for port, if any.
func (r *Registry) Lookup(port int) (Binding, bool) {
	v, ok := r.slots.Load(port)
	if !ok {
		return Binding{}, false
	}
	s := v.(*slot)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.binding == nil {
		return Binding{}, false
	}
	return *s.binding, true
}

// Bindings returns every active binding ordered by port.
func (r *Registry) Bindings() []Binding {
	var out []Binding
	r.slots.Range(func(_, v interface{}) bool {
		s := v.(*slot)
		s.mu.Lock()
		if s.binding != nil {
			out = append(out, *s.binding)
		}
		s.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}
