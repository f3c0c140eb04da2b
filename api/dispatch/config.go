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

package dispatch

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/berth/bertherrors"
)

const (
	// DefaultIdleKeepAlive is how long workers beyond the core size stay
	// idle before they are retired when the configuration leaves it unset.
	DefaultIdleKeepAlive = 60 * time.Second
	// DefaultDrainTimeout bounds a graceful stop when neither the
	// configuration nor the caller's context provide a deadline.
	DefaultDrainTimeout = 10 * time.Second
	// DefaultReleasePollInterval is the delay between two probes of a port
	// that was just closed.
	DefaultReleasePollInterval = 200 * time.Millisecond
	// DefaultReleaseTimeout bounds how long Stop waits for the operating
	// system to release a closed port.
	DefaultReleaseTimeout = 5 * time.Second
)

// RejectionPolicy decides what happens to a unit that arrives while the
// worker pool is saturated.
type RejectionPolicy int

const (
	// Abort rejects the unit and delivers a PoolSaturatedError to its sink.
	// Listeners turn that into an explicit "try again later" reply.
	Abort RejectionPolicy = iota

	// Discard rejects the unit without telling the client. The sink still
	// receives bertherrors.Discarded() so the listener knows not to reply.
	// This hides backpressure from the producer; only use it on endpoints
	// whose producers retry on silence.
	Discard

	// CallerRuns executes the unit on the goroutine that read it, which
	// throttles that connection's reads until the unit completes.
	CallerRuns
)

var _policyToString = map[RejectionPolicy]string{
	Abort:      "abort",
	Discard:    "discard",
	CallerRuns: "caller-runs",
}

func (p RejectionPolicy) String() string {
	if s, ok := _policyToString[p]; ok {
		return s
	}
	return fmt.Sprintf("RejectionPolicy(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p RejectionPolicy) MarshalText() ([]byte, error) {
	s, ok := _policyToString[p]
	if !ok {
		return nil, fmt.Errorf("unknown rejection policy: %d", int(p))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Underscores and case
// are ignored so "CALLER_RUNS" and "caller-runs" are equivalent.
func (p *RejectionPolicy) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.Replace(string(text), "_", "-", -1))
	for policy, name := range _policyToString {
		if name == s {
			*p = policy
			return nil
		}
	}
	return fmt.Errorf("unknown rejection policy %q", string(text))
}

// EndpointConfig is the immutable configuration of one endpoint. It is
// copied into the listener on Start; restarting an endpoint requires a new
// listener and a fresh EndpointConfig.
type EndpointConfig struct {
	// Host to bind. Empty binds all interfaces.
	Host string

	// Port to bind. Required.
	Port int

	// CorePoolSize workers are kept alive even when idle.
	CorePoolSize int

	// MaxPoolSize bounds the number of units executing at once.
	MaxPoolSize int

	// QueueCapacity is the number of admitted units allowed to wait for a
	// worker. Zero means hand-off: a unit is either picked up immediately or
	// rejected.
	QueueCapacity int

	// IdleKeepAlive is how long workers beyond CorePoolSize wait for new
	// work before they exit. Zero selects DefaultIdleKeepAlive; a negative
	// value retires them as soon as they become idle.
	IdleKeepAlive time.Duration

	// ResponseTimeout bounds each handler call. Zero disables the timeout.
	ResponseTimeout time.Duration

	// RejectionPolicy applies when the pool is saturated.
	RejectionPolicy RejectionPolicy

	// DrainTimeout bounds a graceful stop when the caller's context has no
	// deadline.
	DrainTimeout time.Duration

	// ReleasePollInterval and ReleaseTimeout control how Stop waits for the
	// port to be released after the socket is closed.
	ReleasePollInterval time.Duration
	ReleaseTimeout      time.Duration

	// AcceptRate limits new connections per second. Zero is unlimited.
	AcceptRate float64
	// AcceptBurst is the number of connections accepted back to back before
	// AcceptRate applies. Defaults to 1 when AcceptRate is set.
	AcceptBurst int
}

// Address returns the host:port this endpoint binds.
func (c EndpointConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WithDefaults returns a copy of the configuration with unset timing
// parameters replaced by their defaults.
func (c EndpointConfig) WithDefaults() EndpointConfig {
	if c.IdleKeepAlive == 0 {
		c.IdleKeepAlive = DefaultIdleKeepAlive
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.ReleasePollInterval == 0 {
		c.ReleasePollInterval = DefaultReleasePollInterval
	}
	if c.ReleaseTimeout == 0 {
		c.ReleaseTimeout = DefaultReleaseTimeout
	}
	if c.AcceptRate > 0 && c.AcceptBurst == 0 {
		c.AcceptBurst = 1
	}
	return c
}

// Validate reports the first problem with the configuration.
func (c EndpointConfig) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return bertherrors.InvalidArgumentErrorf("port must be in [1, 65535], got %d", c.Port)
	case c.MaxPoolSize < 1:
		return bertherrors.InvalidArgumentErrorf("maxPoolSize must be at least 1, got %d", c.MaxPoolSize)
	case c.CorePoolSize < 0 || c.CorePoolSize > c.MaxPoolSize:
		return bertherrors.InvalidArgumentErrorf(
			"corePoolSize must be in [0, maxPoolSize=%d], got %d", c.MaxPoolSize, c.CorePoolSize)
	case c.QueueCapacity < 0:
		return bertherrors.InvalidArgumentErrorf("queueCapacity must not be negative, got %d", c.QueueCapacity)
	case c.ResponseTimeout < 0, c.DrainTimeout < 0,
		c.ReleasePollInterval < 0, c.ReleaseTimeout < 0:
		return bertherrors.InvalidArgumentErrorf("durations must not be negative")
	case c.AcceptRate < 0 || c.AcceptBurst < 0:
		return bertherrors.InvalidArgumentErrorf("acceptRate and acceptBurst must not be negative")
	}
	if _, ok := _policyToString[c.RejectionPolicy]; !ok {
		return bertherrors.InvalidArgumentErrorf("unknown rejection policy %d", int(c.RejectionPolicy))
	}
	return nil
}
