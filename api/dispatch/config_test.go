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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/berth/bertherrors"
)

func TestEndpointConfigValidate(t *testing.T) {
	valid := EndpointConfig{Port: 2575, CorePoolSize: 1, MaxPoolSize: 2}

	tests := []struct {
		desc    string
		give    func(EndpointConfig) EndpointConfig
		wantErr string
	}{
		{
			desc: "valid",
			give: func(c EndpointConfig) EndpointConfig { return c },
		},
		{
			desc: "zero core",
			give: func(c EndpointConfig) EndpointConfig {
				c.CorePoolSize = 0
				return c
			},
		},
		{
			desc: "missing port",
			give: func(c EndpointConfig) EndpointConfig {
				c.Port = 0
				return c
			},
			wantErr: "port must be in [1, 65535], got 0",
		},
		{
			desc: "port too large",
			give: func(c EndpointConfig) EndpointConfig {
				c.Port = 70000
				return c
			},
			wantErr: "port must be in [1, 65535], got 70000",
		},
		{
			desc: "no workers",
			give: func(c EndpointConfig) EndpointConfig {
				c.CorePoolSize = 0
				c.MaxPoolSize = 0
				return c
			},
			wantErr: "maxPoolSize must be at least 1, got 0",
		},
		{
			desc: "core above max",
			give: func(c EndpointConfig) EndpointConfig {
				c.CorePoolSize = 3
				return c
			},
			wantErr: "corePoolSize must be in [0, maxPoolSize=2], got 3",
		},
		{
			desc: "negative queue",
			give: func(c EndpointConfig) EndpointConfig {
				c.QueueCapacity = -1
				return c
			},
			wantErr: "queueCapacity must not be negative, got -1",
		},
		{
			desc: "negative timeout",
			give: func(c EndpointConfig) EndpointConfig {
				c.ResponseTimeout = -time.Second
				return c
			},
			wantErr: "durations must not be negative",
		},
		{
			desc: "negative accept rate",
			give: func(c EndpointConfig) EndpointConfig {
				c.AcceptRate = -1
				return c
			},
			wantErr: "acceptRate and acceptBurst must not be negative",
		},
		{
			desc: "unknown policy",
			give: func(c EndpointConfig) EndpointConfig {
				c.RejectionPolicy = RejectionPolicy(9)
				return c
			},
			wantErr: "unknown rejection policy 9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			err := tt.give(valid).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, bertherrors.CodeInvalidArgument, bertherrors.ErrorCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEndpointConfigWithDefaults(t *testing.T) {
	cfg := EndpointConfig{Port: 9000, MaxPoolSize: 1, AcceptRate: 10}.WithDefaults()
	assert.Equal(t, DefaultIdleKeepAlive, cfg.IdleKeepAlive)
	assert.Equal(t, DefaultDrainTimeout, cfg.DrainTimeout)
	assert.Equal(t, DefaultReleasePollInterval, cfg.ReleasePollInterval)
	assert.Equal(t, DefaultReleaseTimeout, cfg.ReleaseTimeout)
	assert.Equal(t, 1, cfg.AcceptBurst)
	assert.Equal(t, time.Duration(0), cfg.ResponseTimeout, "no response timeout by default")

	explicit := EndpointConfig{DrainTimeout: time.Second, ReleaseTimeout: time.Minute}.WithDefaults()
	assert.Equal(t, time.Second, explicit.DrainTimeout)
	assert.Equal(t, time.Minute, explicit.ReleaseTimeout)
	assert.Equal(t, 0, explicit.AcceptBurst)

	noKeepAlive := EndpointConfig{Port: 9000, MaxPoolSize: 1, IdleKeepAlive: -1}
	require.NoError(t, noKeepAlive.Validate())
	assert.Equal(t, time.Duration(-1), noKeepAlive.WithDefaults().IdleKeepAlive)
}

func TestEndpointConfigAddress(t *testing.T) {
	assert.Equal(t, ":2575", EndpointConfig{Port: 2575}.Address())
	assert.Equal(t, "127.0.0.1:8080", EndpointConfig{Host: "127.0.0.1", Port: 8080}.Address())
	assert.Equal(t, "[::1]:8080", EndpointConfig{Host: "::1", Port: 8080}.Address())
}

func TestRejectionPolicyText(t *testing.T) {
	tests := []struct {
		give string
		want RejectionPolicy
	}{
		{give: "abort", want: Abort},
		{give: "ABORT", want: Abort},
		{give: "discard", want: Discard},
		{give: "caller-runs", want: CallerRuns},
		{give: "CALLER_RUNS", want: CallerRuns},
	}

	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			var p RejectionPolicy
			require.NoError(t, p.UnmarshalText([]byte(tt.give)))
			assert.Equal(t, tt.want, p)
		})
	}

	var p RejectionPolicy
	assert.EqualError(t, p.UnmarshalText([]byte("block")), `unknown rejection policy "block"`)

	text, err := CallerRuns.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "caller-runs", string(text))

	_, err = RejectionPolicy(7).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "RejectionPolicy(7)", RejectionPolicy(7).String())
}
