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

package berthconfig

import (
	"fmt"
	"time"

	"github.com/uber-go/mapdecode"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/observability"
	"go.uber.org/zap/zapcore"
)

type berthConfig struct {
	Logging   logging    `config:"logging"`
	Observers []string   `config:"observers"`
	Endpoints []endpoint `config:"endpoints"`
	Admin     admin      `config:"admin"`
}

// logging allows configuring the log levels from YAML.
type logging struct {
	Level       *zapLevel `config:"level"`
	Development bool      `config:"development"`

	// Levels override the levels of the log observer.
	Levels struct {
		Admitted   *zapLevel `config:"admitted"`
		Rejected   *zapLevel `config:"rejected"`
		Success    *zapLevel `config:"success"`
		Failure    *zapLevel `config:"failure"`
		Timeout    *zapLevel `config:"timeout"`
		Terminated *zapLevel `config:"terminated"`
	} `config:"levels"`
}

// fill copies the logging section into cfg.
func (l *logging) fill(cfg *Config) {
	cfg.Logging.Level = zapcore.InfoLevel
	if l.Level != nil {
		cfg.Logging.Level = zapcore.Level(*l.Level)
	}
	cfg.Logging.Development = l.Development

	levels := observability.DefaultLevels
	set := func(dst *zapcore.Level, src *zapLevel) {
		if src != nil {
			*dst = zapcore.Level(*src)
		}
	}
	set(&levels.Admitted, l.Levels.Admitted)
	set(&levels.Rejected, l.Levels.Rejected)
	set(&levels.Success, l.Levels.Success)
	set(&levels.Failure, l.Levels.Failure)
	set(&levels.Timeout, l.Levels.Timeout)
	set(&levels.Terminated, l.Levels.Terminated)
	cfg.Logging.Levels = levels
}

type admin struct {
	Address string `config:"address,interpolate"`
}

type endpoint struct {
	Name     string `config:"name"`
	Protocol string `config:"protocol"`
	Handler  string `config:"handler"`
	Disabled bool   `config:"disabled"`

	Host                string          `config:"host,interpolate"`
	Port                int             `config:"port,interpolate"`
	CorePoolSize        int             `config:"corePoolSize,interpolate"`
	MaxPoolSize         int             `config:"maxPoolSize,interpolate"`
	QueueCapacity       int             `config:"queueCapacity,interpolate"`
	KeepAlive           time.Duration   `config:"keepAlive"`
	ResponseTimeout     time.Duration   `config:"responseTimeout"`
	RejectionPolicy     rejectionPolicy `config:"rejectionPolicy"`
	DrainTimeout        time.Duration   `config:"drainTimeout"`
	ReleasePollInterval time.Duration   `config:"releasePollInterval"`
	ReleaseTimeout      time.Duration   `config:"releaseTimeout"`
	AcceptRate          float64         `config:"acceptRate"`
	AcceptBurst         int             `config:"acceptBurst"`
}

func (e *endpoint) endpointConfig() dispatch.EndpointConfig {
	return dispatch.EndpointConfig{
		Host:                e.Host,
		Port:                e.Port,
		CorePoolSize:        e.CorePoolSize,
		MaxPoolSize:         e.MaxPoolSize,
		QueueCapacity:       e.QueueCapacity,
		IdleKeepAlive:       e.KeepAlive,
		ResponseTimeout:     e.ResponseTimeout,
		RejectionPolicy:     dispatch.RejectionPolicy(e.RejectionPolicy),
		DrainTimeout:        e.DrainTimeout,
		ReleasePollInterval: e.ReleasePollInterval,
		ReleaseTimeout:      e.ReleaseTimeout,
		AcceptRate:          e.AcceptRate,
		AcceptBurst:         e.AcceptBurst,
	}.WithDefaults()
}

type zapLevel zapcore.Level

// mapdecode doesn't support encoding.TextUnmarshaler by default so we have
// to do this manually.
func (l *zapLevel) Decode(into mapdecode.Into) error {
	var s string
	if err := into(&s); err != nil {
		return fmt.Errorf("could not decode Zap log level: %v", err)
	}
	if err := (*zapcore.Level)(l).UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("could not decode Zap log level: %v", err)
	}
	return nil
}

type rejectionPolicy dispatch.RejectionPolicy

func (p *rejectionPolicy) Decode(into mapdecode.Into) error {
	var s string
	if err := into(&s); err != nil {
		return fmt.Errorf("could not decode rejection policy: %v", err)
	}
	return (*dispatch.RejectionPolicy)(p).UnmarshalText([]byte(s))
}
