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

package berth

import (
	"github.com/opentracing/opentracing-go"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/registry"
	"go.uber.org/zap"
)

const _packageName = "berth"

// LoggingConfig describes how logging should be configured.
type LoggingConfig struct {
	// Supplies a logger for the manager and its endpoints. By default, no
	// logs are emitted.
	Zap *zap.Logger
}

func (c LoggingConfig) logger() *zap.Logger {
	if c.Zap == nil {
		return zap.NewNop()
	}
	return c.Zap.Named(_packageName)
}

// Config specifies the parameters of a new Manager constructed via
// NewManager.
type Config struct {
	// Protocols maps protocol names to the factories that build their
	// listeners. Defaults to DefaultProtocols().
	Protocols map[string]ListenerFactory

	// Observers are notified of the admission decisions and completed
	// units of every endpoint.
	Observers []dispatch.Observer

	// Tracer is handed to the listeners of protocols that support tracing.
	// Defaults to opentracing.GlobalTracer().
	Tracer opentracing.Tracer

	// Registry records port ownership. A Registry may be shared by several
	// managers; a new one is used if nil.
	Registry *registry.Registry

	// Configures logging.
	Logging LoggingConfig
}
