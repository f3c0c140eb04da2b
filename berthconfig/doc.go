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

// Package berthconfig builds berth Managers and their endpoints from
// configuration specified in YAML or any other markup format that parses
// into a map[string]interface{}.
//
// # Usage
//
// Create a Configurator and teach it the handlers your endpoints refer to.
// The built-in protocols and observers are known by default.
//
//	cfg := berthconfig.New()
//	cfg.MustRegisterHandler("orders", ordersHandler)
//
// Load the configuration and build a Manager from it.
//
//	c, err := cfg.LoadConfigFromYAML(f)
//	if err != nil {
//		log.Fatal(err)
//	}
//	m, err := cfg.NewManager(c, berthconfig.Deps{Logger: logger})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := m.StartEndpoints(ctx, c.Endpoints...); err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration
//
// The configuration accepts the following top-level attributes: logging,
// observers, endpoints and admin.
//
//	logging:
//	  level: info
//	  levels:
//	    rejected: error
//	observers: [log, prometheus]
//	endpoints:
//	  - name: adt-feed
//	    protocol: mllp
//	    handler: hl7-ack
//	    port: ${ADT_PORT:2575}
//	    corePoolSize: 4
//	    maxPoolSize: 16
//	    responseTimeout: 5s
//	    rejectionPolicy: caller-runs
//	admin:
//	  address: 127.0.0.1:8081
//
// Endpoint attributes mirror dispatch.EndpointConfig: host, port,
// corePoolSize, maxPoolSize, queueCapacity, keepAlive, responseTimeout,
// rejectionPolicy (abort, discard or caller-runs), drainTimeout,
// releasePollInterval, releaseTimeout, acceptRate and acceptBurst. An
// endpoint with `disabled: true` is ignored. A negative keepAlive, such as
// -1s, retires workers beyond corePoolSize as soon as they go idle.
//
// The host, port, pool sizes and admin address support ${VAR} and
// ${VAR:default} references to environment variables.
package berthconfig
