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

// Package admin serves the administrative HTTP surface of berthd: the
// endpoint listing, the stop operation, a debug page and Prometheus metrics.
package admin

import (
	"context"
	"encoding/json"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/berth"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/bertherrors"
	berthnet "go.uber.org/berth/internal/net"
	"go.uber.org/zap"
	"golang.org/x/net/trace"
)

const _defaultStopTimeout = 30 * time.Second

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger of the server.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer serves the metrics collected by g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithStopTimeout bounds POST /endpoints/{port}/stop. Defaults to 30s.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.stopTimeout = d
	}
}

// Server is the admin HTTP server.
type Server struct {
	manager     *berth.Manager
	gatherer    prometheus.Gatherer
	logger      *zap.Logger
	stopTimeout time.Duration
	server      *berthnet.HTTPServer
}

// New builds a Server for m listening on addr.
func New(addr string, m *berth.Manager, opts ...Option) *Server {
	s := &Server{
		manager:     m,
		logger:      zap.NewNop(),
		stopTimeout: _defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("admin")
	s.server = berthnet.NewHTTPServer(&http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger),
	})
	return s
}

// Handler returns the admin routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/endpoints", s.listEndpoints)
	mux.HandleFunc("/endpoints/", s.stopEndpoint)
	mux.HandleFunc("/debug/berth", s.debugPage)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start starts serving in the background.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil {
		return err
	}
	s.logger.Info("admin server listening", zap.Stringer("addr", s.Addr()))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if lis := s.server.Listener(); lis != nil {
		return lis.Addr()
	}
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type endpointJSON struct {
	Endpoint string             `json:"endpoint"`
	Protocol string             `json:"protocol"`
	Port     int                `json:"port"`
	Addr     string             `json:"addr,omitempty"`
	State    string             `json:"state"`
	Since    time.Time          `json:"since"`
	Stats    dispatch.PoolStats `json:"stats"`
}

func toJSON(st berth.EndpointStatus) endpointJSON {
	e := endpointJSON{
		Endpoint: st.Endpoint,
		Protocol: st.Protocol,
		Port:     st.Port,
		State:    st.State.String(),
		Since:    st.Since,
		Stats:    st.Stats,
	}
	if st.Addr != nil {
		e.Addr = st.Addr.String()
	}
	return e
}

func (s *Server) listEndpoints(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := []endpointJSON{}
	for _, st := range s.manager.Endpoints() {
		out = append(out, toJSON(st))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// stopEndpoint serves POST /endpoints/{port}/stop.
func (s *Server) stopEndpoint(w http.ResponseWriter, req *http.Request) {
	rest := strings.TrimPrefix(req.URL.Path, "/endpoints/")
	portStr := strings.TrimSuffix(rest, "/stop")
	if portStr == rest || strings.Contains(portStr, "/") {
		http.NotFound(w, req)
		return
	}
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if allowed, _ := trace.AuthRequest(req); !allowed {
		http.Error(w, "not allowed", http.StatusUnauthorized)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		http.Error(w, "invalid port "+strconv.Quote(portStr), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), s.stopTimeout)
	defer cancel()
	err = s.manager.StopEndpoint(ctx, port)
	switch {
	case err == nil:
		s.logger.Info("endpoint stopped through admin", zap.Int("port", port))
		s.writeJSON(w, http.StatusOK, map[string]int{"stopped": port})
	case bertherrors.ErrorCode(err) == bertherrors.CodeNotFound:
		http.Error(w, bertherrors.FromError(err).Message(), http.StatusNotFound)
	default:
		// The port was released regardless; report the unclean stop.
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"stopped": port,
			"error":   err.Error(),
		})
	}
}

func (s *Server) debugPage(w http.ResponseWriter, req *http.Request) {
	if allowed, _ := trace.AuthRequest(req); !allowed {
		http.Error(w, "not allowed", http.StatusUnauthorized)
		return
	}
	var data struct {
		Protocols []string
		Endpoints []endpointJSON
	}
	data.Protocols = s.manager.Protocols()
	for _, st := range s.manager.Endpoints() {
		data.Endpoints = append(data.Endpoints, toJSON(st))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("failed executing debug template", zap.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed writing response", zap.Error(err))
	}
}

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

const pageHTML = `
<html>
	<head>
	<title>/debug/berth</title>
	<style type="text/css">
		body {
			font-family: sans-serif;
		}
		table {
			text-align: left;
		}
	</style>
	</head>
	<body>

<h1>/debug/berth</h1>
<p>Protocols: {{range .Protocols}}{{.}} {{end}}</p>
<table>
	<tr>
		<th>Endpoint</th>
		<th>Protocol</th>
		<th>Port</th>
		<th>State</th>
		<th>Since</th>
		<th>Workers</th>
		<th>Running</th>
		<th>Queued</th>
		<th>Max</th>
	</tr>
	{{range .Endpoints}}
	<tr>
		<td>{{.Endpoint}}</td>
		<td>{{.Protocol}}</td>
		<td>{{.Port}}</td>
		<td>{{.State}}</td>
		<td>{{.Since}}</td>
		<td>{{.Stats.Workers}}</td>
		<td>{{.Stats.Running}}</td>
		<td>{{.Stats.Queued}}</td>
		<td>{{.Stats.Max}}</td>
	</tr>
	{{end}}
</table>
	</body>
</html>
`
