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

package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/berth"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/berthtest"
	"go.uber.org/berth/observability"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	manager *berth.Manager
	port    int
	server  *httptest.Server
	client  *http.Client
}

func newFixture(t *testing.T) *fixture {
	reg := prometheus.NewRegistry()
	obs, err := observability.NewPrometheusObserver(reg)
	require.NoError(t, err)

	m := berth.NewManager(berth.Config{
		Observers: []dispatch.Observer{obs},
		Logging:   berth.LoggingConfig{Zap: zaptest.NewLogger(t)},
	})
	port := berthtest.FreePort(t)
	_, err = m.StartEndpoint(berth.Endpoint{
		Name:     "orders",
		Protocol: berth.ProtocolHTTP,
		Handler:  berthtest.EchoHandler,
		Config: dispatch.EndpointConfig{
			Host:           "127.0.0.1",
			Port:           port,
			MaxPoolSize:    3,
			ReleaseTimeout: 2 * time.Second,
		},
	})
	require.NoError(t, err)

	s := New("127.0.0.1:0", m, WithGatherer(reg), WithLogger(zaptest.NewLogger(t)))
	f := &fixture{
		manager: m,
		port:    port,
		server:  httptest.NewServer(s.Handler()),
		client:  &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
	}
	t.Cleanup(func() {
		f.server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*berthtest.Second)
		defer cancel()
		assert.NoError(t, m.StopAll(ctx))
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string) (int, string) {
	req, err := http.NewRequest(method, f.server.URL+path, nil)
	require.NoError(t, err)
	res, err := f.client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func TestListEndpoints(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/endpoints")
	require.Equal(t, http.StatusOK, status, body)

	var got []endpointJSON
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "orders", got[0].Endpoint)
	assert.Equal(t, "http", got[0].Protocol)
	assert.Equal(t, f.port, got[0].Port)
	assert.Equal(t, "listening", got[0].State)
	assert.Equal(t, 3, got[0].Stats.Max)

	status, _ = f.do(t, http.MethodDelete, "/endpoints")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestStopEndpoint(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodGet, "/endpoints/"+itoa(f.port)+"/stop")
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status, body := f.do(t, http.MethodPost, "/endpoints/"+itoa(f.port)+"/stop")
	require.Equal(t, http.StatusOK, status, body)
	assert.JSONEq(t, `{"stopped": `+itoa(f.port)+`}`, body)
	assert.Empty(t, f.manager.Endpoints())

	status, body = f.do(t, http.MethodPost, "/endpoints/"+itoa(f.port)+"/stop")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "no endpoint is bound to port")

	status, _ = f.do(t, http.MethodPost, "/endpoints/http/stop")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodPost, "/endpoints/"+itoa(f.port)+"/restart")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsAndDebugPage(t *testing.T) {
	f := newFixture(t)

	res, err := f.client.Post("http://127.0.0.1:"+itoa(f.port)+"/", "text/plain", strings.NewReader("hi"))
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())

	status, body := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `berth_admitted_total{endpoint="orders",policy="abort",port="`+itoa(f.port)+`",transport="http"} 1`)

	status, body = f.do(t, http.MethodGet, "/debug/berth")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<td>orders</td>")
	assert.Contains(t, body, "mllp")
}

func TestServerStartStop(t *testing.T) {
	m := berth.NewManager(berth.Config{})
	s := New("127.0.0.1:0", m)
	assert.Nil(t, s.Addr())
	require.NoError(t, s.Start())
	require.NotNil(t, s.Addr())

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	res, err := client.Get("http://" + s.Addr().String() + "/endpoints")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.JSONEq(t, `[]`, string(body))

	res2, err := client.Get("http://" + s.Addr().String() + "/metrics")
	require.NoError(t, err)
	require.NoError(t, res2.Body.Close())
	assert.Equal(t, http.StatusNotFound, res2.StatusCode, "no gatherer, no metrics")

	require.NoError(t, s.Stop(context.Background()))
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
