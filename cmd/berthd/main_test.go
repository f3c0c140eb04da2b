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

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/berth/berthtest"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "berthd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun(t *testing.T) {
	t.Setenv("JAEGER_DISABLED", "true")

	port := berthtest.FreePort(t)
	adminPort := berthtest.FreePort(t)
	path := writeConfig(t, fmt.Sprintf(`
logging:
  level: warn
observers: [log, metrics, prometheus]
endpoints:
  - name: echo
    protocol: http
    handler: echo
    host: 127.0.0.1
    port: %d
    maxPoolSize: 2
    releaseTimeout: 2s
admin:
  address: 127.0.0.1:%d
`, port, adminPort))

	stop := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- run([]string{"-config", path, "-shutdown-timeout", "5s"}, stop)
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	var body string
	require.Eventually(t, func() bool {
		res, err := client.Post(fmt.Sprintf("http://127.0.0.1:%d/", port), "text/plain", strings.NewReader("ping"))
		if err != nil {
			return false
		}
		defer res.Body.Close()
		b, _ := io.ReadAll(res.Body)
		body = string(b)
		return res.StatusCode == http.StatusOK
	}, 5*berthtest.Second, 10*time.Millisecond)
	assert.Equal(t, "ping", body)

	res, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/endpoints", adminPort))
	require.NoError(t, err)
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Contains(t, string(b), `"endpoint":"echo"`)

	stop <- syscall.SIGTERM
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * berthtest.Second):
		t.Fatal("berthd did not stop")
	}
}

func TestRunErrors(t *testing.T) {
	t.Setenv("JAEGER_DISABLED", "true")

	tests := []struct {
		desc    string
		args    func(t *testing.T) []string
		wantErr string
	}{
		{
			desc:    "unknown flag",
			args:    func(*testing.T) []string { return []string{"-verbose"} },
			wantErr: "flag provided but not defined",
		},
		{
			desc: "missing file",
			args: func(t *testing.T) []string {
				return []string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}
			},
			wantErr: "no such file",
		},
		{
			desc: "unknown handler",
			args: func(t *testing.T) []string {
				return []string{"-config", writeConfig(t, `
endpoints:
  - {name: a, protocol: http, handler: orders, port: 8080, maxPoolSize: 1}
`)}
			},
			wantErr: `unknown handler "orders"`,
		},
		{
			desc: "port taken",
			args: func(t *testing.T) []string {
				port := berthtest.FreePort(t)
				berthtest.Occupy(t, port)
				return []string{"-config", writeConfig(t, fmt.Sprintf(`
logging: {level: error}
endpoints:
  - {name: a, protocol: mllp, handler: hl7-ack, host: 127.0.0.1, port: %d, maxPoolSize: 1}
`, port))}
			},
			wantErr: "in use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			err := run(tt.args(t), make(chan os.Signal))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
