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

package net

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAndShutdown(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, server.ListenAndServe())

	require.NotNil(t, server.Listener())
	addr := server.Listener().Addr().String()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.NoError(t, server.Shutdown(context.Background()))
	_, err = net.Dial("tcp", addr)
	require.Error(t, err)
}

func TestListenAddrInUse(t *testing.T) {
	s1 := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, s1.ListenAndServe())
	defer s1.Shutdown(context.Background())

	s2 := NewHTTPServer(&http.Server{Addr: s1.Listener().Addr().String()})
	err := s2.ListenAndServe()
	require.Error(t, err)
	assert.True(t, IsAddrInUse(err), "expected EADDRINUSE, got %v", err)
}

func TestShutdownAndListen(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, server.ListenAndServe())
	require.NoError(t, server.Shutdown(context.Background()))
	assert.Equal(t, errServerStopped, server.ListenAndServe())
}

func TestShutdownReleasesAddress(t *testing.T) {
	for i := 0; i < 20; i++ {
		server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
		require.NoError(t, server.ListenAndServe())
		addr := server.Listener().Addr().String()
		require.NoError(t, server.Shutdown(context.Background()))

		lis, err := net.Listen("tcp", addr)
		require.NoError(t, err, "address %v still bound after Shutdown", addr)
		require.NoError(t, lis.Close())
	}
}

func TestServeAfterShutdown(t *testing.T) {
	lis, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)

	server := NewHTTPServer(&http.Server{})
	require.NoError(t, server.Shutdown(context.Background()))
	require.NoError(t, server.Serve(lis))

	_, err = lis.Accept()
	assert.True(t, errors.Is(err, net.ErrClosed), "listener must be closed, got %v", err)
}

func TestShutdownWithoutStart(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, server.Shutdown(context.Background()))
}

func TestListenTwice(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, server.ListenAndServe())
	assert.Equal(t, errAlreadyListening, server.ListenAndServe())
	require.NoError(t, server.Shutdown(context.Background()))
}

func TestShutdownTwice(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, server.ListenAndServe())
	require.NoError(t, server.Shutdown(context.Background()))
	require.NoError(t, server.Shutdown(context.Background()))
}

func TestListenFail(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "invalid"})
	require.Error(t, server.ListenAndServe())
}

func TestServeClosedListenerIsNotAnError(t *testing.T) {
	lis, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	server := NewHTTPServer(&http.Server{Handler: handler})

	done := make(chan error, 1)
	go func() { done <- server.Serve(lis) }()

	res, err := http.Get("http://" + lis.Addr().String())
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, "pong", string(body))

	require.NoError(t, lis.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after the listener was closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
}
