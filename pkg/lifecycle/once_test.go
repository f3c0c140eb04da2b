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

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/berth/bertherrors"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "unbound", Unbound.String())
	assert.Equal(t, "binding", Binding.String())
	assert.Equal(t, "listening", Listening.String())
	assert.Equal(t, "stopping", Stopping.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestOnceStartStop(t *testing.T) {
	once := NewOnce()
	assert.Equal(t, Unbound, once.State())

	require.NoError(t, once.Start(nil))
	assert.Equal(t, Listening, once.State())
	assert.True(t, once.IsListening())
	assert.False(t, once.Done())

	require.NoError(t, once.Stop(nil))
	assert.Equal(t, Unbound, once.State())
	assert.True(t, once.Done())

	err := once.Start(nil)
	require.Error(t, err)
	assert.Equal(t, bertherrors.CodeFailedPrecondition, bertherrors.ErrorCode(err))
}

func TestOnceStartRunsOnce(t *testing.T) {
	once := NewOnce()

	var (
		mu    sync.Mutex
		calls int
		wg    sync.WaitGroup
	)
	start := func() error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, once.Start(start))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
	assert.Equal(t, Listening, once.State())
}

func TestOnceStartError(t *testing.T) {
	once := NewOnce()
	startErr := errors.New("bind: address already in use")

	assert.Equal(t, startErr, once.Start(func() error { return startErr }))
	assert.Equal(t, Unbound, once.State())
	assert.True(t, once.Done())

	// Later calls return the original error without running anything.
	assert.Equal(t, startErr, once.Start(func() error {
		t.Fatal("start must not run twice")
		return nil
	}))
	assert.Equal(t, startErr, once.Stop(func() error {
		t.Fatal("stop must not run after a failed start")
		return nil
	}))

	select {
	case <-once.Stopped():
	default:
		t.Fatal("Stopped channel must be closed after a failed start")
	}
}

func TestOnceStopBeforeStart(t *testing.T) {
	once := NewOnce()
	require.NoError(t, once.Stop(func() error {
		t.Fatal("stop must not run when never started")
		return nil
	}))
	assert.Equal(t, Unbound, once.State())
	assert.Error(t, once.Start(nil))
}

func TestOnceStopErrorStillUnbinds(t *testing.T) {
	once := NewOnce()
	require.NoError(t, once.Start(nil))

	stopErr := &bertherrors.ShutdownTimeoutError{Stage: "drain", Port: 9000}
	assert.Equal(t, stopErr, once.Stop(func() error { return stopErr }))
	assert.Equal(t, Unbound, once.State())
	assert.Equal(t, stopErr, once.Stop(nil))
}

func TestOnceObservableStates(t *testing.T) {
	once := NewOnce()

	binding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = once.Start(func() error {
			close(binding)
			<-release
			return nil
		})
	}()

	<-binding
	assert.Equal(t, Binding, once.State())
	close(release)
	<-once.Started()
	assert.Equal(t, Listening, once.State())

	stopping := make(chan struct{})
	release = make(chan struct{})
	done := make(chan error)
	go func() {
		done <- once.Stop(func() error {
			close(stopping)
			<-release
			return nil
		})
	}()

	<-stopping
	assert.Equal(t, Stopping, once.State())
	<-once.Stopping()
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Unbound, once.State())
}

func TestWaitUntilListening(t *testing.T) {
	t.Run("already listening", func(t *testing.T) {
		once := NewOnce()
		require.NoError(t, once.Start(nil))
		assert.NoError(t, once.WaitUntilListening(context.Background()))
	})

	t.Run("no deadline", func(t *testing.T) {
		err := NewOnce().WaitUntilListening(context.Background())
		assert.Equal(t, bertherrors.CodeInvalidArgument, bertherrors.ErrorCode(err))
	})

	t.Run("stopped", func(t *testing.T) {
		once := NewOnce()
		require.NoError(t, once.Start(nil))
		require.NoError(t, once.Stop(nil))
		err := once.WaitUntilListening(context.Background())
		assert.Equal(t, bertherrors.CodeFailedPrecondition, bertherrors.ErrorCode(err))
	})

	t.Run("starts later", func(t *testing.T) {
		once := NewOnce()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		go func() { _ = once.Start(nil) }()
		assert.NoError(t, once.WaitUntilListening(ctx))
	})

	t.Run("times out", func(t *testing.T) {
		once := NewOnce()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := once.WaitUntilListening(ctx)
		assert.Equal(t, bertherrors.CodeDeadlineExceeded, bertherrors.ErrorCode(err))
	})
}
