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

package workerpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/berth/berthtest"
	"go.uber.org/zap/zaptest"
)

func shutdown(t *testing.T, p *Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*berthtest.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestPoolBoundInvariant(t *testing.T) {
	tracker := &berthtest.ConcurrencyTracker{Handler: berthtest.SleepHandler(5*berthtest.Millisecond, "ok")}
	p := New(tracker, WithSize(1, 3), WithQueueCapacity(100), WithLogger(zaptest.NewLogger(t)))
	gate := NewGate(p, dispatch.Abort)

	var (
		wg    sync.WaitGroup
		sinks = make(chan *berthtest.Sink, 60)
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				u, sink := berthtest.Unit("msg")
				assert.Equal(t, Admitted, gate.Admit(u))
				sinks <- sink
			}
		}()
	}
	wg.Wait()
	close(sinks)

	for sink := range sinks {
		res := sink.Await(t, 5*berthtest.Second)
		assert.NoError(t, res.Err)
		assert.Equal(t, "ok", string(res.Payload))
		assert.Equal(t, 1, sink.Calls())
	}

	assert.Equal(t, 60, tracker.Calls())
	assert.True(t, tracker.Max() <= 3, "at most 3 units may run at once, saw %d", tracker.Max())
	assert.True(t, p.Stats().Workers <= 3)
	shutdown(t, p)
}

func TestPoolHandOffRejectsSynchronously(t *testing.T) {
	blocker := berthtest.NewBlockingHandler()
	obs := &berthtest.Observer{}
	p := New(blocker,
		WithSize(2, 2),
		WithObserver(obs, dispatch.Event{Endpoint: "adt", Port: 2575}),
	)
	gate := NewGate(p, dispatch.Abort)

	first, firstSink := berthtest.Unit("1")
	second, secondSink := berthtest.Unit("2")
	require.Equal(t, Admitted, gate.Admit(first))
	require.Equal(t, Admitted, gate.Admit(second))
	blocker.AwaitStarted(t, 2)

	third, thirdSink := berthtest.Unit("3")
	done := make(chan Decision, 1)
	go func() { done <- gate.Admit(third) }()

	select {
	case d := <-done:
		assert.Equal(t, Rejected, d)
	case <-time.After(time.Second):
		t.Fatal("Admit blocked on a saturated pool")
	}

	// ABORT never drops silently: the rejected unit got exactly one error.
	require.Equal(t, 1, thirdSink.Calls())
	err := thirdSink.Result().Err
	require.Error(t, err)
	assert.True(t, bertherrors.IsPoolSaturated(err))
	assert.Equal(t, `endpoint "adt" is saturated (2/2 workers busy, 0 queued): try again later`, err.Error())

	require.Len(t, obs.Rejected(), 1)
	assert.True(t, bertherrors.IsPoolSaturated(obs.Rejected()[0]))

	blocker.Release()
	assert.Equal(t, "1", string(firstSink.Await(t, time.Second).Payload))
	assert.Equal(t, "2", string(secondSink.Await(t, time.Second).Payload))

	shutdown(t, p)
	assert.Equal(t, 2, obs.Admitted())
	assert.Equal(t, 2, obs.Count(dispatch.OutcomeSuccess))
}

func TestPoolQueue(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	blocker := berthtest.NewBlockingHandler()
	h := dispatch.HandlerFunc(func(ctx context.Context, payload []byte, md map[string]string) ([]byte, error) {
		mu.Lock()
		order = append(order, string(payload))
		mu.Unlock()
		return blocker.Handle(ctx, payload, md)
	})

	p := New(h, WithSize(1, 1), WithQueueCapacity(2))
	gate := NewGate(p, dispatch.Abort)

	var sinks []*berthtest.Sink
	for _, payload := range []string{"a", "b", "c"} {
		u, sink := berthtest.Unit(payload)
		require.Equal(t, Admitted, gate.Admit(u), "unit %q", payload)
		sinks = append(sinks, sink)
	}
	blocker.AwaitStarted(t, 1)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Running)
	assert.Equal(t, 2, stats.Queued)

	overflow, overflowSink := berthtest.Unit("d")
	assert.Equal(t, Rejected, gate.Admit(overflow))
	err := overflowSink.Result().Err
	var saturated *bertherrors.PoolSaturatedError
	require.ErrorAs(t, err, &saturated)
	assert.Equal(t, 2, saturated.Queued)

	blocker.Release()
	for _, sink := range sinks {
		assert.NoError(t, sink.Await(t, time.Second).Err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, order, "queued units run in arrival order")
	shutdown(t, p)
}

func TestPoolDiscard(t *testing.T) {
	blocker := berthtest.NewBlockingHandler()
	obs := &berthtest.Observer{}
	p := New(blocker, WithSize(1, 1), WithObserver(obs, dispatch.Event{Endpoint: "adt"}))
	gate := NewGate(p, dispatch.Discard)

	busy, busySink := berthtest.Unit("busy")
	require.Equal(t, Admitted, gate.Admit(busy))
	blocker.AwaitStarted(t, 1)

	dropped, droppedSink := berthtest.Unit("dropped")
	assert.Equal(t, Rejected, gate.Admit(dropped))
	assert.Equal(t, 1, droppedSink.Calls())
	assert.True(t, bertherrors.IsDiscarded(droppedSink.Result().Err))
	require.Len(t, obs.Rejected(), 1)
	assert.True(t, bertherrors.IsPoolSaturated(obs.Rejected()[0]))

	blocker.Release()
	busySink.Await(t, time.Second)
	shutdown(t, p)
}

func TestPoolCallerRuns(t *testing.T) {
	blocker := berthtest.NewBlockingHandler()
	h := dispatch.HandlerFunc(func(ctx context.Context, payload []byte, md map[string]string) ([]byte, error) {
		if string(payload) == "inline" {
			return []byte("ran inline"), nil
		}
		return blocker.Handle(ctx, payload, md)
	})
	obs := &berthtest.Observer{}
	p := New(h, WithSize(1, 1), WithObserver(obs, dispatch.Event{Endpoint: "adt"}))
	gate := NewGate(p, dispatch.CallerRuns)

	busy, busySink := berthtest.Unit("busy")
	require.Equal(t, Admitted, gate.Admit(busy))
	blocker.AwaitStarted(t, 1)

	inline, inlineSink := berthtest.Unit("inline")
	assert.Equal(t, RanInline, gate.Admit(inline))

	// The sink was called on this goroutine before Admit returned.
	require.Equal(t, 1, inlineSink.Calls())
	assert.Equal(t, "ran inline", string(inlineSink.Result().Payload))
	assert.Empty(t, obs.Rejected())
	assert.Equal(t, 0, p.Stats().CallerRuns)

	blocker.Release()
	busySink.Await(t, time.Second)
	shutdown(t, p)
	assert.Equal(t, 2, obs.Admitted())
	assert.Equal(t, 2, obs.Count(dispatch.OutcomeSuccess))
}

func TestPoolHandlerPanicContained(t *testing.T) {
	calls := 0
	h := dispatch.HandlerFunc(func(_ context.Context, payload []byte, _ map[string]string) ([]byte, error) {
		calls++
		if string(payload) == "bad" {
			panic("malformed segment")
		}
		return payload, nil
	})
	obs := &berthtest.Observer{}
	p := New(h, WithSize(1, 1), WithLogger(zaptest.NewLogger(t)), WithObserver(obs, dispatch.Event{}))
	gate := NewGate(p, dispatch.Abort)

	for i := 0; i < 3; i++ {
		u, sink := berthtest.Unit("bad")
		require.Equal(t, Admitted, gate.Admit(u))
		err := sink.Await(t, time.Second).Err
		require.Error(t, err)
		assert.True(t, bertherrors.IsHandlerError(err))
		assert.Equal(t, bertherrors.CodeInternal, bertherrors.ErrorCode(err))
	}

	u, sink := berthtest.Unit("good")
	require.Equal(t, Admitted, gate.Admit(u))
	res := sink.Await(t, time.Second)
	require.NoError(t, res.Err)
	assert.Equal(t, "good", string(res.Payload))

	shutdown(t, p)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 3, obs.Count(dispatch.OutcomeFailure))
	assert.Equal(t, 1, obs.Count(dispatch.OutcomeSuccess))
}

func TestPoolResponseTimeout(t *testing.T) {
	handlerDone := make(chan error, 1)
	h := dispatch.HandlerFunc(func(ctx context.Context, _ []byte, _ map[string]string) ([]byte, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		<-ctx.Done()
		handlerDone <- ctx.Err()
		return []byte("too late"), nil
	})
	obs := &berthtest.Observer{}
	p := New(h,
		WithSize(1, 1),
		WithResponseTimeout(20*berthtest.Millisecond),
		WithObserver(obs, dispatch.Event{Endpoint: "slow"}),
	)
	gate := NewGate(p, dispatch.Abort)

	u, sink := berthtest.Unit("x")
	require.Equal(t, Admitted, gate.Admit(u))

	err := sink.Await(t, time.Second).Err
	require.Error(t, err)
	assert.Equal(t, bertherrors.CodeDeadlineExceeded, bertherrors.ErrorCode(err))
	assert.Contains(t, err.Error(), `endpoint "slow" did not respond within`)
	assert.Equal(t, context.DeadlineExceeded, <-handlerDone, "handler context is cancelled")

	shutdown(t, p)
	assert.Equal(t, 1, sink.Calls(), "the late handler result is not delivered")
	assert.Equal(t, []dispatch.Outcome{dispatch.OutcomeTimeout}, obs.Outcomes())
}

func TestPoolIdleWorkersShrink(t *testing.T) {
	blocker := berthtest.NewBlockingHandler()
	p := New(blocker, WithSize(1, 3), WithIdleKeepAlive(20*berthtest.Millisecond))
	gate := NewGate(p, dispatch.Abort)

	var sinks []*berthtest.Sink
	for i := 0; i < 3; i++ {
		u, sink := berthtest.Unit("x")
		require.Equal(t, Admitted, gate.Admit(u))
		sinks = append(sinks, sink)
	}
	blocker.AwaitStarted(t, 3)
	assert.Equal(t, 3, p.Stats().Workers)

	blocker.Release()
	for _, sink := range sinks {
		sink.Await(t, time.Second)
	}

	require.Eventually(t, func() bool {
		return p.Stats().Workers == 1
	}, 2*berthtest.Second, 5*time.Millisecond, "workers beyond core retire after the keep-alive")
	stats := p.Stats()
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 0, stats.Running)

	// The surviving core worker still serves new units.
	u, sink := berthtest.Unit("again")
	require.Equal(t, Admitted, gate.Admit(u))
	assert.Equal(t, "again", string(sink.Await(t, time.Second).Payload))
	shutdown(t, p)
}

func TestPoolZeroKeepAliveRetiresImmediately(t *testing.T) {
	blocker := berthtest.NewBlockingHandler()
	p := New(blocker, WithSize(0, 2), WithIdleKeepAlive(0))
	gate := NewGate(p, dispatch.Abort)

	u1, s1 := berthtest.Unit("1")
	u2, s2 := berthtest.Unit("2")
	require.Equal(t, Admitted, gate.Admit(u1))
	require.Equal(t, Admitted, gate.Admit(u2))
	blocker.AwaitStarted(t, 2)
	blocker.Release()
	s1.Await(t, time.Second)
	s2.Await(t, time.Second)

	require.Eventually(t, func() bool {
		return p.Stats().Workers == 0
	}, time.Second, time.Millisecond)
	shutdown(t, p)
}

func TestPoolGracefulShutdownDrains(t *testing.T) {
	obs := &berthtest.Observer{}
	p := New(berthtest.SleepHandler(200*berthtest.Millisecond, "done"),
		WithSize(5, 5),
		WithObserver(obs, dispatch.Event{}),
	)
	gate := NewGate(p, dispatch.Abort)

	var sinks []*berthtest.Sink
	for i := 0; i < 5; i++ {
		u, sink := berthtest.Unit("x")
		require.Equal(t, Admitted, gate.Admit(u))
		sinks = append(sinks, sink)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*berthtest.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	for _, sink := range sinks {
		require.Equal(t, 1, sink.Calls(), "every unit completed before Shutdown returned")
		res := sink.Result()
		assert.NoError(t, res.Err)
		assert.Equal(t, "done", string(res.Payload))
	}
	assert.Equal(t, 5, obs.Count(dispatch.OutcomeSuccess))

	late, lateSink := berthtest.Unit("late")
	assert.Equal(t, Rejected, gate.Admit(late))
	assert.Equal(t, bertherrors.CodeUnavailable, bertherrors.ErrorCode(lateSink.Result().Err))
	assert.True(t, p.Closed())
}

func TestPoolShutdownDrainsQueue(t *testing.T) {
	p := New(berthtest.SleepHandler(10*berthtest.Millisecond, "ok"), WithSize(1, 1), WithQueueCapacity(3))
	gate := NewGate(p, dispatch.Abort)

	var sinks []*berthtest.Sink
	for i := 0; i < 4; i++ {
		u, sink := berthtest.Unit("x")
		require.Equal(t, Admitted, gate.Admit(u))
		sinks = append(sinks, sink)
	}

	shutdown(t, p)
	for _, sink := range sinks {
		assert.NoError(t, sink.Result().Err)
	}
}

func TestPoolShutdownTimeout(t *testing.T) {
	blocker := berthtest.NewBlockingHandler()
	defer blocker.Release()

	obs := &berthtest.Observer{}
	p := New(blocker,
		WithSize(1, 1),
		WithQueueCapacity(1),
		WithLogger(zaptest.NewLogger(t)),
		WithObserver(obs, dispatch.Event{Endpoint: "adt", Port: 2575}),
	)
	gate := NewGate(p, dispatch.Abort)

	running, runningSink := berthtest.Unit("running")
	queued, queuedSink := berthtest.Unit("queued")
	require.Equal(t, Admitted, gate.Admit(running))
	require.Equal(t, Admitted, gate.Admit(queued))
	blocker.AwaitStarted(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*berthtest.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	require.Error(t, err)
	assert.True(t, bertherrors.IsShutdownTimeout(err))
	assert.Contains(t, err.Error(), "shutdown of port 2575 timed out during drain")

	for _, sink := range []*berthtest.Sink{runningSink, queuedSink} {
		require.Equal(t, 1, sink.Calls())
		assert.True(t, bertherrors.IsTerminated(sink.Result().Err))
	}
	assert.Equal(t, 2, obs.Count(dispatch.OutcomeTerminated))
}

func TestPoolShutdownIdleWithExpiredContext(t *testing.T) {
	for i := 0; i < 100; i++ {
		obs := &berthtest.Observer{}
		p := New(berthtest.EchoHandler, WithSize(1, 2), WithObserver(obs, dispatch.Event{}))

		u, sink := berthtest.Unit("x")
		require.Equal(t, Admitted, NewGate(p, dispatch.Abort).Admit(u))
		require.NoError(t, sink.Await(t, time.Second).Err)
		require.Eventually(t, func() bool {
			return p.Stats().Running == 0
		}, time.Second, time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, p.Shutdown(ctx), "an idle pool drains regardless of the context")
		assert.Equal(t, 0, obs.Count(dispatch.OutcomeTerminated))
	}
}

func TestPoolZeroKeepAliveFromEndpointConfig(t *testing.T) {
	blocker := berthtest.NewBlockingHandler()
	p := New(blocker, FromEndpointConfig(dispatch.EndpointConfig{
		Port:          2575,
		CorePoolSize:  1,
		MaxPoolSize:   2,
		IdleKeepAlive: -1,
	}.WithDefaults()))
	gate := NewGate(p, dispatch.Abort)

	u1, s1 := berthtest.Unit("1")
	u2, s2 := berthtest.Unit("2")
	require.Equal(t, Admitted, gate.Admit(u1))
	require.Equal(t, Admitted, gate.Admit(u2))
	blocker.AwaitStarted(t, 2)
	assert.Equal(t, 2, p.Stats().Workers)

	blocker.Release()
	s1.Await(t, time.Second)
	s2.Await(t, time.Second)
	require.Eventually(t, func() bool {
		return p.Stats().Workers == 1
	}, time.Second, time.Millisecond, "the worker beyond core retires as soon as it is idle")
	shutdown(t, p)
}

func TestPoolShutdownNow(t *testing.T) {
	blocker := berthtest.NewBlockingHandler()
	p := New(blocker, WithSize(2, 2))
	gate := NewGate(p, dispatch.Abort)

	u1, s1 := berthtest.Unit("1")
	u2, s2 := berthtest.Unit("2")
	require.Equal(t, Admitted, gate.Admit(u1))
	require.Equal(t, Admitted, gate.Admit(u2))
	blocker.AwaitStarted(t, 2)

	p.ShutdownNow()

	for _, sink := range []*berthtest.Sink{s1, s2} {
		require.Equal(t, 1, sink.Calls())
		err := sink.Result().Err
		assert.True(t, bertherrors.IsTerminated(err))
		assert.Equal(t, bertherrors.CodeAborted, bertherrors.ErrorCode(err))
	}

	// Handlers observe cancellation and their late results are dropped.
	require.Eventually(t, func() bool {
		return p.Stats().Workers == 0
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, s1.Calls())
	assert.Equal(t, 1, s2.Calls())
}

// Mirrors a single-worker HL7 endpoint: a second message arriving while the
// first is processed is refused right away, and a third message after the
// first completes is served promptly.
func TestPoolSingleWorkerScenario(t *testing.T) {
	h := dispatch.HandlerFunc(func(ctx context.Context, payload []byte, _ map[string]string) ([]byte, error) {
		if string(payload) == "A" {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return []byte("ok"), nil
	})
	p := New(h, WithSize(1, 1), WithQueueCapacity(0))
	gate := NewGate(p, dispatch.Abort)

	a, aSink := berthtest.Unit("A")
	require.Equal(t, Admitted, gate.Admit(a))

	b, bSink := berthtest.Unit("B")
	start := time.Now()
	assert.Equal(t, Rejected, gate.Admit(b))
	require.Equal(t, 1, bSink.Calls())
	assert.True(t, bertherrors.IsPoolSaturated(bSink.Result().Err))
	assert.True(t, bSink.At().Sub(start) < 10*berthtest.Millisecond, "B rejected within 10ms")

	aRes := aSink.Await(t, 2*berthtest.Second)
	require.NoError(t, aRes.Err)
	assert.Equal(t, "ok", string(aRes.Payload))

	c, cSink := berthtest.Unit("C")
	start = time.Now()
	require.Equal(t, Admitted, gate.Admit(c))
	cRes := cSink.Await(t, time.Second)
	require.NoError(t, cRes.Err)
	assert.Equal(t, "ok", string(cRes.Payload))
	assert.True(t, cSink.At().Sub(start) < 50*berthtest.Millisecond, "C served within 50ms")

	shutdown(t, p)
}

func TestNewNormalizesSizes(t *testing.T) {
	p := New(berthtest.EchoHandler, WithSize(5, 0), WithQueueCapacity(-1))
	stats := p.Stats()
	assert.Equal(t, 1, stats.Max)
	assert.Equal(t, 1, p.core)
	assert.Equal(t, 0, p.queueCap)
	shutdown(t, p)
}

func TestFromEndpointConfig(t *testing.T) {
	p := New(berthtest.EchoHandler, FromEndpointConfig(dispatch.EndpointConfig{
		Port:            2575,
		CorePoolSize:    2,
		MaxPoolSize:     4,
		QueueCapacity:   8,
		IdleKeepAlive:   time.Minute,
		ResponseTimeout: time.Second,
	}))
	assert.Equal(t, 2, p.core)
	assert.Equal(t, 4, p.max)
	assert.Equal(t, 8, p.queueCap)
	assert.Equal(t, time.Minute, p.keepAlive)
	assert.Equal(t, time.Second, p.timeout)
	shutdown(t, p)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "admitted", Admitted.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "ran-inline", RanInline.String())
	assert.Equal(t, "unknown", Decision(9).String())
}

func TestGatePool(t *testing.T) {
	p := New(berthtest.EchoHandler)
	assert.Same(t, p, NewGate(p, dispatch.CallerRuns).Pool())
	shutdown(t, p)
}
