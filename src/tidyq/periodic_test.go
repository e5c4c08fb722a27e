package tidyq

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeriodicRunsTask(t *testing.T) {
	var runs atomic.Int64

	p := &Periodic{
		Interval: 5 * time.Millisecond,
		Task:     func() { runs.Add(1) },
	}
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, 2*time.Second, time.Millisecond)
}

func TestPeriodicStopHaltsTask(t *testing.T) {
	var runs atomic.Int64

	p := &Periodic{
		Interval: 5 * time.Millisecond,
		Task:     func() { runs.Add(1) },
	}
	p.Start()

	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 2*time.Second, time.Millisecond)

	p.Stop()

	snapshot := runs.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, snapshot, runs.Load())
}

func TestPeriodicStartIdempotent(t *testing.T) {
	var runs atomic.Int64

	p := &Periodic{
		Interval: 5 * time.Millisecond,
		Task:     func() { runs.Add(1) },
	}
	p.Start()
	p.Start()

	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 2*time.Second, time.Millisecond)

	// A single Stop halts everything; a second Start would have leaked a
	// loop that keeps incrementing past it.
	p.Stop()

	snapshot := runs.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, snapshot, runs.Load())
}

func TestPeriodicStopIdempotent(t *testing.T) {
	p := &Periodic{
		Interval: 5 * time.Millisecond,
		Task:     func() {},
	}

	p.Stop() // never started

	p.Start()
	p.Stop()
	p.Stop()
}

func TestPeriodicStopAwaitsInflightRun(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	p := &Periodic{
		Interval: time.Millisecond,
		Task: func() {
			select {
			case started <- struct{}{}:
			default:
			}
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
		},
	}
	p.Start()

	<-started
	p.Stop()

	require.True(t, finished.Load())
}

func TestPeriodicRestart(t *testing.T) {
	var runs atomic.Int64

	p := &Periodic{
		Interval: 5 * time.Millisecond,
		Task:     func() { runs.Add(1) },
	}

	p.Start()
	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 2*time.Second, time.Millisecond)
	p.Stop()

	before := runs.Load()

	p.Start()
	require.Eventually(t, func() bool {
		return runs.Load() > before
	}, 2*time.Second, time.Millisecond)
	p.Stop()
}

func TestPeriodicTaskPanicKeepsLoopAlive(t *testing.T) {
	var runs atomic.Int64

	p := &Periodic{
		Interval: 5 * time.Millisecond,
		Task: func() {
			runs.Add(1)
			panic("task blew up")
		},
	}
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 2*time.Second, time.Millisecond)
}
