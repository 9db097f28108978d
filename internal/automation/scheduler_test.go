package automation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsTasksOneAtATime(t *testing.T) {
	var inFlight, maxInFlight, slowRuns, fastRuns atomic.Int32
	track := func(counter *atomic.Int32, d time.Duration) func(context.Context) error {
		return func(ctx context.Context) error {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(d)
			inFlight.Add(-1)
			counter.Add(1)
			return nil
		}
	}

	s := NewScheduler(time.Millisecond, time.Now, discardLogger{},
		Task{Name: "slow", Interval: 0, Run: track(&slowRuns, 20*time.Millisecond)},
		Task{Name: "fast", Interval: 0, Run: track(&fastRuns, time.Millisecond)},
	)
	s.Start(context.Background())
	assert.True(t, s.Running())

	assert.Eventually(t, func() bool {
		return slowRuns.Load() >= 2 && fastRuns.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	assert.False(t, s.Running())
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestSchedulerSurvivesFailingTasks(t *testing.T) {
	var healthy atomic.Int32
	s := NewScheduler(time.Millisecond, time.Now, discardLogger{},
		Task{Name: "panics", Run: func(context.Context) error { panic("scan exploded") }},
		Task{Name: "errors", Run: func(context.Context) error { return errors.New("db unavailable") }},
		Task{Name: "healthy", Run: func(context.Context) error { healthy.Add(1); return nil }},
	)
	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return healthy.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerStopLetsInFlightTaskFinish(t *testing.T) {
	started := make(chan struct{})
	var finished, cancelled atomic.Bool
	s := NewScheduler(time.Millisecond, time.Now, discardLogger{},
		Task{Name: "long", Run: func(ctx context.Context) error {
			select {
			case started <- struct{}{}:
			default:
			}
			time.Sleep(30 * time.Millisecond)
			cancelled.Store(ctx.Err() != nil)
			finished.Store(true)
			return nil
		}},
	)
	s.Start(context.Background())
	<-started
	s.Stop()

	assert.True(t, finished.Load(), "stop waits for the running task")
	assert.False(t, cancelled.Load(), "running task keeps a live context")
}

func TestSchedulerRespectsInterval(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(time.Millisecond, time.Now, discardLogger{},
		Task{Name: "hourly", Interval: time.Hour, Run: func(context.Context) error { runs.Add(1); return nil }},
	)
	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	assert.Zero(t, runs.Load())
}

func TestSchedulerStopsWhenParentContextEnds(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(time.Millisecond, time.Now, discardLogger{},
		Task{Name: "count", Run: func(context.Context) error { runs.Add(1); return nil }},
	)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return !s.Running() }, 2*time.Second, 5*time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()
	assert.True(t, s.Running(), "restart after the parent context ended")
	before := runs.Load()
	assert.Eventually(t, func() bool { return runs.Load() > before }, 2*time.Second, 5*time.Millisecond)
}
