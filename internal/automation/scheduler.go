package automation

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// Intervals are the cadences of the periodic scans. Poll is how often the
// scheduler checks for due tasks.
type Intervals struct {
	Poll        time.Duration
	FollowUp    time.Duration
	Milestone   time.Duration
	Rescoring   time.Duration
	Campaign    time.Duration
	Maintenance time.Duration
}

// DefaultIntervals returns the production cadences.
func DefaultIntervals() Intervals {
	return Intervals{
		Poll:        time.Minute,
		FollowUp:    5 * time.Minute,
		Milestone:   10 * time.Minute,
		Rescoring:   30 * time.Minute,
		Campaign:    time.Hour,
		Maintenance: 24 * time.Hour,
	}
}

// Task is a periodic job run by the Scheduler.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type taskState struct {
	Task
	next    time.Time
	pending bool
}

// Scheduler runs tasks on a single worker goroutine. A ticker goroutine
// enqueues due tasks; a task already queued or running is not enqueued again,
// so no task ever runs concurrently with itself or with another task.
type Scheduler struct {
	poll   time.Duration
	now    func() time.Time
	logger Logger

	mu      sync.Mutex
	tasks   []*taskState
	running bool
	gen     int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(poll time.Duration, now func() time.Time, logger Logger, tasks ...Task) *Scheduler {
	if poll <= 0 {
		poll = time.Minute
	}
	s := &Scheduler{poll: poll, now: now, logger: logger}
	for _, t := range tasks {
		s.tasks = append(s.tasks, &taskState{Task: t})
	}
	return s
}

// Running reports whether the scheduler loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the ticker and worker goroutines. Each task first becomes
// due one interval after Start. Cancelling ctx stops the scheduler like Stop.
func (s *Scheduler) Start(ctx context.Context) {
	if s.Running() {
		return
	}
	// a run ended by its parent context may still be finishing a task
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.gen++
	gen := s.gen

	start := s.now()
	for _, t := range s.tasks {
		t.next = start.Add(t.Interval)
		t.pending = false
	}

	queue := make(chan *taskState, len(s.tasks))
	s.wg.Add(2)
	go s.tick(ctx, gen, queue)
	go s.work(ctx, queue)
}

// Stop cancels the loop and waits for an in-flight task to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context, gen int, queue chan<- *taskState) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.gen == gen && s.running {
				s.running = false
				s.cancel()
			}
			s.mu.Unlock()
			return
		case <-ticker.C:
			s.enqueueDue(queue)
		}
	}
}

func (s *Scheduler) enqueueDue(queue chan<- *taskState) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.pending || now.Before(t.next) {
			continue
		}
		t.pending = true
		t.next = now.Add(t.Interval)
		queue <- t
	}
}

func (s *Scheduler) work(ctx context.Context, queue <-chan *taskState) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-queue:
			s.runTask(context.WithoutCancel(ctx), t)
			s.mu.Lock()
			t.pending = false
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) runTask(ctx context.Context, t *taskState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "task", t.Name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	s.logger.Debug("running scheduled task", "task", t.Name)
	if err := t.Run(ctx); err != nil {
		s.logger.Error("scheduled task failed", "task", t.Name, "error", err)
	}
}
