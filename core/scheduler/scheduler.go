package scheduler

import (
	"context"
	"sync"
	"time"
)

// Task is the work run when a timer fires. The context is cancelled when the
// scheduler is closed.
type Task func(ctx context.Context)

type entry struct {
	runAt time.Time
	timer Timer
}

// Scheduler keeps at most one pending delayed task per key.
type Scheduler struct {
	clock Clock

	mu      sync.Mutex
	pending map[string]*entry
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the system clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// New creates an empty scheduler.
func New(opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		clock:   SystemClock{},
		pending: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now returns the scheduler's notion of the current time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Schedule arranges for task to run at the given time. It returns false when
// key already has a pending task or the scheduler is closed.
func (s *Scheduler) Schedule(key string, at time.Time, task Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, ok := s.pending[key]; ok {
		return false
	}
	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	e := &entry{runAt: at}
	s.pending[key] = e
	s.wg.Add(1)
	e.timer = s.clock.AfterFunc(delay, func() { s.fire(key, e, task) })
	return true
}

func (s *Scheduler) fire(key string, e *entry, task Task) {
	defer s.wg.Done()
	s.mu.Lock()
	if cur, ok := s.pending[key]; !ok || cur != e {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	ctx := s.ctx
	s.mu.Unlock()
	task(ctx)
}

// Pending returns the run time of the task pending for key.
func (s *Scheduler) Pending(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[key]
	if !ok {
		return time.Time{}, false
	}
	return e.runAt, true
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Cancel drops the pending task for key. It reports whether one was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[key]
	if !ok {
		return false
	}
	delete(s.pending, key)
	if e.timer.Stop() {
		s.wg.Done()
	}
	return true
}

// Close stops all pending timers, cancels the context handed to running
// tasks and waits for them to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for key, e := range s.pending {
		delete(s.pending, key)
		if e.timer.Stop() {
			s.wg.Done()
		}
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
