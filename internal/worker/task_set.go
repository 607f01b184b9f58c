package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// TaskOutcome is the settled result of one background task.
type TaskOutcome struct {
	Name     string
	Err      error
	Duration time.Duration
}

// TaskSet is a bounded group of independent tasks belonging to one pass.
// Every task runs to completion regardless of its siblings' errors; Close
// seals the set and its outcomes are logged once all tasks settle.
type TaskSet struct {
	ctx     context.Context
	name    string
	eg      errgroup.Group
	sem     chan struct{}
	release func()

	mu       sync.Mutex
	outcomes []TaskOutcome
	closed   bool
	done     chan struct{}
}

func newTaskSet(ctx context.Context, name string, limit int, release func()) *TaskSet {
	s := &TaskSet{
		ctx:     ctx,
		name:    name,
		release: release,
		sem:     make(chan struct{}, limit),
		done:    make(chan struct{}),
	}
	return s
}

// Go schedules fn. It must not be called after Close.
func (s *TaskSet) Go(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		slog.ErrorContext(s.ctx, "task scheduled on a closed task set", "task_set", s.name, "task", name)
		return
	}

	// The limit is enforced inside the task so scheduling never blocks the caller.
	s.eg.Go(func() error {
		s.sem <- struct{}{}
		defer func() { <-s.sem }()

		start := time.Now()
		err := s.runSafe(name, fn)
		s.record(TaskOutcome{Name: name, Err: err, Duration: time.Since(start)})
		return nil
	})
}

func (s *TaskSet) runSafe(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(s.ctx, "panic recovered in background task",
				"task_set", s.name,
				"task", name,
				"panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(s.ctx)
}

func (s *TaskSet) record(o TaskOutcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

// Close seals the set. Once all scheduled tasks settle the outcomes are
// logged and the owning worker is released.
func (s *TaskSet) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		defer s.release()
		_ = s.eg.Wait()
		s.logOutcomes()
	}()
}

// Wait blocks until the set is closed and settled, then returns the outcomes.
func (s *TaskSet) Wait() []TaskOutcome {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TaskOutcome(nil), s.outcomes...)
}

func (s *TaskSet) logOutcomes() {
	s.mu.Lock()
	outcomes := append([]TaskOutcome(nil), s.outcomes...)
	s.mu.Unlock()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			slog.WarnContext(s.ctx, "background task failed",
				"task_set", s.name,
				"task", o.Name,
				"duration_ms", o.Duration.Milliseconds(),
				"error", o.Err)
		}
	}
	slog.InfoContext(s.ctx, "background tasks settled",
		"task_set", s.name,
		"tasks", len(outcomes),
		"failed", failed)
}
