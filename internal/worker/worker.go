package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrDraining is returned when new background work is refused during shutdown.
var ErrDraining = errors.New("worker is draining")

type Config struct {
	// TaskConcurrency bounds how many tasks of one task set run at once.
	TaskConcurrency int
}

// Worker hosts the background task sets that triage passes leave running
// after the webhook has been acknowledged, and drains them on shutdown.
type Worker struct {
	cfg Config

	mu       sync.Mutex
	draining bool
	inFlight int
	wg       sync.WaitGroup
}

func New(cfg Config) *Worker {
	if cfg.TaskConcurrency <= 0 {
		cfg.TaskConcurrency = 4
	}
	return &Worker{cfg: cfg}
}

// NewTaskSet starts a task set for one pass. Tasks run on a context detached
// from ctx's cancellation but carrying its values (trace, log fields).
func (w *Worker) NewTaskSet(ctx context.Context, name string) (*TaskSet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draining {
		return nil, ErrDraining
	}
	w.inFlight++
	w.wg.Add(1)

	return newTaskSet(context.WithoutCancel(ctx), name, w.cfg.TaskConcurrency, w.release), nil
}

func (w *Worker) release() {
	w.mu.Lock()
	w.inFlight--
	w.mu.Unlock()
	w.wg.Done()
}

// InFlight is the number of task sets not yet finished.
func (w *Worker) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight
}

// Drain refuses new task sets and waits for running ones until ctx is done.
// Tasks still running when ctx expires are abandoned.
func (w *Worker) Drain(ctx context.Context) error {
	w.mu.Lock()
	w.draining = true
	pending := w.inFlight
	w.mu.Unlock()

	slog.InfoContext(ctx, "draining background tasks", "task_sets", pending)
	start := time.Now()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.InfoContext(ctx, "background tasks drained", "duration_ms", time.Since(start).Milliseconds())
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "drain timed out, abandoning background tasks", "task_sets", w.InFlight())
		return ctx.Err()
	}
}
