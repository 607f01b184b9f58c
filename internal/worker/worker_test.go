package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/triage/internal/worker"
)

type ctxKey struct{}

var _ = Describe("Worker", func() {
	var w *worker.Worker

	BeforeEach(func() {
		w = worker.New(worker.Config{TaskConcurrency: 2})
	})

	It("runs every task even when siblings fail", func() {
		set, err := w.NewTaskSet(context.Background(), "pass")
		Expect(err).NotTo(HaveOccurred())

		var ran atomic.Int32
		set.Go("fails", func(ctx context.Context) error {
			ran.Add(1)
			return errors.New("boom")
		})
		set.Go("succeeds", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		set.Go("panics", func(ctx context.Context) error {
			ran.Add(1)
			panic("kaboom")
		})
		set.Close()

		outcomes := set.Wait()
		Expect(ran.Load()).To(Equal(int32(3)))
		Expect(outcomes).To(HaveLen(3))

		failed := map[string]bool{}
		for _, o := range outcomes {
			failed[o.Name] = o.Err != nil
		}
		Expect(failed).To(Equal(map[string]bool{"fails": true, "succeeds": false, "panics": true}))
	})

	It("detaches tasks from the caller's cancellation but keeps its values", func() {
		ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "delivery-1"))
		set, err := w.NewTaskSet(ctx, "pass")
		Expect(err).NotTo(HaveOccurred())
		cancel()

		var sawErr error
		var sawValue any
		set.Go("detached", func(ctx context.Context) error {
			sawErr = ctx.Err()
			sawValue = ctx.Value(ctxKey{})
			return nil
		})
		set.Close()
		set.Wait()

		Expect(sawErr).NotTo(HaveOccurred())
		Expect(sawValue).To(Equal("delivery-1"))
	})

	It("bounds concurrency within a task set", func() {
		set, err := w.NewTaskSet(context.Background(), "pass")
		Expect(err).NotTo(HaveOccurred())

		var running, peak atomic.Int32
		for range 6 {
			set.Go("task", func(ctx context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}
		set.Close()
		Expect(set.Wait()).To(HaveLen(6))
		Expect(peak.Load()).To(BeNumerically("<=", 2))
	})

	It("tracks in-flight task sets and drains them", func() {
		set, err := w.NewTaskSet(context.Background(), "pass")
		Expect(err).NotTo(HaveOccurred())

		release := make(chan struct{})
		set.Go("blocked", func(ctx context.Context) error {
			<-release
			return nil
		})
		set.Close()
		Expect(w.InFlight()).To(Equal(1))

		close(release)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(w.Drain(ctx)).To(Succeed())
		Expect(w.InFlight()).To(Equal(0))
	})

	It("refuses new task sets while draining", func() {
		Expect(w.Drain(context.Background())).To(Succeed())

		_, err := w.NewTaskSet(context.Background(), "late")
		Expect(err).To(MatchError(worker.ErrDraining))
	})

	It("abandons tasks that outlive the drain deadline", func() {
		set, err := w.NewTaskSet(context.Background(), "pass")
		Expect(err).NotTo(HaveOccurred())

		release := make(chan struct{})
		defer close(release)
		set.Go("stuck", func(ctx context.Context) error {
			<-release
			return nil
		})
		set.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(w.Drain(ctx)).To(MatchError(context.DeadlineExceeded))
		Expect(w.InFlight()).To(Equal(1))
	})
})
