package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWorkerPool_RunsJobs(t *testing.T) {
	p := NewWorkerPool(3, 10, nil)
	p.Start()

	var n atomic.Int32
	for i := 0; i < 10; i++ {
		if err := p.Submit(JobFunc(func(ctx context.Context) error {
			n.Add(1)
			return nil
		})); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := n.Load(); got != 10 {
		t.Fatalf("ran %d jobs, want 10", got)
	}
	processed, failed := p.Stats()
	if processed != 10 || failed != 0 {
		t.Errorf("Stats() = %d, %d", processed, failed)
	}
}

func TestWorkerPool_ReportsErrorsAndPanics(t *testing.T) {
	var errs atomic.Int32
	p := NewWorkerPool(1, 10, func(error) { errs.Add(1) })
	p.Start()

	p.Submit(JobFunc(func(ctx context.Context) error { return errors.New("boom") }))
	p.Submit(JobFunc(func(ctx context.Context) error { panic("bad") }))
	p.Stop(context.Background())

	if got := errs.Load(); got != 2 {
		t.Fatalf("onError called %d times, want 2", got)
	}
	_, failed := p.Stats()
	if failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
}

func TestWorkerPool_QueueFull(t *testing.T) {
	p := NewWorkerPool(1, 1, nil)

	if err := p.Submit(JobFunc(func(ctx context.Context) error { return nil })); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if err := p.Submit(JobFunc(func(ctx context.Context) error { return nil })); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	p.Stop(context.Background())
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	p := NewWorkerPool(1, 1, nil)
	p.Start()
	p.Stop(context.Background())

	if err := p.Submit(JobFunc(func(ctx context.Context) error { return nil })); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop should be a no-op, got %v", err)
	}
}

func TestWorkerPool_StopTimeout(t *testing.T) {
	p := NewWorkerPool(1, 1, nil)
	p.Start()

	p.Submit(JobFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWorkerPool_StopReleasesWorkers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := NewWorkerPool(4, 8, nil)
	p.Start()
	for i := 0; i < 8; i++ {
		if err := p.Submit(JobFunc(func(ctx context.Context) error { return nil })); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
