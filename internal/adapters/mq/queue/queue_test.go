package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if err := q.Enqueue(ctx, Job{GameID: "g1", Version: 1, Blob: []byte("{}")}); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	job := <-q.Dequeue(ctx)
	if job.GameID != "g1" || job.Version != 1 {
		t.Errorf("unexpected job %+v", job)
	}
	if job.IsBarrier() {
		t.Error("data job reported as barrier")
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if err := q.Enqueue(ctx, Job{GameID: "g1", Version: uint64(i)}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Enqueue(ctx, Job{GameID: "g1", Version: 3}); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.EnqueueWait(waitCtx, Job{GameID: "g1", Version: 3}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestInMemoryQueue_Order(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for i := 0; i < 50; i++ {
			if err := q.EnqueueWait(ctx, Job{GameID: fmt.Sprintf("g%d", i%3), Version: uint64(i)}); err != nil {
				t.Errorf("enqueue %d: %v", i, err)
				return
			}
		}
		_ = q.Close()
	}()

	var want uint64
	for job := range q.Dequeue(ctx) {
		if job.Version != want {
			t.Fatalf("expected version %d, got %d", want, job.Version)
		}
		want++
	}
	if want != 50 {
		t.Errorf("expected 50 jobs, got %d", want)
	}
}

func TestInMemoryQueue_Barrier(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	barrier, ack := Barrier()
	if !barrier.IsBarrier() {
		t.Fatal("expected barrier job")
	}
	if err := q.Enqueue(ctx, barrier); err != nil {
		t.Fatal(err)
	}

	job := <-q.Dequeue(ctx)
	job.Ack()

	select {
	case <-ack:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("barrier was not acknowledged")
	}

	// acking a data job is a no-op
	Job{GameID: "g1"}.Ack()
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Enqueue(ctx, Job{GameID: "g1"}); err != nil {
		t.Fatal(err)
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- q.EnqueueWait(ctx, Job{GameID: "g2"})
	}()
	time.Sleep(10 * time.Millisecond)

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected waiting enqueue to fail with ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiting enqueue was not released by Close")
	}

	if err := q.Enqueue(ctx, Job{GameID: "g3"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}

	// pending jobs are still delivered, then the channel closes
	var got []string
	for job := range q.Dequeue(ctx) {
		got = append(got, job.GameID)
	}
	if len(got) != 1 || got[0] != "g1" {
		t.Errorf("expected [g1] to drain, got %v", got)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got %v", err)
	}
}
