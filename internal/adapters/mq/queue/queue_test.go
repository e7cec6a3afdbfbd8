package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/gridcast/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	job := Job{Index: 0, Category: model.CategoryLap, Path: "laps.json"}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got != job {
		t.Errorf("expected %+v, got %+v", job, got)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, Job{Index: i}); err != nil {
			t.Fatalf("expected enqueue %d to succeed, got %v", i, err)
		}
	}

	if err := q.Enqueue(ctx, Job{Index: 2}); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull when full, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentConsumers(t *testing.T) {
	const jobs = 50
	q := NewInMemoryQueue(WithCapacity(jobs))
	ctx := context.Background()

	for i := 0; i < jobs; i++ {
		if err := q.Enqueue(ctx, Job{Index: i}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	_ = q.Close()

	var (
		mu   sync.Mutex
		seen = make(map[int]int)
		wg   sync.WaitGroup
	)
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range q.Dequeue(ctx) {
				mu.Lock()
				seen[j.Index]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != jobs {
		t.Fatalf("expected %d distinct jobs, got %d", jobs, len(seen))
	}
	for idx, n := range seen {
		if n != 1 {
			t.Errorf("job %d delivered %d times", idx, n)
		}
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, Job{Index: 7}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if err := q.Enqueue(ctx, Job{Index: 8}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after closing, got %v", err)
	}

	// queued jobs drain before the channel closes
	ch := q.Dequeue(ctx)
	timeout := time.After(time.Second)
	var got []int
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				if len(got) != 1 || got[0] != 7 {
					t.Errorf("expected drained job 7, got %v", got)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got %v", err)
				}
				return
			}
			got = append(got, j.Index)
		case <-timeout:
			t.Fatal("expected dequeue channel to close within timeout")
		}
	}
}

func TestInMemoryQueue_CancelledEnqueue(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a cancelled context with free capacity may still enqueue; a full queue must not block
	_ = q.Enqueue(ctx, Job{})
	done := make(chan error, 1)
	go func() { done <- q.Enqueue(ctx, Job{Index: 1}) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected enqueue into a full queue to fail")
		}
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked")
	}
}
