package concurrency

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(4)
	if err := pool.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer pool.Shutdown()

	var completed int32
	const n = 20
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("task-%d", i)
		if err := pool.Submit(Task{ID: id, Execute: func(ctx context.Context) error {
			atomic.AddInt32(&completed, 1)
			return nil
		}}); err != nil {
			t.Fatalf("Submit(%s) error = %v", id, err)
		}
	}

	for i := 0; i < n; i++ {
		select {
		case <-pool.Results():
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for task results")
		}
	}

	if atomic.LoadInt32(&completed) != n {
		t.Fatalf("expected %d completed tasks, got %d", n, completed)
	}
}

func TestWorkerPoolPropagatesErrors(t *testing.T) {
	pool := NewWorkerPool(2)
	if err := pool.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer pool.Shutdown()

	wantErr := fmt.Errorf("boom")
	if err := pool.Submit(Task{ID: "failing", Execute: func(ctx context.Context) error { return wantErr }}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case result := <-pool.Results():
		if result.Error == nil {
			t.Fatal("expected task result to carry the error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task result")
	}
}
