// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRejectsNilExecutor(t *testing.T) {
	_, err := New[int](nil, Config{})
	if err == nil {
		t.Fatal("New() with nil executor should error")
	}
}

func TestWorkerPoolProcessesAllItems(t *testing.T) {
	var processed atomic.Int64
	p, err := New(func(ctx context.Context, item int) error {
		processed.Add(int64(item))
		return nil
	}, Config{Concurrency: 4, Capacity: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.Start(context.Background())
	for i := 1; i <= 10; i++ {
		if err := p.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, want := processed.Load(), int64(55); got != want {
		t.Errorf("sum of processed items = %d, want %d", got, want)
	}
}

func TestWorkerPoolCapturesFirstError(t *testing.T) {
	wantErr := errors.New("boom")
	p, err := New(func(ctx context.Context, item int) error {
		if item == 3 {
			return wantErr
		}
		return nil
	}, Config{Concurrency: 1, Capacity: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.Start(context.Background())
	for i := 1; i <= 5; i++ {
		p.Enqueue(i)
	}

	if err := p.Close(); !errors.Is(err, wantErr) {
		t.Errorf("Close() error = %v, want %v", err, wantErr)
	}
}

func TestWorkerPoolEnqueueAfterCloseReturnsErrClosed(t *testing.T) {
	p, err := New(func(ctx context.Context, item int) error { return nil }, Config{Concurrency: 1, Capacity: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start(context.Background())
	p.Enqueue(1)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := p.Enqueue(2); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue() after Close = %v, want ErrClosed", err)
	}
}

func TestWorkerPoolCancelStopsProcessingQueuedItems(t *testing.T) {
	var processed atomic.Int64
	release := make(chan struct{})

	p, err := New(func(ctx context.Context, item int) error {
		if item == 0 {
			<-release
		}
		processed.Add(1)
		return nil
	}, Config{Concurrency: 1, Capacity: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.Start(context.Background())
	p.Enqueue(0)
	for i := 1; i <= 10; i++ {
		p.Enqueue(i)
	}

	p.Cancel()
	close(release)

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := processed.Load(); got > 2 {
		t.Errorf("processed %d items after Cancel, want at most the in-flight item plus the blocked one", got)
	}
}

func TestWorkerPoolPauseResume(t *testing.T) {
	var processed atomic.Int64
	p, err := New(func(ctx context.Context, item int) error {
		processed.Add(1)
		return nil
	}, Config{Concurrency: 2, Capacity: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.Start(context.Background())
	p.Pause()

	for i := 0; i < 5; i++ {
		p.Enqueue(i)
	}
	time.Sleep(20 * time.Millisecond)
	if got := processed.Load(); got != 0 {
		t.Errorf("processed %d items while paused, want 0", got)
	}

	p.Resume()
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := processed.Load(); got != 5 {
		t.Errorf("processed %d items after Resume, want 5", got)
	}
}

func TestWorkerPoolDefaultConcurrencyFromGOMAXPROCS(t *testing.T) {
	p, err := New(func(ctx context.Context, item int) error { return nil }, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.concurrency <= 0 {
		t.Errorf("concurrency = %d, want > 0", p.concurrency)
	}
}

func TestWorkerPoolPending(t *testing.T) {
	block := make(chan struct{})
	p, err := New(func(ctx context.Context, item int) error {
		<-block
		return nil
	}, Config{Concurrency: 1, Capacity: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start(context.Background())
	p.Enqueue(1)
	p.Enqueue(2)
	p.Enqueue(3)

	time.Sleep(10 * time.Millisecond)
	if got := p.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}
	close(block)
	p.Close()
}
