// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workerpool implements a generic bounded producer-consumer pool:
// a fixed number of goroutines drain a capacity-bounded queue in FIFO
// order, the first executor error cancels the remaining fan-out, and
// Close joins every worker before returning that first error. It is the
// concurrency primitive pzip's Archiver and Extractor build their two
// pipeline stages on top of (spec.md §4.G).
package workerpool

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is returned by Enqueue once the pool has started shutting
// down or has been cancelled; callers are expected to stop producing.
var ErrClosed = errors.New("workerpool: closed")

// Executor processes a single queued item. An error return stores the
// first such error and flips the pool into cancel mode, short-circuiting
// the rest of the fan-out.
type Executor[T any] func(ctx context.Context, item T) error

// Config controls pool sizing. Concurrency 0 means "as many goroutines as
// GOMAXPROCS"; Capacity 0 is treated as 1 (an unbuffered queue would
// deadlock single-producer/single-consumer handoffs under backpressure).
type Config struct {
	Concurrency int
	Capacity    int
}

// WorkerPool is a fixed-capacity queue of T drained by Concurrency
// goroutines. The zero value is not usable; construct with New.
type WorkerPool[T any] struct {
	executor    Executor[T]
	tasks       chan T
	concurrency int

	ctx context.Context
	wg  sync.WaitGroup

	mu        sync.Mutex
	firstErr  error
	cancelled bool
	closed    bool

	doneOnce sync.Once
	done     chan struct{}

	pauseMu sync.Mutex
	pauseCh chan struct{}
}

// New validates cfg and returns a pool ready for Start.
func New[T any](executor Executor[T], cfg Config) (*WorkerPool[T], error) {
	if executor == nil {
		return nil, errors.New("workerpool: executor must not be nil")
	}

	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	if concurrency < 0 {
		return nil, errors.New("workerpool: concurrency must be >= 0")
	}

	capacity := cfg.Capacity
	if capacity < 1 {
		capacity = 1
	}

	return &WorkerPool[T]{
		executor:    executor,
		tasks:       make(chan T, capacity),
		concurrency: concurrency,
		done:        make(chan struct{}),
	}, nil
}

// Start spawns the worker goroutines. ctx is threaded into every Executor
// call and, when cancelled, stops workers from picking up new items.
func (p *WorkerPool[T]) Start(ctx context.Context) {
	p.ctx = ctx
	p.wg.Add(p.concurrency)
	for i := 0; i < p.concurrency; i++ {
		go p.worker()
	}
}

func (p *WorkerPool[T]) worker() {
	defer p.wg.Done()
	for {
		p.waitIfPaused()

		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.tasks:
			if !ok {
				return
			}
			// A worker that was already waiting here when Pause was called
			// holds the item until Resume.
			p.waitIfPaused()
			if p.isCancelled() {
				continue
			}
			if err := p.executor(p.ctx, item); err != nil {
				p.recordError(err)
			}
		}
	}
}

func (p *WorkerPool[T]) waitIfPaused() {
	for {
		p.pauseMu.Lock()
		ch := p.pauseCh
		p.pauseMu.Unlock()
		if ch == nil {
			return
		}
		select {
		case <-ch:
		case <-p.ctx.Done():
			return
		}
	}
}

// Pause blocks every worker before it executes its next item, without
// disturbing items already mid-execution. It exists so an embedder can
// implement an in-process pause capability explicitly, rather than the
// SIGSTOP/SIGCONT workaround an out-of-process shell might otherwise
// reach for (spec.md §9).
func (p *WorkerPool[T]) Pause() {
	p.pauseMu.Lock()
	defer p.pauseMu.Unlock()
	if p.pauseCh == nil {
		p.pauseCh = make(chan struct{})
	}
}

// Resume releases any workers blocked by Pause.
func (p *WorkerPool[T]) Resume() {
	p.pauseMu.Lock()
	defer p.pauseMu.Unlock()
	if p.pauseCh != nil {
		close(p.pauseCh)
		p.pauseCh = nil
	}
}

func (p *WorkerPool[T]) isCancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

func (p *WorkerPool[T]) recordError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr == nil {
		p.firstErr = err
	}
	p.cancelled = true
	p.signalDone()
}

func (p *WorkerPool[T]) signalDone() {
	p.doneOnce.Do(func() { close(p.done) })
}

// Enqueue blocks while the queue is full and returns ErrClosed immediately
// once the pool has been closed or cancelled, or once the context passed
// to Start is cancelled while it waits. Enqueue must not be called
// concurrently with Close.
func (p *WorkerPool[T]) Enqueue(item T) error {
	// Checked first: after Close the tasks channel is closed, and a select
	// that picked the send case would panic.
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	var ctxDone <-chan struct{}
	if p.ctx != nil {
		ctxDone = p.ctx.Done()
	}
	select {
	case p.tasks <- item:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctxDone:
		return ErrClosed
	}
}

// Cancel marks the pool cancelled, drops every task still sitting in the
// queue, and wakes anything blocked in Enqueue. In-flight executor calls
// run to completion; subsequent dequeues are skipped.
func (p *WorkerPool[T]) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.signalDone()
	p.mu.Unlock()

	for {
		select {
		case <-p.tasks:
		default:
			return
		}
	}
}

// Close stops accepting new work, joins every worker, and returns the
// first error observed by any executor (nil if none). Close must be
// called exactly once, after the last Enqueue.
func (p *WorkerPool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		err := p.firstErr
		p.mu.Unlock()
		return err
	}
	p.closed = true
	p.signalDone()
	p.mu.Unlock()

	close(p.tasks)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}

// Pending returns the number of items currently sitting in the queue,
// useful for tests asserting the bounded-memory property (spec.md §8).
func (p *WorkerPool[T]) Pending() int {
	return len(p.tasks)
}
