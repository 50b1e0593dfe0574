// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"bytes"
	"io"
	"testing"
)

func TestFileTaskWriteStaysInMemoryBelowCapacity(t *testing.T) {
	task := newFileTask()
	if err := task.Reset("/tmp/a", "a", KindRegular, 5); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	n, err := task.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 5 {
		t.Errorf("Write() n = %d, want 5", n)
	}
	if task.Overflowed() {
		t.Error("Overflowed() = true for a small write")
	}
	if task.Written() != 5 {
		t.Errorf("Written() = %d, want 5", task.Written())
	}
}

func TestFileTaskWriteSpillsToOverflowPastCapacity(t *testing.T) {
	task := newFileTask()
	if err := task.Reset("/tmp/b", "b", KindRegular, 0); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	big := bytes.Repeat([]byte{'x'}, fileTaskBufferCap+1024)
	n, err := task.Write(big)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(big) {
		t.Errorf("Write() n = %d, want %d", n, len(big))
	}
	if !task.Overflowed() {
		t.Fatal("Overflowed() = false after writing past buffer capacity")
	}
	if task.Written() != uint64(len(big)) {
		t.Errorf("Written() = %d, want %d", task.Written(), len(big))
	}

	if err := task.releaseOverflow(); err != nil {
		t.Fatalf("releaseOverflow: %v", err)
	}
}

func TestFileTaskReadCompressedReplaysBufferAndOverflow(t *testing.T) {
	task := newFileTask()
	if err := task.Reset("/tmp/c", "c", KindRegular, 0); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	want := bytes.Repeat([]byte{'y'}, fileTaskBufferCap+2048)
	if _, err := task.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got bytes.Buffer
	err := task.ReadCompressed(func(chunk []byte) error {
		_, err := got.Write(chunk)
		return err
	})
	if err != nil {
		t.Fatalf("ReadCompressed: %v", err)
	}
	if !bytes.Equal(got.Bytes(), want) {
		t.Errorf("ReadCompressed replayed %d bytes, want %d matching the written payload", got.Len(), len(want))
	}

	if err := task.releaseOverflow(); err != nil {
		t.Fatalf("releaseOverflow: %v", err)
	}
}

func TestFileTaskReadCompressedPropagatesCallbackError(t *testing.T) {
	task := newFileTask()
	if err := task.Reset("/tmp/d", "d", KindRegular, 0); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := task.Write([]byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	sentinel := io.ErrClosedPipe
	err := task.ReadCompressed(func(chunk []byte) error { return sentinel })
	if err != sentinel {
		t.Errorf("ReadCompressed() error = %v, want %v", err, sentinel)
	}
}

func TestFileTaskResetClearsPriorOverflow(t *testing.T) {
	task := newFileTask()
	if err := task.Reset("/tmp/e", "e", KindRegular, 0); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	big := bytes.Repeat([]byte{'z'}, fileTaskBufferCap+1)
	if _, err := task.Write(big); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !task.Overflowed() {
		t.Fatal("expected overflow before reset")
	}

	if err := task.Reset("/tmp/f", "f", KindRegular, 0); err != nil {
		t.Fatalf("second Reset: %v", err)
	}
	if task.Overflowed() {
		t.Error("Overflowed() = true after Reset, want false for a fresh task")
	}
	if task.Written() != 0 {
		t.Errorf("Written() = %d after Reset, want 0", task.Written())
	}
}

func TestTaskPoolAcquireReleaseReusesTasks(t *testing.T) {
	pool := NewTaskPool()
	t1 := pool.Acquire()
	if err := t1.Reset("/tmp/g", "g", KindRegular, 0); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := pool.Release(t1); err != nil {
		t.Fatalf("Release: %v", err)
	}

	t2 := pool.Acquire()
	if t2 != t1 {
		t.Error("Acquire() after Release did not return the freed task")
	}
}

func TestTaskPoolReleaseCleansUpOverflow(t *testing.T) {
	pool := NewTaskPool()
	task := pool.Acquire()
	if err := task.Reset("/tmp/h", "h", KindRegular, 0); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	big := bytes.Repeat([]byte{'w'}, fileTaskBufferCap+1)
	if _, err := task.Write(big); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := pool.Release(task); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if task.Overflowed() {
		t.Error("Overflowed() = true after Release, want false once its temp file is cleaned up")
	}
}

func TestTaskPoolAcquireWhenEmptyAllocatesFresh(t *testing.T) {
	pool := NewTaskPool()
	task := pool.Acquire()
	if task == nil {
		t.Fatal("Acquire() returned nil")
	}
	if task.Overflowed() {
		t.Error("a freshly allocated task should not report overflow")
	}
}
