// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

const (
	// fileTaskBufferCap is the fixed in-memory scratch capacity per task,
	// per spec.md §3: once full, further compressed bytes spill to a temp
	// file rather than growing the buffer.
	fileTaskBufferCap = 2 * 1024 * 1024
	overflowPrefix    = "pzip-overflow-"
	taskPoolCapacity  = 32
	overflowChunkSize = 32 * 1024
)

// FileTask is the unit of work threaded between the compress pool and the
// writer pool. It is acquired from a TaskPool, populated by Reset, filled
// by the compression stage via Write, streamed to the archive by
// ReadCompressed, and returned to the pool (which removes any overflow
// temp file) once the writer stage is done with it.
type FileTask struct {
	Path          string
	RelativeName  string
	FileSize      int64
	Kind          EntryKind
	SymlinkTarget []byte
	Header        FileHeader

	buffer   *bytes.Buffer
	overflow *os.File
	written  uint64
}

func newFileTask() *FileTask {
	return &FileTask{buffer: bytes.NewBuffer(make([]byte, 0, fileTaskBufferCap))}
}

// Reset clears t for reuse and assigns its archive identity. relativeName
// must already use forward slashes with no leading slash.
func (t *FileTask) Reset(path, relativeName string, kind EntryKind, fileSize int64) error {
	if err := t.releaseOverflow(); err != nil {
		return err
	}
	t.buffer.Reset()
	t.Path = path
	t.RelativeName = relativeName
	t.Kind = kind
	t.FileSize = fileSize
	t.SymlinkTarget = nil
	t.Header = FileHeader{}
	t.written = 0
	return nil
}

// Written reports the total number of compressed bytes accepted so far,
// across buffer and overflow combined.
func (t *FileTask) Written() uint64 { return t.written }

// Write implements io.Writer, filling buffer up to its fixed capacity and
// spilling the remainder to a lazily created overflow temp file. Once
// overflow exists, no further bytes are appended to buffer.
func (t *FileTask) Write(p []byte) (int, error) {
	total := len(p)

	if avail := t.buffer.Cap() - t.buffer.Len(); avail > 0 && t.overflow == nil {
		take := avail
		if take > len(p) {
			take = len(p)
		}
		t.buffer.Write(p[:take])
		t.written += uint64(take)
		p = p[take:]
	}

	if len(p) > 0 {
		if t.overflow == nil {
			f, err := os.CreateTemp("", overflowPrefix)
			if err != nil {
				return 0, newError(FileWriteError, "write", errors.Wrap(err, "create overflow temp file"))
			}
			t.overflow = f
		}
		n, err := t.overflow.Write(p)
		t.written += uint64(n)
		if err != nil {
			return total - (len(p) - n), newError(FileWriteError, "write", errors.Wrap(err, "write overflow temp file"))
		}
	}

	return total, nil
}

// ReadCompressed invokes callback first with the in-memory buffer, then
// with the overflow file's contents in 32 KiB chunks read from offset 0.
func (t *FileTask) ReadCompressed(callback func([]byte) error) error {
	if t.buffer.Len() > 0 {
		if err := callback(t.buffer.Bytes()); err != nil {
			return err
		}
	}

	if t.overflow == nil {
		return nil
	}

	if _, err := t.overflow.Seek(0, io.SeekStart); err != nil {
		return newError(FileReadError, "readCompressed", errors.Wrap(err, "seek overflow temp file"))
	}

	chunk := make([]byte, overflowChunkSize)
	for {
		n, err := t.overflow.Read(chunk)
		if n > 0 {
			if cbErr := callback(chunk[:n]); cbErr != nil {
				return cbErr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return newError(FileReadError, "readCompressed", errors.Wrap(err, "read overflow temp file"))
		}
	}
}

// Overflowed reports whether any bytes spilled past the in-memory buffer.
func (t *FileTask) Overflowed() bool { return t.overflow != nil }

func (t *FileTask) releaseOverflow() error {
	if t.overflow == nil {
		return nil
	}
	name := t.overflow.Name()
	closeErr := t.overflow.Close()
	removeErr := os.Remove(name)
	t.overflow = nil
	if closeErr != nil {
		return newError(FileWriteError, "releaseOverflow", errors.Wrap(closeErr, "close overflow temp file"))
	}
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return newError(FileWriteError, "releaseOverflow", errors.Wrap(removeErr, "remove overflow temp file"))
	}
	return nil
}

// TaskPool is a bounded free-list of FileTasks, avoiding a 2 MiB allocation
// per file. Each Archiver creates its own TaskPool; it is not shared across
// Archivers, and the Extractor does not use one.
type TaskPool struct {
	mu   sync.Mutex
	free []*FileTask
}

// NewTaskPool creates an empty pool; tasks are allocated lazily on first
// Acquire and capped at taskPoolCapacity idle entries.
func NewTaskPool() *TaskPool {
	return &TaskPool{free: make([]*FileTask, 0, taskPoolCapacity)}
}

// Acquire returns a task from the free list, or a freshly allocated one
// when the list is empty.
func (p *TaskPool) Acquire() *FileTask {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		t := p.free[n-1]
		p.free = p.free[:n-1]
		return t
	}
	return newFileTask()
}

// Release closes and removes any overflow temp file owned by t, then
// returns t to the free list (discarding it if the list is already at
// capacity).
func (p *TaskPool) Release(t *FileTask) error {
	err := t.releaseOverflow()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) < taskPoolCapacity {
		p.free = append(p.free, t)
	}
	return err
}
