// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pzip

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// countWriter wraps an io.Writer and tracks the number of bytes written
// through it, the way Lemon4ksan-GoZip's byteCountWriter tracks writer.go's
// running offset.
type countWriter struct {
	dest io.Writer
	n    uint64
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.dest.Write(p)
	w.n += uint64(n)
	return n, err
}

type cdEntry struct {
	header *FileHeader
	offset uint64
}

// Writer emits local headers, compressed payloads, and data descriptors
// sequentially, accumulating a central directory it flushes on Close. The
// write mutex is held for the full duration of a single CreateRaw call, by
// design: only the single writer-pool goroutine is expected to call it, so
// the lock never contends in practice (spec.md §5).
type Writer struct {
	mu      sync.Mutex
	dest    *countWriter
	entries []cdEntry
	closed  bool
}

// NewWriter creates a Writer that appends archive bytes to dest starting at
// dest's current position.
func NewWriter(dest io.Writer) *Writer {
	return &Writer{dest: &countWriter{dest: dest}}
}

// CreateRaw writes header's local header, invokes dataProvider to stream
// the already-compressed payload, writes the data descriptor if header
// requests one, and records a central directory entry. dataProvider must
// write exactly header.CompressedSize bytes.
func (w *Writer) CreateRaw(header *FileHeader, dataProvider func(io.Writer) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return newError(FileWriteError, "createRaw", errors.New("writer already closed"))
	}

	offset := w.dest.n

	if _, err := w.dest.Write(header.encodeLocalHeader()); err != nil {
		return newError(FileWriteError, "createRaw", errors.Wrap(err, "write local header"))
	}

	if err := dataProvider(w.dest); err != nil {
		return newError(FileWriteError, "createRaw", errors.Wrap(err, "write payload"))
	}

	if header.hasDataDescriptor() {
		if _, err := w.dest.Write(header.encodeDataDescriptor()); err != nil {
			return newError(FileWriteError, "createRaw", errors.Wrap(err, "write data descriptor"))
		}
	}

	w.entries = append(w.entries, cdEntry{header: header, offset: offset})
	return nil
}

// Close flushes the central directory and EOCD (escalating to ZIP64 records
// when the entry count reaches 0xFFFF or any size or offset reaches
// 0xFFFFFFFF) and marks the writer
// closed. A second call is a no-op, per spec.md §4.D.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	cdOffset := w.dest.n

	for _, e := range w.entries {
		needZip64 := e.header.IsZip64() || e.offset >= uint32max
		if needZip64 {
			e.header.Extra = append(e.header.Extra, encodeZip64Extra(e.header.UncompressedSize, e.header.CompressedSize, e.offset)...)
			if e.header.VersionNeeded < versionNeeded45 {
				e.header.VersionNeeded = versionNeeded45
			}
		}
		if _, err := w.dest.Write(e.header.encodeCentralDirHeader(e.offset)); err != nil {
			return newError(FileWriteError, "close", errors.Wrap(err, "write central directory header"))
		}
	}

	cdSize := w.dest.n - cdOffset
	totalEntries := uint64(len(w.entries))

	needZip64EOCD := totalEntries >= uint16max || cdSize >= uint32max || cdOffset >= uint32max
	if needZip64EOCD {
		zip64EOCDOffset := w.dest.n
		rec := zip64EndOfCentralDir{totalEntries: totalEntries, cdSize: cdSize, cdOffset: cdOffset}
		if _, err := w.dest.Write(rec.encode()); err != nil {
			return newError(FileWriteError, "close", errors.Wrap(err, "write zip64 end of central directory"))
		}
		loc := zip64Locator{eocdOffset: zip64EOCDOffset}
		if _, err := w.dest.Write(loc.encode()); err != nil {
			return newError(FileWriteError, "close", errors.Wrap(err, "write zip64 locator"))
		}
	}

	eocd := endOfCentralDir{cdSize: uint32(cdSize), cdOffset: uint32(cdOffset)}
	if needZip64EOCD {
		eocd.entriesOnDisk, eocd.totalEntries = uint16max, uint16max
		eocd.cdSize, eocd.cdOffset = uint32max, uint32max
	} else {
		eocd.entriesOnDisk = uint16(totalEntries)
		eocd.totalEntries = uint16(totalEntries)
	}

	if _, err := w.dest.Write(eocd.encode()); err != nil {
		return newError(FileWriteError, "close", errors.Wrap(err, "write end of central directory"))
	}
	return nil
}
