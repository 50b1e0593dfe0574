// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deflate

import "io"

const flushThreshold = 256 * 1024

// Writer streams input through a match finder and bit writer, emitting one
// block per filled 64 KiB window, and forwards the accumulated output to
// dst only once it has grown past flushThreshold or on Close (spec.md
// §4.B.6). Its shape follows klauspost/compress/flate.Writer's
// write/Close/Reset contract, the API the source's own comments call out
// as the model for this type.
type Writer struct {
	dst   io.Writer
	level Level

	window    []byte
	windowEnd int

	l1 *encoderL1
	l4 *encoderL4
	w  *bitWriter
	t  tokens
}

// NewWriter returns a Writer that emits a DEFLATE stream to dst.
func NewWriter(dst io.Writer, level Level) *Writer {
	w := &Writer{
		dst:    dst,
		level:  level,
		window: make([]byte, maxStoreBlockSize),
		w:      newBitWriter(),
	}
	if useL1(level) {
		w.l1 = newEncoderL1()
	} else {
		w.l4 = newEncoderL4()
	}

	penalty := 7
	switch {
	case level <= 3:
		penalty = 8
	case level >= 7:
		penalty = 6
	}
	w.w.logNewTablePenalty = penalty

	return w
}

func (w *Writer) encoder() matchFinder {
	if w.l1 != nil {
		return w.l1
	}
	return w.l4
}

// Reset discards any buffered state and redirects output to dst.
func (w *Writer) Reset(dst io.Writer) {
	w.dst = dst
	w.windowEnd = 0
	w.encoder().reset()
	w.w.reset()
	w.t.reset()
}

func (w *Writer) fillWindow(data []byte) int {
	n := copy(w.window[w.windowEnd:], data)
	w.windowEnd += n
	return n
}

func (w *Writer) flushOutput() error {
	if len(w.w.output) < flushThreshold {
		return nil
	}
	return w.forceFlush()
}

func (w *Writer) forceFlush() error {
	if len(w.w.output) == 0 {
		return nil
	}
	_, err := w.dst.Write(w.w.output)
	w.w.output = w.w.output[:0]
	return err
}

// storeFast compresses the current window as a non-final block and flushes
// it toward dst if the output buffer has grown large enough.
func (w *Writer) storeFast() error {
	if w.windowEnd == 0 {
		return nil
	}

	if w.windowEnd < 128 {
		if w.windowEnd <= 32 {
			w.w.writeStoredHeader(w.windowEnd, false)
			w.w.writeBytes(w.window[:w.windowEnd])
		} else {
			w.w.writeBlockHuff(false, w.window[:w.windowEnd])
		}
		w.t.reset()
		w.windowEnd = 0
		w.encoder().reset()
		return w.flushOutput()
	}

	w.encoder().encode(&w.t, w.window[:w.windowEnd])

	switch {
	case w.t.n == 0:
		w.w.writeStoredHeader(w.windowEnd, false)
		w.w.writeBytes(w.window[:w.windowEnd])
	case int(w.t.n) > w.windowEnd-(w.windowEnd>>4):
		w.w.writeBlockHuff(false, w.window[:w.windowEnd])
	default:
		w.w.writeBlockDynamic(&w.t, false, w.window[:w.windowEnd])
	}

	w.t.reset()
	w.windowEnd = 0
	return w.flushOutput()
}

// Write buffers data into the sliding window, compressing and forwarding
// one full window's worth at a time.
func (w *Writer) Write(data []byte) (int, error) {
	total := len(data)
	for len(data) > 0 {
		if w.windowEnd == len(w.window) {
			if err := w.storeFast(); err != nil {
				return total - len(data), err
			}
		}
		n := w.fillWindow(data)
		data = data[n:]
	}
	return total, nil
}

// Close compresses any partial window as the final block, flushes the
// remainder to dst, and leaves the Writer unusable until Reset.
func (w *Writer) Close() error {
	if w.windowEnd > 0 {
		w.encoder().encode(&w.t, w.window[:w.windowEnd])

		switch {
		case w.t.n == 0 || w.windowEnd <= 32:
			// Like storeFast, a window this small is stored; the match
			// finders also leave no tokens for windows under 13 bytes.
			w.w.writeStoredHeader(w.windowEnd, true)
			w.w.writeBytes(w.window[:w.windowEnd])
		case int(w.t.n) > w.windowEnd-(w.windowEnd>>4):
			w.w.writeBlockHuff(true, w.window[:w.windowEnd])
		default:
			w.w.writeBlockDynamic(&w.t, true, w.window[:w.windowEnd])
		}
	} else {
		w.w.writeStoredHeader(0, true)
	}

	w.w.flush()
	return w.forceFlush()
}
