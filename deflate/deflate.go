// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deflate

// Level selects which match finder backs a Compress call or Writer: 0-3
// use the single-hash L1 finder, 4-9 use the dual-hash L4 finder, matching
// the source's useL1_ = level <= 3 split (spec.md §4.B).
type Level int

const (
	NoCompression      Level = 0
	BestSpeed          Level = 1
	DefaultCompression Level = 6
	BestCompression    Level = 9
)

func useL1(level Level) bool { return level <= 3 }

// Compress deflates input in 65535-byte blocks, selecting stored,
// Huffman-only, or dynamic-table emission per block by the precedence in
// spec.md §4.B, and returns the complete DEFLATE stream.
func Compress(input []byte, level Level) []byte {
	w := newBitWriter()
	var l1 *encoderL1
	var l4 *encoderL4
	if useL1(level) {
		l1 = newEncoderL1()
	} else {
		l4 = newEncoderL4()
	}
	var tok tokens

	if len(input) == 0 {
		w.writeStoredHeader(0, true)
		w.flush()
		return w.output
	}

	pos := 0
	for pos < len(input) {
		blockSize := len(input) - pos
		if blockSize > maxStoreBlockSize {
			blockSize = maxStoreBlockSize
		}
		isLast := pos+blockSize >= len(input)
		block := input[pos : pos+blockSize]

		tok.reset()
		if l1 != nil {
			l1.encode(&tok, block)
		} else {
			l4.encode(&tok, block)
		}

		switch {
		case tok.n == 0:
			w.writeStoredHeader(blockSize, isLast)
			w.writeBytes(block)
		case int(tok.n) > blockSize-(blockSize>>4):
			w.writeBlockHuff(isLast, block)
		default:
			w.writeBlockDynamic(&tok, isLast, block)
		}

		pos += blockSize
	}

	w.flush()
	return w.output
}
