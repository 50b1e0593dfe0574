// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deflate

import "math/bits"

// tableEntry is a single hash-table slot: the absolute (cur-relative)
// position of the most recent occurrence of that hash.
type tableEntry struct {
	offset int32
}

// matchFinder is the common shape both L1 and L4 expose: feed a slice of
// input, get back tokens, and reset clears accumulated history. spec.md's
// REDESIGN FLAGS call for a closed two-member interface rather than open
// inheritance (spec.md Design Notes).
type matchFinder interface {
	encode(dst *tokens, src []byte)
	reset()
}

// genState is the history buffer and position-rebasing logic shared by
// every match finder, grounded on the source's FastGen base class.
type genState struct {
	hist []byte
	cur  int32
}

func newGenState() genState {
	return genState{hist: make([]byte, 0, allocHistory), cur: maxStoreBlockSize}
}

// addBlock appends src to the sliding history, compacting it to the last
// maxMatchOffset bytes first if there isn't room, and returns src's
// starting position within hist.
func (g *genState) addBlock(src []byte) int32 {
	if len(g.hist)+len(src) > cap(g.hist) {
		if cap(g.hist) == 0 {
			g.hist = make([]byte, 0, allocHistory)
		} else {
			offset := int32(len(g.hist)) - maxMatchOffset
			if offset > 0 {
				copy(g.hist, g.hist[offset:offset+maxMatchOffset])
				g.cur += offset
				g.hist = g.hist[:maxMatchOffset]
			}
		}
	}
	s := int32(len(g.hist))
	g.hist = append(g.hist, src...)
	return s
}

func (g *genState) reset() {
	if cap(g.hist) < allocHistory {
		g.hist = make([]byte, 0, allocHistory)
	}
	g.cur += maxMatchOffset + int32(len(g.hist))
	g.hist = g.hist[:0]
}

// matchLen compares a and b for up to maxLen bytes using 8-byte XOR and
// count-trailing-zeros, per spec.md §4.B.1. maxLen is capped at the length
// of the shorter slice.
func matchLen(a, b []byte, maxLen int) int {
	if maxLen > len(a) {
		maxLen = len(a)
	}
	if maxLen > len(b) {
		maxLen = len(b)
	}
	n := 0
	for maxLen-n >= 8 {
		diff := load64(a, int32(n)) ^ load64(b, int32(n))
		if diff != 0 {
			return n + bits.TrailingZeros64(diff)/8
		}
		n += 8
	}
	for n < maxLen && a[n] == b[n] {
		n++
	}
	return n
}

func emitLiterals(dst *tokens, data []byte, from, to int32) {
	for i := from; i < to; i++ {
		dst.addLiteral(data[i])
	}
}
