// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deflate

const bufferReset = 0x7FFFFFFF - allocHistory - maxStoreBlockSize - 1

// encoderL1 is the single-hash-table match finder used for levels 1-3:
// favors speed over ratio, per spec.md §4.B.1.
type encoderL1 struct {
	genState
	table [tableSize]tableEntry
}

func newEncoderL1() *encoderL1 {
	return &encoderL1{genState: newGenState()}
}

func (e *encoderL1) reset() {
	e.genState.reset()
	e.table = [tableSize]tableEntry{}
}

func (e *encoderL1) encode(dst *tokens, src []byte) {
	const inputMargin = 11
	const minNonLiteralBlockSize = 13
	const skipLog = 5
	const doEvery = 2

	if e.cur >= bufferReset {
		if len(e.hist) == 0 {
			e.table = [tableSize]tableEntry{}
			e.cur = maxMatchOffset
		} else {
			minOff := e.cur + int32(len(e.hist)) - maxMatchOffset
			for i := range e.table {
				if e.table[i].offset <= minOff {
					e.table[i].offset = 0
				} else {
					e.table[i].offset -= e.cur - maxMatchOffset
				}
			}
			e.cur = maxMatchOffset
		}
	}

	s := e.addBlock(src)

	if len(src) < minNonLiteralBlockSize {
		dst.n = uint16(len(src))
		return
	}

	data := e.hist
	nextEmit := s
	sLimit := int32(len(e.hist)) - inputMargin

	cv := load64(data, s)

	for {
		var nextS, t int32

		for {
			nextHash := hash5(cv)
			candidate := e.table[nextHash]
			nextS = s + doEvery + (s-nextEmit)/(1<<skipLog)

			if nextS > sLimit {
				goto doneSearch
			}

			now := load64(data, nextS)
			e.table[nextHash] = tableEntry{offset: s + e.cur}
			nextHash2 := hash5(now)
			t = candidate.offset - e.cur

			if s-t < maxMatchOffset && uint32(cv) == load32(data, t) {
				e.table[nextHash2] = tableEntry{offset: nextS + e.cur}
				break
			}

			cv = now
			s = nextS
			nextS++
			candidate = e.table[nextHash2]
			now >>= 8
			e.table[nextHash2] = tableEntry{offset: s + e.cur}

			t = candidate.offset - e.cur
			if s-t < maxMatchOffset && uint32(cv) == load32(data, t) {
				e.table[hash5(now)] = tableEntry{offset: nextS + e.cur}
				break
			}
			cv = now
			s = nextS
		}

		for {
			maxLen := min32(int32(len(e.hist))-s-4, maxMatchLength-4)
			l := int32(matchLen(data[s+4:], data[t+4:], int(maxLen))) + 4

			for t > 0 && s > nextEmit && data[t-1] == data[s-1] {
				s--
				t--
				l++
			}

			emitLiterals(dst, data, nextEmit, s)

			dst.addMatchLong(l, uint32(s-t-1))
			s += l
			nextEmit = s

			if nextS >= s {
				s = nextS + 1
			}

			if s >= sLimit {
				if s+8 < int32(len(e.hist)) {
					cv = load64(data, s)
					e.table[hash5(cv)] = tableEntry{offset: s + e.cur}
				}
				goto doneSearch
			}

			x := load64(data, s-2)
			o := e.cur + s - 2
			e.table[hash5(x)] = tableEntry{offset: o}
			x >>= 16
			candidate := e.table[hash5(x)]
			e.table[hash5(x)] = tableEntry{offset: o + 2}

			t = candidate.offset - e.cur
			if s-t > maxMatchOffset || uint32(x) != load32(data, t) {
				cv = x >> 8
				s++
				break
			}
		}
	}

doneSearch:
	if nextEmit < int32(len(e.hist)) {
		if dst.n == 0 {
			return
		}
		emitLiterals(dst, data, nextEmit, int32(len(e.hist)))
	}
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
