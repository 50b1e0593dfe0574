// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deflate

// encoderL4 is the dual-hash-table match finder used for levels 4 and
// above: a short table (hash4) finds 4-byte matches quickly, a long table
// (hash7) finds longer ones, per spec.md §4.B.2.
type encoderL4 struct {
	genState
	table  [tableSize]tableEntry
	bTable [tableSize]tableEntry
}

func newEncoderL4() *encoderL4 {
	return &encoderL4{genState: newGenState()}
}

func (e *encoderL4) reset() {
	e.genState.reset()
	e.table = [tableSize]tableEntry{}
	e.bTable = [tableSize]tableEntry{}
}

func (e *encoderL4) encode(dst *tokens, src []byte) {
	const inputMargin = 11
	const minNonLiteralBlockSize = 13
	const skipLog = 6
	const doEvery = 1

	if e.cur >= bufferReset {
		if len(e.hist) == 0 {
			e.table = [tableSize]tableEntry{}
			e.bTable = [tableSize]tableEntry{}
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
			for i := range e.bTable {
				if e.bTable[i].offset <= minOff {
					e.bTable[i].offset = 0
				} else {
					e.bTable[i].offset -= e.cur - maxMatchOffset
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
		nextS := s
		var t int32

		for {
			nextHashS := hash4(uint32(cv))
			nextHashL := hash7(cv)

			s = nextS
			nextS = s + doEvery + (s-nextEmit)/(1<<skipLog)
			if nextS > sLimit {
				goto doneSearch
			}

			sCandidate := e.table[nextHashS]
			lCandidate := e.bTable[nextHashL]
			next := load64(data, nextS)
			entry := tableEntry{offset: s + e.cur}
			e.table[nextHashS] = entry
			e.bTable[nextHashL] = entry

			t = lCandidate.offset - e.cur
			if s-t < maxMatchOffset && uint32(cv) == load32(data, t) {
				break
			}

			t = sCandidate.offset - e.cur
			if s-t < maxMatchOffset && uint32(cv) == load32(data, t) {
				lCand2 := e.bTable[hash7(next)]
				lOff := lCand2.offset - e.cur
				if nextS-lOff < maxMatchOffset && load32(data, lOff) == uint32(next) {
					max1 := min32(int32(len(e.hist))-s-4, maxMatchLength-4)
					max2 := min32(int32(len(e.hist))-nextS-4, maxMatchLength-4)
					l1 := matchLen(data[s+4:], data[t+4:], int(max1))
					l2 := matchLen(data[nextS+4:], data[nextS-lOff+4:], int(max2))
					if l2 > l1 {
						s = nextS
						t = lCand2.offset - e.cur
					}
				}
				break
			}
			cv = next
		}

		{
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
					e.table[hash4(uint32(cv))] = tableEntry{offset: s + e.cur}
					e.bTable[hash7(cv)] = tableEntry{offset: s + e.cur}
				}
				goto doneSearch
			}

			i := nextS
			if i < s-1 {
				cv = load64(data, i)
				te := tableEntry{offset: i + e.cur}
				te2 := tableEntry{offset: te.offset + 1}
				e.bTable[hash7(cv)] = te
				e.bTable[hash7(cv>>8)] = te2
				e.table[hash4(uint32(cv>>8))] = te2

				for i += 3; i < s-1; i += 3 {
					cv = load64(data, i)
					te = tableEntry{offset: i + e.cur}
					te2 = tableEntry{offset: te.offset + 1}
					e.bTable[hash7(cv)] = te
					e.bTable[hash7(cv>>8)] = te2
					e.table[hash4(uint32(cv>>8))] = te2
				}
			}

			x := load64(data, s-1)
			o := e.cur + s - 1
			e.table[hash4(uint32(x))] = tableEntry{offset: o}
			e.bTable[hash7(x)] = tableEntry{offset: o}
			cv = x >> 8
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
