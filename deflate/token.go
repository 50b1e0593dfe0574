// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deflate

// token is a literal or a match packed into 32 bits: bit 30 set marks a
// match; bits 22..29 carry length-baseMatchLength; bits 16..20 carry the
// offset code; bits 0..15 carry the raw offset. A plain byte value below
// 256 is a literal.
type token uint32

func literalToken(lit byte) token { return token(lit) }

// tokens is the fixed-capacity per-block output of a match finder, together
// with the literal/length/offset frequency histograms the Huffman encoder
// consumes directly.
type tokens struct {
	extraHist [32]uint16
	offHist   [32]uint16
	litHist   [256]uint16
	n         uint16
	tok       [maxStoreBlockSize + 1]token
}

func (t *tokens) reset() {
	t.n = 0
	t.litHist = [256]uint16{}
	t.extraHist = [32]uint16{}
	t.offHist = [32]uint16{}
}

func (t *tokens) addLiteral(lit byte) {
	t.tok[t.n] = literalToken(lit)
	t.litHist[lit]++
	t.n++
}

// addMatch records a single match no longer than maxMatchLength.
func (t *tokens) addMatch(xlength, xoffset uint32) {
	oc := offsetCode(xoffset)
	xoffset |= oc << 16
	t.extraHist[lengthCodes1[uint8(xlength)]]++
	t.offHist[oc&31]++
	t.tok[t.n] = token(matchType | (xlength << lengthShift) | xoffset)
	t.n++
}

// addMatchLong splits a match possibly longer than maxMatchLength into
// chunks no individual token exceeds, per spec.md §4.B.3.
func (t *tokens) addMatchLong(xlength int32, xoffset uint32) {
	oc := offsetCode(xoffset)
	xoffset |= oc << 16

	for xlength > 0 {
		xl := xlength
		if xl > maxMatchLength {
			if xl > maxMatchLength+baseMatchLength {
				xl = maxMatchLength
			} else {
				xl = maxMatchLength - baseMatchLength
			}
		}
		xlength -= xl
		xl -= baseMatchLength

		t.extraHist[lengthCodes1[uint8(xl)]]++
		t.offHist[oc&31]++
		t.tok[t.n] = token(matchType | (uint32(xl) << lengthShift) | xoffset)
		t.n++
	}
}

func (t *tokens) addEOB() {
	t.tok[t.n] = endBlockMarker
	t.n++
}
