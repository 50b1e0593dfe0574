// Copyright 2026 The pzip Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deflate

// bitWriter accumulates Huffman-coded bits into a 64-bit register and
// flushes complete bytes to an output buffer, the way klauspost/compress's
// huffmanBitWriter does (spec.md §4.B.5).
type bitWriter struct {
	output []byte

	bits   uint64
	nbits  uint8
	nbytes uint8

	lastHeader           int
	lastHuffman          bool
	logNewTablePenalty   int

	bytes        [256 + 8]byte
	literalFreq  [lengthCodesStart + 32]uint16
	offsetFreq   [32]uint16
	codegenFreq  [19]uint16
	codegen      [literalCount + offsetCodeCount + 1]uint8

	literalEncoding *huffmanEncoder
	offsetEncoding  *huffmanEncoder
	tmpLitEncoding  *huffmanEncoder
	codegenEncoding *huffmanEncoder
}

func newBitWriter() *bitWriter {
	w := &bitWriter{
		output:             make([]byte, 0, 256*1024),
		logNewTablePenalty: 7,
		literalEncoding:    newHuffmanEncoder(literalCount),
		offsetEncoding:     newHuffmanEncoder(offsetCodeCount),
		tmpLitEncoding:     newHuffmanEncoder(literalCount),
		codegenEncoding:    newHuffmanEncoder(19),
	}
	return w
}

func (w *bitWriter) reset() {
	w.output = w.output[:0]
	w.bits = 0
	w.nbits = 0
	w.nbytes = 0
	w.lastHeader = 0
	w.lastHuffman = false
}

func (w *bitWriter) writeBits(b int32, nb uint8) {
	w.bits |= uint64(b) << (w.nbits & 63)
	w.nbits += nb
	if w.nbits >= 48 {
		w.writeOutBits()
	}
}

func (w *bitWriter) writeCode(c hcode) {
	w.bits |= c.code64() << (w.nbits & 63)
	w.nbits += c.len()
	if w.nbits >= 48 {
		w.writeOutBits()
	}
}

func (w *bitWriter) writeOutBits() {
	bits := w.bits
	n := w.nbytes
	w.bytes[n+0] = byte(bits)
	w.bytes[n+1] = byte(bits >> 8)
	w.bytes[n+2] = byte(bits >> 16)
	w.bytes[n+3] = byte(bits >> 24)
	w.bytes[n+4] = byte(bits >> 32)
	w.bytes[n+5] = byte(bits >> 40)
	w.bits >>= 48
	w.nbits -= 48
	n += 6
	w.nbytes = n
	if n >= bufferFlushSize {
		w.output = append(w.output, w.bytes[:n]...)
		w.nbytes = 0
	}
}

func (w *bitWriter) flush() {
	if w.lastHeader > 0 {
		w.writeCode(w.literalEncoding.codes[endBlockMarker])
		w.lastHeader = 0
	}

	n := w.nbytes
	for w.nbits != 0 {
		w.bytes[n] = byte(w.bits)
		n++
		w.bits >>= 8
		if w.nbits > 8 {
			w.nbits -= 8
		} else {
			w.nbits = 0
		}
	}
	w.bits = 0

	if n > 0 {
		w.output = append(w.output, w.bytes[:n]...)
	}
	w.nbytes = 0
}

func (w *bitWriter) writeBytes(b []byte) {
	n := w.nbytes
	for w.nbits != 0 {
		w.bytes[n] = byte(w.bits)
		n++
		w.bits >>= 8
		w.nbits -= 8
	}
	if n != 0 {
		w.output = append(w.output, w.bytes[:n]...)
	}
	w.nbytes = 0
	w.output = append(w.output, b...)
}

func (w *bitWriter) writeStoredHeader(length int, isEof bool) {
	if w.lastHeader > 0 {
		w.writeCode(w.literalEncoding.codes[endBlockMarker])
		w.lastHeader = 0
	}

	if length == 0 && isEof {
		w.writeFixedHeader(isEof)
		w.writeBits(0, 7)
		w.flush()
		return
	}

	var b int32
	if isEof {
		b = 1
	}
	w.writeBits(b, 3)
	w.flush()
	w.writeBits(int32(length), 16)
	w.writeBits(int32(^uint16(length)), 16)
}

func (w *bitWriter) writeFixedHeader(isEof bool) {
	if w.lastHeader > 0 {
		w.writeCode(w.literalEncoding.codes[endBlockMarker])
		w.lastHeader = 0
	}
	b := int32(2)
	if isEof {
		b = 3
	}
	w.writeBits(b, 3)
}

// indexTokens copies t's histograms into the writer's frequency tables.
// alwaysEOB forces a nonzero end-of-block frequency so the dynamic-header
// size estimate always accounts for it, even on an empty block.
func (w *bitWriter) indexTokens(t *tokens, alwaysEOB bool) {
	copy(w.literalFreq[:256], t.litHist[:])
	copy(w.literalFreq[256:288], t.extraHist[:])
	w.offsetFreq = t.offHist
	if t.n != 0 && alwaysEOB {
		w.literalFreq[endBlockMarker] = 1
	}
}

func (w *bitWriter) generate() {
	w.literalEncoding.generate(w.literalFreq[:], literalCount, 15)
	w.offsetEncoding.generate(w.offsetFreq[:], offsetCodeCount, 15)
}

func (w *bitWriter) extraBitSize() int {
	total := 0
	for i := 0; i < literalCount-257; i++ {
		total += int(w.literalFreq[257+i]) * int(lengthExtraBits[i&31])
	}
	for i := 0; i < offsetCodeCount; i++ {
		total += int(w.offsetFreq[i]) * int(offsetExtraBits[i&31])
	}
	return total
}

func (w *bitWriter) fixedSize(extraBits int) int {
	return 3 + fixedLiteralEncoding.bitLength(w.literalFreq[:], literalCount) +
		fixedOffsetEncoding.bitLength(w.offsetFreq[:], offsetCodeCount) + extraBits
}

func (w *bitWriter) storedSize(input []byte) (size int, storable bool) {
	storable = input != nil && len(input) <= maxStoreBlockSize
	if !storable {
		return 0, false
	}
	return (len(input) + 5) * 8, true
}

// writeTokens emits n tokens using leCodes/oeCodes as the literal/length and
// offset Huffman tables; a trailing end-of-block token is written with the
// rest, in the same call.
func (w *bitWriter) writeTokens(tok []token, leCodes, oeCodes []hcode) {
	if len(tok) == 0 {
		return
	}

	lengths := leCodes[lengthCodesStart:]

	bits := w.bits
	nbits := w.nbits
	nbytes := w.nbytes

	deferEOB := tok[len(tok)-1] == endBlockMarker
	if deferEOB {
		tok = tok[:len(tok)-1]
	}

	flush := func() {
		w.bytes[nbytes+0] = byte(bits)
		w.bytes[nbytes+1] = byte(bits >> 8)
		w.bytes[nbytes+2] = byte(bits >> 16)
		w.bytes[nbytes+3] = byte(bits >> 24)
		w.bytes[nbytes+4] = byte(bits >> 32)
		w.bytes[nbytes+5] = byte(bits >> 40)
		bits >>= 48
		nbits -= 48
		nbytes += 6
		if nbytes >= bufferFlushSize {
			w.output = append(w.output, w.bytes[:nbytes]...)
			nbytes = 0
		}
	}

	for _, t := range tok {
		if t < 256 {
			c := leCodes[t]
			bits |= c.code64() << (nbits & 63)
			nbits += c.len()
			if nbits >= 48 {
				flush()
			}
			continue
		}

		length := (uint32(t) >> lengthShift) & 0xFF
		lengthCode := lengthCodes1[length] - 1

		c := lengths[lengthCode]
		bits |= c.code64() << (nbits & 63)
		nbits += c.len()
		if nbits >= 48 {
			flush()
		}

		if lengthCode >= 8 {
			extraLengthBits := lengthExtraBits[lengthCode]
			extraLength := int32(length) - int32(lengthBase[lengthCode])
			bits |= uint64(extraLength) << (nbits & 63)
			nbits += extraLengthBits
			if nbits >= 48 {
				flush()
			}
		}

		offset := uint32(t) & offsetMask
		offCode := (offset >> 16) & 31
		offset &= 0xFFFF

		c = oeCodes[offCode]
		bits |= c.code64() << (nbits & 63)
		nbits += c.len()
		if nbits >= 48 {
			flush()
		}

		if offCode >= 4 {
			comb := offsetCombined[offCode]
			bits |= uint64((offset-(comb>>8))&0xFFFF) << (nbits & 63)
			nbits += uint8(comb)
			if nbits >= 48 {
				flush()
			}
		}
	}

	w.bits = bits
	w.nbits = nbits
	w.nbytes = nbytes

	if deferEOB {
		w.writeCode(leCodes[endBlockMarker])
	}
}

// writeBlock emits tok as a fixed-Huffman block, or as a stored block when
// that is smaller, per spec.md §4.B.
func (w *bitWriter) writeBlock(tok *tokens, eof bool, input []byte) {
	tok.addEOB()

	if w.lastHeader > 0 {
		w.writeCode(w.literalEncoding.codes[endBlockMarker])
		w.lastHeader = 0
	}

	w.indexTokens(tok, false)
	w.generate()

	ssize, storable := w.storedSize(input)
	extraBits := 0
	if storable {
		extraBits = w.extraBitSize()
	}
	size := w.fixedSize(extraBits)

	if storable && ssize <= size {
		w.writeStoredHeader(len(input), eof)
		w.writeBytes(input)
		return
	}

	w.writeFixedHeader(eof)
	w.writeTokens(tok.tok[:tok.n], fixedLiteralEncoding.codes, fixedOffsetEncoding.codes)
}

// writeBlockDynamic selects between a stored block and a Huffman block
// using fixed tables. It deliberately does not build and transmit an actual
// dynamic Huffman header for the token stream: spec.md §4.B notes this
// mirrors a simplification already present upstream, kept rather than
// "fixed," since every output byte still decodes as valid DEFLATE.
func (w *bitWriter) writeBlockDynamic(tok *tokens, eof bool, input []byte) {
	tok.addEOB()

	if w.lastHeader > 0 {
		w.writeCode(w.literalEncoding.codes[endBlockMarker])
		w.lastHeader = 0
	}

	w.indexTokens(tok, true)

	ssize, storable := w.storedSize(input)
	extraBits := 0
	if storable {
		extraBits = w.extraBitSize()
	}

	w.generate()
	size := w.fixedSize(extraBits)

	if storable && ssize <= size {
		w.writeStoredHeader(len(input), eof)
		w.writeBytes(input)
		return
	}

	w.writeFixedHeader(eof)
	w.writeTokens(tok.tok[:tok.n], fixedLiteralEncoding.codes, fixedOffsetEncoding.codes)
}

func (w *bitWriter) histogram(input []byte) {
	for _, b := range input {
		w.literalFreq[b]++
	}
}

func (w *bitWriter) headerSize() (size, numCodegens int) {
	numCodegens = 19
	for numCodegens > 4 && w.codegenFreq[codegenOrder[numCodegens-1]] == 0 {
		numCodegens--
	}

	size = 3 + 5 + 5 + 4 + 3*numCodegens +
		w.codegenEncoding.bitLength(w.codegenFreq[:], 19) +
		int(w.codegenFreq[16])*2 +
		int(w.codegenFreq[17])*3 +
		int(w.codegenFreq[18])*7
	return size, numCodegens
}

func (w *bitWriter) generateCodegen(numLiterals, numOffsets int, litEnc, offEnc *huffmanEncoder) {
	w.codegenFreq = [19]uint16{}

	n := 0
	for i := 0; i < numLiterals; i++ {
		bits := litEnc.codes[i].len()
		w.codegen[n] = bits
		n++
		w.codegenFreq[bits]++
	}
	for i := 0; i < numOffsets; i++ {
		bits := offEnc.codes[i].len()
		w.codegen[n] = bits
		n++
		w.codegenFreq[bits]++
	}
}

func (w *bitWriter) codegens() int {
	n := 19
	for n > 4 && w.codegenFreq[codegenOrder[n-1]] == 0 {
		n--
	}
	return n
}

func (w *bitWriter) writeDynamicHeader(numLiterals, numOffsets, numCodegens int, isEof bool) {
	b := int32(4)
	if isEof {
		b = 5
	}
	w.writeBits(b, 3)

	w.writeBits(int32(numLiterals-257), 5)
	w.writeBits(int32(numOffsets-1), 5)
	w.writeBits(int32(numCodegens-4), 4)

	for i := 0; i < numCodegens; i++ {
		w.writeBits(int32(w.codegenEncoding.codes[codegenOrder[i]].len()), 3)
	}

	for i := 0; i < numLiterals+numOffsets; i++ {
		w.writeCode(w.codegenEncoding.codes[w.codegen[i]])
	}
}

// writeBlockHuff emits a Huffman-only block: every input byte coded as a
// literal against a frequency-derived table, with no LZ77 matches at all.
// It opportunistically reuses the previous block's table when that table
// has a code for every byte in input and doing so costs fewer bits than
// building a new one (spec.md §4.B).
func (w *bitWriter) writeBlockHuff(eof bool, input []byte) {
	w.literalFreq = [lengthCodesStart + 32]uint16{}
	if !w.lastHuffman {
		w.offsetFreq = [32]uint16{}
	}

	const numLiterals = endBlockMarker + 1
	const numOffsets = 1
	const guessHeaderSizeBits = 70 * 8

	w.histogram(input)

	ssize, storable := w.storedSize(input)

	if storable && len(input) > 1024 {
		avg := float64(len(input)) / 256.0
		maxVal := float64(len(input) * 2)
		var absVal float64
		for i := 0; i < 256; i++ {
			diff := float64(w.literalFreq[i]) - avg
			absVal += diff * diff
			if absVal > maxVal {
				break
			}
		}
		if absVal < maxVal {
			w.writeStoredHeader(len(input), eof)
			w.writeBytes(input)
			return
		}
	}

	w.literalFreq[endBlockMarker] = 1
	w.tmpLitEncoding.generate(w.literalFreq[:], numLiterals, 15)
	estBits := w.tmpLitEncoding.bitLength(w.literalFreq[:], numLiterals)

	estBits += w.lastHeader
	if w.lastHeader == 0 {
		estBits += guessHeaderSizeBits
	}
	estBits += estBits >> w.logNewTablePenalty

	if storable && ssize <= estBits {
		w.writeStoredHeader(len(input), eof)
		w.writeBytes(input)
		return
	}

	reused := false
	if w.lastHeader > 0 {
		reuseSize := w.literalEncoding.bitLength(w.literalFreq[:], numLiterals)
		for i := 0; i < numLiterals; i++ {
			if w.literalFreq[i] != 0 && w.literalEncoding.codes[i].len() == 0 {
				reuseSize = estBits + 1 // the previous table has no code for i
				break
			}
		}
		if estBits < reuseSize {
			w.writeCode(w.literalEncoding.codes[endBlockMarker])
			w.lastHeader = 0
		} else {
			reused = true
		}
	}

	if w.lastHeader == 0 {
		w.literalEncoding, w.tmpLitEncoding = w.tmpLitEncoding, w.literalEncoding

		// A lone distance code must be 1 bit long for the header to decode.
		w.offsetFreq = [32]uint16{}
		w.offsetFreq[0] = 1
		w.offsetEncoding.generate(w.offsetFreq[:], offsetCodeCount, 15)
		w.generateCodegen(numLiterals, numOffsets, w.literalEncoding, w.offsetEncoding)
		w.codegenEncoding.generate(w.codegenFreq[:], 19, 7)
		numCodegens := w.codegens()

		w.writeDynamicHeader(numLiterals, numOffsets, numCodegens, eof)
		w.lastHuffman = true
		w.lastHeader, _ = w.headerSize()
	}

	encoding := w.literalEncoding.codes
	for _, b := range input {
		w.writeCode(encoding[b])
	}

	if eof {
		w.writeCode(w.literalEncoding.codes[endBlockMarker])
		w.lastHeader = 0
		w.lastHuffman = false
		if reused {
			// The reused block's header was written without the final flag.
			w.writeStoredHeader(0, true)
		}
	}
}
