package hll

// bitWriter packs fixed-width values into a byte slice, most significant bit first. Values are
// written starting at the most significant unused bit of the current byte; the final byte is
// zero padded in its low bits.
type bitWriter struct {
	buf    []byte
	bitPos uint64 // absolute bit offset of the next write
}

// newBitWriter writes into buf, which must be zeroed and large enough for everything written.
func newBitWriter(buf []byte) *bitWriter {
	return &bitWriter{buf: buf}
}

// write appends the low width bits of val. width must be in [1,8].
func (w *bitWriter) write(val uint8, width uint) {
	byteIdx, shift := w.bitPos/8, uint(w.bitPos%8)
	numInFirstByte := minUint(width, 8-shift)
	numInSecondByte := width - numInFirstByte

	w.buf[byteIdx] |= (val >> numInSecondByte) << (8 - shift - numInFirstByte)
	if numInSecondByte > 0 {
		lowOrder := val & uint8(onesFromTo(0, numInSecondByte-1))
		w.buf[byteIdx+1] |= lowOrder << (8 - numInSecondByte)
	}
	w.bitPos += uint64(width)
}

// bitReader is the inverse of bitWriter.
type bitReader struct {
	buf    []byte
	bitPos uint64
}

func newBitReader(buf []byte) *bitReader {
	return &bitReader{buf: buf}
}

// remaining returns the number of unread bits.
func (r *bitReader) remaining() uint64 {
	return uint64(len(r.buf))*8 - r.bitPos
}

// read returns the next width bits as an unsigned value. width must be in [1,8] and the caller
// must have checked remaining().
func (r *bitReader) read(width uint) uint8 {
	byteIdx, shift := r.bitPos/8, uint(r.bitPos%8)
	numInFirstByte := minUint(width, 8-shift)
	numInSecondByte := width - numInFirstByte

	first := uint64(r.buf[byteIdx]) >> (8 - shift - numInFirstByte)
	result := uint8(first & onesFromTo(0, numInFirstByte-1))
	if numInSecondByte > 0 {
		result <<= numInSecondByte
		result |= r.buf[byteIdx+1] >> (8 - numInSecondByte)
	}
	r.bitPos += uint64(width)
	return result
}

// bytesForBits returns the number of bytes needed to hold numBits bits.
func bytesForBits(numBits uint64) uint64 {
	return (numBits + 7) / 8
}

func minUint(x, y uint) uint {
	if x <= y {
		return x
	}
	return y
}
