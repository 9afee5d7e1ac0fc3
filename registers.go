package hll

// registers holds one small counter per substream. Each value fits in the estimator's register
// width; callers are responsible for never storing a larger value.
type registers []uint8

func newRegisters(numRegisters uint64) registers {
	return make([]uint8, numRegisters)
}

// This function assumes that registerIdx is within range. It may panic if not.
func (r registers) Get(registerIdx uint64) uint8 {
	return r[registerIdx]
}

func (r registers) Set(registerIdx uint64, val uint8) {
	r[registerIdx] = val
}

// setIfGreater stores val only if it exceeds the current register value.
func (r registers) setIfGreater(registerIdx uint64, val uint8) {
	if val > r[registerIdx] {
		r[registerIdx] = val
	}
}

// indicator returns sum(2^-M[j]) over all registers, along with the number of registers that are
// still zero.
func (r registers) indicator() (float64, uint64) {
	sum := float64(0)
	var zeros uint64
	for _, val := range r {
		sum += 1 / float64(uint64(1)<<val)
		if val == 0 {
			zeros++
		}
	}
	return sum, zeros
}

func (r registers) Copy() registers {
	c := make([]uint8, len(r))
	copy(c, r)
	return c
}

// writeBits packs each register as a width-bit field into buf using w.
func (r registers) writeBits(w *bitWriter, width uint) {
	for _, val := range r {
		w.write(val, width)
	}
}

// readBits fills every register from rd. The caller must ensure enough bits remain.
func (r registers) readBits(rd *bitReader, width uint) {
	for i := range r {
		r[i] = rd.read(width)
	}
}
