package hll

import (
	"github.com/pkg/errors"
)

const (
	// DefaultLog2m and DefaultRegisterWidth are the schema v1 defaults.
	DefaultLog2m         = 13
	DefaultRegisterWidth = 5

	minLog2m = 4
	maxLog2m = 24

	// minFoldLog2m is the smallest precision Fold can produce. Decoding accepts it too, so that a
	// folded estimator survives a round trip through the wire format.
	minFoldLog2m = 1

	minRegisterWidth = 1
	maxRegisterWidth = 5

	// Register values are positions of a bit within 32 bits of hash.
	maxRegisterValueCap = 31
)

type Hll struct {
	registers registers // one bounded rho value per substream
	log2m     uint      // log base 2 of the number of registers
	regwidth  uint      // bits per register
	m         uint64    // number of registers, 2^log2m
	maxRegVal uint8     // 2^regwidth - 1, at most maxRegisterValueCap

	// Constants used by the cardinality estimate. They depend only on log2m and regwidth.
	alphaMSquared     float64
	smallEstimatorCut float64
	largeEstimatorCut float64
	twoToL            float64
}

// New returns an empty estimator with 2^log2m registers of regwidth bits each. log2m must be in
// [4,24] and regwidth in [1,5].
func New(log2m, regwidth uint) (*Hll, error) {
	if log2m < minLog2m || log2m > maxLog2m {
		return nil, errors.Wrapf(ErrConfig, "log2m must be in [%d,%d], got %d", minLog2m, maxLog2m, log2m)
	}
	if regwidth < minRegisterWidth || regwidth > maxRegisterWidth {
		return nil, errors.Wrapf(ErrConfig, "register width must be in [%d,%d], got %d",
			minRegisterWidth, maxRegisterWidth, regwidth)
	}
	return newHll(log2m, regwidth), nil
}

// NewDefault returns an empty estimator with DefaultLog2m and DefaultRegisterWidth.
func NewDefault() *Hll {
	return newHll(DefaultLog2m, DefaultRegisterWidth)
}

// newHll skips parameter validation; callers must have done it.
func newHll(log2m, regwidth uint) *Hll {
	h := &Hll{
		log2m:    log2m,
		regwidth: regwidth,
		m:        1 << log2m,
	}
	h.maxRegVal = uint8(minUint((1<<regwidth)-1, maxRegisterValueCap))
	h.registers = newRegisters(h.m)
	h.initEstimatorConstants()
	return h
}

// AddRaw takes an already-hashed 64-bit value and updates the register it maps to.
//
// The low log2m bits select the register. The remaining bits, shifted down, supply the register
// value: the 1-based position of their least significant set bit, capped at the maximum register
// value. Adding the same hash again has no effect.
func (h *Hll) AddRaw(x uint64) {
	idx := extractShift(x, 0, h.log2m-1)
	remainder := x >> h.log2m
	r := minU8(rho(remainder), h.maxRegVal)
	h.registers.setIfGreater(idx, r)
}

// AddRawHalves is AddRaw for callers holding the hash as two 32-bit halves.
func (h *Hll) AddRawHalves(lower, upper uint32) {
	h.AddRaw(joinHalves(lower, upper))
}

// Log2m returns log base 2 of the number of registers.
func (h *Hll) Log2m() uint {
	return h.log2m
}

// RegisterWidth returns the number of bits in each register.
func (h *Hll) RegisterWidth() uint {
	return h.regwidth
}

func (h *Hll) NumRegisters() uint64 {
	return h.m
}

// MaxRegisterValue is the largest value any register can hold.
func (h *Hll) MaxRegisterValue() uint8 {
	return h.maxRegVal
}

// Register returns the value of register i. It panics if i >= NumRegisters().
func (h *Hll) Register(i uint64) uint8 {
	return h.registers.Get(i)
}

// Registers returns a copy of the register values in index order.
func (h *Hll) Registers() []uint8 {
	return h.registers.Copy()
}

// Clone returns an independent copy.
func (h *Hll) Clone() *Hll {
	c := *h
	c.registers = h.registers.Copy()
	return &c
}

// Equal reports whether both estimators have the same parameters and register values. A nil other
// is never equal.
func (h *Hll) Equal(other *Hll) bool {
	if other == nil {
		return false
	}
	if h.log2m != other.log2m || h.regwidth != other.regwidth {
		return false
	}
	for i := range h.registers {
		if h.registers[i] != other.registers[i] {
			return false
		}
	}
	return true
}
