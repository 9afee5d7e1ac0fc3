package hll

import (
	"math"
)

const (
	alpha_16 = 0.673
	alpha_32 = 0.697
	alpha_64 = 0.709

	// Relative standard error is stdErrorNumerator/sqrt(m).
	stdErrorNumerator = 1.04
)

// alphaMSquared returns the bias correction constant alpha_m * m^2 from the HyperLogLog paper.
// Registers counts below 16 only arise from Fold; they use the m=16 constant.
func alphaMSquared(m uint64) float64 {
	var alpha float64
	switch {
	case m <= 16:
		alpha = alpha_16
	case m == 32:
		alpha = alpha_32
	case m == 64:
		alpha = alpha_64
	default:
		alpha = 0.7213 / (1.0 + 1.079/float64(m))
	}
	return alpha * float64(m) * float64(m)
}

func (h *Hll) initEstimatorConstants() {
	// The number of bits of hash that can be observed by a register.
	pwBits := float64(h.maxRegVal) - 1
	l := pwBits + float64(h.log2m)

	h.twoToL = math.Pow(2, l)
	h.largeEstimatorCut = h.twoToL / 30
	h.smallEstimatorCut = 5 * float64(h.m) / 2
	h.alphaMSquared = alphaMSquared(h.m)
}

// Cardinality returns the estimated number of distinct hashes added so far, rounded up.
func (h *Hll) Cardinality() uint64 {
	c := h.AlgorithmCardinality()
	if math.IsInf(c, 1) || c >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(math.Ceil(c))
}

// AlgorithmCardinality returns the unrounded estimate.
//
// Linear counting is used while some registers are still zero and the raw estimate is small. Past
// 2^L/30, where L is the number of hash bits the registers can observe, the estimate is corrected
// for hash collisions. It returns +Inf when the raw estimate is beyond what that correction can
// represent.
func (h *Hll) AlgorithmCardinality() float64 {
	sum, zeros := h.registers.indicator()
	m := float64(h.m)

	estimate := h.alphaMSquared / sum

	if zeros != 0 && estimate < h.smallEstimatorCut {
		return m * math.Log(m/float64(zeros))
	}
	if estimate <= h.largeEstimatorCut {
		return estimate
	}
	if estimate >= h.twoToL {
		return math.Inf(1)
	}
	return -h.twoToL * math.Log(1-estimate/h.twoToL)
}

// CardinalityError is the theoretical relative standard error of the estimate, 1.04/sqrt(m). It
// does not depend on the data.
func (h *Hll) CardinalityError() float64 {
	return stdErrorNumerator / math.Sqrt(float64(h.m))
}
