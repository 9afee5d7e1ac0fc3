package hll

import "math/bits"

// Bit manipulation functions

const all1s uint64 = 1<<64 - 1

// Return a bitmask containing ones from position startPos to endPos, inclusive.
// startPos and endPos are 0-indexed so they should be in [0,63].
// startPos should be less than or equal to endPos.
func onesFromTo(startPos, endPos uint) uint64 {
	// Generate two overlapping sequences of 1s, and keep the overlap.
	highOrderOnes := all1s << startPos
	lowOrderOnes := all1s >> (64 - endPos - 1)
	return highOrderOnes & lowOrderOnes
}

// Return bits x[startPos:endPos] inclusive, shifted into the low order bits of the result.
// startPos and endPos are 0-indexed so they should be in [0,63].
// startPos should be less than or equal to endPos.
func extractShift(x uint64, startPos, endPos uint) uint64 {
	mask := onesFromTo(startPos, endPos)
	return (x & mask) >> startPos
}

// joinHalves builds a 64-bit hash from its lower and upper 32-bit halves.
func joinHalves(lower, upper uint32) uint64 {
	return uint64(upper)<<32 | uint64(lower)
}

// Return the position of the least significant set bit, starting with 1. Only the low 32 bits of
// x are consulted. Returns 33 if none of them are set, one past the last real position.
func rho(x uint64) uint8 {
	return uint8(bits.TrailingZeros32(uint32(x))) + 1
}

func minU8(x, y uint8) uint8 {
	if x <= y {
		return x
	}
	return y
}

func maxU8(x, y uint8) uint8 {
	if x >= y {
		return x
	}
	return y
}
