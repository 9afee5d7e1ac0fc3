package hll

import (
	"strings"

	"github.com/pkg/errors"
)

// Union merges other into h by taking the element-wise maximum of the registers, so that h
// estimates the cardinality of the union of both inputs. Only h is modified.
//
// Both estimators must have the same log2m and register width. On a mismatch an error wrapping
// ErrUnionMismatch is returned and neither estimator is changed. A nil other is a mismatch too.
func (h *Hll) Union(other *Hll) error {
	if other == nil {
		return errors.Wrap(ErrUnionMismatch, "other estimator is nil")
	}

	var mismatches []string
	if h.log2m != other.log2m {
		mismatches = append(mismatches, "log2m")
	}
	if h.regwidth != other.regwidth {
		mismatches = append(mismatches, "regwidth")
	}
	if len(mismatches) > 0 {
		return errors.Wrapf(ErrUnionMismatch, "%s differ: log2m=%d/%d, regwidth=%d/%d",
			strings.Join(mismatches, ", "), h.log2m, other.log2m, h.regwidth, other.regwidth)
	}

	n := len(h.registers)
	if len(other.registers) < n {
		n = len(other.registers)
	}
	for i := 0; i < n; i++ {
		h.registers[i] = maxU8(h.registers[i], other.registers[i])
	}
	return nil
}

// Fold returns a new estimator with 2^targetLog2m registers and the same register width. h is
// left untouched. If targetLog2m equals h's log2m the result is a clone.
//
// Register i of the result is register i of h plus the number of index bits dropped, capped at the
// maximum register value. Only the first 2^targetLog2m registers of h are read: for any pair of
// registers that collapse into one, the one whose dropped index bits are 1 can never raise the
// folded value above what the retained register contributes.
func (h *Hll) Fold(targetLog2m uint) (*Hll, error) {
	if targetLog2m == h.log2m {
		return h.Clone(), nil
	}
	if targetLog2m < minFoldLog2m || targetLog2m > h.log2m {
		return nil, errors.Wrapf(ErrFoldRange, "target log2m must be in [%d,%d], got %d",
			minFoldLog2m, h.log2m, targetLog2m)
	}

	diff := h.log2m - targetLog2m
	folded := newHll(targetLog2m, h.regwidth)
	for i := range folded.registers {
		v := uint(h.registers[i]) + diff
		folded.registers[i] = uint8(minUint(v, uint(h.maxRegVal)))
	}
	return folded, nil
}
