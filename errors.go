package hll

import (
	"github.com/pkg/errors"
)

// Errors returned by this package are wrapped with context. Use errors.Is to test for a kind.
var (
	// ErrConfig is returned when log2m or the register width is outside the supported range.
	ErrConfig = errors.New("hll: invalid configuration")

	// ErrUnionMismatch is returned by Union when the operands differ in log2m or register width.
	ErrUnionMismatch = errors.New("hll: union of mismatched estimators")

	// ErrFoldRange is returned by Fold when the target precision is outside [1, log2m].
	ErrFoldRange = errors.New("hll: fold target out of range")

	// ErrDecode is returned for any malformed encoded estimator.
	ErrDecode = errors.New("hll: decode failed")

	// ErrUnsupportedRepresentation is returned when the type nibble is not FULL. It is also an
	// ErrDecode.
	ErrUnsupportedRepresentation = decodeKind{"hll: unsupported representation"}

	// ErrUnsupportedVersion is returned when the schema version nibble is unknown. It is also an
	// ErrDecode.
	ErrUnsupportedVersion = decodeKind{"hll: unsupported schema version"}
)

// decodeKind is a sentinel that also matches ErrDecode.
type decodeKind struct {
	msg string
}

func (d decodeKind) Error() string { return d.msg }

func (d decodeKind) Is(target error) bool { return target == ErrDecode }
