package hll

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// Storage layout, schema version 1:
//
//	byte 0   version (high nibble) | representation type (low nibble)
//	byte 1   (regwidth-1) in the top 3 bits | log2m in the low 5 bits
//	byte 2   cutoff byte: sparse flag and explicit cutoff, unused by the FULL type
//	byte 3.. registers, regwidth bits each, most significant bit first

const (
	schemaVersion = 1

	// Representation types of the storage format. Only typeFull is supported.
	typeUndefined = 0
	typeEmpty     = 1
	typeExplicit  = 2
	typeSparse    = 3
	typeFull      = 4

	headerBytes = 3

	log2mBits = 5

	// bytea values printed by PostgreSQL carry this prefix.
	byteaHexPrefix = `\x`
)

var typeNames = map[byte]string{
	typeUndefined: "UNDEFINED",
	typeEmpty:     "EMPTY",
	typeExplicit:  "EXPLICIT",
	typeSparse:    "SPARSE",
	typeFull:      "FULL",
}

func packVersion(version, typ byte) byte {
	return version<<4 | typ
}

func packParameters(regwidth, log2m uint) byte {
	return byte((regwidth-1)<<log2mBits | log2m)
}

func unpackParameters(b byte) (regwidth, log2m uint) {
	return uint(b>>log2mBits) + 1, uint(extractShift(uint64(b), 0, log2mBits-1))
}

// SizeInBytes returns the length of the encoded form.
func (h *Hll) SizeInBytes() int {
	return headerBytes + int(bytesForBits(h.m*uint64(h.regwidth)))
}

// ToBytes encodes the estimator in the FULL storage format.
func (h *Hll) ToBytes() []byte {
	buf := make([]byte, h.SizeInBytes())
	buf[0] = packVersion(schemaVersion, typeFull)
	buf[1] = packParameters(h.regwidth, h.log2m)
	buf[2] = 0

	h.registers.writeBits(newBitWriter(buf[headerBytes:]), h.regwidth)
	return buf
}

// ToHexString encodes the estimator as lowercase hex, two characters per byte.
func (h *Hll) ToHexString() string {
	return hex.EncodeToString(h.ToBytes())
}

func (h *Hll) String() string {
	return h.ToHexString()
}

// FromBytes decodes an estimator in the FULL storage format. Bytes beyond the register payload are
// ignored. Errors wrap ErrDecode; the representation and version checks additionally match
// ErrUnsupportedRepresentation and ErrUnsupportedVersion.
func FromBytes(buf []byte) (*Hll, error) {
	if len(buf) < headerBytes {
		return nil, errors.Wrapf(ErrDecode, "need %d header bytes, got %d", headerBytes, len(buf))
	}

	version, typ := buf[0]>>4, buf[0]&0x0f
	if version != schemaVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	}
	if typ != typeFull {
		name, ok := typeNames[typ]
		if !ok {
			name = "unknown"
		}
		return nil, errors.Wrapf(ErrUnsupportedRepresentation, "type %d (%s)", typ, name)
	}

	regwidth, log2m := unpackParameters(buf[1])
	if regwidth < minRegisterWidth || regwidth > maxRegisterWidth {
		return nil, errors.Wrapf(ErrDecode, "register width %d out of range [%d,%d]",
			regwidth, minRegisterWidth, maxRegisterWidth)
	}
	if log2m < minFoldLog2m || log2m > maxLog2m {
		return nil, errors.Wrapf(ErrDecode, "log2m %d out of range [%d,%d]", log2m, minFoldLog2m, maxLog2m)
	}

	// buf[2] is the cutoff byte. It carries nothing for the FULL type.

	rd := newBitReader(buf[headerBytes:])
	need := (uint64(1) << log2m) * uint64(regwidth)
	if rd.remaining() < need {
		return nil, errors.Wrapf(ErrDecode, "register payload has %d bits, need %d", rd.remaining(), need)
	}

	h := newHll(log2m, regwidth)
	h.registers.readBits(rd, regwidth)
	return h, nil
}

// FromHexString decodes the hex rendering produced by ToHexString. Hex digits may be upper or
// lower case, and a leading `\x` as printed by PostgreSQL for bytea values is accepted.
func FromHexString(s string) (*Hll, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), byteaHexPrefix)
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "malformed hex: %v", err)
	}
	return FromBytes(buf)
}

// Decode is an alias of FromHexString.
func Decode(s string) (*Hll, error) {
	return FromHexString(s)
}
