package hll

import (
	"encoding/base64"

	"github.com/golang/snappy"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MarshalBinary returns the FULL storage encoding.
func (h *Hll) MarshalBinary() ([]byte, error) {
	return h.ToBytes(), nil
}

func (h *Hll) UnmarshalBinary(buf []byte) error {
	decoded, err := FromBytes(buf)
	if err != nil {
		return err
	}
	*h = *decoded
	return nil
}

// MarshalText returns the hex rendering of the storage encoding.
func (h *Hll) MarshalText() ([]byte, error) {
	return []byte(h.ToHexString()), nil
}

func (h *Hll) UnmarshalText(text []byte) error {
	decoded, err := FromHexString(string(text))
	if err != nil {
		return err
	}
	*h = *decoded
	return nil
}

func (h *Hll) GobEncode() ([]byte, error) {
	return h.MarshalBinary()
}

func (h *Hll) GobDecode(buf []byte) error {
	return h.UnmarshalBinary(buf)
}

// When marshalling an Hll to JSON, the storage encoding is snappy compressed. Mostly-empty
// estimators compress very well. The parameters are repeated in the clear for readability.
type jsonableHll struct {
	Storage  string `json:"s"`
	Log2m    uint   `json:"log2m"`
	Regwidth uint   `json:"regwidth"`
}

// Convert the Hll struct into JSON.
func (h *Hll) MarshalJSON() ([]byte, error) {
	compressed, err := snappyB64(h.ToBytes())
	if err != nil {
		return nil, err
	}
	return json.Marshal(&jsonableHll{string(compressed), h.log2m, h.regwidth})
}

// Unmarshals JSON byte-array into a Hll struct.
func (h *Hll) UnmarshalJSON(buf []byte) error {
	j := jsonableHll{}
	if err := json.Unmarshal(buf, &j); err != nil {
		return err
	}

	storage, err := unsnappyB64([]byte(j.Storage))
	if err != nil {
		return errors.Wrapf(ErrDecode, "storage field: %v", err)
	}
	decoded, err := FromBytes(storage)
	if err != nil {
		return err
	}
	if decoded.log2m != j.Log2m || decoded.regwidth != j.Regwidth {
		return errors.Wrapf(ErrDecode, "parameters log2m=%d regwidth=%d disagree with storage log2m=%d regwidth=%d",
			j.Log2m, j.Regwidth, decoded.log2m, decoded.regwidth)
	}
	*h = *decoded
	return nil
}

// Compress the input using snappy and encode the result using URL-safe base64.
func snappyB64(in []byte) ([]byte, error) {
	compressed := snappy.Encode(nil, in)
	outBuf := make([]byte, base64.URLEncoding.EncodedLen(len(compressed)))
	base64.URLEncoding.Encode(outBuf, compressed)
	return outBuf, nil
}

// The inverse of snappyB64.
func unsnappyB64(in []byte) ([]byte, error) {
	unBase64ed := make([]byte, base64.URLEncoding.DecodedLen(len(in)))
	n, err := base64.URLEncoding.Decode(unBase64ed, in)
	if err != nil {
		return nil, err
	}

	uncompressed, err := snappy.Decode(nil, unBase64ed[:n])
	if err != nil {
		return nil, err
	}

	// The snappy library returns nil when the output length is zero.
	if uncompressed == nil {
		uncompressed = []byte{}
	}
	return uncompressed, nil
}
