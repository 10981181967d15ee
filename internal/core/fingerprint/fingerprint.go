// Package fingerprint compares fixed-length perceptual fingerprints of
// visual content. Fingerprints are opaque bit strings; the recorder only
// cares how far apart two of them are.
package fingerprint

import (
	"encoding/hex"
	"math/bits"
)

// Size is the expected fingerprint length in bytes (256 bits, from a 16x16
// average-threshold transform upstream). Comparison does not require it:
// any equal-length pair compares normally.
const Size = 32

// MaxDistance is returned when two fingerprints cannot be compared. It is
// larger than any real Hamming distance so a scheme migration reads as
// "everything changed" and costs at most one extra capture.
const MaxDistance = Size*8 + 1

// Distance returns the Hamming distance between two fingerprints of equal
// length. Empty or length-mismatched inputs return MaxDistance.
func Distance(a, b []byte) int {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return MaxDistance
	}

	dist := 0
	for i := range a {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return dist
}

// Encode renders a fingerprint as hex for storage
func Encode(fp []byte) string {
	return hex.EncodeToString(fp)
}

// Decode parses a stored hex fingerprint. Corrupt values decode to nil,
// which compares as MaxDistance everywhere.
func Decode(s string) []byte {
	if s == "" {
		return nil
	}
	fp, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return fp
}
