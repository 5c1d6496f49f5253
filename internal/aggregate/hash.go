package aggregate

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HashFunc hashes a key. Only the low bits select the home slot, so the
// function must mix well into them.
type HashFunc func(key []byte) uint64

// Family builds a HashFunc for a seed. Seed search walks a family.
type Family func(seed uint64) HashFunc

// Hash names accepted by ByName.
const (
	HashFingerprint = "fingerprint"
	HashXXHash      = "xxhash"
)

// ByName returns the hash family registered under name.
func ByName(name string) (Family, error) {
	switch name {
	case HashFingerprint, "":
		return Fingerprint, nil
	case HashXXHash:
		return XXHash, nil
	default:
		return nil, fmt.Errorf("unknown hash function: %s", name)
	}
}

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// fingerprint packs the first three bytes, the last three bytes and the
// length of key into one word. Keys shorter than three bytes are zero
// padded. Distinct keys may share a fingerprint; the map compares full keys.
func fingerprint(key []byte) uint64 {
	n := len(key)
	var fp uint64
	switch {
	case n >= 3:
		fp = uint64(key[0]) | uint64(key[1])<<8 | uint64(key[2])<<16 |
			uint64(key[n-3])<<24 | uint64(key[n-2])<<32 | uint64(key[n-1])<<40
	default:
		for i, c := range key {
			fp |= uint64(c) << (8 * i)
		}
	}
	return fp | uint64(n&0xff)<<48
}

// Fingerprint hashes only six bytes and the length of a key. Its cost does
// not depend on key length. Use CheckCollisions to validate it against a
// known key set.
func Fingerprint(seed uint64) HashFunc {
	return func(key []byte) uint64 {
		return mix64(fingerprint(key) ^ seed)
	}
}

// XXHash hashes every byte of the key.
func XXHash(seed uint64) HashFunc {
	if seed == 0 {
		return xxhash.Sum64
	}
	return func(key []byte) uint64 {
		return mix64(xxhash.Sum64(key) ^ seed)
	}
}
