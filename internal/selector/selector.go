// Package selector picks among equally valid fallback options reproducibly.
//
// A selection depends only on the seed key and the option list: the key is hashed with
// SHA-256, the first eight digest bytes seed a fresh Mersenne Twister, and one uniform
// draw picks the option. No generator state survives a call.
package selector

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

// maxOptions bounds the option count to what a single 32-bit draw can index.
const maxOptions uint64 = 1 << 31

// Seed derives the 64-bit generator seed for key.
func Seed(key string) uint64 {
	sum := sha256.Sum256([]byte(key))
	return binary.BigEndian.Uint64(sum[:8])
}

// Index returns the position Select would pick for n options.
func Index(key string, n int) (int, error) {
	if n <= 0 {
		return 0, apperr.InvalidArgument("selector: options must not be empty (seed key %q)", key)
	}
	if uint64(n) > maxOptions {
		return 0, apperr.InvalidArgument("selector: too many options: %d", n)
	}
	var g mt19937
	g.seedUint64(Seed(key))
	return g.randbelow(n), nil
}

// Select returns the option chosen for key.
func Select[T any](key string, options []T) (T, error) {
	i, err := Index(key, len(options))
	if err != nil {
		var zero T
		return zero, err
	}
	return options[i], nil
}

// MustSelect is Select for literal, non-empty option lists.
func MustSelect[T any](key string, options []T) T {
	v, err := Select(key, options)
	if err != nil {
		panic(err)
	}
	return v
}
