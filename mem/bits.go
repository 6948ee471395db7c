package mem

import (
	"log"
	"math/bits"
)

// IsPowerOfTwo returns true if n is a power of two. Zero is not.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// Log2 returns the floor of the base-2 logarithm of n. It panics if n is 0.
func Log2(n uint64) uint64 {
	if n == 0 {
		log.Panic("log2 of 0 is undefined")
	}

	return uint64(bits.Len64(n) - 1)
}

// BitMask returns a mask with the lowest n bits set.
func BitMask(n uint64) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << n) - 1
}

// SpliceBits keeps the bits of upper above the lowest n bits and fills the
// lowest n bits with the ones of lower.
func SpliceBits(upper, lower, n uint64) uint64 {
	mask := BitMask(n)
	return (upper &^ mask) | (lower & mask)
}
