package sevenzip

import (
	"fmt"
	"math/bits"
)

// 7z NUMBER encoding: the count of leading 1-bits of the first byte is the
// count of additional little-endian bytes (0..8); the bits of the first
// byte after the marker contribute the high-order bits of the value at
// shift 8*extra.

// ReadNumber decodes a 7z uint64 from the front of b, returning the value
// and the number of bytes consumed.
func ReadNumber(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: number", ErrTruncatedInput)
	}
	first := b[0]
	mask := byte(0x80)
	var value uint64
	for i := 0; i < 8; i++ {
		if first&mask == 0 {
			value |= uint64(first&(mask-1)) << (8 * i)
			return value, i + 1, nil
		}
		if len(b) < i+2 {
			return 0, 0, fmt.Errorf("%w: number", ErrTruncatedInput)
		}
		value |= uint64(b[i+1]) << (8 * i)
		mask >>= 1
	}
	return value, 9, nil
}

// AppendNumber appends the minimal encoding of v to dst.
func AppendNumber(dst []byte, v uint64) []byte {
	extra := numberExtraBytes(v)
	if extra == 8 {
		dst = append(dst, 0xFF)
		for i := 0; i < 8; i++ {
			dst = append(dst, byte(v>>(8*i)))
		}
		return dst
	}
	// extra leading ones, a zero, then the top payload bits.
	first := byte(0xFF) << (8 - extra) // extra == 0 gives 0x00
	first |= byte(v >> (8 * extra))
	dst = append(dst, first)
	for i := 0; i < extra; i++ {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// numberExtraBytes returns the count of additional bytes the minimal
// encoding of v uses.
func numberExtraBytes(v uint64) int {
	for extra := 0; extra < 8; extra++ {
		// extra trailing bytes carry 8*extra bits; the first byte carries
		// 7-extra more.
		payload := uint(8*extra + 7 - extra)
		if bits.Len64(v) <= int(payload) {
			return extra
		}
	}
	return 8
}
