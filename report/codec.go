package report

import "golang.org/x/exp/constraints"

// Clamp restricts v to the closed range [lo, hi]. It is used throughout the
// codec and mapper packages to bound array-field indices and logical values
// without repeating the same two comparisons for every integer type involved.
func Clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GetUnsigned reads loc.BitSize bits, LSB-first, starting at loc.BitPos
// within buf, and zero-extends the result. Reads past the end of buf return
// 0 (spec §4.2: "no fault").
func GetUnsigned(buf []byte, loc Location) uint32 {
	return getElement(buf, loc, 0)
}

// GetSigned reads like GetUnsigned, then sign-extends from bit loc.BitSize-1.
func GetSigned(buf []byte, loc Location) int32 {
	v := getElement(buf, loc, 0)
	return signExtend(v, loc.BitSize)
}

// GetUnsignedAt reads the idx'th element of a multi-count field (e.g. an
// Array item with Location.Count > 1).
func GetUnsignedAt(buf []byte, loc Location, idx uint32) uint32 {
	return getElement(buf, loc, idx)
}

// GetSignedAt is GetUnsignedAt with sign extension.
func GetSignedAt(buf []byte, loc Location, idx uint32) int32 {
	return signExtend(getElement(buf, loc, idx), loc.BitSize)
}

// PutUnsigned writes the low loc.BitSize bits of value at loc.BitPos,
// leaving the surrounding bits of buf unchanged. Writes past the end of buf
// are silently dropped (spec §4.2).
func PutUnsigned(buf []byte, loc Location, value uint32) {
	putElement(buf, loc, 0, value)
}

// PutUnsignedAt writes the idx'th element of a multi-count field.
func PutUnsignedAt(buf []byte, loc Location, idx uint32, value uint32) {
	putElement(buf, loc, idx, value)
}

func signExtend(v uint32, bitSize uint32) int32 {
	if bitSize == 0 || bitSize >= 32 {
		return int32(v)
	}
	signBit := uint32(1) << (bitSize - 1)
	if v&signBit != 0 {
		return int32(v | ^uint32(0)<<bitSize)
	}
	return int32(v)
}

func getElement(buf []byte, loc Location, idx uint32) uint32 {
	if loc.BitSize == 0 || loc.BitSize > 32 {
		return 0
	}
	if loc.Count > 0 {
		idx = Clamp(idx, 0, loc.Count-1)
	}
	bitPos := loc.BitPos + idx*loc.BitSize
	var v uint32
	for b := uint32(0); b < loc.BitSize; b++ {
		bit := bitPos + b
		byteIdx := bit / 8
		if int(byteIdx) >= len(buf) {
			break
		}
		if buf[byteIdx]&(1<<(bit%8)) != 0 {
			v |= 1 << b
		}
	}
	return v
}

func putElement(buf []byte, loc Location, idx uint32, value uint32) {
	if loc.BitSize == 0 || loc.BitSize > 32 {
		return
	}
	if loc.Count > 0 {
		idx = Clamp(idx, 0, loc.Count-1)
	}
	bitPos := loc.BitPos + idx*loc.BitSize
	for b := uint32(0); b < loc.BitSize; b++ {
		bit := bitPos + b
		byteIdx := bit / 8
		if int(byteIdx) >= len(buf) {
			return
		}
		mask := byte(1) << (bit % 8)
		if value&(1<<b) != 0 {
			buf[byteIdx] |= mask
		} else {
			buf[byteIdx] &^= mask
		}
	}
}
