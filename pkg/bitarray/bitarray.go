// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bitarray addresses individual bits of byte buffers.
//
// All packages share one packing convention: bit i of a buffer is stored in
// byte i/8, most significant bit first. Rule masks, table indices and packets
// are all addressed through Locate so the convention cannot drift between the
// code that builds tables and the code that reads packets.
package bitarray

import "math/bits"

// Locate returns the byte index and the in-byte mask of the given bit.
func Locate(bit uint64) (uint64, byte) {
	return bit / 8, 0x80 >> (bit % 8)
}

// BytesFor returns the number of bytes needed to store the given number of
// bits.
func BytesFor(nbits uint64) uint64 {
	return (nbits + 7) / 8
}

// Get reports whether the bit is set.
func Get(buf []byte, bit uint64) bool {
	i, m := Locate(bit)
	return buf[i]&m != 0
}

// Set sets the bit.
func Set(buf []byte, bit uint64) {
	i, m := Locate(bit)
	buf[i] |= m
}

// Clear clears the bit.
func Clear(buf []byte, bit uint64) {
	i, m := Locate(bit)
	buf[i] &^= m
}

// SetTo sets or clears the bit depending on v.
func SetTo(buf []byte, bit uint64, v bool) {
	if v {
		Set(buf, bit)
		return
	}
	Clear(buf, bit)
}

// Extract returns the width bits starting at offset as an integer. The bit at
// offset becomes the most significant bit of the result. Width must not exceed
// 64 and the range must lie within buf.
func Extract(buf []byte, offset, width uint64) uint64 {
	var v uint64
	for width > 0 {
		inByte := offset % 8
		n := 8 - inByte
		if n > width {
			n = width
		}
		chunk := uint64(buf[offset/8]>>(8-inByte-n)) & (1<<n - 1)
		v = v<<n | chunk
		offset += n
		width -= n
	}
	return v
}

// And stores dst AND src in dst. Both buffers must have the same length.
func And(dst, src []byte) {
	src = src[:len(dst)]
	for i := range dst {
		dst[i] &= src[i]
	}
}

// FirstSet returns the index of the lowest set bit.
func FirstSet(buf []byte) (uint64, bool) {
	for i, b := range buf {
		if b != 0 {
			return uint64(i)*8 + uint64(bits.LeadingZeros8(b)), true
		}
	}
	return 0, false
}
