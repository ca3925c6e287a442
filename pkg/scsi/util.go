// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

// bitIsSet reports whether any bit of mask is set in buffer[byteOffset].
// Out of range offsets read as false, callers validate minimum lengths first.
func bitIsSet(buffer []byte, byteOffset int, bitMask byte) bool {
	if byteOffset < 0 || byteOffset >= len(buffer) {
		return false
	}
	return buffer[byteOffset]&bitMask != 0
}

// beUint reads a big endian unsigned integer of width bytes (1 to 8).
func beUint(buffer []byte, byteOffset int, width int) uint64 {
	if width < 1 || width > 8 || byteOffset < 0 || byteOffset+width > len(buffer) {
		return 0
	}
	value := uint64(0)
	for _, b := range buffer[byteOffset : byteOffset+width] {
		value = value<<8 | uint64(b)
	}
	return value
}

func beUint16(buffer []byte, byteOffset int) uint16 {
	return uint16(beUint(buffer, byteOffset, 2))
}

func beUint24(buffer []byte, byteOffset int) uint32 {
	return uint32(beUint(buffer, byteOffset, 3))
}

func beUint32(buffer []byte, byteOffset int) uint32 {
	return uint32(beUint(buffer, byteOffset, 4))
}

func beSigned8(buffer []byte, byteOffset int) int8 {
	if byteOffset < 0 || byteOffset >= len(buffer) {
		return 0
	}
	return int8(buffer[byteOffset])
}

// bitField extracts the value under mask, shifted down to bit 0.
func bitField(buffer []byte, byteOffset int, mask byte) uint8 {
	if byteOffset < 0 || byteOffset >= len(buffer) || mask == 0 {
		return 0
	}
	value := buffer[byteOffset] & mask
	for mask&0x01 == 0 {
		mask >>= 1
		value >>= 1
	}
	return value
}

// putBeUint writes the low width bytes of value, big endian.
// Writes that do not fit the buffer are dropped.
func putBeUint(buffer []byte, byteOffset int, width int, value uint64) {
	if width < 1 || width > 8 || byteOffset < 0 || byteOffset+width > len(buffer) {
		return
	}
	for i := width - 1; i >= 0; i-- {
		buffer[byteOffset+i] = byte(value)
		value >>= 8
	}
}

func setBit(buffer []byte, byteOffset int, bitMask byte, on bool) {
	if !on || byteOffset < 0 || byteOffset >= len(buffer) {
		return
	}
	buffer[byteOffset] |= bitMask
}

func setBitField(buffer []byte, byteOffset int, mask byte, value uint8) {
	if byteOffset < 0 || byteOffset >= len(buffer) || mask == 0 {
		return
	}
	shift := 0
	for (mask>>shift)&0x01 == 0 {
		shift++
	}
	buffer[byteOffset] = buffer[byteOffset]&^mask | (value<<shift)&mask
}
