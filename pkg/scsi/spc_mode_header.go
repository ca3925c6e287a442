// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"fmt"
	"strings"
)

// ModeForm selects the 6 or 10 byte variant of MODE SENSE and MODE SELECT.
type ModeForm int

const (
	ModeForm6  ModeForm = 6
	ModeForm10 ModeForm = 10
)

func (form ModeForm) String() string {
	return fmt.Sprintf("MODE(%d)", int(form))
}

type ErrUnknownModeForm struct {
	name string
}

func (err ErrUnknownModeForm) Error() string {
	return fmt.Sprintf("unknown mode command form '%s', expected 6 or 10", err.name)
}

// ParseModeForm accepts "6" and "10".
func ParseModeForm(name string) (ModeForm, error) {
	switch strings.TrimSpace(name) {
	case "6":
		return ModeForm6, nil
	case "10":
		return ModeForm10, nil
	}
	return 0, &ErrUnknownModeForm{name: name}
}

// UnmarshalJSON accepts the numbers 6 and 10 only.
func (form *ModeForm) UnmarshalJSON(data []byte) error {
	parsed, err := ParseModeForm(string(data))
	if err != nil {
		return err
	}
	*form = parsed
	return nil
}

func (form ModeForm) headerSize() int {
	if form == ModeForm10 {
		return modeHeader10Size
	}
	return modeHeader6Size
}

const (
	modeHeader6Size  = 4
	modeHeader10Size = 8

	shortBlockDescriptorSize = 8
	longBlockDescriptorSize  = 16

	// DEVICE-SPECIFIC PARAMETER bits
	writeProtectBitMask     = byte(0x80)
	dpofuaBitMask           = byte(0x10)
	bufferedModeBitMask     = byte(0x70)
	speedBitMask            = byte(0x0f)
	enableBlankCheckBitMask = byte(0x01)

	longLBABitMask = byte(0x01)
)

// BlockDescriptor is one mode parameter block descriptor.
type BlockDescriptor struct {
	// Not carried by direct access short descriptors nor long LBA descriptors
	Density uint8
	// 0 means all remaining blocks
	Blocks uint64
	// 0 means variable length blocks
	BlockLength uint32
}

// ModeHeader is the mode parameter header with its block descriptors.
// Which flags are populated depends on the peripheral device type.
type ModeHeader struct {
	MediumType     uint8
	WriteProtected bool
	DPOFUA         bool
	// Sequential access and printer devices
	BufferedMode uint8
	// Sequential access devices
	Speed uint8
	// Optical memory devices
	EnableBlankCheck bool
	// MODE(10) only, block descriptors are 16 bytes long
	LongLBA          bool
	BlockDescriptors []BlockDescriptor
}

// DecodeHeader6 decodes a MODE SENSE(6) header and block descriptors.
// It returns the number of bytes consumed, pages start right after.
func DecodeHeader6(buffer []byte, deviceType SCSIDeviceType) (ModeHeader, int, bool) {
	if len(buffer) < modeHeader6Size {
		return ModeHeader{}, 0, false
	}
	header := ModeHeader{MediumType: buffer[1]}
	header.decodeDeviceSpecificParameter(buffer[2], deviceType)
	descriptors, consumed := decodeBlockDescriptors(
		buffer[modeHeader6Size:],
		int(buffer[3]),
		deviceType,
		ModeForm6,
		false,
	)
	header.BlockDescriptors = descriptors
	return header, modeHeader6Size + consumed, true
}

// DecodeHeader10 decodes a MODE SENSE(10) header and block descriptors.
func DecodeHeader10(buffer []byte, deviceType SCSIDeviceType) (ModeHeader, int, bool) {
	if len(buffer) < modeHeader10Size {
		return ModeHeader{}, 0, false
	}
	header := ModeHeader{
		MediumType: buffer[2],
		LongLBA:    bitIsSet(buffer, 4, longLBABitMask),
	}
	header.decodeDeviceSpecificParameter(buffer[3], deviceType)
	descriptors, consumed := decodeBlockDescriptors(
		buffer[modeHeader10Size:],
		int(beUint16(buffer, 6)),
		deviceType,
		ModeForm10,
		header.LongLBA,
	)
	header.BlockDescriptors = descriptors
	return header, modeHeader10Size + consumed, true
}

// DecodeHeader dispatches to DecodeHeader6 or DecodeHeader10.
func DecodeHeader(buffer []byte, deviceType SCSIDeviceType, form ModeForm) (ModeHeader, int, bool) {
	if form == ModeForm10 {
		return DecodeHeader10(buffer, deviceType)
	}
	return DecodeHeader6(buffer, deviceType)
}

func (header *ModeHeader) decodeDeviceSpecificParameter(parameter byte, deviceType SCSIDeviceType) {
	buffer := []byte{parameter}
	switch {
	case deviceType == TypeTape:
		header.WriteProtected = bitIsSet(buffer, 0, writeProtectBitMask)
		header.BufferedMode = bitField(buffer, 0, bufferedModeBitMask)
		header.Speed = bitField(buffer, 0, speedBitMask)
	case deviceType == TypePrinter:
		header.BufferedMode = bitField(buffer, 0, bufferedModeBitMask)
	case deviceType.isBlockDevice():
		header.WriteProtected = bitIsSet(buffer, 0, writeProtectBitMask)
		header.DPOFUA = bitIsSet(buffer, 0, dpofuaBitMask)
		if deviceType == TypeOptical {
			header.EnableBlankCheck = bitIsSet(buffer, 0, enableBlankCheckBitMask)
		}
	}
}

func (header ModeHeader) encodeDeviceSpecificParameter(deviceType SCSIDeviceType) byte {
	buffer := []byte{0}
	switch {
	case deviceType == TypeTape:
		setBit(buffer, 0, writeProtectBitMask, header.WriteProtected)
		setBitField(buffer, 0, bufferedModeBitMask, header.BufferedMode)
		setBitField(buffer, 0, speedBitMask, header.Speed)
	case deviceType == TypePrinter:
		setBitField(buffer, 0, bufferedModeBitMask, header.BufferedMode)
	case deviceType.isBlockDevice():
		setBit(buffer, 0, writeProtectBitMask, header.WriteProtected)
		setBit(buffer, 0, dpofuaBitMask, header.DPOFUA)
		if deviceType == TypeOptical {
			setBit(buffer, 0, enableBlankCheckBitMask, header.EnableBlankCheck)
		}
	}
	return buffer[0]
}

// directBlockCount reports the descriptor layout with a 32 bit block count
// and no density code. SBC defines it for direct access devices, MMC
// devices use it with MODE SENSE(6) only.
func directBlockCount(deviceType SCSIDeviceType, form ModeForm, longLBA bool) bool {
	if longLBA {
		return false
	}
	return deviceType == TypeDisk || (deviceType == TypeMultiMedia && form == ModeForm6)
}

func decodeBlockDescriptors(
	buffer []byte,
	declaredLength int,
	deviceType SCSIDeviceType,
	form ModeForm,
	longLBA bool,
) ([]BlockDescriptor, int) {
	available := declaredLength
	if available > len(buffer) {
		available = len(buffer)
	}
	stride := shortBlockDescriptorSize
	if longLBA {
		stride = longBlockDescriptorSize
	}
	var descriptors []BlockDescriptor
	for offset := 0; offset+stride <= available; offset += stride {
		entry := buffer[offset : offset+stride]
		var descriptor BlockDescriptor
		switch {
		case longLBA:
			descriptor.Blocks = beUint(entry, 0, 8)
			descriptor.BlockLength = beUint32(entry, 12)
		case directBlockCount(deviceType, form, longLBA):
			descriptor.Blocks = uint64(beUint32(entry, 0))
			descriptor.BlockLength = beUint24(entry, 5)
		default:
			descriptor.Density = entry[0]
			descriptor.Blocks = uint64(beUint24(entry, 1))
			descriptor.BlockLength = beUint24(entry, 5)
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, available
}

func encodeBlockDescriptors(
	descriptors []BlockDescriptor,
	deviceType SCSIDeviceType,
	form ModeForm,
	longLBA bool,
) []byte {
	stride := shortBlockDescriptorSize
	if longLBA {
		stride = longBlockDescriptorSize
	}
	data := make([]byte, len(descriptors)*stride)
	for index, descriptor := range descriptors {
		entry := data[index*stride : (index+1)*stride]
		switch {
		case longLBA:
			putBeUint(entry, 0, 8, descriptor.Blocks)
			putBeUint(entry, 12, 4, uint64(descriptor.BlockLength))
		case directBlockCount(deviceType, form, longLBA):
			putBeUint(entry, 0, 4, clampUint(descriptor.Blocks, 0xffffffff))
			putBeUint(entry, 5, 3, uint64(descriptor.BlockLength))
		default:
			entry[0] = descriptor.Density
			putBeUint(entry, 1, 3, clampUint(descriptor.Blocks, 0xffffff))
			putBeUint(entry, 5, 3, uint64(descriptor.BlockLength))
		}
	}
	return data
}

// EncodeHeader6 is the inverse of DecodeHeader6. MODE DATA LENGTH is
// left zero, as MODE SELECT requires.
func EncodeHeader6(header ModeHeader, deviceType SCSIDeviceType) ([]byte, error) {
	descriptors := encodeBlockDescriptors(header.BlockDescriptors, deviceType, ModeForm6, false)
	if len(descriptors) > 0xff {
		return nil, newErrModeDataTooLong(ModeForm6, "block descriptor length", len(descriptors), 0xff)
	}
	data := make([]byte, modeHeader6Size, modeHeader6Size+len(descriptors))
	data[1] = header.MediumType
	data[2] = header.encodeDeviceSpecificParameter(deviceType)
	data[3] = byte(len(descriptors))
	return append(data, descriptors...), nil
}

// EncodeHeader10 is the inverse of DecodeHeader10.
func EncodeHeader10(header ModeHeader, deviceType SCSIDeviceType) ([]byte, error) {
	descriptors := encodeBlockDescriptors(header.BlockDescriptors, deviceType, ModeForm10, header.LongLBA)
	if len(descriptors) > 0xffff {
		return nil, newErrModeDataTooLong(ModeForm10, "block descriptor length", len(descriptors), 0xffff)
	}
	data := make([]byte, modeHeader10Size, modeHeader10Size+len(descriptors))
	data[2] = header.MediumType
	data[3] = header.encodeDeviceSpecificParameter(deviceType)
	setBit(data, 4, longLBABitMask, header.LongLBA)
	putBeUint(data, 6, 2, uint64(len(descriptors)))
	return append(data, descriptors...), nil
}

// EncodeHeader dispatches to EncodeHeader6 or EncodeHeader10.
func EncodeHeader(header ModeHeader, deviceType SCSIDeviceType, form ModeForm) ([]byte, error) {
	if form == ModeForm10 {
		return EncodeHeader10(header, deviceType)
	}
	return EncodeHeader6(header, deviceType)
}

func clampUint(value uint64, maximum uint64) uint64 {
	if value > maximum {
		return maximum
	}
	return value
}
