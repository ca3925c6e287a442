// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"bytes"
	"fmt"
)

const (
	fixedSenseResponseCode = byte(0x70)
	senseKeyBitMask        = byte(0x0f)
	fixedSenseLength       = 18
)

func BuildSenseData(command *SCSICommand, key byte, asc AdditionalSenseCode) {
	senseBuffer := &bytes.Buffer{}
	length := uint32(0xa)
	// fixed format
	// current, not deferred
	senseBuffer.WriteByte(fixedSenseResponseCode)
	senseBuffer.WriteByte(0x00)
	senseBuffer.WriteByte(key)
	for i := 0; i < 4; i++ {
		senseBuffer.WriteByte(0x00)
	}
	senseBuffer.WriteByte(byte(length))
	for i := 0; i < 4; i++ {
		senseBuffer.WriteByte(0x00)
	}
	senseBuffer.WriteByte(byte(asc>>8) & 0xff)
	senseBuffer.WriteByte(byte(asc) & 0xff)
	for i := 0; i < 4; i++ {
		senseBuffer.WriteByte(0x00)
	}
	length += 8
	command.Result = SamStatCheckCondition
	command.SenseBuffer = &SenseBuffer{senseBuffer.Bytes(), length}
}

// Key returns the SENSE KEY of fixed format sense data.
func (sense *SenseBuffer) Key() byte {
	if sense == nil || len(sense.Buffer) < 3 {
		return NoSense
	}
	return sense.Buffer[2] & senseKeyBitMask
}

// AdditionalSenseCode returns ASC and ASCQ of fixed format sense data.
func (sense *SenseBuffer) AdditionalSenseCode() AdditionalSenseCode {
	if sense == nil || len(sense.Buffer) < fixedSenseLength {
		return NoAdditionalSense
	}
	return AdditionalSenseCode(beUint16(sense.Buffer, 12))
}

func (sense *SenseBuffer) String() string {
	return fmt.Sprintf("%s, %s", senseKeyName(sense.Key()), sense.AdditionalSenseCode())
}

var senseKeyNames = map[byte]string{
	NoSense:        "NO SENSE",
	NotReady:       "NOT READY",
	MediumError:    "MEDIUM ERROR",
	IllegalRequest: "ILLEGAL REQUEST",
	UnitAttention:  "UNIT ATTENTION",
}

func senseKeyName(key byte) string {
	if name, ok := senseKeyNames[key]; ok {
		return name
	}
	return fmt.Sprintf("sense key 0x%x", key)
}
