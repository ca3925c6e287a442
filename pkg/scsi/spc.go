// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
// Package scsi
// SCSI primary command processing and mode parameter codec
package scsi

import (
	"fmt"
	"modecodec/pkg/logger"
	"strings"
)

// PageControl is the PC field of MODE SENSE.
type PageControl uint8

const (
	PageControlCurrent PageControl = iota
	PageControlChangeable
	PageControlDefault
	PageControlSaved
)

func (pageControl PageControl) String() string {
	switch pageControl {
	case PageControlCurrent:
		return "current"
	case PageControlChangeable:
		return "changeable"
	case PageControlDefault:
		return "default"
	}
	return "saved"
}

type ErrUnknownPageControl struct {
	name string
}

func (err ErrUnknownPageControl) Error() string {
	return fmt.Sprintf("unknown page control '%s'", err.name)
}

// ParsePageControl accepts the names String returns.
func ParsePageControl(name string) (PageControl, error) {
	for pageControl := PageControlCurrent; pageControl <= PageControlSaved; pageControl++ {
		if strings.EqualFold(name, pageControl.String()) {
			return pageControl, nil
		}
	}
	return 0, &ErrUnknownPageControl{name: name}
}

const (
	modeSense6CDBLength  = 6
	modeSense10CDBLength = 10

	disableBlockDescriptorsBitMask = byte(0x08)
	longLBAAcceptedBitMask         = byte(0x10)
	// last two bits of the page code byte
	pageControlBitMask = byte(0xc0)

	pageFormatBitMask = byte(0x10)
	savePagesBitMask  = byte(0x01)
)

func cdbLength(form ModeForm) int {
	if form == ModeForm10 {
		return modeSense10CDBLength
	}
	return modeSense6CDBLength
}

// ModeSenseCDB builds a MODE SENSE(6) or MODE SENSE(10) CDB. LLBAA only
// exists in the 10 byte form, the 6 byte form caps the allocation length
// at 255.
//
// Reference : SPC5r19
// 6.14 - MODE SENSE(6)
// 6.15 - MODE SENSE(10)
func ModeSenseCDB(
	form ModeForm,
	disableBlockDescriptors bool,
	longLBAAccepted bool,
	pageControl PageControl,
	pageCode uint8,
	subPageCode uint8,
	allocationLength uint16,
) []byte {
	cdb := make([]byte, cdbLength(form))
	setBit(cdb, 1, disableBlockDescriptorsBitMask, disableBlockDescriptors)
	setBitField(cdb, 2, pageControlBitMask, uint8(pageControl))
	setBitField(cdb, 2, pageCodeBitMask, pageCode)
	cdb[3] = subPageCode
	if form == ModeForm10 {
		cdb[0] = byte(ModeSense10)
		setBit(cdb, 1, longLBAAcceptedBitMask, longLBAAccepted)
		putBeUint(cdb, 7, 2, uint64(allocationLength))
		return cdb
	}
	cdb[0] = byte(ModeSense6)
	cdb[4] = byte(clampUint(uint64(allocationLength), 0xff))
	return cdb
}

// ModeSelectCDB builds a MODE SELECT(6) or MODE SELECT(10) CDB.
//
// Reference : SPC5r19
// 6.12 - MODE SELECT(6)
// 6.13 - MODE SELECT(10)
func ModeSelectCDB(form ModeForm, pageFormat bool, savePages bool, parameterListLength uint16) []byte {
	cdb := make([]byte, cdbLength(form))
	setBit(cdb, 1, pageFormatBitMask, pageFormat)
	setBit(cdb, 1, savePagesBitMask, savePages)
	if form == ModeForm10 {
		cdb[0] = byte(ModeSelect10)
		putBeUint(cdb, 7, 2, uint64(parameterListLength))
		return cdb
	}
	cdb[0] = byte(ModeSelect6)
	cdb[4] = byte(clampUint(uint64(parameterListLength), 0xff))
	return cdb
}

// transferDataIn copies as much of response as the allocation length and
// the data-in buffer allow and records the residual.
func transferDataIn(command *SCSICommand, response []byte, allocationLength uint32) {
	buffer := command.InSDBBuffer
	if buffer == nil {
		return
	}
	length := uint32(len(response))
	if length > allocationLength {
		length = allocationLength
	}
	if length > uint32(len(buffer.Buffer)) {
		length = uint32(len(buffer.Buffer))
	}
	copy(buffer.Buffer, response[:length])
	buffer.TransferLength = length
	buffer.Residual = allocationLength - length
}

// SPCTestUnit Implements SCSI TEST UNIT READY command
// The TEST UNIT READY command requests the device server to indicate whether the logical unit is ready.
// Reference : SPC4r11
// 6.47 - TEST UNIT READY
func SPCTestUnit(logicalUnit *LogicalUnit, command *SCSICommand) SAMStat {
	if logicalUnit.isOnline() {
		return SAMStatGood
	}
	BuildSenseData(command, NotReady, AscBecomingReady)
	return SAMStatCheckCondition
}

// SPCRequestSense Implements SCSI REQUEST SENSE command
// The REQUEST SENSE command requests the device server to
// return parameter data that contains sense data.
// Reference : SPC4r11
// 6.39 - REQUEST SENSE
func SPCRequestSense(command *SCSICommand) SAMStat {
	allocationLength := uint32(command.SCB[4])
	BuildSenseData(command, NoSense, NoAdditionalSense)
	transferDataIn(command, command.SenseBuffer.Buffer, allocationLength)
	// reset sense buffer in command
	command.SenseBuffer = &SenseBuffer{}
	command.Result = SamStatGood
	return SAMStatGood
}

// SPCModeSense6 Implement SCSI MODE SENSE(6)
// The MODE SENSE command requests the device server to return the specified medium,
// logical unit, or peripheral device parameters.
// Reference : SPC5r19
// 6.14 - MODE SENSE(6)
func SPCModeSense6(logicalUnit *LogicalUnit, command *SCSICommand) SAMStat {
	return spcModeSense(logicalUnit, command, ModeForm6)
}

// SPCModeSense10 Implement SCSI MODE SENSE(10)
// Reference : SPC5r19
// 6.15 - MODE SENSE(10)
func SPCModeSense10(logicalUnit *LogicalUnit, command *SCSICommand) SAMStat {
	return spcModeSense(logicalUnit, command, ModeForm10)
}

func spcModeSense(logicalUnit *LogicalUnit, command *SCSICommand, form ModeForm) SAMStat {
	log := logger.GetLogger()
	if len(command.SCB) < cdbLength(form) {
		BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
		return SAMStatCheckCondition
	}
	disableBlockDescriptors := bitIsSet(command.SCB, 1, disableBlockDescriptorsBitMask)
	longLBAAccepted := form == ModeForm10 && bitIsSet(command.SCB, 1, longLBAAcceptedBitMask)
	pageCode := command.SCB[2] & pageCodeBitMask
	pageControl := PageControl(bitField(command.SCB, 2, pageControlBitMask))
	subPageCode := command.SCB[3]
	allocationLength := uint32(command.SCB[4])
	if form == ModeForm10 {
		allocationLength = uint32(beUint16(command.SCB, 7))
	}

	if pageControl == PageControlSaved {
		BuildSenseData(command, IllegalRequest, AscSavingParmsUnsup)
		return SAMStatCheckCondition
	}
	mode, err := logicalUnit.senseMode(pageCode, subPageCode, pageControl, !disableBlockDescriptors, longLBAAccepted)
	if err != nil {
		log.Error(err)
		BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
		return SAMStatCheckCondition
	}
	response, err := AssembleModeSense(mode, logicalUnit.DeviceType, form)
	if err != nil {
		log.Error(err)
		BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
		return SAMStatCheckCondition
	}
	log.Debugf(
		"%s %s values of page 0x%02x/0x%02x: %d bytes, allocation length %d",
		form,
		pageControl,
		pageCode,
		subPageCode,
		len(response),
		allocationLength,
	)
	transferDataIn(command, response, allocationLength)
	return SAMStatGood
}

// SPCModeSelect6 Implements SCSI MODE SELECT(6)
// The MODE SELECT command provides a means for the application client to
// specify medium, logical unit, or peripheral device parameters to the device server.
// Reference : SPC5r19
// 6.12 - MODE SELECT(6)
func SPCModeSelect6(logicalUnit *LogicalUnit, command *SCSICommand) SAMStat {
	return spcModeSelect(logicalUnit, command, ModeForm6)
}

// SPCModeSelect10 Implements SCSI MODE SELECT(10)
// Reference : SPC5r19
// 6.13 - MODE SELECT(10)
func SPCModeSelect10(logicalUnit *LogicalUnit, command *SCSICommand) SAMStat {
	return spcModeSelect(logicalUnit, command, ModeForm10)
}

func spcModeSelect(logicalUnit *LogicalUnit, command *SCSICommand, form ModeForm) SAMStat {
	log := logger.GetLogger()
	if len(command.SCB) < cdbLength(form) {
		BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
		return SAMStatCheckCondition
	}
	// saving is not supported and only the page format is understood
	if bitIsSet(command.SCB, 1, savePagesBitMask) || !bitIsSet(command.SCB, 1, pageFormatBitMask) {
		BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
		return SAMStatCheckCondition
	}
	parameterListLength := uint32(command.SCB[4])
	if form == ModeForm10 {
		parameterListLength = uint32(beUint16(command.SCB, 7))
	}
	if parameterListLength == 0 {
		return SAMStatGood
	}
	if command.OutSDBBuffer == nil || uint32(len(command.OutSDBBuffer.Buffer)) < parameterListLength {
		log.Warnf("%s parameter list length %d exceeds the data-out buffer", form, parameterListLength)
		BuildSenseData(command, IllegalRequest, AscParameterListLengthError)
		return SAMStatCheckCondition
	}
	mode, err := DecodeMode(command.OutSDBBuffer.Buffer[:parameterListLength], logicalUnit.DeviceType, form)
	if err != nil {
		log.Warn(err)
		BuildSenseData(command, IllegalRequest, AscParameterListLengthError)
		return SAMStatCheckCondition
	}
	if err := logicalUnit.selectMode(mode); err != nil {
		log.Warn(err)
		BuildSenseData(command, IllegalRequest, AscInvalidFieldInParameterList)
		return SAMStatCheckCondition
	}
	return SAMStatGood
}
