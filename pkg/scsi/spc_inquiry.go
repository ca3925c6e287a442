// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"fmt"
)

/*
 * Table 177 - PERIPHERAL QUALIFIER field
 * 000b - A peripheral device having the indicated peripheral
 * 	device type is connected to this logical unit.
 * 001b - A peripheral device having the indicated peripheral device type
 * 	is not connected to this logical unit. However, the device server is capable of
 *	supporting the indicated peripheral device type on this logical unit.
 */
const (
	PeripheralQualifierDeviceConnected  = byte(0x00)
	PeripheralQualifierDeviceNotConnect = byte(0x01 << 5)
)

const (
	inquiryVersionSpc4    = byte(0x06)
	inquiryHisup          = byte(0x10)
	inquiryStandardFormat = byte(0x02)
	inquiryCmdque         = byte(0x02)

	enableVitalProductDataBitMask = byte(0x01)
	standardInquiryLength         = 36
)

const (
	supportedVpdPagesVpdPageCode          = byte(0x00)
	unitSerialNumberVpdPageCode           = byte(0x80)
	blockDeviceCharacteristicsVpdPageCode = byte(0xb1)
)

func (logicalUnit *LogicalUnit) peripheralByte() byte {
	peripheralQualifier := PeripheralQualifierDeviceConnected
	if !logicalUnit.Online {
		peripheralQualifier = PeripheralQualifierDeviceNotConnect
	}
	return peripheralQualifier | byte(logicalUnit.DeviceType)
}

func (logicalUnit *LogicalUnit) vpdPageCodes() []byte {
	codes := []byte{supportedVpdPagesVpdPageCode, unitSerialNumberVpdPageCode}
	if containsDeviceType(diskDeviceTypes, logicalUnit.DeviceType) {
		codes = append(codes, blockDeviceCharacteristicsVpdPageCode)
	}
	return codes
}

func vpdPage(logicalUnit *LogicalUnit, pageCode byte, payload []byte) []byte {
	page := []byte{logicalUnit.peripheralByte(), pageCode, 0x00, 0x00}
	putBeUint(page, 2, 2, uint64(len(payload)))
	return append(page, payload...)
}

func supportedVpdPagesVpdPage(logicalUnit *LogicalUnit) []byte {
	return vpdPage(logicalUnit, supportedVpdPagesVpdPageCode, logicalUnit.vpdPageCodes())
}

func unitSerialNumberVpdPage(logicalUnit *LogicalUnit) []byte {
	serialNumber := []byte(fmt.Sprintf("modecodec-%-36v", logicalUnit.UUID))
	return vpdPage(logicalUnit, unitSerialNumberVpdPageCode, serialNumber)
}

// blockDeviceCharacteristicsVpdPage reports the same non-rotating medium
// as the rigid disk geometry mode page.
func blockDeviceCharacteristicsVpdPage(logicalUnit *LogicalUnit) []byte {
	payload := make([]byte, 0x3c)
	// medium rotation rate
	putBeUint(payload, 0, 2, 1)
	return vpdPage(logicalUnit, blockDeviceCharacteristicsVpdPageCode, payload)
}

func standardInquiryData(logicalUnit *LogicalUnit) []byte {
	data := []byte{
		logicalUnit.peripheralByte(),
		// RMB
		0x00,
		inquiryVersionSpc4,
		inquiryHisup | inquiryStandardFormat,
		// additional length
		standardInquiryLength - 5,
		0x00,
		0x00,
		inquiryCmdque,
	}
	data = append(data, fmt.Sprintf("%-8.8s", logicalUnit.VendorID)...)
	data = append(data, fmt.Sprintf("%-16.16s", logicalUnit.ProductID)...)
	data = append(data, fmt.Sprintf("%-4.4s", logicalUnit.ProductRevision)...)
	return data
}

// SPCInquiry Implements SCSI Inquiry command
// The Inquiry command requests the device server to return information
// regarding the logical unit and SCSI target device.
// Reference : SPC4r11
// 6.6 - Inquiry
func SPCInquiry(logicalUnit *LogicalUnit, command *SCSICommand) SAMStat {
	if len(command.SCB) < 6 {
		BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
		return SAMStatCheckCondition
	}
	pageCode := command.SCB[2]
	allocationLength := uint32(beUint16(command.SCB, 3))
	logicalUnit.mutex.RLock()
	defer logicalUnit.mutex.RUnlock()

	var data []byte
	if bitIsSet(command.SCB, 1, enableVitalProductDataBitMask) {
		switch pageCode {
		case supportedVpdPagesVpdPageCode:
			data = supportedVpdPagesVpdPage(logicalUnit)
		case unitSerialNumberVpdPageCode:
			data = unitSerialNumberVpdPage(logicalUnit)
		case blockDeviceCharacteristicsVpdPageCode:
			if !containsDeviceType(diskDeviceTypes, logicalUnit.DeviceType) {
				BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
				return SAMStatCheckCondition
			}
			data = blockDeviceCharacteristicsVpdPage(logicalUnit)
		default:
			BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
			return SAMStatCheckCondition
		}
	} else {
		if pageCode != 0 {
			BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
			return SAMStatCheckCondition
		}
		data = standardInquiryData(logicalUnit)
	}
	transferDataIn(command, data, allocationLength)
	return SAMStatGood
}
