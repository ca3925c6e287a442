// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"modecodec/pkg/logger"
)

const (
	reportAllReportingOption                 = byte(0x00)
	reportSingleReportingOption              = byte(0x01)
	reportSingleServiceActionReportingOption = byte(0x02)
	reportSingleReportingOptionAllowBoth     = byte(0x03)

	reportingOptionsBitMask               = byte(0x07)
	returnCommandTimeoutDescriptorBitMask = byte(0x80)
	serviceActionBitMask                  = byte(0x1f)

	// SUPPORT field of the one command parameter data
	commandNotSupported = byte(0x01)
	commandSupported    = byte(0x03)
)

var timeoutsDescriptor = []byte{
	// Descriptor length
	0x00, 0x0a,
	// Reserved
	0x00,
	// Command specific
	0x00,
	// Nominal command processing timeout
	0x00, 0x00, 0x00, 0x00,
	// Recommended command timeout
	0x00, 0x00, 0x00, 0x00,
}

type commandDescription struct {
	operationCode    CommandType
	serviceAction    byte
	hasServiceAction bool
	// CDB usage data, the bits the logical unit looks at
	usage []byte
}

// ordered by operation code, then service action
var commandDescriptions = []commandDescription{
	{
		operationCode: TestUnitReady,
		usage:         []byte{byte(TestUnitReady), 0x00, 0x00, 0x00, 0x00, 0x00},
	},
	{
		operationCode: RequestSense,
		usage:         []byte{byte(RequestSense), 0x00, 0x00, 0x00, 0xff, 0x00},
	},
	{
		operationCode: Inquiry,
		usage: []byte{
			byte(Inquiry),
			enableVitalProductDataBitMask,
			// page code
			0xff,
			// allocation length
			0xff, 0xff,
			0x00,
		},
	},
	{
		operationCode: ModeSelect6,
		usage: []byte{
			byte(ModeSelect6),
			pageFormatBitMask | savePagesBitMask,
			0x00, 0x00,
			// parameter list length
			0xff,
			0x00,
		},
	},
	{
		operationCode: ModeSense6,
		usage: []byte{
			byte(ModeSense6),
			disableBlockDescriptorsBitMask,
			pageControlBitMask | pageCodeBitMask,
			// subpage code
			0xff,
			// allocation length
			0xff,
			0x00,
		},
	},
	{
		operationCode: ModeSelect10,
		usage: []byte{
			byte(ModeSelect10),
			pageFormatBitMask | savePagesBitMask,
			0x00, 0x00, 0x00, 0x00, 0x00,
			// parameter list length
			0xff, 0xff,
			0x00,
		},
	},
	{
		operationCode: ModeSense10,
		usage: []byte{
			byte(ModeSense10),
			longLBAAcceptedBitMask | disableBlockDescriptorsBitMask,
			pageControlBitMask | pageCodeBitMask,
			// subpage code
			0xff,
			0x00, 0x00, 0x00,
			// allocation length
			0xff, 0xff,
			0x00,
		},
	},
	{
		operationCode:    OperationCodeMaintenanceIn,
		serviceAction:    ServiceActionReportSupportedOperationCodes,
		hasServiceAction: true,
		usage: []byte{
			byte(OperationCodeMaintenanceIn),
			serviceActionBitMask,
			reportingOptionsBitMask | returnCommandTimeoutDescriptorBitMask,
			// requested operation code
			0xff,
			// requested service action
			0xff, 0xff,
			// allocation length
			0xff, 0xff, 0xff, 0xff,
			0x00,
			0x00,
		},
	},
}

func findCommandDescription(operationCode CommandType, serviceAction byte) (commandDescription, bool) {
	for _, description := range commandDescriptions {
		if description.operationCode == operationCode && description.serviceAction == serviceAction {
			return description, true
		}
	}
	return commandDescription{}, false
}

func reportOpcodesAll(timeouts bool) []byte {
	flags := byte(0x00)
	if timeouts {
		// CTDP
		flags = 0x02
	}
	data := make([]byte, 4)
	for _, description := range commandDescriptions {
		currentFlags := flags
		if description.hasServiceAction {
			// SERVACTV
			currentFlags |= 0x01
		}
		data = append(
			data,
			byte(description.operationCode),
			// reserved
			0x00,
			// service action
			0x00, description.serviceAction,
			// reserved
			0x00,
			currentFlags,
			// command length
			0x00, byte(len(description.usage)),
		)
		if timeouts {
			data = append(data, timeoutsDescriptor...)
		}
	}
	putBeUint(data, 0, 4, uint64(len(data)-4))
	return data
}

func hasServiceActions(operationCode CommandType) bool {
	for _, description := range commandDescriptions {
		if description.operationCode == operationCode && description.hasServiceAction {
			return true
		}
	}
	return false
}

// reportSingleOpCode returns one command parameter data, or false when
// the CDB asks for a command the wrong way.
func reportSingleOpCode(scb []byte, reportingOptions byte, timeouts bool) ([]byte, bool) {
	operationCode := CommandType(scb[3])
	serviceAction := byte(0x00)
	switch reportingOptions {
	case reportSingleReportingOption:
		if hasServiceActions(operationCode) {
			return nil, false
		}
	case reportSingleServiceActionReportingOption:
		if !hasServiceActions(operationCode) {
			if _, ok := findCommandDescription(operationCode, 0x00); ok {
				return nil, false
			}
		}
		// every service action fits the low byte
		serviceAction = scb[5]
	case reportSingleReportingOptionAllowBoth:
		serviceAction = scb[5]
	}
	description, supported := findCommandDescription(operationCode, serviceAction)
	if !supported {
		return []byte{0x00, commandNotSupported, 0x00, 0x00}, true
	}
	secondByte := commandSupported
	if timeouts {
		// CTDP
		secondByte |= 0x80
	}
	response := []byte{0x00, secondByte, 0x00, byte(len(description.usage))}
	response = append(response, description.usage...)
	if timeouts {
		response = append(response, timeoutsDescriptor...)
	}
	return response, true
}

// SPCReportSupportedOperationCodes Implements SCSI REPORT SUPPORTED OPERATION CODES
// Reference : SPC4r11
// 6.23 - REPORT SUPPORTED OPERATION CODES
func SPCReportSupportedOperationCodes(command *SCSICommand) SAMStat {
	log := logger.GetLogger()
	if len(command.SCB) < 12 {
		BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
		return SAMStatCheckCondition
	}
	reportingOptions := command.SCB[2] & reportingOptionsBitMask
	timeouts := bitIsSet(command.SCB, 2, returnCommandTimeoutDescriptorBitMask)
	allocationLength := beUint32(command.SCB, 6)

	var response []byte
	switch reportingOptions {
	case reportAllReportingOption:
		log.Debugf("Service Action: report all")
		response = reportOpcodesAll(timeouts)
	case reportSingleReportingOption,
		reportSingleServiceActionReportingOption,
		reportSingleReportingOptionAllowBoth:
		var ok bool
		response, ok = reportSingleOpCode(command.SCB, reportingOptions, timeouts)
		if !ok {
			BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
			return SAMStatCheckCondition
		}
	default:
		log.Errorf("Unsupported reporting options %d", reportingOptions)
		BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
		return SAMStatCheckCondition
	}
	transferDataIn(command, response, allocationLength)
	return SAMStatGood
}

func spcMaintenanceIn(command *SCSICommand) SAMStat {
	if len(command.SCB) > 1 && command.SCB[1]&serviceActionBitMask == ServiceActionReportSupportedOperationCodes {
		return SPCReportSupportedOperationCodes(command)
	}
	BuildSenseData(command, IllegalRequest, AscInvalidFieldInCdb)
	return SAMStatCheckCondition
}
