// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type CommandType byte

const (
	TestUnitReady              CommandType = 0x00
	RequestSense               CommandType = 0x03
	Inquiry                    CommandType = 0x12
	ModeSelect6                CommandType = 0x15
	ModeSense6                 CommandType = 0x1a
	ModeSelect10               CommandType = 0x55
	ModeSense10                CommandType = 0x5a
	OperationCodeMaintenanceIn CommandType = 0xa3
)

// MAINTENANCE IN service actions
const (
	ServiceActionReportSupportedOperationCodes = byte(0x0c)
)

type DataDirection int

const (
	DataWrite = 1 + iota
	DataRead
	DataBidirection
)

type SenseBuffer struct {
	Buffer []byte
	Length uint32
}

type SCSIDataBuffer struct {
	Buffer         []byte
	Length         uint32
	TransferLength uint32
	Residual       uint32
}

type SCSICommand struct {
	OperationCode byte
	Direction     DataDirection
	// Data-in buffer, filled by the logical unit
	InSDBBuffer *SCSIDataBuffer
	// Data-out buffer, parameter list sent by the application client
	OutSDBBuffer *SCSIDataBuffer
	SCB          []byte
	Result       byte
	SenseBuffer  *SenseBuffer
}

// NewSCSICommand wraps a CDB, allocating a data-in buffer of the
// allocation length and attaching the data-out parameter list if any.
func NewSCSICommand(scb []byte, dataOut []byte, allocationLength uint32) *SCSICommand {
	command := &SCSICommand{
		SCB:         scb,
		InSDBBuffer: &SCSIDataBuffer{Buffer: make([]byte, allocationLength), Length: allocationLength},
	}
	if len(scb) > 0 {
		command.OperationCode = scb[0]
	}
	if dataOut != nil {
		command.Direction = DataWrite
		command.OutSDBBuffer = &SCSIDataBuffer{
			Buffer:         dataOut,
			Length:         uint32(len(dataOut)),
			TransferLength: uint32(len(dataOut)),
		}
	} else {
		command.Direction = DataRead
	}
	return command
}

// DataIn returns the part of the data-in buffer the logical unit transferred.
func (command *SCSICommand) DataIn() []byte {
	if command.InSDBBuffer == nil {
		return nil
	}
	length := command.InSDBBuffer.TransferLength
	if length > uint32(len(command.InSDBBuffer.Buffer)) {
		length = uint32(len(command.InSDBBuffer.Buffer))
	}
	return command.InSDBBuffer.Buffer[:length]
}

const (
	DefaultBlockShift uint = 9
)

const (
	SamStatGood                byte = 0x00
	SamStatCheckCondition      byte = 0x02
	SamStatBusy                byte = 0x08
	SamStatReservationConflict byte = 0x18
	SamStatTaskAborted         byte = 0x40
)

type SAMStat struct {
	Stat byte
	Err  error
}

var (
	SAMStatGood           = SAMStat{SamStatGood, nil}
	SAMStatCheckCondition = SAMStat{SamStatCheckCondition, errors.New("check condition")}
	SAMStatBusy           = SAMStat{SamStatBusy, errors.New("busy")}
)

// SCSIDeviceType is the peripheral device type reported by INQUIRY.
// It selects how mode header bits and block descriptors are read.
type SCSIDeviceType byte

const (
	TypeDisk                SCSIDeviceType = 0x00
	TypeTape                SCSIDeviceType = 0x01
	TypePrinter             SCSIDeviceType = 0x02
	TypeProcessor           SCSIDeviceType = 0x03
	TypeWriteOnce           SCSIDeviceType = 0x04
	TypeMultiMedia          SCSIDeviceType = 0x05
	TypeScanner             SCSIDeviceType = 0x06
	TypeOptical             SCSIDeviceType = 0x07
	TypeMediumChanger       SCSIDeviceType = 0x08
	TypeCommunications      SCSIDeviceType = 0x09
	TypeStorageArray        SCSIDeviceType = 0x0c
	TypeEnclosure           SCSIDeviceType = 0x0d
	TypeSimplifiedDisk      SCSIDeviceType = 0x0e
	TypeOpticalCard         SCSIDeviceType = 0x0f
	TypeObjectStorage       SCSIDeviceType = 0x11
	TypeAutomationInterface SCSIDeviceType = 0x12
	TypeHostManagedZoned    SCSIDeviceType = 0x14
	TypeWellKnownLu         SCSIDeviceType = 0x1e
	TypeUnknown             SCSIDeviceType = 0x1f
)

var deviceTypeNames = map[SCSIDeviceType]string{
	TypeDisk:                "Direct-Access",
	TypeTape:                "Sequential-Access",
	TypePrinter:             "Printer",
	TypeProcessor:           "Processor",
	TypeWriteOnce:           "Write-Once",
	TypeMultiMedia:          "MultiMedia",
	TypeScanner:             "Scanner",
	TypeOptical:             "Optical",
	TypeMediumChanger:       "Medium-Changer",
	TypeCommunications:      "Communications",
	TypeStorageArray:        "Storage-Array",
	TypeEnclosure:           "Enclosure-Services",
	TypeSimplifiedDisk:      "Simplified-Direct-Access",
	TypeOpticalCard:         "Optical-Card",
	TypeObjectStorage:       "Object-Storage",
	TypeAutomationInterface: "Automation-Drive-Interface",
	TypeHostManagedZoned:    "Host-Managed-Zoned",
	TypeWellKnownLu:         "Well-Known-LU",
	TypeUnknown:             "Unknown",
}

// short aliases accepted on the command line
var deviceTypeAliases = map[string]SCSIDeviceType{
	"disk":    TypeDisk,
	"sbc":     TypeDisk,
	"tape":    TypeTape,
	"ssc":     TypeTape,
	"printer": TypePrinter,
	"worm":    TypeWriteOnce,
	"cdrom":   TypeMultiMedia,
	"mmc":     TypeMultiMedia,
	"optical": TypeOptical,
	"zbc":     TypeHostManagedZoned,
}

func (deviceType SCSIDeviceType) String() string {
	name, ok := deviceTypeNames[deviceType]
	if !ok {
		return fmt.Sprintf("0x%02x", byte(deviceType))
	}
	return name
}

func (deviceType SCSIDeviceType) MarshalText() ([]byte, error) {
	return []byte(deviceType.String()), nil
}

func (deviceType *SCSIDeviceType) UnmarshalText(text []byte) error {
	parsed, err := ParseDeviceType(string(text))
	if err != nil {
		return err
	}
	*deviceType = parsed
	return nil
}

// isBlockDevice reports the types whose device-specific parameter
// carries WP and DPOFUA.
func (deviceType SCSIDeviceType) isBlockDevice() bool {
	switch deviceType {
	case TypeDisk, TypeWriteOnce, TypeOptical, TypeMultiMedia,
		TypeSimplifiedDisk, TypeHostManagedZoned:
		return true
	}
	return false
}

type ErrUnknownDeviceType struct {
	name string
}

func (err ErrUnknownDeviceType) Error() string {
	return fmt.Sprintf("unknown peripheral device type '%s'", err.name)
}

// ParseDeviceType accepts a type name, a short alias or a numeric code.
func ParseDeviceType(name string) (SCSIDeviceType, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if deviceType, ok := deviceTypeAliases[lowered]; ok {
		return deviceType, nil
	}
	for deviceType, typeName := range deviceTypeNames {
		if strings.ToLower(typeName) == lowered {
			return deviceType, nil
		}
	}
	code, err := strconv.ParseUint(lowered, 0, 8)
	if err != nil || code > 0x1f {
		return TypeUnknown, &ErrUnknownDeviceType{name: name}
	}
	return SCSIDeviceType(code), nil
}

func OperationCodeToString(commandType CommandType) string {
	types := map[CommandType]string{
		TestUnitReady:              "TestUnitReady",
		RequestSense:               "RequestSense",
		Inquiry:                    "Inquiry",
		ModeSelect6:                "ModeSelect6",
		ModeSense6:                 "ModeSense6",
		ModeSelect10:               "ModeSelect10",
		ModeSense10:                "ModeSense10",
		OperationCodeMaintenanceIn: "MaintenanceIn",
	}
	result, ok := types[commandType]
	if !ok {
		return fmt.Sprintf("0x%x", int(commandType))
	}
	return result
}
