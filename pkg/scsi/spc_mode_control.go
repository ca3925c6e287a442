// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "fmt"

const (
	controlPageCode = byte(0x0a)
	// SCSI-2 layout
	controlMinimumLength = 8
	// SPC layout, same page length from SPC-2 to SPC-5
	controlExtendedLength = 12

	controlExtensionSubPageCode = byte(0x01)
	controlExtensionLength      = 32
)

// ControlPage is the Control mode page (0Ah).
// The SPC tier reads bytes 2 to 5 again: bits that were reserved or
// obsolete in SCSI-2 got new meanings in later revisions.
//
// Reference : SPC5r19
// 7.5.8 - Control mode page
type ControlPage struct {
	ParametersSaveable bool
	// RLEC, report log exception condition
	ReportLogExceptionCondition bool
	QueueAlgorithmModifier      uint8
	// QErr
	QueueErrorManagement uint8
	// DQue, tagged queuing disabled
	DisableQueuing bool
	// EECA
	EnableExtendedContingentAllegiance bool
	// RAENP, UAAENP, EAENP
	ReadyAENPermission         bool
	UnitAttentionAENPermission bool
	ErrorAENPermission         bool
	ReadyAENHoldoffPeriod      uint16
	// nil for the 8 byte SCSI-2 page
	SPC *ControlPageSPC
}

// ControlPageSPC holds the interpretation of the 12 byte page.
type ControlPageSPC struct {
	// TST, task set type
	TaskSetType uint8
	// TMF_ONLY (SPC-3)
	AllowTaskManagementFunctionsOnly bool
	// DPICZ (SPC-5)
	DisableProtectionInformationCheckIfZero bool
	// D_SENSE (SPC-3)
	DescriptorFormatSense bool
	// GLTSD (SPC-1)
	GlobalLoggingTargetSaveDisable bool
	// NUAR (SPC-5)
	NoUnitAttentionOnRelease bool
	// RAC (SPC-1)
	ReportACheck bool
	// UA_INTLCK_CTRL (SPC-3)
	UnitAttentionInterlocksControl uint8
	// SWP (SPC-1)
	SoftwareWriteProtect bool
	// ATO
	ApplicationTagOwner bool
	// TAS
	TaskAbortedStatus bool
	// ATMPE
	ApplicationTagModePageEnabled bool
	// RWWP
	RejectWriteWithoutProtection bool
	// SBLP
	SupportsBlockLengthsPI         bool
	AutoloadMode                   uint8
	BusyTimeoutPeriod              uint16
	ExtendedSelfTestCompletionTime uint16
}

func decodeControlPage(data []byte) (*ControlPage, bool) {
	if !checkPageFrame(data, controlPageCode, false, 0, controlMinimumLength) {
		return nil, false
	}
	page := &ControlPage{
		ParametersSaveable:                 parametersSaveable(data),
		ReportLogExceptionCondition:        bitIsSet(data, 2, 0x01),
		QueueAlgorithmModifier:             bitField(data, 3, 0xf0),
		QueueErrorManagement:               bitField(data, 3, 0x06),
		DisableQueuing:                     bitIsSet(data, 3, 0x01),
		EnableExtendedContingentAllegiance: bitIsSet(data, 4, 0x80),
		ReadyAENPermission:                 bitIsSet(data, 4, 0x04),
		UnitAttentionAENPermission:         bitIsSet(data, 4, 0x02),
		ErrorAENPermission:                 bitIsSet(data, 4, 0x01),
		ReadyAENHoldoffPeriod:              beUint16(data, 6),
	}
	if len(data) >= controlExtendedLength {
		page.SPC = &ControlPageSPC{
			TaskSetType:                             bitField(data, 2, 0xe0),
			AllowTaskManagementFunctionsOnly:        bitIsSet(data, 2, 0x10),
			DisableProtectionInformationCheckIfZero: bitIsSet(data, 2, 0x08),
			DescriptorFormatSense:                   bitIsSet(data, 2, 0x04),
			GlobalLoggingTargetSaveDisable:          bitIsSet(data, 2, 0x02),
			NoUnitAttentionOnRelease:                bitIsSet(data, 3, 0x08),
			ReportACheck:                            bitIsSet(data, 4, 0x40),
			UnitAttentionInterlocksControl:          bitField(data, 4, 0x30),
			SoftwareWriteProtect:                    bitIsSet(data, 4, 0x08),
			ApplicationTagOwner:                     bitIsSet(data, 5, 0x80),
			TaskAbortedStatus:                       bitIsSet(data, 5, 0x40),
			ApplicationTagModePageEnabled:           bitIsSet(data, 5, 0x20),
			RejectWriteWithoutProtection:            bitIsSet(data, 5, 0x10),
			SupportsBlockLengthsPI:                  bitIsSet(data, 5, 0x08),
			AutoloadMode:                            bitField(data, 5, 0x07),
			BusyTimeoutPeriod:                       beUint16(data, 8),
			ExtendedSelfTestCompletionTime:          beUint16(data, 10),
		}
	}
	return page, true
}

func (page *ControlPage) Encode() []byte {
	length := controlMinimumLength
	if page.SPC != nil {
		length = controlExtendedLength
	}
	data := pageHeader(controlPageCode, 0, false, page.ParametersSaveable, length-page0HeaderSize)
	setBit(data, 2, 0x01, page.ReportLogExceptionCondition)
	setBitField(data, 3, 0xf0, page.QueueAlgorithmModifier)
	setBitField(data, 3, 0x06, page.QueueErrorManagement)
	setBit(data, 3, 0x01, page.DisableQueuing)
	setBit(data, 4, 0x80, page.EnableExtendedContingentAllegiance)
	setBit(data, 4, 0x04, page.ReadyAENPermission)
	setBit(data, 4, 0x02, page.UnitAttentionAENPermission)
	setBit(data, 4, 0x01, page.ErrorAENPermission)
	putBeUint(data, 6, 2, uint64(page.ReadyAENHoldoffPeriod))
	if spc := page.SPC; spc != nil {
		setBitField(data, 2, 0xe0, spc.TaskSetType)
		setBit(data, 2, 0x10, spc.AllowTaskManagementFunctionsOnly)
		setBit(data, 2, 0x08, spc.DisableProtectionInformationCheckIfZero)
		setBit(data, 2, 0x04, spc.DescriptorFormatSense)
		setBit(data, 2, 0x02, spc.GlobalLoggingTargetSaveDisable)
		setBit(data, 3, 0x08, spc.NoUnitAttentionOnRelease)
		setBit(data, 4, 0x40, spc.ReportACheck)
		setBitField(data, 4, 0x30, spc.UnitAttentionInterlocksControl)
		setBit(data, 4, 0x08, spc.SoftwareWriteProtect)
		setBit(data, 5, 0x80, spc.ApplicationTagOwner)
		setBit(data, 5, 0x40, spc.TaskAbortedStatus)
		setBit(data, 5, 0x20, spc.ApplicationTagModePageEnabled)
		setBit(data, 5, 0x10, spc.RejectWriteWithoutProtection)
		setBit(data, 5, 0x08, spc.SupportsBlockLengthsPI)
		setBitField(data, 5, 0x07, spc.AutoloadMode)
		putBeUint(data, 8, 2, uint64(spc.BusyTimeoutPeriod))
		putBeUint(data, 10, 2, uint64(spc.ExtendedSelfTestCompletionTime))
	}
	return data
}

func (page *ControlPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.flag("Report log exception condition", page.ReportLogExceptionCondition)
	renderer.value("Queue algorithm modifier", queueAlgorithmModifierName(page.QueueAlgorithmModifier))
	renderer.value("Queue error management", queueErrorManagementName(page.QueueErrorManagement))
	if page.SPC == nil {
		renderer.flag("Tagged queuing disabled", page.DisableQueuing)
		renderer.flag("Extended contingent allegiance enabled", page.EnableExtendedContingentAllegiance)
		renderer.flag("Ready AEN permission", page.ReadyAENPermission)
		renderer.flag("Unit attention AEN permission", page.UnitAttentionAENPermission)
		renderer.flag("Error AEN permission", page.ErrorAENPermission)
		renderer.number("Ready AEN holdoff period (ms)", uint64(page.ReadyAENHoldoffPeriod))
		return renderer.String()
	}
	spc := page.SPC
	renderer.value("Task set type", taskSetTypeName(spc.TaskSetType))
	renderer.flag("Task management functions only", spc.AllowTaskManagementFunctionsOnly)
	renderer.flag("Disable protection information check if zero", spc.DisableProtectionInformationCheckIfZero)
	renderer.flag("Descriptor format sense data", spc.DescriptorFormatSense)
	renderer.flag("Global logging target save disabled", spc.GlobalLoggingTargetSaveDisable)
	renderer.flag("No unit attention on release", spc.NoUnitAttentionOnRelease)
	renderer.flag("Report a check", spc.ReportACheck)
	renderer.value("Unit attention interlocks control", fmt.Sprintf("%d", spc.UnitAttentionInterlocksControl))
	renderer.flag("Software write protect", spc.SoftwareWriteProtect)
	renderer.flag("Application tag owner", spc.ApplicationTagOwner)
	renderer.flag("Task aborted status", spc.TaskAbortedStatus)
	renderer.flag("Application tag mode page enabled", spc.ApplicationTagModePageEnabled)
	renderer.flag("Reject write without protection", spc.RejectWriteWithoutProtection)
	renderer.flag("Supports block lengths and protection information", spc.SupportsBlockLengthsPI)
	renderer.value("Autoload mode", autoloadModeName(spc.AutoloadMode))
	if spc.BusyTimeoutPeriod == 0xffff {
		renderer.value("Busy timeout period", "unlimited")
	} else {
		renderer.value("Busy timeout period", fmt.Sprintf("%d ms", uint32(spc.BusyTimeoutPeriod)*100))
	}
	renderer.value("Extended self-test completion time", fmt.Sprintf("%d s", spc.ExtendedSelfTestCompletionTime))
	return renderer.String()
}

func (page *ControlPage) PageCode() uint8    { return controlPageCode }
func (page *ControlPage) SubPageCode() uint8 { return 0 }
func (page *ControlPage) Name() string       { return "Control" }
func (page *ControlPage) decodedPage()       {}

func queueAlgorithmModifierName(modifier uint8) string {
	switch modifier {
	case 0:
		return "0 (restricted reordering)"
	case 1:
		return "1 (unrestricted reordering allowed)"
	}
	if modifier >= 8 {
		return fmt.Sprintf("%d (vendor specific)", modifier)
	}
	return fmt.Sprintf("%d (reserved)", modifier)
}

func queueErrorManagementName(qErr uint8) string {
	switch qErr {
	case 0:
		return "0 (tasks continue after an error)"
	case 1:
		return "1 (all tasks aborted on error)"
	case 3:
		return "3 (tasks of the faulted nexus aborted)"
	}
	return fmt.Sprintf("%d (reserved)", qErr)
}

func taskSetTypeName(taskSetType uint8) string {
	switch taskSetType {
	case 0:
		return "0 (one task set for all I_T nexuses)"
	case 1:
		return "1 (separate task set per I_T nexus)"
	}
	return fmt.Sprintf("%d (reserved)", taskSetType)
}

func autoloadModeName(mode uint8) string {
	switch mode {
	case 0:
		return "0 (medium loaded for full access)"
	case 1:
		return "1 (medium loaded for medium auxiliary memory access only)"
	case 2:
		return "2 (medium not loaded)"
	}
	return fmt.Sprintf("%d (reserved)", mode)
}

// ControlExtensionPage is the Control Extension mode page (0Ah/01h).
//
// Reference : SPC5r19
// 7.5.9 - Control Extension mode page
type ControlExtensionPage struct {
	ParametersSaveable bool
	// DLC, device life control
	DeviceLifeControl bool
	// TCMOS, timestamp changeable by methods outside this standard
	TimestampChangeableOutside bool
	// SCSIP, SCSI precedence
	SCSIPrecedence bool
	// IALUAE, implicit asymmetric logical unit access enabled
	ImplicitALUAEnabled    bool
	InitialCommandPriority uint8
	MaximumSenseDataLength uint8
}

func decodeControlExtensionPage(data []byte) (*ControlExtensionPage, bool) {
	if !checkPageFrame(data, controlPageCode, true, controlExtensionSubPageCode, controlExtensionLength) {
		return nil, false
	}
	return &ControlExtensionPage{
		ParametersSaveable:         parametersSaveable(data),
		DeviceLifeControl:          bitIsSet(data, 4, 0x08),
		TimestampChangeableOutside: bitIsSet(data, 4, 0x04),
		SCSIPrecedence:             bitIsSet(data, 4, 0x02),
		ImplicitALUAEnabled:        bitIsSet(data, 4, 0x01),
		InitialCommandPriority:     bitField(data, 5, 0x0f),
		MaximumSenseDataLength:     data[6],
	}, true
}

func (page *ControlExtensionPage) Encode() []byte {
	data := pageHeader(
		controlPageCode,
		controlExtensionSubPageCode,
		true,
		page.ParametersSaveable,
		controlExtensionLength-subPageHeaderSize,
	)
	setBit(data, 4, 0x08, page.DeviceLifeControl)
	setBit(data, 4, 0x04, page.TimestampChangeableOutside)
	setBit(data, 4, 0x02, page.SCSIPrecedence)
	setBit(data, 4, 0x01, page.ImplicitALUAEnabled)
	setBitField(data, 5, 0x0f, page.InitialCommandPriority)
	data[6] = page.MaximumSenseDataLength
	return data
}

func (page *ControlExtensionPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.flag("Device life control", page.DeviceLifeControl)
	renderer.flag("Timestamp changeable by other methods", page.TimestampChangeableOutside)
	renderer.flag("SCSI precedence", page.SCSIPrecedence)
	renderer.flag("Implicit ALUA enabled", page.ImplicitALUAEnabled)
	renderer.number("Initial command priority", uint64(page.InitialCommandPriority))
	if page.MaximumSenseDataLength == 0 {
		renderer.value("Maximum sense data length", "no limit")
	} else {
		renderer.number("Maximum sense data length", uint64(page.MaximumSenseDataLength))
	}
	return renderer.String()
}

func (page *ControlExtensionPage) PageCode() uint8    { return controlPageCode }
func (page *ControlExtensionPage) SubPageCode() uint8 { return controlExtensionSubPageCode }
func (page *ControlExtensionPage) Name() string       { return "Control Extension" }
func (page *ControlExtensionPage) decodedPage()       {}
