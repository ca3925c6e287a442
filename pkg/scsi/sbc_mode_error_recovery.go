// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "fmt"

const (
	readWriteErrorRecoveryPageCode = byte(0x01)
	// SCSI-2 layout
	readWriteErrorRecoveryMinimumLength = 8
	readWriteErrorRecoveryLength        = 12

	verifyErrorRecoveryPageCode = byte(0x07)
	verifyErrorRecoveryLength   = 12

	// TB, RC, PER, DTE and DCR as one value
	errorRecoveryParameterMask = byte(0x37)
)

// ReadWriteErrorRecoveryPage is the Read-Write Error Recovery mode page
// (01h).
//
// Reference : SBC4r15
// 6.5.10 - Read-Write Error Recovery mode page
type ReadWriteErrorRecoveryPage struct {
	ParametersSaveable bool
	// AWRE, ARRE
	AutomaticWriteReallocation bool
	AutomaticReadReallocation  bool
	// TB, transfer block
	TransferBlock bool
	// RC, read continuous
	ReadContinuous bool
	// EER, enable early recovery
	EnableEarlyRecovery bool
	// PER, post error
	PostError bool
	// DTE, data terminate on error
	DataTerminateOnError bool
	// DCR, disable correction
	DisableCorrection bool
	ReadRetryCount    uint8
	CorrectionSpan    uint8
	// SCSI-2, obsolete since
	HeadOffsetCount       int8
	DataStrobeOffsetCount int8
	// nil for the 8 byte SCSI-2 page
	Extension *ReadWriteErrorRecoveryExtension
}

// ReadWriteErrorRecoveryExtension holds bytes 7 to 11 of the 12 byte page.
type ReadWriteErrorRecoveryExtension struct {
	// LBPERE, logical block provisioning error reporting enabled
	LogicalBlockProvisioningErrorReporting bool
	WriteRetryCount                        uint8
	// milliseconds
	RecoveryTimeLimit uint16
}

func decodeReadWriteErrorRecoveryPage(data []byte) (*ReadWriteErrorRecoveryPage, bool) {
	if !checkPageFrame(data, readWriteErrorRecoveryPageCode, false, 0, readWriteErrorRecoveryMinimumLength) {
		return nil, false
	}
	page := &ReadWriteErrorRecoveryPage{
		ParametersSaveable:         parametersSaveable(data),
		AutomaticWriteReallocation: bitIsSet(data, 2, 0x80),
		AutomaticReadReallocation:  bitIsSet(data, 2, 0x40),
		TransferBlock:              bitIsSet(data, 2, 0x20),
		ReadContinuous:             bitIsSet(data, 2, 0x10),
		EnableEarlyRecovery:        bitIsSet(data, 2, 0x08),
		PostError:                  bitIsSet(data, 2, 0x04),
		DataTerminateOnError:       bitIsSet(data, 2, 0x02),
		DisableCorrection:          bitIsSet(data, 2, 0x01),
		ReadRetryCount:             data[3],
		CorrectionSpan:             data[4],
		HeadOffsetCount:            beSigned8(data, 5),
		DataStrobeOffsetCount:      beSigned8(data, 6),
	}
	if len(data) >= readWriteErrorRecoveryLength {
		page.Extension = &ReadWriteErrorRecoveryExtension{
			LogicalBlockProvisioningErrorReporting: bitIsSet(data, 7, 0x80),
			WriteRetryCount:                        data[8],
			RecoveryTimeLimit:                      beUint16(data, 10),
		}
	}
	return page, true
}

func (page *ReadWriteErrorRecoveryPage) Encode() []byte {
	length := readWriteErrorRecoveryMinimumLength
	if page.Extension != nil {
		length = readWriteErrorRecoveryLength
	}
	data := pageHeader(readWriteErrorRecoveryPageCode, 0, false, page.ParametersSaveable, length-page0HeaderSize)
	setBit(data, 2, 0x80, page.AutomaticWriteReallocation)
	setBit(data, 2, 0x40, page.AutomaticReadReallocation)
	setBit(data, 2, 0x20, page.TransferBlock)
	setBit(data, 2, 0x10, page.ReadContinuous)
	setBit(data, 2, 0x08, page.EnableEarlyRecovery)
	setBit(data, 2, 0x04, page.PostError)
	setBit(data, 2, 0x02, page.DataTerminateOnError)
	setBit(data, 2, 0x01, page.DisableCorrection)
	data[3] = page.ReadRetryCount
	data[4] = page.CorrectionSpan
	data[5] = byte(page.HeadOffsetCount)
	data[6] = byte(page.DataStrobeOffsetCount)
	if extension := page.Extension; extension != nil {
		setBit(data, 7, 0x80, extension.LogicalBlockProvisioningErrorReporting)
		data[8] = extension.WriteRetryCount
		putBeUint(data, 10, 2, uint64(extension.RecoveryTimeLimit))
	}
	return data
}

// ErrorRecoveryParameter returns byte 2 restricted to the bits MMC
// devices interpret as a single error recovery parameter.
func (page *ReadWriteErrorRecoveryPage) ErrorRecoveryParameter() uint8 {
	return page.Encode()[2] & errorRecoveryParameterMask
}

func (page *ReadWriteErrorRecoveryPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.flag("Automatic write reallocation", page.AutomaticWriteReallocation)
	renderer.flag("Automatic read reallocation", page.AutomaticReadReallocation)
	renderer.flag("Transfer block", page.TransferBlock)
	renderer.flag("Read continuous", page.ReadContinuous)
	renderer.flag("Enable early recovery", page.EnableEarlyRecovery)
	renderer.flag("Post error", page.PostError)
	renderer.flag("Data terminate on error", page.DataTerminateOnError)
	renderer.flag("Disable correction", page.DisableCorrection)
	parameter := page.ErrorRecoveryParameter()
	renderer.value(
		"MMC error recovery parameter",
		fmt.Sprintf("0x%02x, %s", parameter, errorRecoveryParameterDescription(parameter)),
	)
	renderer.number("Read retry count", uint64(page.ReadRetryCount))
	renderer.number("Correction span", uint64(page.CorrectionSpan))
	renderer.value("Head offset count", fmt.Sprintf("%d", page.HeadOffsetCount))
	renderer.value("Data strobe offset count", fmt.Sprintf("%d", page.DataStrobeOffsetCount))
	if extension := page.Extension; extension != nil {
		renderer.flag("Logical block provisioning error reporting", extension.LogicalBlockProvisioningErrorReporting)
		renderer.number("Write retry count", uint64(extension.WriteRetryCount))
		renderer.value("Recovery time limit", fmt.Sprintf("%d ms", extension.RecoveryTimeLimit))
	}
	return renderer.String()
}

func (page *ReadWriteErrorRecoveryPage) PageCode() uint8    { return readWriteErrorRecoveryPageCode }
func (page *ReadWriteErrorRecoveryPage) SubPageCode() uint8 { return 0 }
func (page *ReadWriteErrorRecoveryPage) Name() string       { return "Read-Write Error Recovery" }
func (page *ReadWriteErrorRecoveryPage) decodedPage()       {}

// MMC6r02 Table 637 - Error Recovery Parameter descriptions.
// Values missing from the table are undefined.
var errorRecoveryParameterDescriptions = map[uint8]string{
	0x00: "maximum recovery, unrecovered errors end the transfer",
	0x01: "retries only, no error correction",
	0x04: "maximum recovery, recovered errors reported",
	0x05: "retries only, recovered errors reported",
	0x06: "maximum recovery, transfer stops on recovered errors",
	0x07: "retries only, transfer stops on recovered errors",
	0x10: "no delay for recovery, unrecovered errors end the transfer",
	0x11: "retries only without delay, unrecovered errors end the transfer",
	0x14: "no delay for recovery, recovered errors reported",
	0x15: "retries only without delay, recovered errors reported",
	0x20: "maximum recovery, unrecovered block transferred",
	0x21: "retries only, unrecovered block transferred",
	0x24: "maximum recovery, recovered errors reported, unrecovered block transferred",
	0x25: "retries only, recovered errors reported, unrecovered block transferred",
	0x26: "maximum recovery, transfer stops on recovered errors, unrecovered block transferred",
	0x27: "retries only, transfer stops on recovered errors, unrecovered block transferred",
	0x30: "no delay for recovery, unrecovered block transferred",
	0x31: "retries only without delay, unrecovered block transferred",
	0x34: "no delay for recovery, recovered errors reported, unrecovered block transferred",
	0x35: "retries only without delay, recovered errors reported, unrecovered block transferred",
}

func errorRecoveryParameterDescription(parameter uint8) string {
	if description, ok := errorRecoveryParameterDescriptions[parameter]; ok {
		return description
	}
	return "unknown"
}

// VerifyErrorRecoveryPage is the Verify Error Recovery mode page (07h).
//
// Reference : SBC4r15
// 6.5.13 - Verify Error Recovery mode page
type VerifyErrorRecoveryPage struct {
	ParametersSaveable   bool
	EnableEarlyRecovery  bool
	PostError            bool
	DataTerminateOnError bool
	DisableCorrection    bool
	VerifyRetryCount     uint8
	// obsolete in SBC-3
	VerifyCorrectionSpan uint8
	// milliseconds
	VerifyRecoveryTimeLimit uint16
}

func decodeVerifyErrorRecoveryPage(data []byte) (*VerifyErrorRecoveryPage, bool) {
	if !checkPageFrame(data, verifyErrorRecoveryPageCode, false, 0, verifyErrorRecoveryLength) {
		return nil, false
	}
	return &VerifyErrorRecoveryPage{
		ParametersSaveable:      parametersSaveable(data),
		EnableEarlyRecovery:     bitIsSet(data, 2, 0x08),
		PostError:               bitIsSet(data, 2, 0x04),
		DataTerminateOnError:    bitIsSet(data, 2, 0x02),
		DisableCorrection:       bitIsSet(data, 2, 0x01),
		VerifyRetryCount:        data[3],
		VerifyCorrectionSpan:    data[4],
		VerifyRecoveryTimeLimit: beUint16(data, 10),
	}, true
}

func (page *VerifyErrorRecoveryPage) Encode() []byte {
	data := pageHeader(verifyErrorRecoveryPageCode, 0, false, page.ParametersSaveable, verifyErrorRecoveryLength-page0HeaderSize)
	setBit(data, 2, 0x08, page.EnableEarlyRecovery)
	setBit(data, 2, 0x04, page.PostError)
	setBit(data, 2, 0x02, page.DataTerminateOnError)
	setBit(data, 2, 0x01, page.DisableCorrection)
	data[3] = page.VerifyRetryCount
	data[4] = page.VerifyCorrectionSpan
	putBeUint(data, 10, 2, uint64(page.VerifyRecoveryTimeLimit))
	return data
}

func (page *VerifyErrorRecoveryPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.flag("Enable early recovery", page.EnableEarlyRecovery)
	renderer.flag("Post error", page.PostError)
	renderer.flag("Data terminate on error", page.DataTerminateOnError)
	renderer.flag("Disable correction", page.DisableCorrection)
	renderer.number("Verify retry count", uint64(page.VerifyRetryCount))
	renderer.number("Verify correction span", uint64(page.VerifyCorrectionSpan))
	renderer.value("Verify recovery time limit", fmt.Sprintf("%d ms", page.VerifyRecoveryTimeLimit))
	return renderer.String()
}

func (page *VerifyErrorRecoveryPage) PageCode() uint8    { return verifyErrorRecoveryPageCode }
func (page *VerifyErrorRecoveryPage) SubPageCode() uint8 { return 0 }
func (page *VerifyErrorRecoveryPage) Name() string       { return "Verify Error Recovery" }
func (page *VerifyErrorRecoveryPage) decodedPage()       {}
