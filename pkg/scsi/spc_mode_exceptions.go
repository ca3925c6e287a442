// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "fmt"

const (
	informationalExceptionsPageCode = byte(0x1c)
	informationalExceptionsLength   = 12
)

// InformationalExceptionsPage is the Informational Exceptions Control
// mode page (1Ch).
//
// Reference : SPC5r19
// 7.5.13 - Informational Exceptions Control mode page
type InformationalExceptionsPage struct {
	ParametersSaveable bool
	// PERF, EBF, EWASC, DEXCPT, TEST, EBACKERR, LOGERR
	Performance              bool
	EnableBackgroundFunction bool
	EnableWarning            bool
	DisableException         bool
	Test                     bool
	EnableBackgroundError    bool
	LogErrors                bool
	// MRIE
	MethodOfReporting uint8
	// 100 millisecond units
	IntervalTimer uint32
	ReportCount   uint32
}

func decodeInformationalExceptionsPage(data []byte) (*InformationalExceptionsPage, bool) {
	if !checkPageFrame(data, informationalExceptionsPageCode, false, 0, informationalExceptionsLength) {
		return nil, false
	}
	return &InformationalExceptionsPage{
		ParametersSaveable:       parametersSaveable(data),
		Performance:              bitIsSet(data, 2, 0x80),
		EnableBackgroundFunction: bitIsSet(data, 2, 0x20),
		EnableWarning:            bitIsSet(data, 2, 0x10),
		DisableException:         bitIsSet(data, 2, 0x08),
		Test:                     bitIsSet(data, 2, 0x04),
		EnableBackgroundError:    bitIsSet(data, 2, 0x02),
		LogErrors:                bitIsSet(data, 2, 0x01),
		MethodOfReporting:        bitField(data, 3, 0x0f),
		IntervalTimer:            beUint32(data, 4),
		ReportCount:              beUint32(data, 8),
	}, true
}

func (page *InformationalExceptionsPage) Encode() []byte {
	data := pageHeader(
		informationalExceptionsPageCode,
		0,
		false,
		page.ParametersSaveable,
		informationalExceptionsLength-page0HeaderSize,
	)
	setBit(data, 2, 0x80, page.Performance)
	setBit(data, 2, 0x20, page.EnableBackgroundFunction)
	setBit(data, 2, 0x10, page.EnableWarning)
	setBit(data, 2, 0x08, page.DisableException)
	setBit(data, 2, 0x04, page.Test)
	setBit(data, 2, 0x02, page.EnableBackgroundError)
	setBit(data, 2, 0x01, page.LogErrors)
	setBitField(data, 3, 0x0f, page.MethodOfReporting)
	putBeUint(data, 4, 4, uint64(page.IntervalTimer))
	putBeUint(data, 8, 4, uint64(page.ReportCount))
	return data
}

func (page *InformationalExceptionsPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.flag("Performance impact allowed", !page.Performance)
	renderer.flag("Enable background function", page.EnableBackgroundFunction)
	renderer.flag("Enable warning", page.EnableWarning)
	renderer.flag("Disable exception control", page.DisableException)
	renderer.flag("Test", page.Test)
	renderer.flag("Enable background error", page.EnableBackgroundError)
	renderer.flag("Log errors", page.LogErrors)
	renderer.value("Method of reporting", reportingMethodName(page.MethodOfReporting))
	renderer.value("Interval timer", powerTimerName(page.IntervalTimer))
	if page.ReportCount == 0 {
		renderer.value("Report count", "no limit")
	} else {
		renderer.number("Report count", uint64(page.ReportCount))
	}
	return renderer.String()
}

func (page *InformationalExceptionsPage) PageCode() uint8    { return informationalExceptionsPageCode }
func (page *InformationalExceptionsPage) SubPageCode() uint8 { return 0 }
func (page *InformationalExceptionsPage) Name() string       { return "Informational Exceptions Control" }
func (page *InformationalExceptionsPage) decodedPage()       {}

var reportingMethods = [...]string{
	"no reporting",
	"asynchronous event reporting",
	"generate unit attention",
	"conditionally generate recovered error",
	"unconditionally generate recovered error",
	"generate no sense",
	"only report on request",
}

func reportingMethodName(method uint8) string {
	if int(method) < len(reportingMethods) {
		return reportingMethods[method]
	}
	return fmt.Sprintf("%d (reserved)", method)
}
