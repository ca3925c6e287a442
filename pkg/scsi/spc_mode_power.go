// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "fmt"

const (
	powerConditionPageCode = byte(0x1a)
	// SPC-2 layout
	powerConditionMinimumLength = 12
	// SPC-4 layout
	powerConditionExtendedLength = 40
)

// PowerConditionPage is the Power Condition mode page (1Ah). Timers are
// in 100 millisecond units.
//
// Reference : SPC5r19
// 7.5.15 - Power Condition mode page
type PowerConditionPage struct {
	ParametersSaveable bool
	// IDLE, IDLE_A since SPC-4
	IdleEnabled bool
	// STANDBY, STANDBY_Z since SPC-4
	StandbyEnabled bool
	IdleTimer      uint32
	StandbyTimer   uint32
	// nil for the 12 byte SPC-2 page
	SPC4 *PowerConditionSPC4
}

// PowerConditionSPC4 holds the additional power conditions of the 40 byte
// page.
type PowerConditionSPC4 struct {
	// PM_BG_PRECEDENCE
	BackgroundPrecedence uint8
	StandbyYEnabled      bool
	IdleCEnabled         bool
	IdleBEnabled         bool
	IdleBTimer           uint32
	IdleCTimer           uint32
	StandbyYTimer        uint32
	// CCF_IDLE, CCF_STANDBY, CCF_STOPPED
	CheckConditionIdle    uint8
	CheckConditionStandby uint8
	CheckConditionStopped uint8
}

func decodePowerConditionPage(data []byte) (*PowerConditionPage, bool) {
	if !checkPageFrame(data, powerConditionPageCode, false, 0, powerConditionMinimumLength) {
		return nil, false
	}
	page := &PowerConditionPage{
		ParametersSaveable: parametersSaveable(data),
		IdleEnabled:        bitIsSet(data, 3, 0x02),
		StandbyEnabled:     bitIsSet(data, 3, 0x01),
		IdleTimer:          beUint32(data, 4),
		StandbyTimer:       beUint32(data, 8),
	}
	if len(data) >= powerConditionExtendedLength {
		page.SPC4 = &PowerConditionSPC4{
			BackgroundPrecedence:  bitField(data, 2, 0xc0),
			StandbyYEnabled:       bitIsSet(data, 2, 0x01),
			IdleCEnabled:          bitIsSet(data, 3, 0x08),
			IdleBEnabled:          bitIsSet(data, 3, 0x04),
			IdleBTimer:            beUint32(data, 12),
			IdleCTimer:            beUint32(data, 16),
			StandbyYTimer:         beUint32(data, 20),
			CheckConditionIdle:    bitField(data, 39, 0xc0),
			CheckConditionStandby: bitField(data, 39, 0x30),
			CheckConditionStopped: bitField(data, 39, 0x0c),
		}
	}
	return page, true
}

func (page *PowerConditionPage) Encode() []byte {
	length := powerConditionMinimumLength
	if page.SPC4 != nil {
		length = powerConditionExtendedLength
	}
	data := pageHeader(powerConditionPageCode, 0, false, page.ParametersSaveable, length-page0HeaderSize)
	setBit(data, 3, 0x02, page.IdleEnabled)
	setBit(data, 3, 0x01, page.StandbyEnabled)
	putBeUint(data, 4, 4, uint64(page.IdleTimer))
	putBeUint(data, 8, 4, uint64(page.StandbyTimer))
	if spc4 := page.SPC4; spc4 != nil {
		setBitField(data, 2, 0xc0, spc4.BackgroundPrecedence)
		setBit(data, 2, 0x01, spc4.StandbyYEnabled)
		setBit(data, 3, 0x08, spc4.IdleCEnabled)
		setBit(data, 3, 0x04, spc4.IdleBEnabled)
		putBeUint(data, 12, 4, uint64(spc4.IdleBTimer))
		putBeUint(data, 16, 4, uint64(spc4.IdleCTimer))
		putBeUint(data, 20, 4, uint64(spc4.StandbyYTimer))
		setBitField(data, 39, 0xc0, spc4.CheckConditionIdle)
		setBitField(data, 39, 0x30, spc4.CheckConditionStandby)
		setBitField(data, 39, 0x0c, spc4.CheckConditionStopped)
	}
	return data
}

func (page *PowerConditionPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	if page.SPC4 == nil {
		renderer.flag("Idle condition enabled", page.IdleEnabled)
		renderer.value("Idle condition timer", powerTimerName(page.IdleTimer))
		renderer.flag("Standby condition enabled", page.StandbyEnabled)
		renderer.value("Standby condition timer", powerTimerName(page.StandbyTimer))
		return renderer.String()
	}
	spc4 := page.SPC4
	renderer.value("Background function precedence", backgroundPrecedenceName(spc4.BackgroundPrecedence))
	renderer.section("Idle")
	renderer.flag("Idle_a enabled", page.IdleEnabled)
	renderer.value("Idle_a condition timer", powerTimerName(page.IdleTimer))
	renderer.flag("Idle_b enabled", spc4.IdleBEnabled)
	renderer.value("Idle_b condition timer", powerTimerName(spc4.IdleBTimer))
	renderer.flag("Idle_c enabled", spc4.IdleCEnabled)
	renderer.value("Idle_c condition timer", powerTimerName(spc4.IdleCTimer))
	renderer.section("Standby")
	renderer.flag("Standby_y enabled", spc4.StandbyYEnabled)
	renderer.value("Standby_y condition timer", powerTimerName(spc4.StandbyYTimer))
	renderer.flag("Standby_z enabled", page.StandbyEnabled)
	renderer.value("Standby_z condition timer", powerTimerName(page.StandbyTimer))
	renderer.section("Check condition on transition")
	renderer.value("From idle", checkConditionFlagName(spc4.CheckConditionIdle))
	renderer.value("From standby", checkConditionFlagName(spc4.CheckConditionStandby))
	renderer.value("From stopped", checkConditionFlagName(spc4.CheckConditionStopped))
	return renderer.String()
}

func (page *PowerConditionPage) PageCode() uint8    { return powerConditionPageCode }
func (page *PowerConditionPage) SubPageCode() uint8 { return 0 }
func (page *PowerConditionPage) Name() string       { return "Power Condition" }
func (page *PowerConditionPage) decodedPage()       {}

func powerTimerName(timer uint32) string {
	return fmt.Sprintf("%d.%d s", timer/10, timer%10)
}

func backgroundPrecedenceName(precedence uint8) string {
	switch precedence {
	case 0:
		return "vendor specific"
	case 1:
		return "background functions"
	case 2:
		return "power management"
	}
	return "reserved"
}

func checkConditionFlagName(flag uint8) string {
	switch flag {
	case 0:
		return "restricted"
	case 1:
		return "disabled"
	case 2:
		return "enabled"
	}
	return "reserved"
}
