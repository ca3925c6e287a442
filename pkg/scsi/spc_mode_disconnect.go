// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "fmt"

const (
	disconnectReconnectPageCode = byte(0x02)
	disconnectReconnectLength   = 16
)

// DisconnectReconnectPage is the Disconnect-Reconnect mode page (02h).
// Time limits are in 100 microsecond units, burst sizes in 512 byte units.
//
// Reference : SPC5r19
// 7.5.9 - Disconnect-Reconnect mode page
type DisconnectReconnectPage struct {
	ParametersSaveable  bool
	BufferFullRatio     uint8
	BufferEmptyRatio    uint8
	BusInactivityLimit  uint16
	DisconnectTimeLimit uint16
	ConnectTimeLimit    uint16
	MaximumBurstSize    uint16
	// EMDP, enable modify data pointers
	EnableModifyDataPointers bool
	FairArbitration          uint8
	// DIMM, disconnect immediate
	DisconnectImmediate bool
	// DTDC, data transfer disconnect control
	DataTransferDisconnectControl uint8
	FirstBurstSize                uint16
}

func decodeDisconnectReconnectPage(data []byte) (*DisconnectReconnectPage, bool) {
	if !checkPageFrame(data, disconnectReconnectPageCode, false, 0, disconnectReconnectLength) {
		return nil, false
	}
	return &DisconnectReconnectPage{
		ParametersSaveable:            parametersSaveable(data),
		BufferFullRatio:               data[2],
		BufferEmptyRatio:              data[3],
		BusInactivityLimit:            beUint16(data, 4),
		DisconnectTimeLimit:           beUint16(data, 6),
		ConnectTimeLimit:              beUint16(data, 8),
		MaximumBurstSize:              beUint16(data, 10),
		EnableModifyDataPointers:      bitIsSet(data, 12, 0x80),
		FairArbitration:               bitField(data, 12, 0x70),
		DisconnectImmediate:           bitIsSet(data, 12, 0x08),
		DataTransferDisconnectControl: bitField(data, 12, 0x07),
		FirstBurstSize:                beUint16(data, 14),
	}, true
}

func (page *DisconnectReconnectPage) Encode() []byte {
	data := pageHeader(disconnectReconnectPageCode, 0, false, page.ParametersSaveable, disconnectReconnectLength-page0HeaderSize)
	data[2] = page.BufferFullRatio
	data[3] = page.BufferEmptyRatio
	putBeUint(data, 4, 2, uint64(page.BusInactivityLimit))
	putBeUint(data, 6, 2, uint64(page.DisconnectTimeLimit))
	putBeUint(data, 8, 2, uint64(page.ConnectTimeLimit))
	putBeUint(data, 10, 2, uint64(page.MaximumBurstSize))
	setBit(data, 12, 0x80, page.EnableModifyDataPointers)
	setBitField(data, 12, 0x70, page.FairArbitration)
	setBit(data, 12, 0x08, page.DisconnectImmediate)
	setBitField(data, 12, 0x07, page.DataTransferDisconnectControl)
	putBeUint(data, 14, 2, uint64(page.FirstBurstSize))
	return data
}

func (page *DisconnectReconnectPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.value("Buffer full ratio", fmt.Sprintf("%d/256", page.BufferFullRatio))
	renderer.value("Buffer empty ratio", fmt.Sprintf("%d/256", page.BufferEmptyRatio))
	renderer.number("Bus inactivity limit", uint64(page.BusInactivityLimit))
	renderer.number("Disconnect time limit", uint64(page.DisconnectTimeLimit))
	renderer.number("Connect time limit", uint64(page.ConnectTimeLimit))
	renderer.value("Maximum burst size", burstSizeName(page.MaximumBurstSize))
	renderer.flag("Enable modify data pointers", page.EnableModifyDataPointers)
	renderer.number("Fair arbitration", uint64(page.FairArbitration))
	renderer.flag("Disconnect immediate", page.DisconnectImmediate)
	renderer.value("Data transfer disconnect control", dataTransferDisconnectControlName(page.DataTransferDisconnectControl))
	renderer.value("First burst size", burstSizeName(page.FirstBurstSize))
	return renderer.String()
}

func (page *DisconnectReconnectPage) PageCode() uint8    { return disconnectReconnectPageCode }
func (page *DisconnectReconnectPage) SubPageCode() uint8 { return 0 }
func (page *DisconnectReconnectPage) Name() string       { return "Disconnect-Reconnect" }
func (page *DisconnectReconnectPage) decodedPage()       {}

func burstSizeName(size uint16) string {
	if size == 0 {
		return "no limit"
	}
	return fmt.Sprintf("%d bytes", uint32(size)*512)
}

func dataTransferDisconnectControlName(control uint8) string {
	switch control {
	case 0:
		return "not used"
	case 1:
		return "no disconnect until all data transferred"
	case 3:
		return "no disconnect until command completed"
	}
	return fmt.Sprintf("%d (reserved)", control)
}
