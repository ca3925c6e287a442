// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "fmt"

const (
	formatDevicePageCode = byte(0x03)
	formatDeviceLength   = 24

	rigidDiskGeometryPageCode = byte(0x04)
	// SCSI-2 layout, no medium rotation rate
	rigidDiskGeometryMinimumLength = 20
	rigidDiskGeometryRotationRate  = 22
	rigidDiskGeometryLength        = 24
)

// RigidDiskGeometryPage is the Rigid Disk Drive Geometry mode page (04h).
// The medium rotation rate is present only if the page is long enough,
// there is no flag for it.
//
// Reference : SBC2r16
// 6.3.5 - Rigid disk drive geometry mode page
type RigidDiskGeometryPage struct {
	ParametersSaveable bool
	// 24 bit
	NumberOfCylinders uint32
	NumberOfHeads     uint8
	// 24 bit
	StartingCylinderWritePrecompensation uint32
	// 24 bit
	StartingCylinderReducedWriteCurrent uint32
	DriveStepRate                       uint16
	// 24 bit
	LandingZoneCylinder uint32
	// RPL, rotational position locking
	RotationalPositionLocking uint8
	RotationalOffset          uint8
	// nil when the page stops before byte 20
	MediumRotationRate *uint16
}

func decodeRigidDiskGeometryPage(data []byte) (*RigidDiskGeometryPage, bool) {
	if !checkPageFrame(data, rigidDiskGeometryPageCode, false, 0, rigidDiskGeometryMinimumLength) {
		return nil, false
	}
	page := &RigidDiskGeometryPage{
		ParametersSaveable:                   parametersSaveable(data),
		NumberOfCylinders:                    beUint24(data, 2),
		NumberOfHeads:                        data[5],
		StartingCylinderWritePrecompensation: beUint24(data, 6),
		StartingCylinderReducedWriteCurrent:  beUint24(data, 9),
		DriveStepRate:                        beUint16(data, 12),
		LandingZoneCylinder:                  beUint24(data, 14),
		RotationalPositionLocking:            bitField(data, 17, 0x03),
		RotationalOffset:                     data[18],
	}
	if len(data) >= rigidDiskGeometryRotationRate {
		rotationRate := beUint16(data, 20)
		page.MediumRotationRate = &rotationRate
	}
	return page, true
}

func (page *RigidDiskGeometryPage) Encode() []byte {
	length := rigidDiskGeometryMinimumLength
	if page.MediumRotationRate != nil {
		length = rigidDiskGeometryLength
	}
	data := pageHeader(rigidDiskGeometryPageCode, 0, false, page.ParametersSaveable, length-page0HeaderSize)
	putBeUint(data, 2, 3, uint64(page.NumberOfCylinders))
	data[5] = page.NumberOfHeads
	putBeUint(data, 6, 3, uint64(page.StartingCylinderWritePrecompensation))
	putBeUint(data, 9, 3, uint64(page.StartingCylinderReducedWriteCurrent))
	putBeUint(data, 12, 2, uint64(page.DriveStepRate))
	putBeUint(data, 14, 3, uint64(page.LandingZoneCylinder))
	setBitField(data, 17, 0x03, page.RotationalPositionLocking)
	data[18] = page.RotationalOffset
	if page.MediumRotationRate != nil {
		putBeUint(data, 20, 2, uint64(*page.MediumRotationRate))
	}
	return data
}

func (page *RigidDiskGeometryPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.number("Number of cylinders", uint64(page.NumberOfCylinders))
	renderer.number("Number of heads", uint64(page.NumberOfHeads))
	renderer.number("Starting cylinder for write precompensation", uint64(page.StartingCylinderWritePrecompensation))
	renderer.number("Starting cylinder for reduced write current", uint64(page.StartingCylinderReducedWriteCurrent))
	renderer.number("Drive step rate", uint64(page.DriveStepRate))
	renderer.number("Landing zone cylinder", uint64(page.LandingZoneCylinder))
	renderer.value("Rotational position locking", rotationalPositionLockingName(page.RotationalPositionLocking))
	renderer.number("Rotational offset", uint64(page.RotationalOffset))
	if page.MediumRotationRate != nil {
		renderer.value("Medium rotation rate", mediumRotationRateName(*page.MediumRotationRate))
	}
	return renderer.String()
}

func (page *RigidDiskGeometryPage) PageCode() uint8    { return rigidDiskGeometryPageCode }
func (page *RigidDiskGeometryPage) SubPageCode() uint8 { return 0 }
func (page *RigidDiskGeometryPage) Name() string       { return "Rigid Disk Drive Geometry" }
func (page *RigidDiskGeometryPage) decodedPage()       {}

func rotationalPositionLockingName(locking uint8) string {
	switch locking {
	case 0:
		return "disabled"
	case 1:
		return "slave"
	case 2:
		return "master"
	}
	return "master control"
}

func mediumRotationRateName(rate uint16) string {
	switch {
	case rate == 0:
		return "not reported"
	case rate == 1:
		return "non-rotating medium"
	case rate < 0x0401 || rate == 0xffff:
		return fmt.Sprintf("0x%04x (reserved)", rate)
	}
	return fmt.Sprintf("%d rpm", rate)
}

// FormatDevicePage is the Format Device mode page (03h).
//
// Reference : SBC2r16
// 6.3.4 - Format device mode page
type FormatDevicePage struct {
	ParametersSaveable            bool
	TracksPerZone                 uint16
	AlternateSectorsPerZone       uint16
	AlternateTracksPerZone        uint16
	AlternateTracksPerLogicalUnit uint16
	SectorsPerTrack               uint16
	DataBytesPerPhysicalSector    uint16
	Interleave                    uint16
	TrackSkewFactor               uint16
	CylinderSkewFactor            uint16
	// SSEC, HSEC, RMB, SURF
	SoftSectoring     bool
	HardSectoring     bool
	RemovableMedium   bool
	SurfaceAddressing bool
}

func decodeFormatDevicePage(data []byte) (*FormatDevicePage, bool) {
	if !checkPageFrame(data, formatDevicePageCode, false, 0, formatDeviceLength) {
		return nil, false
	}
	return &FormatDevicePage{
		ParametersSaveable:            parametersSaveable(data),
		TracksPerZone:                 beUint16(data, 2),
		AlternateSectorsPerZone:       beUint16(data, 4),
		AlternateTracksPerZone:        beUint16(data, 6),
		AlternateTracksPerLogicalUnit: beUint16(data, 8),
		SectorsPerTrack:               beUint16(data, 10),
		DataBytesPerPhysicalSector:    beUint16(data, 12),
		Interleave:                    beUint16(data, 14),
		TrackSkewFactor:               beUint16(data, 16),
		CylinderSkewFactor:            beUint16(data, 18),
		SoftSectoring:                 bitIsSet(data, 20, 0x80),
		HardSectoring:                 bitIsSet(data, 20, 0x40),
		RemovableMedium:               bitIsSet(data, 20, 0x20),
		SurfaceAddressing:             bitIsSet(data, 20, 0x10),
	}, true
}

func (page *FormatDevicePage) Encode() []byte {
	data := pageHeader(formatDevicePageCode, 0, false, page.ParametersSaveable, formatDeviceLength-page0HeaderSize)
	putBeUint(data, 2, 2, uint64(page.TracksPerZone))
	putBeUint(data, 4, 2, uint64(page.AlternateSectorsPerZone))
	putBeUint(data, 6, 2, uint64(page.AlternateTracksPerZone))
	putBeUint(data, 8, 2, uint64(page.AlternateTracksPerLogicalUnit))
	putBeUint(data, 10, 2, uint64(page.SectorsPerTrack))
	putBeUint(data, 12, 2, uint64(page.DataBytesPerPhysicalSector))
	putBeUint(data, 14, 2, uint64(page.Interleave))
	putBeUint(data, 16, 2, uint64(page.TrackSkewFactor))
	putBeUint(data, 18, 2, uint64(page.CylinderSkewFactor))
	setBit(data, 20, 0x80, page.SoftSectoring)
	setBit(data, 20, 0x40, page.HardSectoring)
	setBit(data, 20, 0x20, page.RemovableMedium)
	setBit(data, 20, 0x10, page.SurfaceAddressing)
	return data
}

func (page *FormatDevicePage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.number("Tracks per zone", uint64(page.TracksPerZone))
	renderer.number("Alternate sectors per zone", uint64(page.AlternateSectorsPerZone))
	renderer.number("Alternate tracks per zone", uint64(page.AlternateTracksPerZone))
	renderer.number("Alternate tracks per logical unit", uint64(page.AlternateTracksPerLogicalUnit))
	renderer.number("Sectors per track", uint64(page.SectorsPerTrack))
	renderer.number("Data bytes per physical sector", uint64(page.DataBytesPerPhysicalSector))
	renderer.number("Interleave", uint64(page.Interleave))
	renderer.number("Track skew factor", uint64(page.TrackSkewFactor))
	renderer.number("Cylinder skew factor", uint64(page.CylinderSkewFactor))
	renderer.flag("Soft sectoring", page.SoftSectoring)
	renderer.flag("Hard sectoring", page.HardSectoring)
	renderer.flag("Removable medium", page.RemovableMedium)
	renderer.flag("Surface addressing", page.SurfaceAddressing)
	return renderer.String()
}

func (page *FormatDevicePage) PageCode() uint8    { return formatDevicePageCode }
func (page *FormatDevicePage) SubPageCode() uint8 { return 0 }
func (page *FormatDevicePage) Name() string       { return "Format Device" }
func (page *FormatDevicePage) decodedPage()       {}
