// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "fmt"

const (
	cachingPageCode = byte(0x08)
	// SCSI-2 layout
	cachingMinimumLength = 12
	// SBC layout
	cachingExtendedLength = 20
)

// CachingPage is the Caching mode page (08h).
//
// Reference : SBC3r36
// 6.4.5 - Caching mode page
type CachingPage struct {
	ParametersSaveable bool
	// WCE
	WriteCacheEnabled bool
	// MF, pre-fetch values are multiplied by the transfer length
	MultiplicationFactor bool
	// RCD
	ReadCacheDisabled           bool
	DemandReadRetentionPriority uint8
	WriteRetentionPriority      uint8
	// 0 means the device does not pre-fetch at all
	DisablePreFetchTransferLength uint16
	MinimumPreFetch               uint16
	MaximumPreFetch               uint16
	MaximumPreFetchCeiling        uint16
	// nil for the 12 byte SCSI-2 page
	Extension *CachingPageExtension
}

// CachingPageExtension holds the fields of the 20 byte SBC page.
type CachingPageExtension struct {
	// IC, the cache segmentation is controlled by the application client
	InitiatorControl bool
	// ABPF
	AbortPreFetch bool
	// CAP
	CachingAnalysisPermitted bool
	// DISC
	Discontinuity bool
	// SIZE, cache segment size is used instead of the segment count
	SizeEnable bool
	// FSW
	ForceSequentialWrite bool
	// LBCSS, cache segment size is in logical blocks
	LogicalBlockCacheSegmentSize bool
	// DRA
	DisableReadAhead         bool
	NonVolatileCacheDisabled bool
	NumberOfCacheSegments    uint8
	CacheSegmentSize         uint16
	NonCacheSegmentSize      uint32
}

func decodeCachingPage(data []byte) (*CachingPage, bool) {
	if !checkPageFrame(data, cachingPageCode, false, 0, cachingMinimumLength) {
		return nil, false
	}
	page := &CachingPage{
		ParametersSaveable:            parametersSaveable(data),
		WriteCacheEnabled:             bitIsSet(data, 2, 0x04),
		MultiplicationFactor:          bitIsSet(data, 2, 0x02),
		ReadCacheDisabled:             bitIsSet(data, 2, 0x01),
		DemandReadRetentionPriority:   bitField(data, 3, 0xf0),
		WriteRetentionPriority:        bitField(data, 3, 0x0f),
		DisablePreFetchTransferLength: beUint16(data, 4),
		MinimumPreFetch:               beUint16(data, 6),
		MaximumPreFetch:               beUint16(data, 8),
		MaximumPreFetchCeiling:        beUint16(data, 10),
	}
	if len(data) >= cachingExtendedLength {
		page.Extension = &CachingPageExtension{
			InitiatorControl:             bitIsSet(data, 2, 0x80),
			AbortPreFetch:                bitIsSet(data, 2, 0x40),
			CachingAnalysisPermitted:     bitIsSet(data, 2, 0x20),
			Discontinuity:                bitIsSet(data, 2, 0x10),
			SizeEnable:                   bitIsSet(data, 2, 0x08),
			ForceSequentialWrite:         bitIsSet(data, 12, 0x80),
			LogicalBlockCacheSegmentSize: bitIsSet(data, 12, 0x40),
			DisableReadAhead:             bitIsSet(data, 12, 0x20),
			NonVolatileCacheDisabled:     bitIsSet(data, 12, 0x01),
			NumberOfCacheSegments:        data[13],
			CacheSegmentSize:             beUint16(data, 14),
			NonCacheSegmentSize:          beUint24(data, 17),
		}
	}
	return page, true
}

func (page *CachingPage) Encode() []byte {
	length := cachingMinimumLength
	if page.Extension != nil {
		length = cachingExtendedLength
	}
	data := pageHeader(cachingPageCode, 0, false, page.ParametersSaveable, length-page0HeaderSize)
	setBit(data, 2, 0x04, page.WriteCacheEnabled)
	setBit(data, 2, 0x02, page.MultiplicationFactor)
	setBit(data, 2, 0x01, page.ReadCacheDisabled)
	setBitField(data, 3, 0xf0, page.DemandReadRetentionPriority)
	setBitField(data, 3, 0x0f, page.WriteRetentionPriority)
	putBeUint(data, 4, 2, uint64(page.DisablePreFetchTransferLength))
	putBeUint(data, 6, 2, uint64(page.MinimumPreFetch))
	putBeUint(data, 8, 2, uint64(page.MaximumPreFetch))
	putBeUint(data, 10, 2, uint64(page.MaximumPreFetchCeiling))
	if extension := page.Extension; extension != nil {
		setBit(data, 2, 0x80, extension.InitiatorControl)
		setBit(data, 2, 0x40, extension.AbortPreFetch)
		setBit(data, 2, 0x20, extension.CachingAnalysisPermitted)
		setBit(data, 2, 0x10, extension.Discontinuity)
		setBit(data, 2, 0x08, extension.SizeEnable)
		setBit(data, 12, 0x80, extension.ForceSequentialWrite)
		setBit(data, 12, 0x40, extension.LogicalBlockCacheSegmentSize)
		setBit(data, 12, 0x20, extension.DisableReadAhead)
		setBit(data, 12, 0x01, extension.NonVolatileCacheDisabled)
		data[13] = extension.NumberOfCacheSegments
		putBeUint(data, 14, 2, uint64(extension.CacheSegmentSize))
		putBeUint(data, 17, 3, uint64(extension.NonCacheSegmentSize))
	}
	return data
}

func (page *CachingPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.flag("Write cache enabled", page.WriteCacheEnabled)
	renderer.flag("Read cache disabled", page.ReadCacheDisabled)
	renderer.flag("Multiplication factor", page.MultiplicationFactor)
	renderer.value("Demand read retention priority", retentionPriorityName(page.DemandReadRetentionPriority))
	renderer.value("Write retention priority", retentionPriorityName(page.WriteRetentionPriority))
	if page.DisablePreFetchTransferLength == 0 {
		renderer.value("Disable pre-fetch transfer length", "0 (pre-fetch disabled)")
	} else {
		renderer.number("Disable pre-fetch transfer length", uint64(page.DisablePreFetchTransferLength))
	}
	renderer.number("Minimum pre-fetch", uint64(page.MinimumPreFetch))
	renderer.number("Maximum pre-fetch", uint64(page.MaximumPreFetch))
	renderer.number("Maximum pre-fetch ceiling", uint64(page.MaximumPreFetchCeiling))
	if extension := page.Extension; extension != nil {
		renderer.flag("Initiator control", extension.InitiatorControl)
		renderer.flag("Abort pre-fetch", extension.AbortPreFetch)
		renderer.flag("Caching analysis permitted", extension.CachingAnalysisPermitted)
		renderer.flag("Discontinuity", extension.Discontinuity)
		renderer.flag("Size enable", extension.SizeEnable)
		renderer.flag("Force sequential write", extension.ForceSequentialWrite)
		renderer.flag("Logical block cache segment size", extension.LogicalBlockCacheSegmentSize)
		renderer.flag("Disable read-ahead", extension.DisableReadAhead)
		renderer.flag("Non-volatile cache disabled", extension.NonVolatileCacheDisabled)
		renderer.number("Number of cache segments", uint64(extension.NumberOfCacheSegments))
		renderer.number("Cache segment size", uint64(extension.CacheSegmentSize))
		renderer.number("Non-cache segment size", uint64(extension.NonCacheSegmentSize))
	}
	return renderer.String()
}

func (page *CachingPage) PageCode() uint8    { return cachingPageCode }
func (page *CachingPage) SubPageCode() uint8 { return 0 }
func (page *CachingPage) Name() string       { return "Caching" }
func (page *CachingPage) decodedPage()       {}

func retentionPriorityName(priority uint8) string {
	switch priority {
	case 0x0:
		return "0 (no distinction)"
	case 0x1:
		return "1 (retained longer than other data)"
	case 0xf:
		return "15 (replaced before other data)"
	}
	return fmt.Sprintf("%d (reserved)", priority)
}
