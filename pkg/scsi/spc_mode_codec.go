// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"fmt"
	"sort"
)

// DecodedPage is a mode page decoded into its typed record.
// The set of implementations is closed, one per known page layout.
type DecodedPage interface {
	PageCode() uint8
	SubPageCode() uint8
	Name() string
	// Render returns a human readable multi line summary.
	Render() string
	decodedPage()
}

// EncodablePage is a decoded page that can be turned back into bytes
// for MODE SELECT. Pages not implementing it are decode only.
type EncodablePage interface {
	DecodedPage
	Encode() []byte
}

type pageCodec struct {
	name string
	// nil means the page is defined for every device type
	deviceTypes   []SCSIDeviceType
	minimumLength int
	decode        func(data []byte) (DecodedPage, bool)
}

func (codec pageCodec) appliesTo(deviceType SCSIDeviceType) bool {
	return codec.deviceTypes == nil || containsDeviceType(codec.deviceTypes, deviceType)
}

func containsDeviceType(deviceTypes []SCSIDeviceType, deviceType SCSIDeviceType) bool {
	for _, candidate := range deviceTypes {
		if candidate == deviceType {
			return true
		}
	}
	return false
}

var (
	blockDeviceTypes = []SCSIDeviceType{
		TypeDisk, TypeWriteOnce, TypeOptical, TypeMultiMedia, TypeSimplifiedDisk, TypeHostManagedZoned,
	}
	diskDeviceTypes = []SCSIDeviceType{TypeDisk, TypeSimplifiedDisk, TypeHostManagedZoned}
	tapeDeviceTypes = []SCSIDeviceType{TypeTape}
)

// wrap adapts a typed decoder so a failed decode never yields a typed nil.
func wrap[T DecodedPage](decode func([]byte) (T, bool)) func([]byte) (DecodedPage, bool) {
	return func(data []byte) (DecodedPage, bool) {
		page, ok := decode(data)
		if !ok {
			return nil, false
		}
		return page, true
	}
}

// pageCodecs is filled once and never modified afterwards.
var pageCodecs = map[pageKey][]pageCodec{
	{pageCode: readWriteErrorRecoveryPageCode}: {{
		name:          "Read-Write Error Recovery",
		deviceTypes:   blockDeviceTypes,
		minimumLength: readWriteErrorRecoveryMinimumLength,
		decode:        wrap(decodeReadWriteErrorRecoveryPage),
	}},
	{pageCode: disconnectReconnectPageCode}: {{
		name:          "Disconnect-Reconnect",
		minimumLength: disconnectReconnectLength,
		decode:        wrap(decodeDisconnectReconnectPage),
	}},
	{pageCode: formatDevicePageCode}: {{
		name:          "Format Device",
		deviceTypes:   diskDeviceTypes,
		minimumLength: formatDeviceLength,
		decode:        wrap(decodeFormatDevicePage),
	}},
	{pageCode: rigidDiskGeometryPageCode}: {{
		name:          "Rigid Disk Drive Geometry",
		deviceTypes:   diskDeviceTypes,
		minimumLength: rigidDiskGeometryMinimumLength,
		decode:        wrap(decodeRigidDiskGeometryPage),
	}},
	{pageCode: verifyErrorRecoveryPageCode}: {{
		name:          "Verify Error Recovery",
		deviceTypes:   []SCSIDeviceType{TypeDisk, TypeWriteOnce, TypeOptical, TypeSimplifiedDisk, TypeHostManagedZoned},
		minimumLength: verifyErrorRecoveryLength,
		decode:        wrap(decodeVerifyErrorRecoveryPage),
	}},
	{pageCode: cachingPageCode}: {{
		name:          "Caching",
		deviceTypes:   blockDeviceTypes,
		minimumLength: cachingMinimumLength,
		decode:        wrap(decodeCachingPage),
	}},
	{pageCode: controlPageCode}: {{
		name:          "Control",
		minimumLength: controlMinimumLength,
		decode:        wrap(decodeControlPage),
	}},
	{pageCode: controlPageCode, subPage: true, subPageCode: controlExtensionSubPageCode}: {{
		name:          "Control Extension",
		minimumLength: controlExtensionLength,
		decode:        wrap(decodeControlExtensionPage),
	}},
	{pageCode: dataCompressionPageCode}: {{
		name:          "Data Compression",
		deviceTypes:   tapeDeviceTypes,
		minimumLength: dataCompressionLength,
		decode:        wrap(decodeDataCompressionPage),
	}},
	{pageCode: powerConditionPageCode}: {{
		name:          "Power Condition",
		minimumLength: powerConditionMinimumLength,
		decode:        wrap(decodePowerConditionPage),
	}},
	{pageCode: informationalExceptionsPageCode}: {{
		name:          "Informational Exceptions Control",
		minimumLength: informationalExceptionsLength,
		decode:        wrap(decodeInformationalExceptionsPage),
	}},
}

// DecodePage dispatches a framed page to the codecs registered for its
// page and subpage code. The first codec accepting the bytes wins,
// nil means the page stays raw.
func DecodePage(descriptor PageDescriptor, deviceType SCSIDeviceType) DecodedPage {
	for _, codec := range pageCodecs[descriptor.key()] {
		if !codec.appliesTo(deviceType) {
			continue
		}
		if page, ok := codec.decode(descriptor.Data); ok {
			return page
		}
	}
	return nil
}

// PageName returns the name of a known page, or a generic description.
func PageName(pageCode, subPageCode uint8, deviceType SCSIDeviceType) string {
	key := pageKey{pageCode: pageCode, subPage: subPageCode != 0, subPageCode: subPageCode}
	for _, codec := range pageCodecs[key] {
		if codec.appliesTo(deviceType) {
			return codec.name
		}
	}
	switch {
	case pageCode == vendorPageCode:
		return "Vendor specific (page 0)"
	case pageCode >= 0x20 && pageCode <= 0x3e:
		return fmt.Sprintf("Vendor specific or device specific page 0x%02x", pageCode)
	}
	if subPageCode != 0 {
		return fmt.Sprintf("Unknown page 0x%02x/0x%02x", pageCode, subPageCode)
	}
	return fmt.Sprintf("Unknown page 0x%02x", pageCode)
}

// KnownPage describes one registered page codec.
type KnownPage struct {
	PageCode      uint8
	SubPageCode   uint8
	Name          string
	MinimumLength int
}

// KnownPages lists the page codecs applicable to deviceType, ordered by
// page and subpage code.
func KnownPages(deviceType SCSIDeviceType) []KnownPage {
	pages := make([]KnownPage, 0, len(pageCodecs))
	for key, codecs := range pageCodecs {
		for _, codec := range codecs {
			if !codec.appliesTo(deviceType) {
				continue
			}
			pages = append(pages, KnownPage{
				PageCode:      key.pageCode,
				SubPageCode:   key.subPageCode,
				Name:          codec.name,
				MinimumLength: codec.minimumLength,
			})
		}
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].PageCode != pages[j].PageCode {
			return pages[i].PageCode < pages[j].PageCode
		}
		return pages[i].SubPageCode < pages[j].SubPageCode
	})
	return pages
}

// checkPageFrame applies the structural checks every codec shares:
// subpage format, page code, exact declared length and minimum length.
func checkPageFrame(data []byte, pageCode uint8, subPage bool, subPageCode uint8, minimumLength int) bool {
	headerSize := page0HeaderSize
	if subPage {
		headerSize = subPageHeaderSize
	}
	if len(data) < headerSize {
		return false
	}
	if bitIsSet(data, 0, subPageFormatBitMask) != subPage {
		return false
	}
	if data[0]&pageCodeBitMask != pageCode {
		return false
	}
	declaredLength := int(data[1])
	if subPage {
		if data[1] != subPageCode {
			return false
		}
		declaredLength = int(beUint16(data, 2))
	}
	if declaredLength+headerSize != len(data) {
		return false
	}
	return len(data) >= minimumLength
}

func parametersSaveable(data []byte) bool {
	return bitIsSet(data, 0, parametersSaveableBit)
}
