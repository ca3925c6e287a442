// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

type pageRenderer struct {
	builder strings.Builder
}

func newPageRenderer(page DecodedPage, saveable bool) *pageRenderer {
	renderer := &pageRenderer{}
	if page.SubPageCode() != 0 {
		fmt.Fprintf(
			&renderer.builder,
			"%s mode page (0x%02x/0x%02x)\n",
			page.Name(),
			page.PageCode(),
			page.SubPageCode(),
		)
	} else {
		fmt.Fprintf(&renderer.builder, "%s mode page (0x%02x)\n", page.Name(), page.PageCode())
	}
	renderer.flag("Parameters saveable", saveable)
	return renderer
}

func (renderer *pageRenderer) value(name, value string) {
	fmt.Fprintf(&renderer.builder, "  %s: %s\n", name, value)
}

func (renderer *pageRenderer) flag(name string, value bool) {
	if value {
		renderer.value(name, "yes")
	} else {
		renderer.value(name, "no")
	}
}

func (renderer *pageRenderer) number(name string, value uint64) {
	renderer.value(name, strconv.FormatUint(value, 10))
}

func (renderer *pageRenderer) section(title string) {
	fmt.Fprintf(&renderer.builder, " %s\n", title)
}

func (renderer *pageRenderer) String() string {
	return renderer.builder.String()
}

var (
	directAccessMediumTypes = map[uint8]string{
		0x00: "Default",
		0x01: "Flexible disk, single-sided",
		0x02: "Flexible disk, double-sided",
	}
	opticalMediumTypes = map[uint8]string{
		0x00: "Default",
		0x01: "Optical read-only medium",
		0x02: "Optical write-once medium",
		0x03: "Optical erasable medium",
		0x04: "Combination of read-only and write-once medium",
		0x05: "Combination of read-only and erasable medium",
		0x06: "Combination of write-once and erasable medium",
	}
	multiMediaMediumTypes = map[uint8]string{
		0x00: "Default",
		0x01: "120 mm CD-ROM data only",
		0x02: "120 mm CD-DA audio only",
		0x03: "120 mm CD-ROM data and audio combined",
		0x04: "120 mm CD-ROM Photo CD",
		0x05: "80 mm CD-ROM data only",
		0x06: "80 mm CD-DA audio only",
		0x07: "80 mm CD-ROM data and audio combined",
		0x08: "80 mm CD-ROM Photo CD",
		0x10: "CD-R unknown size",
		0x20: "CD-RW unknown size",
		0x70: "Door closed, no disc present",
		0x71: "Door open",
		0x72: "Door closed, medium format error",
	}
	sequentialMediumTypes = map[uint8]string{
		0x00: "Default",
	}
	sequentialDensityCodes = map[uint8]string{
		0x00: "Default",
		0x01: "1/2 inch, 800 bpi NRZI",
		0x02: "1/2 inch, 1600 bpi PE",
		0x03: "1/2 inch, 6250 bpi GCR",
		0x05: "QIC-24",
		0x0f: "QIC-120",
		0x10: "QIC-150",
		0x13: "DDS",
		0x24: "DDS-2",
		0x25: "DDS-3",
		0x26: "DDS-4",
		0x40: "LTO-1",
		0x42: "LTO-2",
		0x44: "LTO-3",
		0x46: "LTO-4",
		0x58: "LTO-5",
		0x5a: "LTO-6",
		0x5c: "LTO-7",
		0x5d: "LTO-7 type M",
		0x5e: "LTO-8",
		0x60: "LTO-9",
	}
)

// MediumTypeName describes the MEDIUM TYPE header field, which has a
// different meaning per device type.
func MediumTypeName(deviceType SCSIDeviceType, mediumType uint8) string {
	var table map[uint8]string
	switch deviceType {
	case TypeDisk, TypeSimplifiedDisk, TypeHostManagedZoned:
		table = directAccessMediumTypes
	case TypeOptical, TypeWriteOnce:
		table = opticalMediumTypes
	case TypeMultiMedia:
		table = multiMediaMediumTypes
	case TypeTape:
		table = sequentialMediumTypes
	}
	if name, ok := table[mediumType]; ok {
		return name
	}
	if mediumType == 0x00 {
		return "Default"
	}
	return fmt.Sprintf("Unknown medium type 0x%02x", mediumType)
}

// DensityCodeName describes a block descriptor density code.
func DensityCodeName(deviceType SCSIDeviceType, density uint8) string {
	if density == 0x00 {
		return "Default"
	}
	if deviceType == TypeTape {
		if name, ok := sequentialDensityCodes[density]; ok {
			return name
		}
	}
	return fmt.Sprintf("Density code 0x%02x", density)
}

func bufferedModeName(bufferedMode uint8) string {
	switch bufferedMode {
	case 0:
		return "0 (unbuffered)"
	case 1:
		return "1 (buffered)"
	case 2:
		return "2 (buffered, shared between initiators)"
	}
	return fmt.Sprintf("%d (reserved)", bufferedMode)
}

// Render describes the header, block descriptors and every page.
// Undecoded pages are shown as a hex dump.
func (mode *Mode) Render(deviceType SCSIDeviceType) string {
	builder := strings.Builder{}
	header := mode.Header
	fmt.Fprintf(&builder, "Mode parameter header (%s)\n", deviceType)
	fmt.Fprintf(&builder, "  Medium type: %s\n", MediumTypeName(deviceType, header.MediumType))
	switch {
	case deviceType.isBlockDevice():
		fmt.Fprintf(&builder, "  Write protected: %t\n", header.WriteProtected)
		fmt.Fprintf(&builder, "  DPO and FUA supported: %t\n", header.DPOFUA)
		if deviceType == TypeOptical {
			fmt.Fprintf(&builder, "  Blank check enabled: %t\n", header.EnableBlankCheck)
		}
	case deviceType == TypeTape:
		fmt.Fprintf(&builder, "  Write protected: %t\n", header.WriteProtected)
		fmt.Fprintf(&builder, "  Buffered mode: %s\n", bufferedModeName(header.BufferedMode))
		fmt.Fprintf(&builder, "  Speed: %d\n", header.Speed)
	case deviceType == TypePrinter:
		fmt.Fprintf(&builder, "  Buffered mode: %s\n", bufferedModeName(header.BufferedMode))
	}
	if header.LongLBA {
		builder.WriteString("  Long LBA block descriptors\n")
	}
	for index, descriptor := range header.BlockDescriptors {
		fmt.Fprintf(
			&builder,
			"  Block descriptor %d: density %s, blocks %s, block length %s\n",
			index,
			DensityCodeName(deviceType, descriptor.Density),
			blockCountName(descriptor.Blocks),
			blockLengthName(descriptor.BlockLength),
		)
	}
	for _, page := range mode.Pages {
		if page.Decoded != nil {
			builder.WriteString(page.Decoded.Render())
			continue
		}
		descriptor := page.Descriptor
		fmt.Fprintf(
			&builder,
			"%s, undecoded %s",
			PageName(descriptor.PageCode, descriptor.SubPageCode, deviceType),
			descriptor,
		)
		if descriptor.Truncated {
			builder.WriteString(", truncated")
		}
		builder.WriteString("\n")
		builder.WriteString(hex.Dump(descriptor.Data))
	}
	return builder.String()
}

func blockCountName(blocks uint64) string {
	if blocks == 0 {
		return "all remaining"
	}
	return strconv.FormatUint(blocks, 10)
}

func blockLengthName(length uint32) string {
	if length == 0 {
		return "variable"
	}
	return strconv.FormatUint(uint64(length), 10)
}
