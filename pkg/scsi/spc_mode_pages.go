// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"fmt"
	"modecodec/pkg/logger"
)

const (
	pageCodeBitMask       = byte(0x3f)
	subPageFormatBitMask  = byte(0x40)
	parametersSaveableBit = byte(0x80)

	page0HeaderSize   = 2
	subPageHeaderSize = 4

	// Vendor specific page 0, not length prefixed.
	vendorPageCode = byte(0x00)
	// Page code used in MODE SENSE CDB to request every page.
	allModePages = byte(0x3f)
	// Subpage code used in MODE SENSE CDB to request every subpage.
	allSubPages = byte(0xff)
)

// PageDescriptor is one mode page as sliced out of a mode parameter list.
type PageDescriptor struct {
	PageCode    uint8
	SubPage     bool
	SubPageCode uint8
	// PAGE LENGTH or SUBPAGE LENGTH as declared by the device
	DeclaredLength int
	// Data holds the whole page including its header
	Data []byte
	// Truncated is set when the buffer ended before the declared length
	Truncated bool
}

func (descriptor PageDescriptor) headerSize() int {
	if descriptor.SubPage {
		return subPageHeaderSize
	}
	return page0HeaderSize
}

func (descriptor PageDescriptor) key() pageKey {
	return pageKey{
		pageCode:    descriptor.PageCode,
		subPage:     descriptor.SubPage,
		subPageCode: descriptor.SubPageCode,
	}
}

func (descriptor PageDescriptor) String() string {
	if descriptor.SubPage {
		return fmt.Sprintf(
			"page 0x%02x/0x%02x (%d bytes)",
			descriptor.PageCode,
			descriptor.SubPageCode,
			len(descriptor.Data),
		)
	}
	return fmt.Sprintf("page 0x%02x (%d bytes)", descriptor.PageCode, len(descriptor.Data))
}

type pageKey struct {
	pageCode    uint8
	subPage     bool
	subPageCode uint8
}

// FramePages splits the mode pages following the mode parameter header
// and block descriptors. A declared length running past the buffer is
// clamped, the page is still returned and its codec decides.
func FramePages(buffer []byte) []PageDescriptor {
	log := logger.GetLogger()
	descriptors := make([]PageDescriptor, 0, 8)
	offset := 0
	for offset < len(buffer) {
		remaining := len(buffer) - offset
		pageCode := buffer[offset] & pageCodeBitMask
		if pageCode == vendorPageCode {
			// page 0 has no length convention, it takes the rest
			descriptors = append(descriptors, PageDescriptor{
				PageCode:       vendorPageCode,
				DeclaredLength: remaining,
				Data:           cloneBytes(buffer[offset:]),
			})
			break
		}
		descriptor := PageDescriptor{
			PageCode: pageCode,
			SubPage:  buffer[offset]&subPageFormatBitMask != 0,
		}
		if remaining < descriptor.headerSize() {
			log.Debugf(
				"mode page fragment of %d bytes at offset %d, header needs %d",
				remaining,
				offset,
				descriptor.headerSize(),
			)
			descriptor.Data = cloneBytes(buffer[offset:])
			descriptor.Truncated = true
			descriptors = append(descriptors, descriptor)
			break
		}
		if descriptor.SubPage {
			descriptor.SubPageCode = buffer[offset+1]
			descriptor.DeclaredLength = int(beUint16(buffer, offset+2))
		} else {
			descriptor.DeclaredLength = int(buffer[offset+1])
		}
		length := descriptor.DeclaredLength + descriptor.headerSize()
		if length > remaining {
			log.Debugf(
				"%s declares %d bytes, only %d left, truncating",
				descriptor,
				length,
				remaining,
			)
			length = remaining
			descriptor.Truncated = true
		}
		descriptor.Data = cloneBytes(buffer[offset : offset+length])
		descriptors = append(descriptors, descriptor)
		offset += length
	}
	return descriptors
}

// pageHeader builds the page_0 or sub_page header for a page body of
// bodyLength bytes and returns a zeroed buffer for the whole page.
func pageHeader(pageCode, subPageCode uint8, subPage bool, saveable bool, bodyLength int) []byte {
	var data []byte
	if subPage {
		data = make([]byte, subPageHeaderSize+bodyLength)
		data[0] = pageCode&pageCodeBitMask | subPageFormatBitMask
		data[1] = subPageCode
		putBeUint(data, 2, 2, uint64(bodyLength))
	} else {
		data = make([]byte, page0HeaderSize+bodyLength)
		data[0] = pageCode & pageCodeBitMask
		data[1] = byte(bodyLength)
	}
	setBit(data, 0, parametersSaveableBit, saveable)
	return data
}

func cloneBytes(data []byte) []byte {
	result := make([]byte, len(data))
	copy(result, data)
	return result
}

// ModePages is the page store of a logical unit, kept in ascending page
// code order as MODE SENSE returns it.
type ModePages []ModePage

func (modePages ModePages) findPage(pageCode, subPageCode uint8) (int, bool) {
	for index, modePage := range modePages {
		descriptor := modePage.Descriptor
		if descriptor.PageCode == pageCode && descriptor.SubPageCode == subPageCode {
			return index, true
		}
	}
	return 0, false
}

// selectPages returns the pages a MODE SENSE page code and subpage code
// pair asks for. Page 3Fh with subpage 00h is every page_0 format page,
// subpage FFh on any page code adds the subpages.
func (modePages ModePages) selectPages(pageCode, subPageCode uint8) (ModePages, error) {
	if pageCode == allModePages && subPageCode != 0x00 && subPageCode != allSubPages {
		return nil, fmt.Errorf(
			"mode page for all pages (pageCode=%d) does not "+
				"support subpage code subPageCode=%d",
			pageCode,
			subPageCode,
		)
	}
	selected := make(ModePages, 0, len(modePages))
	for _, modePage := range modePages {
		descriptor := modePage.Descriptor
		if pageCode != allModePages && descriptor.PageCode != pageCode {
			continue
		}
		if subPageCode != allSubPages && descriptor.SubPageCode != subPageCode {
			continue
		}
		selected = append(selected, modePage)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf(
			"mode page pageCode=%d, subPageCode=%d not found",
			pageCode,
			subPageCode,
		)
	}
	return selected, nil
}
