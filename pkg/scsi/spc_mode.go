// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "modecodec/pkg/logger"

// ModePage is a framed page with its decoded record, if any codec
// accepted it. Decoded is nil for vendor, unknown or malformed pages.
type ModePage struct {
	Descriptor PageDescriptor
	Decoded    DecodedPage
}

// NewModePage frames the encoding of a typed page.
func NewModePage(page EncodablePage) ModePage {
	data := page.Encode()
	descriptor := PageDescriptor{
		PageCode:    page.PageCode(),
		SubPage:     bitIsSet(data, 0, subPageFormatBitMask),
		SubPageCode: page.SubPageCode(),
		Data:        data,
	}
	descriptor.DeclaredLength = len(data) - descriptor.headerSize()
	return ModePage{Descriptor: descriptor, Decoded: page}
}

// Bytes returns the page as it goes into a mode parameter list. Decoded
// pages are re-encoded over the extent they were framed from, so a page
// keeps the length the device reported along with any bytes past the
// last tier the codec knows. Anything else is copied verbatim.
func (page ModePage) Bytes() []byte {
	encodable, ok := page.Decoded.(EncodablePage)
	if !ok {
		return cloneBytes(page.Descriptor.Data)
	}
	encoded := encodable.Encode()
	extent := page.Descriptor.Data
	if len(extent) == 0 || len(extent) == len(encoded) {
		return encoded
	}
	data := cloneBytes(extent)
	copy(data, encoded)
	if page.Descriptor.SubPage {
		putBeUint(data, 2, 2, uint64(len(data)-subPageHeaderSize))
	} else {
		data[1] = byte(len(data) - page0HeaderSize)
	}
	return data
}

// WithDecoded returns page carrying another record for the same extent.
func (page ModePage) WithDecoded(decoded EncodablePage) ModePage {
	page.Decoded = decoded
	return page
}

// Mode is a decoded mode parameter list. It is never modified in place,
// WithPage and WithHeader return new values.
type Mode struct {
	Header ModeHeader
	Pages  []ModePage
}

// FindPage returns the first page with the given page and subpage code.
func (mode *Mode) FindPage(pageCode, subPageCode uint8) (ModePage, bool) {
	for _, page := range mode.Pages {
		descriptor := page.Descriptor
		if descriptor.PageCode == pageCode && descriptor.SubPageCode == subPageCode {
			return page, true
		}
	}
	return ModePage{}, false
}

// WithPage returns a copy of mode where page replaces the page with the
// same page and subpage code, or is appended when there is none.
func (mode *Mode) WithPage(page ModePage) *Mode {
	pages := make([]ModePage, 0, len(mode.Pages)+1)
	replaced := false
	for _, existing := range mode.Pages {
		if !replaced && existing.Descriptor.key() == page.Descriptor.key() {
			pages = append(pages, page)
			replaced = true
			continue
		}
		pages = append(pages, existing)
	}
	if !replaced {
		pages = append(pages, page)
	}
	return &Mode{Header: mode.Header, Pages: pages}
}

// WithHeader returns a copy of mode with another header.
func (mode *Mode) WithHeader(header ModeHeader) *Mode {
	pages := make([]ModePage, len(mode.Pages))
	copy(pages, mode.Pages)
	return &Mode{Header: header, Pages: pages}
}

// DecodeMode decodes a MODE SENSE response or a MODE SELECT parameter
// list. Only a buffer shorter than the fixed header is an error, pages
// no codec accepts are kept undecoded.
func DecodeMode(buffer []byte, deviceType SCSIDeviceType, form ModeForm) (*Mode, error) {
	log := logger.GetLogger()
	if len(buffer) < form.headerSize() {
		return nil, newErrModeHeaderTooShort(form, len(buffer))
	}
	buffer = trimToModeDataLength(buffer, form)
	header, consumed, ok := DecodeHeader(buffer, deviceType, form)
	if !ok {
		return nil, newErrModeHeaderTooShort(form, len(buffer))
	}
	descriptors := FramePages(buffer[consumed:])
	mode := &Mode{
		Header: header,
		Pages:  make([]ModePage, 0, len(descriptors)),
	}
	for _, descriptor := range descriptors {
		decoded := DecodePage(descriptor, deviceType)
		if decoded == nil {
			log.Debugf("%s left undecoded for %s", descriptor, deviceType)
		}
		mode.Pages = append(mode.Pages, ModePage{Descriptor: descriptor, Decoded: decoded})
	}
	return mode, nil
}

// trimToModeDataLength drops bytes past MODE DATA LENGTH, devices pad the
// response up to the allocation length. A length smaller than the header,
// as in MODE SELECT parameter lists, leaves the buffer alone.
func trimToModeDataLength(buffer []byte, form ModeForm) []byte {
	var total int
	if form == ModeForm10 {
		total = int(beUint16(buffer, 0)) + 2
	} else {
		total = int(buffer[0]) + 1
	}
	if total < form.headerSize() || total >= len(buffer) {
		return buffer
	}
	return buffer[:total]
}

// AssembleModeSelect builds a MODE SELECT parameter list, MODE DATA
// LENGTH is reserved there and left zero.
func AssembleModeSelect(mode *Mode, deviceType SCSIDeviceType, form ModeForm) ([]byte, error) {
	return assembleMode(mode, deviceType, form, false)
}

// AssembleModeSense builds a MODE SENSE response with MODE DATA LENGTH set.
func AssembleModeSense(mode *Mode, deviceType SCSIDeviceType, form ModeForm) ([]byte, error) {
	return assembleMode(mode, deviceType, form, true)
}

func assembleMode(mode *Mode, deviceType SCSIDeviceType, form ModeForm, modeDataLength bool) ([]byte, error) {
	data, err := EncodeHeader(mode.Header, deviceType, form)
	if err != nil {
		return nil, err
	}
	for _, page := range mode.Pages {
		data = append(data, page.Bytes()...)
	}
	maximum := 0xff
	if form == ModeForm10 {
		maximum = 0xffff
	}
	if len(data) > maximum {
		return nil, newErrModeDataTooLong(form, "parameter list length", len(data), maximum)
	}
	if modeDataLength {
		if form == ModeForm10 {
			putBeUint(data, 0, 2, uint64(len(data)-2))
		} else {
			data[0] = byte(len(data) - 1)
		}
	}
	return data, nil
}
