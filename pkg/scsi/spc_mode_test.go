// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDiskMode() *Mode {
	return &Mode{
		Header: ModeHeader{
			DPOFUA:           true,
			BlockDescriptors: []BlockDescriptor{{Blocks: 2048, BlockLength: 512}},
		},
		Pages: []ModePage{
			NewModePage(&CachingPage{WriteCacheEnabled: true, MaximumPreFetch: 0xffff}),
			NewModePage(&ControlPage{SPC: &ControlPageSPC{GlobalLoggingTargetSaveDisable: true}}),
			NewModePage(&ControlExtensionPage{MaximumSenseDataLength: 252}),
		},
	}
}

func TestAssembleModeSenseDecodes(t *testing.T) {
	for _, form := range []ModeForm{ModeForm6, ModeForm10} {
		t.Run(form.String(), func(t *testing.T) {
			mode := sampleDiskMode()
			response, err := AssembleModeSense(mode, TypeDisk, form)
			require.NoError(t, err)
			if form == ModeForm10 {
				assert.Equal(t, len(response)-2, int(beUint16(response, 0)))
			} else {
				assert.Equal(t, len(response)-1, int(response[0]))
			}

			decoded, err := DecodeMode(response, TypeDisk, form)
			require.NoError(t, err)
			assert.Equal(t, mode.Header, decoded.Header)
			require.Len(t, decoded.Pages, len(mode.Pages))
			for index, page := range decoded.Pages {
				assert.Equal(t, mode.Pages[index].Decoded, page.Decoded)
				assert.Equal(t, mode.Pages[index].Descriptor, page.Descriptor)
			}
		})
	}
}

func TestAssembleModeSelectLeavesLengthZero(t *testing.T) {
	parameterList, err := AssembleModeSelect(sampleDiskMode(), TypeDisk, ModeForm10)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, parameterList[:2])

	decoded, err := DecodeMode(parameterList, TypeDisk, ModeForm10)
	require.NoError(t, err)
	assert.Len(t, decoded.Pages, 3)
}

func TestAssembleModeTooLong(t *testing.T) {
	mode := &Mode{}
	for code := uint8(0x20); code < 0x30; code++ {
		data := pageHeader(code, 0, false, false, 30)
		mode = mode.WithPage(ModePage{
			Descriptor: PageDescriptor{PageCode: code, DeclaredLength: 30, Data: data},
		})
	}
	_, err := AssembleModeSense(mode, TypeDisk, ModeForm6)
	var tooLong *ErrModeDataTooLong
	require.ErrorAs(t, err, &tooLong)

	response, err := AssembleModeSense(mode, TypeDisk, ModeForm10)
	require.NoError(t, err)
	assert.Len(t, response, 8+16*32)
}

func TestDecodeModeHeaderTooShort(t *testing.T) {
	_, err := DecodeMode([]byte{0x00, 0x06, 0x00}, TypeDisk, ModeForm6)
	var tooShort *ErrModeHeaderTooShort
	require.ErrorAs(t, err, &tooShort)
	assert.Contains(t, err.Error(), "needs 4 bytes, buffer has 3")

	_, err = DecodeMode(make([]byte, 7), TypeDisk, ModeForm10)
	assert.ErrorAs(t, err, &tooShort)
}

func TestDecodeModeIgnoresPadding(t *testing.T) {
	response, err := AssembleModeSense(sampleDiskMode(), TypeDisk, ModeForm10)
	require.NoError(t, err)
	padded := append(cloneBytes(response), make([]byte, 64)...)
	decoded, err := DecodeMode(padded, TypeDisk, ModeForm10)
	require.NoError(t, err)
	assert.Len(t, decoded.Pages, 3)
}

func TestDecodeModeTruncatedResponse(t *testing.T) {
	response, err := AssembleModeSense(sampleDiskMode(), TypeDisk, ModeForm10)
	require.NoError(t, err)
	// allocation length cut the control extension page short
	truncated := response[:len(response)-10]
	decoded, err := DecodeMode(truncated, TypeDisk, ModeForm10)
	require.NoError(t, err)
	require.Len(t, decoded.Pages, 3)
	last := decoded.Pages[2]
	assert.True(t, last.Descriptor.Truncated)
	assert.Nil(t, last.Decoded)
	// the undecoded page goes out verbatim
	assert.Equal(t, last.Descriptor.Data, last.Bytes())
}

func TestAssembleKeepsDeviceExtents(t *testing.T) {
	// rigid disk geometry ending after the rotation rate
	geometry := make([]byte, 22)
	geometry[0] = rigidDiskGeometryPageCode
	geometry[1] = 20
	geometry[5] = 4
	putBeUint(geometry, 20, 2, 7200)
	// caching page with bytes past the SBC extension
	caching := make([]byte, 24)
	caching[0] = cachingPageCode
	caching[1] = 0x16
	caching[2] = 0x04
	caching[13] = 8
	caching[22] = 0xab
	caching[23] = 0xcd
	buffer := append(make([]byte, 8), geometry...)
	buffer = append(buffer, caching...)

	mode, err := DecodeMode(buffer, TypeDisk, ModeForm10)
	require.NoError(t, err)
	require.Len(t, mode.Pages, 2)
	require.NotNil(t, mode.Pages[0].Decoded)
	require.NotNil(t, mode.Pages[1].Decoded)

	parameterList, err := AssembleModeSelect(mode, TypeDisk, ModeForm10)
	require.NoError(t, err)
	assert.Equal(t, buffer, parameterList)

	pages := FramePages(parameterList[8:])
	require.Len(t, pages, 2)
	assert.Equal(t, geometry, pages[0].Data)
	assert.Equal(t, caching, pages[1].Data)

	// a changed record is laid over the same extent
	changed := *mode.Pages[1].Decoded.(*CachingPage)
	changed.WriteCacheEnabled = false
	changed.ReadCacheDisabled = true
	mode = mode.WithPage(mode.Pages[1].WithDecoded(&changed))
	parameterList, err = AssembleModeSelect(mode, TypeDisk, ModeForm10)
	require.NoError(t, err)
	pages = FramePages(parameterList[8:])
	require.Len(t, pages, 2)
	expected := cloneBytes(caching)
	expected[2] = 0x01
	assert.Equal(t, expected, pages[1].Data)

	// pages built from a record use the standard length
	assert.Len(t, NewModePage(mode.Pages[0].Decoded.(EncodablePage)).Bytes(), rigidDiskGeometryLength)
}

func TestModeWithPage(t *testing.T) {
	mode := sampleDiskMode()
	replaced := mode.WithPage(NewModePage(&CachingPage{}))
	require.Len(t, replaced.Pages, 3)
	caching, ok := replaced.FindPage(cachingPageCode, 0)
	require.True(t, ok)
	assert.False(t, caching.Decoded.(*CachingPage).WriteCacheEnabled)

	original, ok := mode.FindPage(cachingPageCode, 0)
	require.True(t, ok)
	assert.True(t, original.Decoded.(*CachingPage).WriteCacheEnabled)

	appended := mode.WithPage(NewModePage(&InformationalExceptionsPage{}))
	assert.Len(t, appended.Pages, 4)
	_, ok = mode.FindPage(informationalExceptionsPageCode, 0)
	assert.False(t, ok)

	extension, ok := mode.FindPage(controlPageCode, controlExtensionSubPageCode)
	require.True(t, ok)
	assert.IsType(t, &ControlExtensionPage{}, extension.Decoded)
}

func TestModeWithHeader(t *testing.T) {
	mode := sampleDiskMode()
	changed := mode.WithHeader(ModeHeader{WriteProtected: true})
	assert.True(t, changed.Header.WriteProtected)
	assert.False(t, mode.Header.WriteProtected)
	assert.Len(t, changed.Pages, len(mode.Pages))
}

func TestModeRender(t *testing.T) {
	mode := sampleDiskMode()
	mode = mode.WithPage(ModePage{
		Descriptor: PageDescriptor{PageCode: 0x25, DeclaredLength: 2, Data: []byte{0x25, 0x02, 0xca, 0xfe}},
	})
	rendered := mode.Render(TypeDisk)
	assert.Contains(t, rendered, "Mode parameter header (Direct-Access)")
	assert.Contains(t, rendered, "DPO and FUA supported: true")
	assert.Contains(t, rendered, "Block descriptor 0: density Default, blocks 2048, block length 512")
	assert.Contains(t, rendered, "Caching mode page (0x08)")
	assert.Contains(t, rendered, "  Write cache enabled: yes")
	assert.Contains(t, rendered, "Control Extension mode page (0x0a/0x01)")
	assert.Contains(t, rendered, "Vendor specific or device specific page 0x25, undecoded page 0x25 (4 bytes)")
	assert.Contains(t, rendered, "25 02 ca fe")
}

func TestModeRenderTape(t *testing.T) {
	mode := &Mode{
		Header: ModeHeader{
			BufferedMode:     1,
			BlockDescriptors: []BlockDescriptor{{Density: 0x5c}},
		},
	}
	rendered := mode.Render(TypeTape)
	assert.Contains(t, rendered, "Buffered mode: 1 (buffered)")
	assert.Contains(t, rendered, "density LTO-7, blocks all remaining, block length variable")
}
