// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramePagesVendorPage(t *testing.T) {
	buffer := []byte{0x00, 0xde, 0xad, 0xbe, 0xef}
	descriptors := FramePages(buffer)
	require.Len(t, descriptors, 1)
	assert.Equal(t, uint8(0), descriptors[0].PageCode)
	assert.Equal(t, buffer, descriptors[0].Data)
	assert.Len(t, descriptors[0].Data, 5)
	assert.False(t, descriptors[0].Truncated)
}

func TestFramePagesVendorPageTakesTheRest(t *testing.T) {
	caching := (&CachingPage{WriteCacheEnabled: true}).Encode()
	buffer := append(append([]byte{}, caching...), 0x00, 0x08, 0x0a, 0x01)
	descriptors := FramePages(buffer)
	require.Len(t, descriptors, 2)
	assert.Equal(t, caching, descriptors[0].Data)
	assert.Equal(t, []byte{0x00, 0x08, 0x0a, 0x01}, descriptors[1].Data)
}

func TestFramePagesConcatenation(t *testing.T) {
	rotationRate := uint16(7200)
	encodings := [][]byte{
		(&ReadWriteErrorRecoveryPage{ReadRetryCount: 3}).Encode(),
		(&RigidDiskGeometryPage{NumberOfHeads: 16, MediumRotationRate: &rotationRate}).Encode(),
		(&CachingPage{Extension: &CachingPageExtension{NumberOfCacheSegments: 8}}).Encode(),
		(&ControlExtensionPage{MaximumSenseDataLength: 252}).Encode(),
		(&PowerConditionPage{IdleEnabled: true, SPC4: &PowerConditionSPC4{}}).Encode(),
	}
	var buffer []byte
	for _, encoding := range encodings {
		buffer = append(buffer, encoding...)
	}
	descriptors := FramePages(buffer)
	require.Len(t, descriptors, len(encodings))
	for index, descriptor := range descriptors {
		assert.Equal(t, encodings[index], descriptor.Data, "page %d", index)
		assert.Equal(t, len(encodings[index])-descriptor.headerSize(), descriptor.DeclaredLength)
		assert.False(t, descriptor.Truncated)
	}
	assert.True(t, descriptors[3].SubPage)
	assert.Equal(t, uint8(0x01), descriptors[3].SubPageCode)
}

func TestFramePagesTruncation(t *testing.T) {
	control := (&ControlPage{QueueAlgorithmModifier: 1}).Encode()
	caching := (&CachingPage{WriteCacheEnabled: true}).Encode()
	buffer := append(append([]byte{}, control...), caching[:7]...)

	descriptors := FramePages(buffer)
	require.Len(t, descriptors, 2)
	assert.Equal(t, control, descriptors[0].Data)
	last := descriptors[1]
	assert.True(t, last.Truncated)
	assert.Equal(t, cachingPageCode, last.PageCode)
	assert.Equal(t, 10, last.DeclaredLength)
	assert.Equal(t, caching[:7], last.Data)
	assert.Nil(t, DecodePage(last, TypeDisk))
}

func TestFramePagesFragmentShorterThanHeader(t *testing.T) {
	t.Run("page_0", func(t *testing.T) {
		descriptors := FramePages([]byte{0x08})
		require.Len(t, descriptors, 1)
		assert.True(t, descriptors[0].Truncated)
		assert.Equal(t, []byte{0x08}, descriptors[0].Data)
	})
	t.Run("sub_page", func(t *testing.T) {
		descriptors := FramePages([]byte{0x4a, 0x01, 0x00})
		require.Len(t, descriptors, 1)
		assert.True(t, descriptors[0].Truncated)
		assert.True(t, descriptors[0].SubPage)
		assert.Len(t, descriptors[0].Data, 3)
	})
}

func TestFramePagesEmpty(t *testing.T) {
	assert.Empty(t, FramePages(nil))
	assert.Empty(t, FramePages([]byte{}))
}

func TestFramePagesDoesNotAlias(t *testing.T) {
	buffer := (&ControlPage{}).Encode()
	descriptors := FramePages(buffer)
	require.Len(t, descriptors, 1)
	buffer[2] = 0xff
	assert.Equal(t, byte(0x00), descriptors[0].Data[2])
}

func TestSelectPages(t *testing.T) {
	pages := ModePages{
		NewModePage(&ReadWriteErrorRecoveryPage{}),
		NewModePage(&ControlPage{}),
		NewModePage(&ControlExtensionPage{}),
		NewModePage(&InformationalExceptionsPage{}),
	}

	t.Run("all pages without subpages", func(t *testing.T) {
		selected, err := pages.selectPages(allModePages, 0x00)
		require.NoError(t, err)
		assert.Len(t, selected, 3)
		for _, page := range selected {
			assert.False(t, page.Descriptor.SubPage)
		}
	})
	t.Run("all pages and subpages", func(t *testing.T) {
		selected, err := pages.selectPages(allModePages, allSubPages)
		require.NoError(t, err)
		assert.Len(t, selected, 4)
	})
	t.Run("every subpage of one page", func(t *testing.T) {
		selected, err := pages.selectPages(controlPageCode, allSubPages)
		require.NoError(t, err)
		require.Len(t, selected, 2)
		assert.Equal(t, uint8(0x00), selected[0].Descriptor.SubPageCode)
		assert.Equal(t, uint8(0x01), selected[1].Descriptor.SubPageCode)
	})
	t.Run("one subpage", func(t *testing.T) {
		selected, err := pages.selectPages(controlPageCode, controlExtensionSubPageCode)
		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.IsType(t, &ControlExtensionPage{}, selected[0].Decoded)
	})
	t.Run("missing page", func(t *testing.T) {
		_, err := pages.selectPages(cachingPageCode, 0x00)
		assert.Error(t, err)
	})
	t.Run("all pages with a single subpage", func(t *testing.T) {
		_, err := pages.selectPages(allModePages, 0x01)
		assert.Error(t, err)
	})
}

func FuzzFramePages(f *testing.F) {
	f.Add((&CachingPage{WriteCacheEnabled: true}).Encode())
	f.Add(append((&ControlPage{}).Encode(), 0x4a, 0x01, 0x00, 0x1c))
	f.Add([]byte{0x00, 0x01, 0x02})
	f.Add([]byte{0x08, 0xff, 0x00})
	f.Fuzz(func(t *testing.T, buffer []byte) {
		descriptors := FramePages(buffer)
		var joined []byte
		for index, descriptor := range descriptors {
			joined = append(joined, descriptor.Data...)
			if descriptor.Truncated {
				if index != len(descriptors)-1 {
					t.Fatalf("truncated page %d is not the last one", index)
				}
				continue
			}
			if descriptor.PageCode != vendorPageCode && descriptor.DeclaredLength+descriptor.headerSize() != len(descriptor.Data) {
				t.Fatalf("%s declares %d bytes", descriptor, descriptor.DeclaredLength)
			}
			for _, deviceType := range []SCSIDeviceType{TypeDisk, TypeTape, TypeMultiMedia} {
				if page := DecodePage(descriptor, deviceType); page != nil {
					_ = page.Render()
				}
			}
		}
		if !bytes.Equal(joined, buffer) {
			t.Fatalf("pages do not cover the buffer")
		}
		for _, form := range []ModeForm{ModeForm6, ModeForm10} {
			if mode, err := DecodeMode(buffer, TypeDisk, form); err == nil {
				_ = mode.Render(TypeDisk)
			}
		}
	})
}
