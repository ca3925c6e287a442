// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHeaderAllZero(t *testing.T) {
	deviceTypes := []SCSIDeviceType{TypeDisk, TypeTape, TypePrinter, TypeOptical, TypeMultiMedia, TypeEnclosure}
	for _, form := range []ModeForm{ModeForm6, ModeForm10} {
		for _, deviceType := range deviceTypes {
			header, consumed, ok := DecodeHeader(make([]byte, form.headerSize()), deviceType, form)
			require.True(t, ok, "%s %s", form, deviceType)
			assert.Equal(t, form.headerSize(), consumed)
			assert.Equal(t, uint8(0), header.MediumType)
			assert.Equal(t, "Default", MediumTypeName(deviceType, header.MediumType))
			assert.False(t, header.WriteProtected)
			assert.False(t, header.DPOFUA)
			assert.Empty(t, header.BlockDescriptors)
		}
	}
}

func TestDecodeHeaderTooShort(t *testing.T) {
	_, _, ok := DecodeHeader6(make([]byte, 3), TypeDisk)
	assert.False(t, ok)
	_, _, ok = DecodeHeader10(make([]byte, 7), TypeDisk)
	assert.False(t, ok)
}

func TestDecodeHeader10DirectAccessDescriptor(t *testing.T) {
	buffer := []byte{
		0x00, 0x0e, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x00, 0x00, 100, 0x00, 0x00, 0x02, 0x00,
	}
	header, consumed, ok := DecodeHeader10(buffer, TypeDisk)
	require.True(t, ok)
	assert.Equal(t, 16, consumed)
	require.Len(t, header.BlockDescriptors, 1)
	assert.Equal(t, BlockDescriptor{Blocks: 100, BlockLength: 512}, header.BlockDescriptors[0])
}

func TestDecodeHeaderDeviceSpecificParameter(t *testing.T) {
	t.Run("direct access", func(t *testing.T) {
		header, _, ok := DecodeHeader6([]byte{0x03, 0x00, 0x90, 0x00}, TypeDisk)
		require.True(t, ok)
		assert.True(t, header.WriteProtected)
		assert.True(t, header.DPOFUA)
		assert.False(t, header.EnableBlankCheck)
	})
	t.Run("optical", func(t *testing.T) {
		header, _, ok := DecodeHeader6([]byte{0x03, 0x00, 0x01, 0x00}, TypeOptical)
		require.True(t, ok)
		assert.True(t, header.EnableBlankCheck)
		assert.False(t, header.WriteProtected)
	})
	t.Run("tape", func(t *testing.T) {
		header, _, ok := DecodeHeader6([]byte{0x03, 0x00, 0x9a, 0x00}, TypeTape)
		require.True(t, ok)
		assert.True(t, header.WriteProtected)
		assert.Equal(t, uint8(1), header.BufferedMode)
		assert.Equal(t, uint8(0x0a), header.Speed)
		assert.False(t, header.DPOFUA)
	})
	t.Run("printer", func(t *testing.T) {
		header, _, ok := DecodeHeader6([]byte{0x03, 0x00, 0xa0, 0x00}, TypePrinter)
		require.True(t, ok)
		assert.Equal(t, uint8(2), header.BufferedMode)
		assert.False(t, header.WriteProtected)
	})
	t.Run("other device types ignore it", func(t *testing.T) {
		header, _, ok := DecodeHeader6([]byte{0x03, 0x00, 0xff, 0x00}, TypeEnclosure)
		require.True(t, ok)
		assert.Equal(t, ModeHeader{}, header)
	})
}

func TestDecodeHeaderGeneralDescriptor(t *testing.T) {
	buffer := []byte{
		0x0b, 0x00, 0x10, 0x08,
		0x44, 0x00, 0x01, 0x00, 0x00, 0x00, 0x04, 0x00,
	}
	header, consumed, ok := DecodeHeader6(buffer, TypeTape)
	require.True(t, ok)
	assert.Equal(t, 12, consumed)
	require.Len(t, header.BlockDescriptors, 1)
	assert.Equal(t, BlockDescriptor{Density: 0x44, Blocks: 256, BlockLength: 1024}, header.BlockDescriptors[0])
}

func TestDecodeHeaderMultiMediaDescriptor(t *testing.T) {
	descriptor := []byte{0x00, 0x00, 0x00, 100, 0x00, 0x00, 0x08, 0x00}

	t.Run("mode sense 6 uses the direct access layout", func(t *testing.T) {
		header, consumed, ok := DecodeHeader6(append([]byte{0x0b, 0x00, 0x00, 0x08}, descriptor...), TypeMultiMedia)
		require.True(t, ok)
		assert.Equal(t, 12, consumed)
		require.Len(t, header.BlockDescriptors, 1)
		assert.Equal(t, BlockDescriptor{Blocks: 100, BlockLength: 2048}, header.BlockDescriptors[0])

		withDensity := cloneBytes(descriptor)
		withDensity[0] = 0x01
		header, _, ok = DecodeHeader6(append([]byte{0x0b, 0x00, 0x00, 0x08}, withDensity...), TypeMultiMedia)
		require.True(t, ok)
		assert.Equal(t, BlockDescriptor{Blocks: 0x01000064, BlockLength: 2048}, header.BlockDescriptors[0])
	})
	t.Run("mode sense 10 uses the general layout", func(t *testing.T) {
		withDensity := cloneBytes(descriptor)
		withDensity[0] = 0x01
		buffer := append([]byte{0x00, 0x0e, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08}, withDensity...)
		header, consumed, ok := DecodeHeader10(buffer, TypeMultiMedia)
		require.True(t, ok)
		assert.Equal(t, 16, consumed)
		require.Len(t, header.BlockDescriptors, 1)
		assert.Equal(t, BlockDescriptor{Density: 0x01, Blocks: 100, BlockLength: 2048}, header.BlockDescriptors[0])
	})
}

func TestDecodeHeaderLongLBA(t *testing.T) {
	buffer := []byte{
		0x00, 0x16, 0x00, 0x00, 0x01, 0x00, 0x00, 0x10,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
	}
	header, consumed, ok := DecodeHeader10(buffer, TypeDisk)
	require.True(t, ok)
	assert.Equal(t, 24, consumed)
	assert.True(t, header.LongLBA)
	require.Len(t, header.BlockDescriptors, 1)
	assert.Equal(t, BlockDescriptor{Blocks: 1 << 32, BlockLength: 4096}, header.BlockDescriptors[0])
}

func TestDecodeHeaderDescriptorLengthPastBuffer(t *testing.T) {
	// two descriptors declared, one and a half present
	buffer := []byte{
		0x00, 0x00, 0x00, 0x10,
		0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x02, 0x00,
		0x00, 0x00, 0x00, 0x20,
	}
	header, consumed, ok := DecodeHeader6(buffer, TypeDisk)
	require.True(t, ok)
	assert.Equal(t, len(buffer), consumed)
	require.Len(t, header.BlockDescriptors, 1)
	assert.Equal(t, uint64(16), header.BlockDescriptors[0].Blocks)
}

func TestEncodeHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		name       string
		deviceType SCSIDeviceType
		form       ModeForm
		header     ModeHeader
	}{
		{
			name:       "disk 6",
			deviceType: TypeDisk,
			form:       ModeForm6,
			header: ModeHeader{
				DPOFUA:           true,
				BlockDescriptors: []BlockDescriptor{{Blocks: 2097152, BlockLength: 512}},
			},
		},
		{
			name:       "disk 10 long LBA",
			deviceType: TypeDisk,
			form:       ModeForm10,
			header: ModeHeader{
				WriteProtected: true,
				LongLBA:        true,
				BlockDescriptors: []BlockDescriptor{
					{Blocks: 1 << 40, BlockLength: 4096},
					{Blocks: 7, BlockLength: 512},
				},
			},
		},
		{
			name:       "tape 10",
			deviceType: TypeTape,
			form:       ModeForm10,
			header: ModeHeader{
				MediumType:       0x00,
				BufferedMode:     1,
				Speed:            3,
				BlockDescriptors: []BlockDescriptor{{Density: 0x5c}},
			},
		},
		{
			name:       "optical 6",
			deviceType: TypeOptical,
			form:       ModeForm6,
			header: ModeHeader{
				MediumType:       0x03,
				EnableBlankCheck: true,
				BlockDescriptors: []BlockDescriptor{{Density: 0x02, Blocks: 0xffffff, BlockLength: 2048}},
			},
		},
		{
			name:       "cdrom 10",
			deviceType: TypeMultiMedia,
			form:       ModeForm10,
			header: ModeHeader{
				BlockDescriptors: []BlockDescriptor{{Density: 0x01, Blocks: 1000, BlockLength: 2048}},
			},
		},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			data, err := EncodeHeader(testCase.header, testCase.deviceType, testCase.form)
			require.NoError(t, err)
			header, consumed, ok := DecodeHeader(data, testCase.deviceType, testCase.form)
			require.True(t, ok)
			assert.Equal(t, len(data), consumed)
			assert.Equal(t, testCase.header, header)
		})
	}
}

func TestEncodeHeaderClampsBlockCount(t *testing.T) {
	header := ModeHeader{BlockDescriptors: []BlockDescriptor{{Blocks: 1 << 40, BlockLength: 512}}}
	data, err := EncodeHeader6(header, TypeDisk)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, data[4:8])

	data, err = EncodeHeader6(header, TypeTape)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff, 0xff}, data[5:8])
}

func TestEncodeHeader6TooManyDescriptors(t *testing.T) {
	header := ModeHeader{BlockDescriptors: make([]BlockDescriptor, 32)}
	_, err := EncodeHeader6(header, TypeDisk)
	var tooLong *ErrModeDataTooLong
	require.ErrorAs(t, err, &tooLong)

	_, err = EncodeHeader10(header, TypeDisk)
	assert.NoError(t, err)
}

func TestParseModeForm(t *testing.T) {
	form, err := ParseModeForm("6")
	require.NoError(t, err)
	assert.Equal(t, ModeForm6, form)
	form, err = ParseModeForm(" 10 ")
	require.NoError(t, err)
	assert.Equal(t, ModeForm10, form)
	_, err = ParseModeForm("12")
	var unknown *ErrUnknownModeForm
	assert.ErrorAs(t, err, &unknown)

	var decoded struct {
		Form ModeForm `json:"form"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"form": 10}`), &decoded))
	assert.Equal(t, ModeForm10, decoded.Form)
	assert.Error(t, json.Unmarshal([]byte(`{"form": 8}`), &decoded))
}
