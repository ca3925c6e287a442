// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package capture

import (
	"io/fs"
	"modecodec/pkg/scsi"
	"os"
	"path/filepath"
	"testing"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diskResponse(t *testing.T) []byte {
	t.Helper()
	mode := &scsi.Mode{
		Header: scsi.ModeHeader{
			DPOFUA:           true,
			BlockDescriptors: []scsi.BlockDescriptor{{Blocks: 2048, BlockLength: 512}},
		},
		Pages: []scsi.ModePage{scsi.NewModePage(&scsi.CachingPage{WriteCacheEnabled: true})},
	}
	response, err := scsi.AssembleModeSense(mode, scsi.TypeDisk, scsi.ModeForm10)
	require.NoError(t, err)
	return response
}

func TestNew(t *testing.T) {
	response := diskResponse(t)
	capture := New(scsi.TypeDisk, scsi.ModeForm10, response)
	assert.NotEqual(t, uuid.Nil, capture.ID)
	data, err := capture.Bytes()
	require.NoError(t, err)
	assert.Equal(t, response, data)
	assert.Contains(t, capture.String(), "Direct-Access MODE(10), 28 bytes")

	mode, err := capture.Decode()
	require.NoError(t, err)
	require.Len(t, mode.Pages, 1)
	caching, ok := mode.Pages[0].Decoded.(*scsi.CachingPage)
	require.True(t, ok)
	assert.True(t, caching.WriteCacheEnabled)

	other := New(scsi.TypeDisk, scsi.ModeForm10, response)
	assert.NotEqual(t, capture.ID, other.ID)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sda.json")
	capture := New(scsi.TypeTape, scsi.ModeForm6, []byte{0x03, 0x00, 0x10, 0x00})
	require.NoError(t, capture.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, capture.ID, loaded.ID)
	assert.True(t, capture.Taken.Equal(loaded.Taken))
	assert.Equal(t, scsi.TypeTape, loaded.DeviceType)
	assert.Equal(t, scsi.ModeForm6, loaded.Form)
	assert.Equal(t, "03001000", loaded.Response)

	mode, err := loaded.Decode()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), mode.Header.BufferedMode)
}

func TestLoadErrors(t *testing.T) {
	directory := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(directory, "missing.json"))
		var fileError *ErrCaptureFile
		require.ErrorAs(t, err, &fileError)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
	t.Run("not json", func(t *testing.T) {
		path := filepath.Join(directory, "garbage.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
		_, err := Load(path)
		var fileError *ErrCaptureFile
		assert.ErrorAs(t, err, &fileError)
	})
	t.Run("unknown device type", func(t *testing.T) {
		path := filepath.Join(directory, "type.json")
		content := `{"device_type": "toaster", "form": 6, "response": "00"}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := Load(path)
		var unknown *scsi.ErrUnknownDeviceType
		assert.ErrorAs(t, err, &unknown)
	})
	t.Run("bad response", func(t *testing.T) {
		path := filepath.Join(directory, "hex.json")
		content := `{"device_type": "disk", "form": 10, "response": "0g"}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := Load(path)
		var badHex *ErrBadHex
		assert.ErrorAs(t, err, &badHex)
		var fileError *ErrCaptureFile
		assert.ErrorAs(t, err, &fileError)
	})
}

func TestParseHex(t *testing.T) {
	expected := []byte{0x08, 0x0a, 0xff}
	inputs := []string{
		"080aff",
		"08 0a ff",
		"08:0a:ff",
		"0x08, 0x0a, 0xFF",
		" 08 0a\n ff\n",
	}
	for _, input := range inputs {
		data, err := ParseHex(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, data, input)
	}

	data, err := ParseHex("")
	require.NoError(t, err)
	assert.Empty(t, data)

	for _, input := range []string{"0g", "080", "08 0a f"} {
		_, err := ParseHex(input)
		var badHex *ErrBadHex
		assert.ErrorAs(t, err, &badHex, input)
	}
}

func TestErrBadHexShortensText(t *testing.T) {
	text := "00112233445566778899aabbccddeeff0011z"
	_, err := ParseHex(text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad hex '"+text[:32]+"...'")
}
