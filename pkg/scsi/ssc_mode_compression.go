// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "fmt"

const (
	dataCompressionPageCode = byte(0x0f)
	dataCompressionLength   = 16
)

// DataCompressionPage is the Data Compression mode page (0Fh) of
// sequential access devices.
//
// Reference : SSC4r03
// 8.3.3 - Data Compression mode page
type DataCompressionPage struct {
	ParametersSaveable bool
	// DCE, DCC
	CompressionEnabled bool
	CompressionCapable bool
	// DDE, RED
	DecompressionEnabled           bool
	ReportExceptionOnDecompression uint8
	CompressionAlgorithm           uint32
	DecompressionAlgorithm         uint32
}

func decodeDataCompressionPage(data []byte) (*DataCompressionPage, bool) {
	if !checkPageFrame(data, dataCompressionPageCode, false, 0, dataCompressionLength) {
		return nil, false
	}
	return &DataCompressionPage{
		ParametersSaveable:             parametersSaveable(data),
		CompressionEnabled:             bitIsSet(data, 2, 0x80),
		CompressionCapable:             bitIsSet(data, 2, 0x40),
		DecompressionEnabled:           bitIsSet(data, 3, 0x80),
		ReportExceptionOnDecompression: bitField(data, 3, 0x60),
		CompressionAlgorithm:           beUint32(data, 4),
		DecompressionAlgorithm:         beUint32(data, 8),
	}, true
}

func (page *DataCompressionPage) Encode() []byte {
	data := pageHeader(dataCompressionPageCode, 0, false, page.ParametersSaveable, dataCompressionLength-page0HeaderSize)
	setBit(data, 2, 0x80, page.CompressionEnabled)
	setBit(data, 2, 0x40, page.CompressionCapable)
	setBit(data, 3, 0x80, page.DecompressionEnabled)
	setBitField(data, 3, 0x60, page.ReportExceptionOnDecompression)
	putBeUint(data, 4, 4, uint64(page.CompressionAlgorithm))
	putBeUint(data, 8, 4, uint64(page.DecompressionAlgorithm))
	return data
}

func (page *DataCompressionPage) Render() string {
	renderer := newPageRenderer(page, page.ParametersSaveable)
	renderer.flag("Data compression enabled", page.CompressionEnabled)
	renderer.flag("Data compression capable", page.CompressionCapable)
	renderer.flag("Data decompression enabled", page.DecompressionEnabled)
	renderer.number("Report exception on decompression", uint64(page.ReportExceptionOnDecompression))
	renderer.value("Compression algorithm", compressionAlgorithmName(page.CompressionAlgorithm))
	renderer.value("Decompression algorithm", compressionAlgorithmName(page.DecompressionAlgorithm))
	return renderer.String()
}

func (page *DataCompressionPage) PageCode() uint8    { return dataCompressionPageCode }
func (page *DataCompressionPage) SubPageCode() uint8 { return 0 }
func (page *DataCompressionPage) Name() string       { return "Data Compression" }
func (page *DataCompressionPage) decodedPage()       {}

// Registered algorithm identifiers, SSC4r03 Annex B.
var compressionAlgorithms = map[uint32]string{
	0x00: "none",
	0x01: "default",
	0x03: "IBM ALDC, 512 byte buffer",
	0x04: "IBM ALDC, 1024 byte buffer",
	0x05: "IBM ALDC, 2048 byte buffer",
	0x10: "IBM IDRC",
	0x20: "DCLZ",
	0xff: "unregistered",
}

func compressionAlgorithmName(algorithm uint32) string {
	if name, ok := compressionAlgorithms[algorithm]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", algorithm)
}
