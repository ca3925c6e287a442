// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "testing"

func TestBitField(t *testing.T) {
	buffer := []byte{0xb6}
	cases := []struct {
		mask     byte
		expected uint8
	}{
		{0xf0, 0x0b},
		{0x0f, 0x06},
		{0xc0, 0x02},
		{0x30, 0x03},
		{0x06, 0x03},
		{0x01, 0x00},
		{0x00, 0x00},
	}
	for _, testCase := range cases {
		if value := bitField(buffer, 0, testCase.mask); value != testCase.expected {
			t.Errorf(
				"bitField(0x%02x, mask 0x%02x) expected 0x%02x, received 0x%02x",
				buffer[0],
				testCase.mask,
				testCase.expected,
				value,
			)
		}
	}
	if value := bitField(buffer, 1, 0xff); value != 0 {
		t.Errorf("out of range bitField expected 0, received %d", value)
	}
}

func TestSetBitFieldKeepsOtherBits(t *testing.T) {
	buffer := []byte{0xff}
	setBitField(buffer, 0, 0x30, 0x01)
	if buffer[0] != 0xdf {
		t.Errorf("expected 0xdf, received 0x%02x", buffer[0])
	}
	// values wider than the field are cut to it
	setBitField(buffer, 0, 0x0c, 0xff)
	if buffer[0] != 0xdf {
		t.Errorf("expected 0xdf, received 0x%02x", buffer[0])
	}
}

func TestBigEndianHelpers(t *testing.T) {
	buffer := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	if value := beUint16(buffer, 6); value != 0x0708 {
		t.Errorf("beUint16 expected 0x0708, received 0x%x", value)
	}
	if value := beUint24(buffer, 1); value != 0x020304 {
		t.Errorf("beUint24 expected 0x020304, received 0x%x", value)
	}
	if value := beUint(buffer, 0, 8); value != 0x0102030405060708 {
		t.Errorf("beUint expected 0x0102030405060708, received 0x%x", value)
	}
	if value := beUint32(buffer, 6); value != 0 {
		t.Errorf("beUint32 past the end expected 0, received 0x%x", value)
	}
	if value := beSigned8([]byte{0xfe}, 0); value != -2 {
		t.Errorf("beSigned8 expected -2, received %d", value)
	}

	written := make([]byte, 5)
	putBeUint(written, 1, 3, 0xaabbccdd)
	expected := []byte{0x00, 0xbb, 0xcc, 0xdd, 0x00}
	for index := range expected {
		if written[index] != expected[index] {
			t.Fatalf("putBeUint expected % x, received % x", expected, written)
		}
	}
	putBeUint(written, 3, 4, 0xffffffff)
	if written[3] != 0xdd || written[4] != 0x00 {
		t.Errorf("putBeUint past the end must not write, received % x", written)
	}
}
