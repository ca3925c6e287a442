// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import "fmt"

const (
	NoSense        byte = 0x00
	NotReady       byte = 0x02
	MediumError    byte = 0x03
	IllegalRequest byte = 0x05
	UnitAttention  byte = 0x06
)

type AdditionalSenseCode uint16

var (
	// Key 0: No Sense Errors
	NoAdditionalSense AdditionalSenseCode = 0x0000

	// Key 2: Not ready
	AscBecomingReady    AdditionalSenseCode = 0x0401
	AscMediumNotPresent AdditionalSenseCode = 0x3a00

	// Key 5: Illegal Request
	AscParameterListLengthError    AdditionalSenseCode = 0x1a00
	AscInvalidOpCode               AdditionalSenseCode = 0x2000
	AscInvalidFieldInCdb           AdditionalSenseCode = 0x2400
	AscInvalidFieldInParameterList AdditionalSenseCode = 0x2600
	AscSavingParmsUnsup            AdditionalSenseCode = 0x3900

	// Key 6: Unit Attention
	AscModeParametersChanged AdditionalSenseCode = 0x2a01
)

var additionalSenseCodeNames = map[AdditionalSenseCode]string{
	NoAdditionalSense:              "no additional sense information",
	AscBecomingReady:               "logical unit is in process of becoming ready",
	AscMediumNotPresent:            "medium not present",
	AscParameterListLengthError:    "parameter list length error",
	AscInvalidOpCode:               "invalid command operation code",
	AscInvalidFieldInCdb:           "invalid field in cdb",
	AscInvalidFieldInParameterList: "invalid field in parameter list",
	AscSavingParmsUnsup:            "saving parameters not supported",
	AscModeParametersChanged:       "mode parameters changed",
}

func (asc AdditionalSenseCode) String() string {
	if name, ok := additionalSenseCodeNames[asc]; ok {
		return name
	}
	return fmt.Sprintf("asc 0x%02x ascq 0x%02x", byte(asc>>8), byte(asc))
}

type ErrModeHeaderTooShort struct {
	form   ModeForm
	length int
}

func (err ErrModeHeaderTooShort) Error() string {
	return fmt.Sprintf(
		"%s parameter header needs %d bytes, buffer has %d",
		err.form,
		err.form.headerSize(),
		err.length,
	)
}

func newErrModeHeaderTooShort(form ModeForm, length int) error {
	return &ErrModeHeaderTooShort{form: form, length: length}
}

type ErrModeDataTooLong struct {
	form    ModeForm
	field   string
	length  int
	maximum int
}

func (err ErrModeDataTooLong) Error() string {
	return fmt.Sprintf(
		"%s %s of %d bytes exceeds %d",
		err.form,
		err.field,
		err.length,
		err.maximum,
	)
}

func newErrModeDataTooLong(form ModeForm, field string, length int, maximum int) error {
	return &ErrModeDataTooLong{
		form:    form,
		field:   field,
		length:  length,
		maximum: maximum,
	}
}
