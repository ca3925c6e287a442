// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
// Package capture stores MODE SENSE responses with the context needed to
// decode them again later.
package capture

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"modecodec/pkg/common"
	"modecodec/pkg/scsi"
	"os"
	"strings"
	"time"

	uuid "github.com/satori/go.uuid"
)

type Capture struct {
	ID         uuid.UUID           `json:"id"`
	Taken      time.Time           `json:"taken"`
	DeviceType scsi.SCSIDeviceType `json:"device_type"`
	Form       scsi.ModeForm       `json:"form"`
	// MODE SENSE response as lowercase hex
	Response string `json:"response"`
}

// New records response as sensed now from a device of deviceType.
func New(deviceType scsi.SCSIDeviceType, form scsi.ModeForm, response []byte) *Capture {
	return &Capture{
		ID:         uuid.NewV4(),
		Taken:      time.Now().UTC(),
		DeviceType: deviceType,
		Form:       form,
		Response:   hex.EncodeToString(response),
	}
}

// Bytes returns the captured response.
func (capture *Capture) Bytes() ([]byte, error) {
	return ParseHex(capture.Response)
}

// Decode runs the captured response through the mode parameter decoder.
func (capture *Capture) Decode() (*scsi.Mode, error) {
	response, err := capture.Bytes()
	if err != nil {
		return nil, err
	}
	return scsi.DecodeMode(response, capture.DeviceType, capture.Form)
}

func (capture *Capture) String() string {
	return fmt.Sprintf(
		"capture %s, %s %s, %d bytes, taken %s",
		capture.ID,
		capture.DeviceType,
		capture.Form,
		len(capture.Response)/2,
		capture.Taken.Format(time.RFC3339),
	)
}

func (capture *Capture) Save(path string) error {
	data, err := json.MarshalIndent(capture, "", "  ")
	if err != nil {
		return common.RaiseFrom(err, &ErrCaptureFile{path: path, operation: "encode"})
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return common.RaiseFrom(err, &ErrCaptureFile{path: path, operation: "write"})
	}
	return nil
}

func Load(path string) (*Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.RaiseFrom(err, &ErrCaptureFile{path: path, operation: "read"})
	}
	capture := &Capture{}
	if err := json.Unmarshal(data, capture); err != nil {
		return nil, common.RaiseFrom(err, &ErrCaptureFile{path: path, operation: "decode"})
	}
	if _, err := capture.Bytes(); err != nil {
		return nil, common.RaiseFrom(err, &ErrCaptureFile{path: path, operation: "decode"})
	}
	return capture, nil
}

// ParseHex reads hex bytes as printed by sg_modes, hexdump and friends:
// whitespace, colons and 0x prefixes are ignored.
func ParseHex(text string) ([]byte, error) {
	cleaned := strings.NewReplacer("0x", " ", "0X", " ", ":", " ", ",", " ").Replace(text)
	digits := strings.Join(strings.Fields(cleaned), "")
	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, newErrBadHex(text, err)
	}
	return data, nil
}
