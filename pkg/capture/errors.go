// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package capture

import "fmt"

type ErrBadHex struct {
	text   string
	reason error
}

func (err ErrBadHex) Error() string {
	text := err.text
	if len(text) > 32 {
		text = text[:32] + "..."
	}
	return fmt.Sprintf("bad hex '%s': %v", text, err.reason)
}

func newErrBadHex(text string, reason error) error {
	return &ErrBadHex{text: text, reason: reason}
}

type ErrCaptureFile struct {
	path      string
	operation string
}

func (err ErrCaptureFile) Error() string {
	return fmt.Sprintf("cannot %s capture %s", err.operation, err.path)
}
