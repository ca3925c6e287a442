// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package common

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

type errDecode struct {
	path string
}

func (err errDecode) Error() string {
	return "cannot decode " + err.path
}

type errTraced struct{}

func (err errTraced) Error() string {
	return "traced"
}

func (err errTraced) TraceInfo() string {
	return "at the origin"
}

func TestRaiseFrom(t *testing.T) {
	raised := RaiseFrom(fs.ErrNotExist, &errDecode{path: "capture.json"})
	if !errors.Is(raised, fs.ErrNotExist) {
		t.Errorf("base error is lost: %v", raised)
	}
	var decodeError *errDecode
	if !errors.As(raised, &decodeError) {
		t.Fatalf("raised error is lost: %v", raised)
	}
	if decodeError.path != "capture.json" {
		t.Errorf("unexpected path %s", decodeError.path)
	}
	lines := strings.Split(raised.Error(), "\n")
	if len(lines) != 2 || lines[0] != fs.ErrNotExist.Error() {
		t.Fatalf("unexpected message %q", raised.Error())
	}
	if !strings.HasPrefix(lines[1], "cannot decode capture.json func ") {
		t.Errorf("unexpected message %q", lines[1])
	}
	if !strings.Contains(lines[1], "TestRaiseFrom") {
		t.Errorf("trace does not name the caller: %q", lines[1])
	}
}

func TestRaiseFromLineNumberedError(t *testing.T) {
	raised := RaiseFrom(errors.New("short read"), errTraced{})
	expected := "short read\ntraced at the origin"
	if raised.Error() != expected {
		t.Errorf("got %q, expected %q", raised.Error(), expected)
	}
}
