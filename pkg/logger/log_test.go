// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T, level LogLevel, useColor bool) *bytes.Buffer {
	t.Helper()
	output := &bytes.Buffer{}
	SetLoggingOutput(output, useColor)
	SetLoggingConfig(level)
	t.Cleanup(func() {
		SetLoggingOutput(os.Stderr, false)
		SetLoggingConfig(Info)
	})
	return output
}

func logEveryLevel() {
	log := GetLogger()
	log.Debugf("page 0x%02x", 0x08)
	log.Info("sensed", 3, "pages")
	log.Warning("truncated")
	log.Errorf("select rejected: %s", "bad length")
}

func TestLevels(t *testing.T) {
	cases := []struct {
		level    LogLevel
		shown    []string
		notShown []string
	}{
		{
			level:    Error,
			shown:    []string{"ERROR: "},
			notShown: []string{"WARNING: ", "INFO: ", "DEBUG: "},
		},
		{
			level:    Warning,
			shown:    []string{"ERROR: ", "WARNING: "},
			notShown: []string{"INFO: ", "DEBUG: "},
		},
		{
			level:    Info,
			shown:    []string{"ERROR: ", "WARNING: ", "INFO: "},
			notShown: []string{"DEBUG: "},
		},
		{
			level: Debug,
			shown: []string{"ERROR: ", "WARNING: ", "INFO: ", "DEBUG: "},
		},
	}
	for _, testCase := range cases {
		output := captureLogs(t, testCase.level, false)
		logEveryLevel()
		for _, label := range testCase.shown {
			assert.Contains(t, output.String(), label, "level %d", testCase.level)
		}
		for _, label := range testCase.notShown {
			assert.NotContains(t, output.String(), label, "level %d", testCase.level)
		}
	}
}

func TestMessages(t *testing.T) {
	output := captureLogs(t, Debug, false)
	logEveryLevel()
	assert.Contains(t, output.String(), " page 0x08\n")
	assert.Contains(t, output.String(), " sensed 3 pages\n")
	assert.Contains(t, output.String(), " select rejected: bad length\n")
	assert.Contains(t, output.String(), "logEveryLevel")
	assert.NotContains(t, output.String(), "\x1b[")
}

func TestColor(t *testing.T) {
	output := captureLogs(t, Info, true)
	GetLogger().Warn("colored")
	assert.Contains(t, output.String(), "\x1b[")
	assert.Contains(t, output.String(), "WARNING")
}

func TestKeyValues(t *testing.T) {
	output := &bytes.Buffer{}
	log := logr.New(newLabelSink(output, infoVerbosity, false)).WithName("lun").WithValues("page", 8)
	log.Info("changed", "byte", 2)
	log.V(debugVerbosity).Info("hidden")
	log.Error(os.ErrClosed, "failed")

	text := output.String()
	assert.Contains(t, text, "INFO: ")
	assert.Contains(t, text, "lun changed\n")
	assert.Contains(t, text, "  page: 8\n  byte: 2\n")
	assert.Contains(t, text, "  error: file already closed\n")
	assert.NotContains(t, text, "hidden")
}
