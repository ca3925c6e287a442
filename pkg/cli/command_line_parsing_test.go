// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommandList() *CommandList {
	commands := NewCommandList("modecodec", "mode parameter tool")
	commands.AddCommand("decode", "Decode a MODE SENSE response").
		AddParameter("-x", "hex", "response bytes", "HEX", true).
		AddParameter("-f", "form", "6 or 10", "FORM", false).
		AddSwitch("-v", "verbose", "more output")
	commands.AddCommand("pages", "List known pages")
	return commands
}

func TestParseArguments(t *testing.T) {
	commands := newTestCommandList()
	err := commands.Parse([]string{"modecodec", "decode", "--hex", "0a 0b", "-f=10", "-v", "--verbose"})
	require.NoError(t, err)

	name, command := commands.GetCurrentCommand()
	require.NotNil(t, command)
	assert.Equal(t, "decode", name)
	value, err := command.GetParameter("hex")
	require.NoError(t, err)
	assert.Equal(t, "0a 0b", value)
	assert.Equal(t, "10", command.GetParameterOrDefault("form", "6"))
	assert.Equal(t, 2, command.Count("verbose"))
	assert.Equal(t, 0, command.Count("unknown"))
}

func TestParseDefaults(t *testing.T) {
	commands := newTestCommandList()
	require.NoError(t, commands.Parse([]string{"modecodec", "decode", "--hex=00"}))
	_, command := commands.GetCurrentCommand()
	assert.Equal(t, "6", command.GetParameterOrDefault("form", "6"))
	assert.Equal(t, 0, command.Count("verbose"))
	_, err := command.GetParameter("form")
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	t.Run("missing required parameter", func(t *testing.T) {
		err := newTestCommandList().Parse([]string{"modecodec", "decode", "-v"})
		var missing *ErrMissingParameters
		require.ErrorAs(t, err, &missing)
		assert.Contains(t, err.Error(), "-x/--hex - response bytes")
	})
	t.Run("unknown option", func(t *testing.T) {
		err := newTestCommandList().Parse([]string{"modecodec", "decode", "--bogus"})
		var invalid *ErrInvalidOption
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "invalid option -- '--bogus'", err.Error())
	})
	t.Run("value missing", func(t *testing.T) {
		err := newTestCommandList().Parse([]string{"modecodec", "decode", "--hex"})
		var invalid *ErrInvalidOption
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, err.Error(), "--hex")
	})
	t.Run("unknown command", func(t *testing.T) {
		err := newTestCommandList().Parse([]string{"modecodec", "encode"})
		var notFound *ErrCommandNotFound
		require.ErrorAs(t, err, &notFound)
	})
	t.Run("no command", func(t *testing.T) {
		commands := newTestCommandList()
		assert.Error(t, commands.Parse([]string{"modecodec"}))
		name, command := commands.GetCurrentCommand()
		assert.Empty(t, name)
		assert.Nil(t, command)
	})
}

func TestHelp(t *testing.T) {
	err := newTestCommandList().Parse([]string{"modecodec", "help"})
	var help *ErrHelpPageRequested
	require.ErrorAs(t, err, &help)
	assert.Contains(t, err.Error(), "modecodec - mode parameter tool")
	assert.Contains(t, err.Error(), "modecodec decode [-x|--hex HEX] [-f|--form FORM] [-v|--verbose]")
	assert.Contains(t, err.Error(), "modecodec pages\n")

	err = newTestCommandList().Parse([]string{"modecodec", "decode", "-h"})
	require.ErrorAs(t, err, &help)
	assert.Contains(t, err.Error(), "Decode a MODE SENSE response\n  Options:\n")
}

func TestErrInvalidValue(t *testing.T) {
	err := NewErrInvalidValue("form", "8", "expected 6 or 10")
	assert.Equal(t, "invalid value '8' for --form: expected 6 or 10", err.Error())
}
