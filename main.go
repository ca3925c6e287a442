// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package main

import (
	"fmt"
	"modecodec/pkg/cli"
	"modecodec/pkg/logger"
	"os"
)

type Tool struct {
	commands *cli.CommandList
}

func NewTool() *Tool {
	commands := cli.NewCommandList(
		"modecodec",
		"Decode, emulate and build SCSI MODE SENSE / MODE SELECT parameter data",
	)
	addDecodeCli(commands)
	addEmulateCli(commands)
	addSelectCli(commands)
	addPagesCli(commands)
	return &Tool{commands: commands}
}

// addVerbosity gives every command the same -v switch.
func addVerbosity(command *cli.Command) {
	command.AddSwitch("-v", "verbose", "more logging, repeat for debug output")
}

func configureLogging(command *cli.Command) {
	switch command.Count("verbose") {
	case 0:
		logger.SetLoggingConfig(logger.Warning)
	case 1:
		logger.SetLoggingConfig(logger.Info)
	default:
		logger.SetLoggingConfig(logger.Debug)
	}
}

func (tool Tool) PerformCommand() error {
	commandName, command := tool.commands.GetCurrentCommand()
	if command == nil {
		return fmt.Errorf(
			"command is nil, probably an" +
				" implementation issue of command line arguments parsing",
		)
	}
	configureLogging(command)
	switch commandName {
	case CommandDecode:
		return tool.PerformDecode(command)
	case CommandEmulate:
		return tool.PerformEmulate(command)
	case CommandSelect:
		return tool.PerformSelect(command)
	case CommandPages:
		return tool.PerformPages(command)
	case "":
		return fmt.Errorf("received empty command type name")
	default:
		return fmt.Errorf("unknown command name %s", commandName)
	}
}

func main() {
	tool := NewTool()
	err := tool.commands.Parse(os.Args)
	if err != nil {
		if helpCmd, ok := err.(*cli.ErrHelpPageRequested); ok {
			fmt.Println(helpCmd)
			os.Exit(0)
		}
		_, err := fmt.Fprintf(os.Stderr, "%s\n", err)
		if err != nil {
			panic(err)
		}
		os.Exit(1)
	}
	err = tool.PerformCommand()
	if err != nil {
		logger.GetLogger().Error(err)
		os.Exit(1)
	}
}
