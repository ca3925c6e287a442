// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package cli

import (
	"fmt"
	"sort"
	"strings"
)

type ErrHelpPageRequested struct {
	helpMessage string
}

func (err ErrHelpPageRequested) Error() string {
	return err.helpMessage
}

type ErrCommandNotFound struct {
	commandName string
}

func (err ErrCommandNotFound) Error() string {
	return fmt.Sprintf("unknown command '%s'", err.commandName)
}

type ErrInvalidOption struct {
	option string
}

func (err ErrInvalidOption) Error() string {
	return fmt.Sprintf("invalid option -- '%s'", err.option)
}

type ErrMissingParameters struct {
	help []string
}

func (err ErrMissingParameters) Error() string {
	return "Missing parameter:\n" + strings.Join(err.help, "\nMissing parameter:\n")
}

type ErrInvalidValue struct {
	name   string
	value  string
	reason string
}

func (err ErrInvalidValue) Error() string {
	return fmt.Sprintf("invalid value '%s' for --%s: %s", err.value, err.name, err.reason)
}

// NewErrInvalidValue reports a parameter value the command cannot use.
func NewErrInvalidValue(name, value, reason string) error {
	return &ErrInvalidValue{name: name, value: value, reason: reason}
}

type parameter struct {
	target           string
	shortFlag        string
	name             string
	description      string
	shortDescription string
	required         bool
	// switches take no value, each occurrence counts
	isSwitch bool
	count    int
	set      bool
}

func (param parameter) getFullCmdlineArgument() string {
	return "--" + param.name
}

func (param parameter) found(argument string) bool {
	if param.isSwitch {
		return argument == param.getFullCmdlineArgument() || argument == param.shortFlag
	}
	return strings.HasPrefix(
		argument, param.getFullCmdlineArgument(),
	) || strings.HasPrefix(argument, param.shortFlag)
}

func (param parameter) valueInNextCmd(argument string) bool {
	return argument == param.getFullCmdlineArgument() || argument == param.shortFlag
}

func (param parameter) help() string {
	return fmt.Sprintf(
		"    %s/--%s - %s",
		param.shortFlag,
		param.name,
		param.description,
	)
}

func (param parameter) usage() string {
	if param.isSwitch {
		return fmt.Sprintf("[%s|--%s]", param.shortFlag, param.name)
	}
	return fmt.Sprintf(
		"[%s|--%s %s]",
		param.shortFlag,
		param.name,
		param.shortDescription,
	)
}

func (param *parameter) extract(value string) {
	param.target = value
	param.set = true
}

type Command struct {
	name        string
	parameters  map[string]*parameter
	description string
	// parameter names in declaration order
	order []string
}

func newCommand(name, description string) *Command {
	return &Command{
		name:        name,
		parameters:  make(map[string]*parameter),
		description: description,
	}
}

func (command *Command) orderedParameters() []*parameter {
	parameters := make([]*parameter, 0, len(command.order))
	for _, name := range command.order {
		parameters = append(parameters, command.parameters[name])
	}
	return parameters
}

func (command *Command) findParameter(commandLineArgument string) *parameter {
	for _, argument := range command.orderedParameters() {
		if argument.set && !argument.isSwitch {
			continue
		}
		if argument.found(commandLineArgument) {
			return argument
		}
	}
	return nil
}

func (command Command) usage() string {
	parts := []string{command.name}
	for _, param := range command.orderedParameters() {
		parts = append(parts, param.usage())
	}
	return strings.Join(parts, " ")
}

func (command Command) Help() string {
	parameters := command.orderedParameters()
	if len(parameters) == 0 {
		return command.description + "\n"
	}
	lines := []string{command.description, "  Options:"}
	for _, param := range parameters {
		lines = append(lines, param.help())
	}
	return strings.Join(lines, "\n")
}

// ParseArgs accepts "--name value", "--name=value", "-n value" and
// repeated switches.
func (command *Command) ParseArgs(args []string) error {
	if len(args) > 0 && (args[0] == "--help" || args[0] == "-h") {
		return &ErrHelpPageRequested{helpMessage: command.Help()}
	}
	for index := 0; index < len(args); index++ {
		argument := args[index]
		param := command.findParameter(argument)
		switch {
		case param == nil:
			return &ErrInvalidOption{option: argument}
		case param.isSwitch:
			param.count++
			param.set = true
		case param.valueInNextCmd(argument):
			if index+1 == len(args) {
				return &ErrInvalidOption{option: param.getFullCmdlineArgument()}
			}
			index++
			param.extract(args[index])
		default:
			_, value, found := strings.Cut(argument, "=")
			if !found {
				return &ErrInvalidOption{option: argument}
			}
			param.extract(value)
		}
	}
	var missing []string
	for _, param := range command.orderedParameters() {
		if !param.set && param.required {
			missing = append(missing, param.help())
		}
	}
	if len(missing) > 0 {
		return &ErrMissingParameters{help: missing}
	}
	return nil
}

func (command *Command) AddParameter(
	short string,
	name string,
	description string,
	shortDescription string,
	required bool,
) *Command {
	command.parameters[name] = &parameter{
		shortFlag:        short,
		name:             name,
		description:      description,
		required:         required,
		shortDescription: shortDescription,
	}
	command.order = append(command.order, name)
	return command
}

// AddSwitch declares a parameter without value, such as -v. It may be
// repeated, Count reports how many times it was given.
func (command *Command) AddSwitch(short string, name string, description string) *Command {
	command.parameters[name] = &parameter{
		shortFlag:   short,
		name:        name,
		description: description,
		isSwitch:    true,
	}
	command.order = append(command.order, name)
	return command
}

func (command Command) Count(parameterName string) int {
	value, ok := command.parameters[parameterName]
	if !ok {
		return 0
	}
	return value.count
}

// GetParameterOrDefault returns fallback for an optional parameter that
// was not given.
func (command Command) GetParameterOrDefault(parameterName string, fallback string) string {
	value, err := command.GetParameter(parameterName)
	if err != nil {
		return fallback
	}
	return value
}

func (command Command) GetParameter(parameterName string) (string, error) {
	value, ok := command.parameters[parameterName]
	if !ok {
		return "", fmt.Errorf("missing parameter %s", parameterName)
	}
	if !value.set {
		return "", fmt.Errorf("missing parameter %s", parameterName)
	}
	return value.target, nil
}

type CommandList struct {
	name        string
	description string
	commands    map[string]*Command
	// this field is set after parsing
	// command line arguments
	currentCommandName string
}

func (cmdList CommandList) usages() string {
	commandUsages := make([]string, 0, len(cmdList.commands))
	for _, name := range cmdList.commandNames() {
		commandUsages = append(commandUsages, fmt.Sprintf("%s %s", cmdList.name, cmdList.commands[name].usage()))
	}
	return strings.Join(commandUsages, "\n") + "\n"
}

func (cmdList CommandList) Help() string {
	commandDescriptions := make([]string, 0, len(cmdList.commands))
	for _, name := range cmdList.commandNames() {
		commandDescriptions = append(commandDescriptions, fmt.Sprintf("* '%s': %s", name, cmdList.commands[name].Help()))
	}
	return fmt.Sprintf(
		"%s - %s",
		cmdList.name,
		cmdList.description,
	) +
		"\nUsage:\n" +
		cmdList.usages() +
		"\nSupported commands:\n" +
		strings.Join(commandDescriptions, "\n\n")
}

func (cmdList CommandList) commandNames() []string {
	names := make([]string, 0, len(cmdList.commands))
	for name := range cmdList.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (cmdList *CommandList) AddCommand(name, description string) *Command {
	command := newCommand(name, description)
	cmdList.commands[name] = command
	return command
}

func (cmdList CommandList) GetCommand(name string) (*Command, bool) {
	value, ok := cmdList.commands[name]
	return value, ok
}

func (cmdList *CommandList) Parse(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("wrong command list received")
	}
	commandName := args[1]
	commandArgs := args[2:]
	command, ok := cmdList.GetCommand(commandName)
	if !ok {
		if commandName == "--help" || commandName == "help" || commandName == "-h" {
			return &ErrHelpPageRequested{helpMessage: cmdList.Help()}
		}
		return &ErrCommandNotFound{commandName: commandName}
	}
	err := command.ParseArgs(commandArgs)
	if err != nil {
		return err
	}
	cmdList.currentCommandName = commandName
	return nil
}

func (cmdList CommandList) GetCurrentCommand() (commandName string, command *Command) {
	if cmdList.currentCommandName == "" {
		return "", nil
	}
	cmd, ok := cmdList.GetCommand(cmdList.currentCommandName)
	if !ok {
		return "", nil
	}
	commandName = cmdList.currentCommandName
	command = cmd
	return
}

func NewCommandList(name, description string) *CommandList {
	return &CommandList{
		name:        name,
		description: description,
		commands:    make(map[string]*Command),
	}
}
