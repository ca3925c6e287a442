// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package main

import (
	"encoding/hex"
	"fmt"
	"modecodec/pkg/capture"
	"modecodec/pkg/cli"
	"modecodec/pkg/logger"
	"modecodec/pkg/scsi"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

const (
	CommandDecode  = "decode"
	CommandEmulate = "emulate"
	CommandSelect  = "select"
	CommandPages   = "pages"
)

// 1 GiB of 512 byte blocks unless -b says otherwise
const defaultLogicalUnitSize = "1073741824"

var title = color.New(color.FgCyan, color.Bold).SprintFunc()

func addDecodeCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandDecode,
		"Decode a MODE SENSE response given as hex or loaded from a capture.",
	).AddParameter(
		"-x",
		"hex",
		"response bytes in hex, whitespace, colons and 0x prefixes are ignored",
		"hex",
		false,
	).AddParameter(
		"-c",
		"capture",
		"path to a capture saved by 'emulate -o'",
		"capture path",
		false,
	).AddParameter(
		"-t",
		"type",
		"peripheral device type: disk, tape, cdrom, optical or a type code (default disk)",
		"device type",
		false,
	).AddParameter(
		"-f",
		"form",
		"6 or 10, the MODE SENSE variant the response came from (default 10)",
		"form",
		false,
	)
	addVerbosity(command)
}

func addEmulateCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandEmulate,
		"Send MODE SENSE to an emulated logical unit and decode the answer.",
	).AddParameter(
		"-t",
		"type",
		"peripheral device type of the emulated logical unit",
		"device type",
		true,
	).AddParameter(
		"-f",
		"form",
		"6 or 10 (default 10)",
		"form",
		false,
	).AddParameter(
		"-p",
		"page",
		"page code, 0x3f for all pages (default 0x3f)",
		"page code",
		false,
	).AddParameter(
		"-s",
		"subpage",
		"subpage code, 0xff for all subpages (default 0xff)",
		"subpage code",
		false,
	).AddParameter(
		"-m",
		"page_control",
		"current, changeable, default or saved (default current)",
		"page control",
		false,
	).AddParameter(
		"-b",
		"size",
		"logical unit size in bytes (default 1 GiB)",
		"size",
		false,
	).AddParameter(
		"-o",
		"output",
		"save the response as a capture to this path",
		"capture path",
		false,
	)
	addVerbosity(command)
}

func addSelectCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandSelect,
		"Build the MODE SELECT parameter list sending a capture back to the device.",
	).AddParameter(
		"-c",
		"capture",
		"path to a capture saved by 'emulate -o'",
		"capture path",
		true,
	).AddParameter(
		"-w",
		"write_cache",
		"on or off, change WCE of the caching page before sending",
		"on|off",
		false,
	).AddSwitch(
		"-e",
		"emulate",
		"send the parameter list to an emulated logical unit of the captured type",
	)
	addVerbosity(command)
}

func addPagesCli(commands *cli.CommandList) {
	command := commands.AddCommand(
		CommandPages,
		"List the mode pages decoded for a device type.",
	).AddParameter(
		"-t",
		"type",
		"peripheral device type (default disk)",
		"device type",
		false,
	)
	addVerbosity(command)
}

func parseDeviceType(command *cli.Command, fallback string) (scsi.SCSIDeviceType, error) {
	value := command.GetParameterOrDefault("type", fallback)
	deviceType, err := scsi.ParseDeviceType(value)
	if err != nil {
		return 0, cli.NewErrInvalidValue("type", value, err.Error())
	}
	return deviceType, nil
}

func parseForm(command *cli.Command) (scsi.ModeForm, error) {
	value := command.GetParameterOrDefault("form", "10")
	form, err := scsi.ParseModeForm(value)
	if err != nil {
		return 0, cli.NewErrInvalidValue("form", value, err.Error())
	}
	return form, nil
}

func parseUint(command *cli.Command, name string, fallback string, bitSize int) (uint64, error) {
	value := command.GetParameterOrDefault(name, fallback)
	number, err := strconv.ParseUint(value, 0, bitSize)
	if err != nil {
		return 0, cli.NewErrInvalidValue(name, value, fmt.Sprintf("expected a %d bit unsigned number", bitSize))
	}
	return number, nil
}

func isHexDumpLine(line string) bool {
	return len(line) > 10 && line[8:10] == "  "
}

// printMode prints the rendering of mode with page titles highlighted.
func printMode(mode *scsi.Mode, deviceType scsi.SCSIDeviceType) {
	log := logger.GetLogger()
	for _, page := range mode.Pages {
		if page.Descriptor.Truncated {
			log.Warningf("%s is truncated, the allocation length was probably too small", page.Descriptor)
		} else if page.Decoded == nil {
			log.Debugf("%s has no %s codec", page.Descriptor, deviceType)
		}
	}
	rendered := strings.TrimSuffix(mode.Render(deviceType), "\n")
	for _, line := range strings.Split(rendered, "\n") {
		if line != "" && !strings.HasPrefix(line, " ") && !isHexDumpLine(line) {
			line = title(line)
		}
		fmt.Println(line)
	}
}

func (tool Tool) PerformDecode(command *cli.Command) error {
	if capturePath, err := command.GetParameter("capture"); err == nil {
		loaded, err := capture.Load(capturePath)
		if err != nil {
			return err
		}
		mode, err := loaded.Decode()
		if err != nil {
			return err
		}
		fmt.Println(loaded)
		printMode(mode, loaded.DeviceType)
		return nil
	}
	text, err := command.GetParameter("hex")
	if err != nil {
		return fmt.Errorf("either -x or -c is required")
	}
	deviceType, err := parseDeviceType(command, "disk")
	if err != nil {
		return err
	}
	form, err := parseForm(command)
	if err != nil {
		return err
	}
	response, err := capture.ParseHex(text)
	if err != nil {
		return err
	}
	mode, err := scsi.DecodeMode(response, deviceType, form)
	if err != nil {
		return err
	}
	printMode(mode, deviceType)
	return nil
}

func (tool Tool) PerformEmulate(command *cli.Command) error {
	deviceType, err := parseDeviceType(command, "")
	if err != nil {
		return err
	}
	form, err := parseForm(command)
	if err != nil {
		return err
	}
	pageCode, err := parseUint(command, "page", "0x3f", 6)
	if err != nil {
		return err
	}
	subPageCode, err := parseUint(command, "subpage", "0xff", 8)
	if err != nil {
		return err
	}
	size, err := parseUint(command, "size", defaultLogicalUnitSize, 64)
	if err != nil {
		return err
	}
	pageControlName := command.GetParameterOrDefault("page_control", scsi.PageControlCurrent.String())
	pageControl, err := scsi.ParsePageControl(pageControlName)
	if err != nil {
		return cli.NewErrInvalidValue("page_control", pageControlName, err.Error())
	}

	allocationLength := uint16(0xffff)
	if form == scsi.ModeForm6 {
		allocationLength = 0xff
	}
	logger.GetLogger().Infof("emulating a %s logical unit of %d bytes", deviceType, size)
	logicalUnit := scsi.NewLogicalUnit(deviceType, size)
	identification, err := inquire(logicalUnit)
	if err != nil {
		return err
	}
	fmt.Println(identification)
	cdb := scsi.ModeSenseCDB(
		form,
		false,
		form == scsi.ModeForm10,
		pageControl,
		uint8(pageCode),
		uint8(subPageCode),
		allocationLength,
	)
	scsiCommand := scsi.NewSCSICommand(cdb, nil, uint32(allocationLength))
	fmt.Printf("%s CDB: % x\n", form, cdb)
	if result := logicalUnit.PerformCommand(scsiCommand); result.Stat != scsi.SamStatGood {
		return fmt.Errorf("%s failed: %s", form, scsiCommand.SenseBuffer)
	}
	response := scsiCommand.DataIn()
	fmt.Print(hex.Dump(response))
	mode, err := scsi.DecodeMode(response, deviceType, form)
	if err != nil {
		return err
	}
	printMode(mode, deviceType)

	if output, err := command.GetParameter("output"); err == nil {
		saved := capture.New(deviceType, form, response)
		if err := saved.Save(output); err != nil {
			return err
		}
		fmt.Printf("saved %s to %s\n", saved, output)
	}
	return nil
}

// inquire reads the standard INQUIRY data of logicalUnit.
func inquire(logicalUnit *scsi.LogicalUnit) (string, error) {
	const allocationLength = 36
	cdb := []byte{byte(scsi.Inquiry), 0x00, 0x00, 0x00, allocationLength, 0x00}
	command := scsi.NewSCSICommand(cdb, nil, allocationLength)
	if result := logicalUnit.PerformCommand(command); result.Stat != scsi.SamStatGood {
		return "", fmt.Errorf("INQUIRY failed: %s", command.SenseBuffer)
	}
	data := command.DataIn()
	if len(data) < allocationLength {
		return "", fmt.Errorf("INQUIRY returned %d bytes", len(data))
	}
	deviceType := scsi.SCSIDeviceType(data[0] & 0x1f)
	return fmt.Sprintf(
		"%s: %s %s %s",
		deviceType,
		strings.TrimSpace(string(data[8:16])),
		strings.TrimSpace(string(data[16:32])),
		strings.TrimSpace(string(data[32:36])),
	), nil
}

func (tool Tool) PerformSelect(command *cli.Command) error {
	capturePath, err := command.GetParameter("capture")
	if err != nil {
		return err
	}
	loaded, err := capture.Load(capturePath)
	if err != nil {
		return err
	}
	mode, err := loaded.Decode()
	if err != nil {
		return err
	}
	if writeCache, err := command.GetParameter("write_cache"); err == nil {
		mode, err = withWriteCache(mode, writeCache)
		if err != nil {
			return err
		}
	}
	parameterList, err := scsi.AssembleModeSelect(mode, loaded.DeviceType, loaded.Form)
	if err != nil {
		return err
	}
	cdb := scsi.ModeSelectCDB(loaded.Form, true, false, uint16(len(parameterList)))
	fmt.Printf("%s CDB: % x\n", loaded.Form, cdb)
	fmt.Print(hex.Dump(parameterList))

	if command.Count("emulate") == 0 {
		return nil
	}
	size, err := emulatedSize(mode)
	if err != nil {
		return err
	}
	logicalUnit := scsi.NewLogicalUnit(loaded.DeviceType, size)
	scsiCommand := scsi.NewSCSICommand(cdb, parameterList, 0)
	if result := logicalUnit.PerformCommand(scsiCommand); result.Stat != scsi.SamStatGood {
		return fmt.Errorf("MODE SELECT rejected: %s", scsiCommand.SenseBuffer)
	}
	fmt.Println("MODE SELECT accepted, current values:")
	printMode(logicalUnit.CurrentMode(), loaded.DeviceType)
	return nil
}

func withWriteCache(mode *scsi.Mode, value string) (*scsi.Mode, error) {
	var enabled bool
	switch strings.ToLower(value) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return nil, cli.NewErrInvalidValue("write_cache", value, "expected on or off")
	}
	for _, page := range mode.Pages {
		caching, ok := page.Decoded.(*scsi.CachingPage)
		if !ok {
			continue
		}
		changed := *caching
		changed.WriteCacheEnabled = enabled
		return mode.WithPage(page.WithDecoded(&changed)), nil
	}
	return nil, fmt.Errorf("capture has no decoded caching page")
}

// emulatedSize matches the emulated logical unit to the captured block
// descriptor, so the descriptor is accepted as is.
func emulatedSize(mode *scsi.Mode) (uint64, error) {
	for _, descriptor := range mode.Header.BlockDescriptors {
		if descriptor.BlockLength != 0 && descriptor.BlockLength != 1<<scsi.DefaultBlockShift {
			return 0, fmt.Errorf(
				"captured block length %d, emulated logical units use %d",
				descriptor.BlockLength,
				1<<scsi.DefaultBlockShift,
			)
		}
		if descriptor.Blocks != 0 {
			return descriptor.Blocks << scsi.DefaultBlockShift, nil
		}
	}
	size, err := strconv.ParseUint(defaultLogicalUnitSize, 10, 64)
	if err != nil {
		return 0, err
	}
	return size, nil
}

func (tool Tool) PerformPages(command *cli.Command) error {
	deviceType, err := parseDeviceType(command, "disk")
	if err != nil {
		return err
	}
	fmt.Println(title(fmt.Sprintf("Mode pages decoded for %s", deviceType)))
	for _, page := range scsi.KnownPages(deviceType) {
		code := fmt.Sprintf("0x%02x", page.PageCode)
		if page.SubPageCode != 0 {
			code = fmt.Sprintf("0x%02x/0x%02x", page.PageCode, page.SubPageCode)
		}
		fmt.Printf("  %-10s %-40s at least %d bytes\n", code, page.Name, page.MinimumLength)
	}
	return nil
}
