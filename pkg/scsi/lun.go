// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package scsi

import (
	"fmt"
	"modecodec/pkg/logger"
	"sync"

	uuid "github.com/satori/go.uuid"
)

// LogicalUnit answers MODE SENSE and MODE SELECT out of an in-memory
// page store. MODE SELECT may run concurrently with MODE SENSE.
type LogicalUnit struct {
	mutex          sync.RWMutex
	DeviceType     SCSIDeviceType
	Size           uint64
	BlockShift     uint
	Online         bool
	WriteProtected bool
	// Density code reported in block descriptors of sequential access units
	Density uint8
	// INQUIRY identification, the serial number is derived from UUID
	VendorID        string
	ProductID       string
	ProductRevision string
	UUID            uuid.UUID
	modePages       ModePages
	defaultPages    ModePages
}

func NewLogicalUnit(deviceType SCSIDeviceType, size uint64) *LogicalUnit {
	logicalUnit := &LogicalUnit{
		DeviceType:      deviceType,
		Size:            size,
		BlockShift:      DefaultBlockShift,
		Online:          true,
		VendorID:        "NX",
		ProductID:       "MODECODEC",
		ProductRevision: "0001",
		UUID:            uuid.NewV4(),
	}
	logicalUnit.Init()
	return logicalUnit
}

// Init resets the page store to the defaults of the device type.
func (logicalUnit *LogicalUnit) Init() {
	logicalUnit.mutex.Lock()
	defer logicalUnit.mutex.Unlock()
	if logicalUnit.BlockShift == 0 {
		logicalUnit.BlockShift = DefaultBlockShift
	}
	logicalUnit.defaultPages = defaultModePages(logicalUnit.DeviceType, logicalUnit.blocks())
	logicalUnit.modePages = make(ModePages, len(logicalUnit.defaultPages))
	copy(logicalUnit.modePages, logicalUnit.defaultPages)
}

func (logicalUnit *LogicalUnit) blocks() uint64 {
	return logicalUnit.Size >> logicalUnit.BlockShift
}

func (logicalUnit *LogicalUnit) isOnline() bool {
	logicalUnit.mutex.RLock()
	defer logicalUnit.mutex.RUnlock()
	return logicalUnit.Online
}

// CurrentMode returns the current values of every page, the way MODE
// SENSE(10) with page code 3Fh and subpage FFh reports them.
func (logicalUnit *LogicalUnit) CurrentMode() *Mode {
	mode, _ := logicalUnit.senseMode(allModePages, allSubPages, PageControlCurrent, true, false)
	return mode
}

func (logicalUnit *LogicalUnit) modeHeader(blockDescriptors bool, longLBA bool) ModeHeader {
	header := ModeHeader{
		WriteProtected: logicalUnit.WriteProtected,
		LongLBA:        longLBA,
	}
	switch {
	case logicalUnit.DeviceType == TypeTape:
		// buffered mode 1, writes report GOOD once data is in the buffer
		header.BufferedMode = 1
		if blockDescriptors {
			header.BlockDescriptors = []BlockDescriptor{{Density: logicalUnit.Density}}
		}
	case logicalUnit.DeviceType.isBlockDevice():
		header.DPOFUA = true
		if blockDescriptors {
			header.BlockDescriptors = []BlockDescriptor{{
				Blocks:      logicalUnit.blocks(),
				BlockLength: 1 << logicalUnit.BlockShift,
			}}
		}
	}
	return header
}

func (logicalUnit *LogicalUnit) senseMode(
	pageCode uint8,
	subPageCode uint8,
	pageControl PageControl,
	blockDescriptors bool,
	longLBA bool,
) (*Mode, error) {
	logicalUnit.mutex.RLock()
	defer logicalUnit.mutex.RUnlock()
	source := logicalUnit.modePages
	if pageControl == PageControlDefault {
		source = logicalUnit.defaultPages
	}
	selected, err := source.selectPages(pageCode, subPageCode)
	if err != nil {
		return nil, err
	}
	if pageControl == PageControlChangeable {
		for index, page := range selected {
			selected[index] = changeableMask(page)
		}
	}
	return &Mode{
		Header: logicalUnit.modeHeader(blockDescriptors, longLBA),
		Pages:  selected,
	}, nil
}

// selectMode applies a MODE SELECT parameter list. Either every page is
// taken or none is.
func (logicalUnit *LogicalUnit) selectMode(mode *Mode) error {
	logicalUnit.mutex.Lock()
	defer logicalUnit.mutex.Unlock()
	for _, descriptor := range mode.Header.BlockDescriptors {
		blockLength := uint32(1 << logicalUnit.BlockShift)
		if descriptor.BlockLength != 0 && descriptor.BlockLength != blockLength {
			return fmt.Errorf(
				"block length %d requested, logical unit has %d",
				descriptor.BlockLength,
				blockLength,
			)
		}
	}
	pages := make(ModePages, len(logicalUnit.modePages))
	copy(pages, logicalUnit.modePages)
	for _, page := range mode.Pages {
		descriptor := page.Descriptor
		if page.Decoded == nil {
			return fmt.Errorf("%s is not a valid %s page", descriptor, logicalUnit.DeviceType)
		}
		index, ok := pages.findPage(descriptor.PageCode, descriptor.SubPageCode)
		if !ok {
			return fmt.Errorf("%s is not supported", descriptor)
		}
		if err := checkChangeable(pages[index], descriptor); err != nil {
			return err
		}
		// PS is reserved in MODE SELECT
		descriptor.Data = cloneBytes(descriptor.Data)
		descriptor.Data[0] &^= parametersSaveableBit
		pages[index] = ModePage{
			Descriptor: descriptor,
			Decoded:    DecodePage(descriptor, logicalUnit.DeviceType),
		}
	}
	logicalUnit.modePages = pages
	return nil
}

func (logicalUnit *LogicalUnit) PerformCommand(command *SCSICommand) SAMStat {
	log := logger.GetLogger()
	log.Debugf(
		"scsi opcode: %s, device type: %s",
		OperationCodeToString(CommandType(command.OperationCode)),
		logicalUnit.DeviceType,
	)
	var result SAMStat
	switch CommandType(command.OperationCode) {
	case TestUnitReady:
		result = SPCTestUnit(logicalUnit, command)
	case RequestSense:
		result = SPCRequestSense(command)
	case Inquiry:
		result = SPCInquiry(logicalUnit, command)
	case ModeSense6:
		result = SPCModeSense6(logicalUnit, command)
	case ModeSense10:
		result = SPCModeSense10(logicalUnit, command)
	case ModeSelect6:
		result = SPCModeSelect6(logicalUnit, command)
	case ModeSelect10:
		result = SPCModeSelect10(logicalUnit, command)
	case OperationCodeMaintenanceIn:
		result = spcMaintenanceIn(command)
	default:
		BuildSenseData(command, IllegalRequest, AscInvalidOpCode)
		result = SAMStatCheckCondition
	}
	if result != SAMStatGood {
		log.Warnf("opcode: %xh err: %v", command.OperationCode, result.Err)
	}
	return result
}

type changeableField struct {
	byteOffset int
	mask       byte
}

// Fields MODE SELECT may change. Everything else must be sent back as
// MODE SENSE reported it.
var changeableFields = map[pageKey][]changeableField{
	{pageCode: cachingPageCode}: {
		// WCE, RCD
		{byteOffset: 2, mask: 0x05},
	},
	{pageCode: powerConditionPageCode}: {
		// IDLE, STANDBY
		{byteOffset: 3, mask: 0x03},
		{byteOffset: 4, mask: 0xff},
		{byteOffset: 5, mask: 0xff},
		{byteOffset: 6, mask: 0xff},
		{byteOffset: 7, mask: 0xff},
		{byteOffset: 8, mask: 0xff},
		{byteOffset: 9, mask: 0xff},
		{byteOffset: 10, mask: 0xff},
		{byteOffset: 11, mask: 0xff},
	},
	{pageCode: informationalExceptionsPageCode}: {
		// DEXCPT, MRIE
		{byteOffset: 2, mask: 0x08},
		{byteOffset: 3, mask: 0x0f},
		{byteOffset: 4, mask: 0xff},
		{byteOffset: 5, mask: 0xff},
		{byteOffset: 6, mask: 0xff},
		{byteOffset: 7, mask: 0xff},
		{byteOffset: 8, mask: 0xff},
		{byteOffset: 9, mask: 0xff},
		{byteOffset: 10, mask: 0xff},
		{byteOffset: 11, mask: 0xff},
	},
}

// changeableMask returns page with every changeable bit set and every
// other bit of the body cleared.
func changeableMask(page ModePage) ModePage {
	descriptor := page.Descriptor
	data := page.Bytes()
	for index := descriptor.headerSize(); index < len(data); index++ {
		data[index] = 0
	}
	for _, field := range changeableFields[descriptor.key()] {
		if field.byteOffset < len(data) {
			data[field.byteOffset] = field.mask
		}
	}
	data[0] &^= parametersSaveableBit
	descriptor.Data = data
	return ModePage{Descriptor: descriptor}
}

func checkChangeable(current ModePage, requested PageDescriptor) error {
	stored := current.Bytes()
	if len(stored) != len(requested.Data) {
		return fmt.Errorf("%s has %d bytes, logical unit uses %d", requested, len(requested.Data), len(stored))
	}
	mask := changeableMask(current).Descriptor.Data
	for index := requested.headerSize(); index < len(stored); index++ {
		if changed := (stored[index] ^ requested.Data[index]) &^ mask[index]; changed != 0 {
			return fmt.Errorf(
				"%s byte %d changes bits 0x%02x which are not changeable",
				requested,
				index,
				changed,
			)
		}
	}
	return nil
}

func defaultModePages(deviceType SCSIDeviceType, blocks uint64) ModePages {
	var pages []EncodablePage
	switch {
	case deviceType == TypeTape:
		pages = []EncodablePage{
			defaultDisconnectReconnectPage(),
			defaultControlPage(),
			&DataCompressionPage{
				CompressionEnabled:     true,
				CompressionCapable:     true,
				DecompressionEnabled:   true,
				CompressionAlgorithm:   0x01,
				DecompressionAlgorithm: 0x01,
			},
			defaultInformationalExceptionsPage(),
		}
	case containsDeviceType(diskDeviceTypes, deviceType):
		pages = []EncodablePage{
			defaultReadWriteErrorRecoveryPage(),
			defaultDisconnectReconnectPage(),
			defaultRigidDiskGeometryPage(blocks),
			defaultCachingPage(),
			defaultControlPage(),
			&ControlExtensionPage{TimestampChangeableOutside: true},
			&PowerConditionPage{SPC4: &PowerConditionSPC4{}},
			defaultInformationalExceptionsPage(),
		}
	case deviceType.isBlockDevice():
		pages = []EncodablePage{
			defaultReadWriteErrorRecoveryPage(),
			defaultDisconnectReconnectPage(),
			defaultCachingPage(),
			defaultControlPage(),
			defaultInformationalExceptionsPage(),
		}
	default:
		pages = []EncodablePage{
			defaultDisconnectReconnectPage(),
			defaultControlPage(),
			&ControlExtensionPage{TimestampChangeableOutside: true},
			defaultInformationalExceptionsPage(),
		}
	}
	modePages := make(ModePages, 0, len(pages))
	for _, page := range pages {
		modePages = append(modePages, NewModePage(page))
	}
	return modePages
}

func defaultReadWriteErrorRecoveryPage() *ReadWriteErrorRecoveryPage {
	return &ReadWriteErrorRecoveryPage{
		AutomaticWriteReallocation: true,
		AutomaticReadReallocation:  true,
		ReadRetryCount:             0x14,
		Extension: &ReadWriteErrorRecoveryExtension{
			WriteRetryCount: 0x14,
		},
	}
}

func defaultDisconnectReconnectPage() *DisconnectReconnectPage {
	return &DisconnectReconnectPage{
		BufferFullRatio:    0x80,
		BufferEmptyRatio:   0x80,
		BusInactivityLimit: 0x0a,
	}
}

// defaultRigidDiskGeometryPage reports the usual 255 heads, 63 sectors
// translation and a non-rotating medium.
func defaultRigidDiskGeometryPage(blocks uint64) *RigidDiskGeometryPage {
	rotationRate := uint16(1)
	return &RigidDiskGeometryPage{
		NumberOfCylinders:  uint32(clampUint(blocks/(255*63), 0xffffff)),
		NumberOfHeads:      255,
		MediumRotationRate: &rotationRate,
	}
}

func defaultCachingPage() *CachingPage {
	return &CachingPage{
		WriteCacheEnabled:             true,
		DisablePreFetchTransferLength: 0xffff,
		MaximumPreFetch:               0xffff,
		MaximumPreFetchCeiling:        0xffff,
		Extension: &CachingPageExtension{
			Discontinuity:         true,
			ForceSequentialWrite:  true,
			NumberOfCacheSegments: 0x14,
		},
	}
}

func defaultControlPage() *ControlPage {
	return &ControlPage{
		// unrestricted reordering
		QueueAlgorithmModifier: 1,
		SPC: &ControlPageSPC{
			GlobalLoggingTargetSaveDisable: true,
			ExtendedSelfTestCompletionTime: 0x0200,
		},
	}
}

func defaultInformationalExceptionsPage() *InformationalExceptionsPage {
	return &InformationalExceptionsPage{DisableException: true}
}
