package display

import (
	"encoding/binary"
	"fmt"
)

// The path and mode types below match the user32 DISPLAYCONFIG_* layouts
// field for field so slices of them can be handed to the OS directly.

type LUID struct {
	LowPart  uint32
	HighPart int32
}

type Rational struct {
	Numerator   uint32
	Denominator uint32
}

type PathSourceInfo struct {
	AdapterID   LUID
	ID          uint32
	ModeInfoIdx uint32
	StatusFlags uint32
}

type PathTargetInfo struct {
	AdapterID        LUID
	ID               uint32
	ModeInfoIdx      uint32
	OutputTechnology uint32
	Rotation         Rotation
	Scaling          Scaling
	RefreshRate      Rational
	ScanLineOrdering uint32
	TargetAvailable  uint32
	StatusFlags      uint32
}

type PathInfo struct {
	Source PathSourceInfo
	Target PathTargetInfo
	Flags  uint32
}

type ModeInfoType uint32

const (
	ModeInfoTypeSource       ModeInfoType = 1
	ModeInfoTypeTarget       ModeInfoType = 2
	ModeInfoTypeDesktopImage ModeInfoType = 3
)

const (
	modeInfoUnionSize = 48
	modeIdxInvalid    = 0xffffffff
)

type ModeInfo struct {
	InfoType  ModeInfoType
	ID        uint32
	AdapterID LUID
	Union     [modeInfoUnionSize]byte
}

// SourceMode is the DISPLAYCONFIG_SOURCE_MODE view of a source ModeInfo.
type SourceMode struct {
	Width       uint32
	Height      uint32
	PixelFormat uint32
	X           int32
	Y           int32
}

func (m *ModeInfo) SourceMode() SourceMode {
	u := m.Union[:]
	return SourceMode{
		Width:       binary.LittleEndian.Uint32(u[0:]),
		Height:      binary.LittleEndian.Uint32(u[4:]),
		PixelFormat: binary.LittleEndian.Uint32(u[8:]),
		X:           int32(binary.LittleEndian.Uint32(u[12:])),
		Y:           int32(binary.LittleEndian.Uint32(u[16:])),
	}
}

func (m *ModeInfo) SetSourceMode(s SourceMode) {
	u := m.Union[:]
	binary.LittleEndian.PutUint32(u[0:], s.Width)
	binary.LittleEndian.PutUint32(u[4:], s.Height)
	binary.LittleEndian.PutUint32(u[8:], s.PixelFormat)
	binary.LittleEndian.PutUint32(u[12:], uint32(s.X))
	binary.LittleEndian.PutUint32(u[16:], uint32(s.Y))
}

// DisplayDevice is the subset of DISPLAY_DEVICEW the enumerators read.
type DisplayDevice struct {
	DeviceName   string
	DeviceString string
	StateFlags   uint32
	DeviceID     string
	DeviceKey    string
}

const (
	displayDeviceAttachedToDesktop uint32 = 0x00000001
	displayDevicePrimaryDevice     uint32 = 0x00000004

	eddGetDeviceInterfaceName uint32 = 0x00000001
)

// DEVMODE dmFields bits submitted with a mode change.
const (
	dmBitsPerPel       uint32 = 0x00040000
	dmPelsWidth        uint32 = 0x00080000
	dmPelsHeight       uint32 = 0x00100000
	dmDisplayFrequency uint32 = 0x00400000

	modeFields = dmPelsWidth | dmPelsHeight | dmBitsPerPel | dmDisplayFrequency
)

const cdsUpdateRegistry uint32 = 0x00000001

const (
	qdcDatabaseCurrent uint32 = 0x00000004

	sdcUseSuppliedDisplayConfig uint32 = 0x00000020
	sdcApply                    uint32 = 0x00000080
	sdcSaveToDatabase           uint32 = 0x00000200

	applyFlags = sdcApply | sdcUseSuppliedDisplayConfig | sdcSaveToDatabase
)

// System is the set of user32 display calls the package depends on.
// Implementations must not cache: every call reflects current OS state.
type System interface {
	// EnumDisplayDevices mirrors EnumDisplayDevicesW. device is empty for
	// adapters. ok is false once index runs past the last device.
	EnumDisplayDevices(device string, index uint32, flags uint32) (dd DisplayDevice, ok bool)

	// EnumDisplaySettings mirrors EnumDisplaySettingsW for one mode number.
	EnumDisplaySettings(device string, modeNum uint32) (m Mode, ok bool)

	// ChangeDisplaySettings mirrors ChangeDisplaySettingsExW and returns the
	// DISP_CHANGE_* code.
	ChangeDisplaySettings(device string, m Mode, fields uint32, flags uint32) int32

	// QueryDisplayConfig sizes the buffers with GetDisplayConfigBufferSizes
	// and fills them with QueryDisplayConfig.
	QueryDisplayConfig(flags uint32) (paths []PathInfo, modes []ModeInfo, topology uint32, err error)

	SetDisplayConfig(paths []PathInfo, modes []ModeInfo, flags uint32) error

	// TargetDevicePath returns monitorDevicePath for a path target.
	TargetDevicePath(adapter LUID, targetID uint32) (string, error)

	// GetDPIScale and SetDPIScale address a path source.
	GetDPIScale(adapter LUID, sourceID uint32) (DPIScaleInfo, error)
	SetDPIScale(adapter LUID, sourceID uint32, relative int32) error
}

// Mode is a display mode as reported by EnumDisplaySettings.
type Mode struct {
	Width       int32 `json:"width" yaml:"width"`
	Height      int32 `json:"height" yaml:"height"`
	BitDepth    int32 `json:"bitDepth" yaml:"bitDepth"`
	RefreshRate int32 `json:"refreshRate" yaml:"refreshRate"`
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d %dbit %dHz", m.Width, m.Height, m.BitDepth, m.RefreshRate)
}

// Settings is the full set applied by Service.SetDisplay.
type Settings struct {
	Mode               `yaml:",inline"`
	ScalingMode        int32 `json:"scalingMode" yaml:"scalingMode"`
	DPIScalePercentage int32 `json:"dpiScalePercentage" yaml:"dpiScalePercentage"`
}
