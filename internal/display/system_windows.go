//go:build windows

package display

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procEnumDisplayDevicesW         = user32.NewProc("EnumDisplayDevicesW")
	procEnumDisplaySettingsW        = user32.NewProc("EnumDisplaySettingsW")
	procChangeDisplaySettingsExW    = user32.NewProc("ChangeDisplaySettingsExW")
	procGetDisplayConfigBufferSizes = user32.NewProc("GetDisplayConfigBufferSizes")
	procQueryDisplayConfig          = user32.NewProc("QueryDisplayConfig")
	procSetDisplayConfig            = user32.NewProc("SetDisplayConfig")
	procDisplayConfigGetDeviceInfo  = user32.NewProc("DisplayConfigGetDeviceInfo")
	procDisplayConfigSetDeviceInfo  = user32.NewProc("DisplayConfigSetDeviceInfo")
)

const (
	errorSuccess            = 0
	errorInsufficientBuffer = 122

	// Undocumented device info types used by the Settings app for DPI.
	deviceInfoGetDPIScale   = 0xFFFFFFFD // -3
	deviceInfoSetDPIScale   = 0xFFFFFFFC // -4
	deviceInfoGetTargetName = 2

	// Retries when the topology grows between sizing and querying.
	queryRetries = 3
)

type displayDeviceW struct {
	Cb           uint32
	DeviceName   [32]uint16
	DeviceString [128]uint16
	StateFlags   uint32
	DeviceID     [128]uint16
	DeviceKey    [128]uint16
}

type devModeW struct {
	DeviceName       [32]uint16
	SpecVersion      uint16
	DriverVersion    uint16
	Size             uint16
	DriverExtra      uint16
	Fields           uint32
	PositionX        int32
	PositionY        int32
	DisplayOrient    uint32
	DisplayFixedOut  uint32
	Color            int16
	Duplex           int16
	YResolution      int16
	TTOption         int16
	Collate          int16
	FormName         [32]uint16
	LogPixels        uint16
	BitsPerPel       uint32
	PelsWidth        uint32
	PelsHeight       uint32
	DisplayFlags     uint32
	DisplayFrequency uint32
	ICMMethod        uint32
	ICMIntent        uint32
	MediaType        uint32
	DitherType       uint32
	Reserved1        uint32
	Reserved2        uint32
	PanningWidth     uint32
	PanningHeight    uint32
}

type deviceInfoHeader struct {
	Type      uint32
	Size      uint32
	AdapterID LUID
	ID        uint32
}

type targetDeviceName struct {
	Header                    deviceInfoHeader
	Flags                     uint32
	OutputTechnology          uint32
	EdidManufactureID         uint16
	EdidProductCodeID         uint16
	ConnectorInstance         uint32
	MonitorFriendlyDeviceName [64]uint16
	MonitorDevicePath         [128]uint16
}

type sourceDPIScaleGet struct {
	Header  deviceInfoHeader
	Minimum int32
	Current int32
	Maximum int32
}

type sourceDPIScaleSet struct {
	Header   deviceInfoHeader
	Relative int32
}

type winSystem struct{}

// NewSystem returns the user32 backed System.
func NewSystem() (System, error) {
	if err := user32.Load(); err != nil {
		return nil, err
	}
	return winSystem{}, nil
}

func utf16PtrOrNil(s string) (*uint16, error) {
	if s == "" {
		return nil, nil
	}
	return windows.UTF16PtrFromString(s)
}

func (winSystem) EnumDisplayDevices(device string, index uint32, flags uint32) (DisplayDevice, bool) {
	name, err := utf16PtrOrNil(device)
	if err != nil {
		return DisplayDevice{}, false
	}

	var dd displayDeviceW
	dd.Cb = uint32(unsafe.Sizeof(dd))
	r1, _, _ := procEnumDisplayDevicesW.Call(
		uintptr(unsafe.Pointer(name)),
		uintptr(index),
		uintptr(unsafe.Pointer(&dd)),
		uintptr(flags),
	)
	if r1 == 0 {
		return DisplayDevice{}, false
	}

	return DisplayDevice{
		DeviceName:   windows.UTF16ToString(dd.DeviceName[:]),
		DeviceString: windows.UTF16ToString(dd.DeviceString[:]),
		StateFlags:   dd.StateFlags,
		DeviceID:     windows.UTF16ToString(dd.DeviceID[:]),
		DeviceKey:    windows.UTF16ToString(dd.DeviceKey[:]),
	}, true
}

func (winSystem) EnumDisplaySettings(device string, modeNum uint32) (Mode, bool) {
	name, err := utf16PtrOrNil(device)
	if err != nil {
		return Mode{}, false
	}

	var dm devModeW
	dm.Size = uint16(unsafe.Sizeof(dm))
	r1, _, _ := procEnumDisplaySettingsW.Call(
		uintptr(unsafe.Pointer(name)),
		uintptr(modeNum),
		uintptr(unsafe.Pointer(&dm)),
	)
	if r1 == 0 {
		return Mode{}, false
	}

	return Mode{
		Width:       int32(dm.PelsWidth),
		Height:      int32(dm.PelsHeight),
		BitDepth:    int32(dm.BitsPerPel),
		RefreshRate: int32(dm.DisplayFrequency),
	}, true
}

func (winSystem) ChangeDisplaySettings(device string, m Mode, fields uint32, flags uint32) int32 {
	name, err := utf16PtrOrNil(device)
	if err != nil {
		return dispChangeBadParam
	}

	var dm devModeW
	dm.Size = uint16(unsafe.Sizeof(dm))
	dm.Fields = fields
	dm.PelsWidth = uint32(m.Width)
	dm.PelsHeight = uint32(m.Height)
	dm.BitsPerPel = uint32(m.BitDepth)
	dm.DisplayFrequency = uint32(m.RefreshRate)

	r1, _, _ := procChangeDisplaySettingsExW.Call(
		uintptr(unsafe.Pointer(name)),
		uintptr(unsafe.Pointer(&dm)),
		0,
		uintptr(flags),
		0,
	)
	return int32(r1)
}

func (winSystem) QueryDisplayConfig(flags uint32) ([]PathInfo, []ModeInfo, uint32, error) {
	for attempt := 0; ; attempt++ {
		var numPaths, numModes uint32
		r1, _, _ := procGetDisplayConfigBufferSizes.Call(
			uintptr(flags),
			uintptr(unsafe.Pointer(&numPaths)),
			uintptr(unsafe.Pointer(&numModes)),
		)
		if r1 != errorSuccess {
			return nil, nil, 0, &OSError{Op: "GetDisplayConfigBufferSizes", Code: int64(r1)}
		}

		paths := make([]PathInfo, numPaths)
		modes := make([]ModeInfo, numModes)
		var pathPtr *PathInfo
		var modePtr *ModeInfo
		if len(paths) > 0 {
			pathPtr = &paths[0]
		}
		if len(modes) > 0 {
			modePtr = &modes[0]
		}

		// QDC_DATABASE_CURRENT requires a topology out-parameter; other
		// flags require it to be nil.
		var topology uint32
		var topologyPtr *uint32
		if flags&qdcDatabaseCurrent != 0 {
			topologyPtr = &topology
		}

		r1, _, _ = procQueryDisplayConfig.Call(
			uintptr(flags),
			uintptr(unsafe.Pointer(&numPaths)),
			uintptr(unsafe.Pointer(pathPtr)),
			uintptr(unsafe.Pointer(&numModes)),
			uintptr(unsafe.Pointer(modePtr)),
			uintptr(unsafe.Pointer(topologyPtr)),
		)
		if r1 == errorInsufficientBuffer && attempt < queryRetries {
			continue
		}
		if r1 != errorSuccess {
			return nil, nil, 0, &OSError{Op: "QueryDisplayConfig", Code: int64(r1)}
		}
		return paths[:numPaths], modes[:numModes], topology, nil
	}
}

func (winSystem) SetDisplayConfig(paths []PathInfo, modes []ModeInfo, flags uint32) error {
	var pathPtr *PathInfo
	var modePtr *ModeInfo
	if len(paths) > 0 {
		pathPtr = &paths[0]
	}
	if len(modes) > 0 {
		modePtr = &modes[0]
	}

	r1, _, _ := procSetDisplayConfig.Call(
		uintptr(uint32(len(paths))),
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(uint32(len(modes))),
		uintptr(unsafe.Pointer(modePtr)),
		uintptr(flags),
	)
	if r1 != errorSuccess {
		return &OSError{Op: "SetDisplayConfig", Code: int64(r1)}
	}
	return nil
}

func (winSystem) TargetDevicePath(adapter LUID, targetID uint32) (string, error) {
	var name targetDeviceName
	name.Header.Type = deviceInfoGetTargetName
	name.Header.Size = uint32(unsafe.Sizeof(name))
	name.Header.AdapterID = adapter
	name.Header.ID = targetID

	r1, _, _ := procDisplayConfigGetDeviceInfo.Call(uintptr(unsafe.Pointer(&name)))
	if r1 != errorSuccess {
		return "", &OSError{Op: "DisplayConfigGetDeviceInfo(target name)", Code: int64(int32(r1))}
	}
	return windows.UTF16ToString(name.MonitorDevicePath[:]), nil
}

func (winSystem) GetDPIScale(adapter LUID, sourceID uint32) (DPIScaleInfo, error) {
	var req sourceDPIScaleGet
	req.Header.Type = deviceInfoGetDPIScale
	req.Header.Size = uint32(unsafe.Sizeof(req))
	req.Header.AdapterID = adapter
	req.Header.ID = sourceID

	r1, _, _ := procDisplayConfigGetDeviceInfo.Call(uintptr(unsafe.Pointer(&req)))
	if r1 != errorSuccess {
		return DPIScaleInfo{}, &OSError{Op: "DisplayConfigGetDeviceInfo(dpi scale)", Code: int64(int32(r1))}
	}
	return DPIScaleInfo{Minimum: req.Minimum, Current: req.Current, Maximum: req.Maximum}, nil
}

func (winSystem) SetDPIScale(adapter LUID, sourceID uint32, relative int32) error {
	var req sourceDPIScaleSet
	req.Header.Type = deviceInfoSetDPIScale
	req.Header.Size = uint32(unsafe.Sizeof(req))
	req.Header.AdapterID = adapter
	req.Header.ID = sourceID
	req.Relative = relative

	r1, _, _ := procDisplayConfigSetDeviceInfo.Call(uintptr(unsafe.Pointer(&req)))
	if r1 != errorSuccess {
		return &OSError{Op: "DisplayConfigSetDeviceInfo(dpi scale)", Code: int64(int32(r1))}
	}
	return nil
}
