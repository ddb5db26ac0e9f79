package display

import (
	"errors"
	"fmt"
)

// fakeMonitor describes one display the fake OS exposes.
type fakeMonitor struct {
	id       string
	detached bool // present as an adapter but not attached to the desktop
	noPath   bool // attached but missing from the configuration database
	current  Mode
	modes    []Mode
	dpi      DPIScaleInfo
	rotation Rotation
}

type changeCall struct {
	device string
	mode   Mode
	fields uint32
	flags  uint32
}

type setConfigCall struct {
	paths []PathInfo
	modes []ModeInfo
	flags uint32
}

type dpiSetCall struct {
	adapter  LUID
	sourceID uint32
	relative int32
}

type fakeSystem struct {
	adapters  []DisplayDevice
	monitors  map[string]DisplayDevice
	modes     map[string][]Mode
	paths     []PathInfo
	modeInfos []ModeInfo
	topology  uint32
	targets   map[uint32]string
	dpi       map[uint32]DPIScaleInfo

	changeCode int32
	queryErr   error
	setErr     error
	dpiGetErr  error
	targetErr  error

	// beforeQuery runs ahead of every QueryDisplayConfig with the 1-based call number.
	beforeQuery func(f *fakeSystem, call int)
	queries     int

	changes    []changeCall
	setConfigs []setConfigCall
	dpiSets    []dpiSetCall
}

var fakeAdapter = LUID{LowPart: 0x1234}

func newFakeSystem(monitors ...fakeMonitor) *fakeSystem {
	f := &fakeSystem{
		monitors: make(map[string]DisplayDevice),
		modes:    make(map[string][]Mode),
		targets:  make(map[uint32]string),
		dpi:      make(map[uint32]DPIScaleInfo),
		topology: 4,
	}

	for i, m := range monitors {
		name := fmt.Sprintf(`\\.\DISPLAY%d`, i+1)
		flags := displayDeviceAttachedToDesktop
		if m.detached {
			flags = 0
		}
		if i == 0 {
			flags |= displayDevicePrimaryDevice
		}
		f.adapters = append(f.adapters, DisplayDevice{DeviceName: name, DeviceString: "Fake Adapter", StateFlags: flags})
		f.monitors[name] = DisplayDevice{DeviceName: name + `\Monitor0`, DeviceID: m.id}
		f.modes[name] = m.modes

		if m.detached || m.noPath {
			continue
		}

		sourceID := uint32(i)
		targetID := uint32(100 + i)
		rotation := m.rotation
		if rotation == 0 {
			rotation = RotationIdentity
		}

		srcIdx := uint32(len(f.modeInfos))
		src := ModeInfo{InfoType: ModeInfoTypeSource, ID: sourceID, AdapterID: fakeAdapter}
		src.SetSourceMode(SourceMode{Width: uint32(m.current.Width), Height: uint32(m.current.Height), PixelFormat: 4})
		f.modeInfos = append(f.modeInfos, src)

		tgtIdx := uint32(len(f.modeInfos))
		f.modeInfos = append(f.modeInfos, ModeInfo{InfoType: ModeInfoTypeTarget, ID: targetID, AdapterID: fakeAdapter})

		f.paths = append(f.paths, PathInfo{
			Source: PathSourceInfo{AdapterID: fakeAdapter, ID: sourceID, ModeInfoIdx: srcIdx},
			Target: PathTargetInfo{
				AdapterID:       fakeAdapter,
				ID:              targetID,
				ModeInfoIdx:     tgtIdx,
				Rotation:        rotation,
				Scaling:         ScalingIdentity,
				RefreshRate:     Rational{Numerator: uint32(m.current.RefreshRate) * 1000, Denominator: 1000},
				TargetAvailable: 1,
			},
			Flags: 1,
		})
		f.targets[targetID] = m.id
		f.dpi[sourceID] = m.dpi
	}
	return f
}

func (f *fakeSystem) EnumDisplayDevices(device string, index uint32, flags uint32) (DisplayDevice, bool) {
	if device == "" {
		if int(index) >= len(f.adapters) {
			return DisplayDevice{}, false
		}
		return f.adapters[index], true
	}
	if index != 0 || flags != eddGetDeviceInterfaceName {
		return DisplayDevice{}, false
	}
	m, ok := f.monitors[device]
	if !ok || m.DeviceID == "" {
		return DisplayDevice{}, false
	}
	return m, true
}

func (f *fakeSystem) EnumDisplaySettings(device string, modeNum uint32) (Mode, bool) {
	modes := f.modes[device]
	if int(modeNum) >= len(modes) {
		return Mode{}, false
	}
	return modes[modeNum], true
}

func (f *fakeSystem) ChangeDisplaySettings(device string, m Mode, fields uint32, flags uint32) int32 {
	f.changes = append(f.changes, changeCall{device: device, mode: m, fields: fields, flags: flags})
	return f.changeCode
}

func (f *fakeSystem) QueryDisplayConfig(flags uint32) ([]PathInfo, []ModeInfo, uint32, error) {
	f.queries++
	if f.beforeQuery != nil {
		f.beforeQuery(f, f.queries)
	}
	if f.queryErr != nil {
		return nil, nil, 0, f.queryErr
	}
	if flags != qdcDatabaseCurrent {
		return nil, nil, 0, &OSError{Op: "QueryDisplayConfig", Code: 87}
	}
	paths := make([]PathInfo, len(f.paths))
	copy(paths, f.paths)
	modes := make([]ModeInfo, len(f.modeInfos))
	copy(modes, f.modeInfos)
	return paths, modes, f.topology, nil
}

func (f *fakeSystem) SetDisplayConfig(paths []PathInfo, modes []ModeInfo, flags uint32) error {
	f.setConfigs = append(f.setConfigs, setConfigCall{paths: paths, modes: modes, flags: flags})
	if f.setErr != nil {
		return f.setErr
	}
	f.paths = append([]PathInfo(nil), paths...)
	f.modeInfos = append([]ModeInfo(nil), modes...)
	return nil
}

func (f *fakeSystem) TargetDevicePath(adapter LUID, targetID uint32) (string, error) {
	if f.targetErr != nil {
		return "", f.targetErr
	}
	id, ok := f.targets[targetID]
	if !ok || adapter != fakeAdapter {
		return "", &OSError{Op: "DisplayConfigGetDeviceInfo(target name)", Code: 87}
	}
	return id, nil
}

func (f *fakeSystem) GetDPIScale(adapter LUID, sourceID uint32) (DPIScaleInfo, error) {
	if f.dpiGetErr != nil {
		return DPIScaleInfo{}, f.dpiGetErr
	}
	info, ok := f.dpi[sourceID]
	if !ok || adapter != fakeAdapter {
		return DPIScaleInfo{}, &OSError{Op: "DisplayConfigGetDeviceInfo(dpi scale)", Code: 87}
	}
	return info, nil
}

func (f *fakeSystem) SetDPIScale(adapter LUID, sourceID uint32, relative int32) error {
	f.dpiSets = append(f.dpiSets, dpiSetCall{adapter: adapter, sourceID: sourceID, relative: relative})
	info, ok := f.dpi[sourceID]
	if !ok {
		return errors.New("unknown source")
	}
	info.Current = relative
	f.dpi[sourceID] = info
	return nil
}

var (
	mode1080p60  = Mode{Width: 1920, Height: 1080, BitDepth: 32, RefreshRate: 60}
	mode1080p144 = Mode{Width: 1920, Height: 1080, BitDepth: 32, RefreshRate: 144}
	mode1440p60  = Mode{Width: 2560, Height: 1440, BitDepth: 32, RefreshRate: 60}
	mode720p60   = Mode{Width: 1280, Height: 720, BitDepth: 32, RefreshRate: 60}
)

func twoMonitorSystem() *fakeSystem {
	return newFakeSystem(
		fakeMonitor{
			id:      `\\?\DISPLAY#DEL4105#5&1a2b3c&0&UID4352#{e6f07b5f-ee97-4a90-b076-33f57bf4eaa7}`,
			current: mode1440p60,
			modes:   []Mode{mode720p60, mode1080p60, mode1440p60},
			dpi:     DPIScaleInfo{Minimum: -1, Current: 0, Maximum: 4},
		},
		fakeMonitor{
			id:      `\\?\DISPLAY#GSM5B7F#5&1a2b3c&0&UID4353#{e6f07b5f-ee97-4a90-b076-33f57bf4eaa7}`,
			current: mode1080p144,
			modes:   []Mode{mode1080p60, mode1080p144, mode1080p60},
			dpi:     DPIScaleInfo{Minimum: -4, Current: 0, Maximum: 2},
		},
	)
}
