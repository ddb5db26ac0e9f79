package display

import (
	"fmt"

	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("display")

// maxDisplayDevices bounds the legacy device walk.
const maxDisplayDevices = 64

// LegacyDisplay is one desktop-attached device from EnumDisplayDevices.
type LegacyDisplay struct {
	ID          string `json:"id"`
	DeviceName  string `json:"deviceName"`
	DeviceIndex uint32 `json:"deviceIndex"`
	Primary     bool   `json:"primary"`
}

// LegacyDisplays walks the legacy device list and returns every device
// attached to the desktop, in enumeration order. Position in the returned
// slice is the legacy index.
func LegacyDisplays(sys System) []LegacyDisplay {
	var out []LegacyDisplay
	for i := uint32(0); i < maxDisplayDevices; i++ {
		adapter, ok := sys.EnumDisplayDevices("", i, 0)
		if !ok {
			break
		}
		if adapter.StateFlags&displayDeviceAttachedToDesktop == 0 {
			continue
		}

		d := LegacyDisplay{
			DeviceName:  adapter.DeviceName,
			DeviceIndex: i,
			Primary:     adapter.StateFlags&displayDevicePrimaryDevice != 0,
		}
		if monitor, ok := sys.EnumDisplayDevices(adapter.DeviceName, 0, eddGetDeviceInterfaceName); ok {
			d.ID = monitor.DeviceID
		} else {
			log.Debug("no monitor behind attached device", "deviceName", adapter.DeviceName)
		}
		out = append(out, d)
	}
	return out
}

// LegacyDisplayIDs projects the ids of LegacyDisplays.
func LegacyDisplayIDs(sys System) []string {
	displays := LegacyDisplays(sys)
	ids := make([]string, len(displays))
	for i, d := range displays {
		ids[i] = d.ID
	}
	return ids
}

// ConfigDisplayIDs returns the monitor device path of every path in the
// configuration database, in path order. Position is the config index.
func ConfigDisplayIDs(sys System) ([]string, error) {
	snap, err := QuerySnapshot(sys)
	if err != nil {
		return nil, err
	}
	return snap.DisplayIDs(sys)
}

// DisplayIDs resolves the monitor device path of each path in the snapshot.
func (s *Snapshot) DisplayIDs(sys System) ([]string, error) {
	ids := make([]string, len(s.Paths))
	for i, p := range s.Paths {
		id, err := sys.TargetDevicePath(p.Target.AdapterID, p.Target.ID)
		if err != nil {
			log.Error("target name lookup failed", logging.KeyConfigIndex, i, "error", err)
			return nil, fmt.Errorf("target name for path %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}
