package display

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/displayhotkeys/dhk/internal/logging"
)

// maxModes bounds the EnumDisplaySettings walk for one device.
const maxModes = 8192

// Modes lists every mode the device at legacyIndex supports, in reverse of
// the order the OS reports them. Duplicates are kept.
func Modes(sys System, legacyIndex int) ([]Mode, error) {
	displays := LegacyDisplays(sys)
	if legacyIndex < 0 || legacyIndex >= len(displays) {
		return nil, fmt.Errorf("%w: legacy index %d of %d", ErrDisplayNotFound, legacyIndex, len(displays))
	}
	device := displays[legacyIndex].DeviceName

	var modes []Mode
	for n := uint32(0); n < maxModes; n++ {
		m, ok := sys.EnumDisplaySettings(device, n)
		if !ok {
			break
		}
		modes = append(modes, m)
	}
	if len(modes) == maxModes {
		log.Warn("mode enumeration truncated", logging.KeyLegacyIndex, legacyIndex, "deviceName", device, "limit", maxModes)
	}

	slices.Reverse(modes)
	return modes, nil
}

// Distinct drops repeated modes, keeping the first occurrence.
func Distinct(modes []Mode) []Mode {
	seen := make(map[Mode]struct{}, len(modes))
	out := make([]Mode, 0, len(modes))
	for _, m := range modes {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// SortDescending orders modes by width, height, bit depth then refresh rate,
// largest first.
func SortDescending(modes []Mode) {
	slices.SortStableFunc(modes, func(a, b Mode) int {
		if c := cmp.Compare(b.Width, a.Width); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Height, a.Height); c != 0 {
			return c
		}
		if c := cmp.Compare(b.BitDepth, a.BitDepth); c != 0 {
			return c
		}
		return cmp.Compare(b.RefreshRate, a.RefreshRate)
	})
}

// Invert swaps width and height of every mode.
func Invert(modes []Mode) []Mode {
	out := make([]Mode, len(modes))
	for i, m := range modes {
		out[i] = Mode{Width: m.Height, Height: m.Width, BitDepth: m.BitDepth, RefreshRate: m.RefreshRate}
	}
	return out
}
