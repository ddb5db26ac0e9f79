package profile

import (
	"fmt"

	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/hotkey"
	"github.com/displayhotkeys/dhk/internal/logging"
)

// Fix describes one value the validator replaced.
type Fix struct {
	DisplayID string
	Slot      int // 0 for display-level fields
	Field     string
	Reason    string
}

func (f Fix) String() string {
	if f.Slot == 0 {
		return fmt.Sprintf("%s: %s %s", f.DisplayID, f.Field, f.Reason)
	}
	return fmt.Sprintf("%s slot %d: %s %s", f.DisplayID, f.Slot, f.Field, f.Reason)
}

// Validate repairs the profiles of the connected displays described by
// entries. Every display gets a profile; values the display cannot use are
// reset to defaults: slot count to 4, orientation to landscape, the mode to
// the first mode of the display's list for its orientation, scaling to 0,
// DPI to 100 and invalid hotkeys to unset. Empty slots are filled with the
// default mode so every slot can be applied; each fill is reported as a Fix
// so callers persist it.
func (s *Store) Validate(entries []display.CatalogEntry) []Fix {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fixes []Fix
	for _, e := range entries {
		fixes = append(fixes, s.validateDisplay(e)...)
	}
	for _, f := range fixes {
		log.Info("profile value reset", logging.KeyDisplayID, f.DisplayID, "slot", f.Slot, "field", f.Field, "reason", f.Reason)
	}
	return fixes
}

func (s *Store) validateDisplay(e display.CatalogEntry) []Fix {
	var fixes []Fix
	fix := func(slot int, field, reason string) {
		fixes = append(fixes, Fix{DisplayID: e.ID, Slot: slot, Field: field, Reason: reason})
	}

	if _, ok := s.doc.Displays[e.ID]; !ok {
		fix(0, "profile", "created")
	}
	d := s.ensure(e.ID)

	if d.NumSlots < 1 || d.NumSlots > MaxSlots {
		fix(0, "numSlots", fmt.Sprintf("%d out of range", d.NumSlots))
		d.NumSlots = DefaultSlots
	}
	if d.OrientationMode < display.OrientationLandscape || d.OrientationMode > display.OrientationPortraitFlipped {
		fix(0, "orientationMode", fmt.Sprintf("%d out of range", d.OrientationMode))
		d.OrientationMode = display.OrientationLandscape
	}

	modes := e.ModesFor(d.OrientationMode)
	for i := range d.Slots {
		n := i + 1
		sl := &d.Slots[i]

		if sl.Empty() && len(modes) > 0 {
			fix(n, "slot", "empty, filled with defaults")
			sl.Settings = display.Settings{
				Mode:               modes[0],
				ScalingMode:        display.ScaleModePreserveAspect,
				DPIScalePercentage: 100,
			}
		}
		if len(modes) > 0 && !containsMode(modes, sl.Mode) {
			fix(n, "mode", fmt.Sprintf("%s not supported", sl.Mode))
			sl.Mode = modes[0]
		}
		if sl.ScalingMode < display.ScaleModePreserveAspect || sl.ScalingMode > display.ScaleModeCentered {
			fix(n, "scalingMode", fmt.Sprintf("%d invalid", sl.ScalingMode))
			sl.ScalingMode = display.ScaleModePreserveAspect
		}
		if _, ok := display.DPIScaleIndex(sl.DPIScalePercentage); !ok {
			fix(n, "dpiScalePercentage", fmt.Sprintf("%d not a scale step", sl.DPIScalePercentage))
			sl.DPIScalePercentage = 100
		}
		if len(sl.HotKey) > 0 {
			keys, err := hotkey.Normalize(sl.HotKey)
			if err != nil {
				fix(n, "hotKey", err.Error())
				sl.HotKey = nil
			} else {
				sl.HotKey = keys
			}
		}
	}
	return fixes
}

func containsMode(modes []display.Mode, m display.Mode) bool {
	for _, x := range modes {
		if x == m {
			return true
		}
	}
	return false
}
