package profile

import (
	"fmt"
	"slices"

	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/logging"
)

// DisplaySetter is the part of the display service a slot needs.
type DisplaySetter interface {
	DisplayIDs() ([]string, error)
	SetDisplay(id string, s display.Settings) error
}

// Applier applies saved slots to connected displays.
type Applier struct {
	Store    *Store
	Displays DisplaySetter
}

// ApplySlot applies slot n of display id. The display must be connected at
// the time of the call.
func (a *Applier) ApplySlot(id string, n int) error {
	sl, err := a.Store.Slot(id, n)
	if err != nil {
		return err
	}
	if sl.Empty() {
		return fmt.Errorf("%w: %s slot %d", ErrEmptySlot, id, n)
	}

	ids, err := a.Displays.DisplayIDs()
	if err != nil {
		return fmt.Errorf("profile: list connected displays: %w", err)
	}
	if !slices.Contains(ids, id) {
		return fmt.Errorf("profile: %w: %s", display.ErrDisplayNotFound, id)
	}

	l := logging.WithDisplay(log, id)
	l.Info("applying slot", "slot", n, "mode", sl.Mode.String(), "scaling", sl.ScalingMode, "dpi", sl.DPIScalePercentage)
	return a.Displays.SetDisplay(id, sl.Settings)
}
