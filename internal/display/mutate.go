package display

import (
	"fmt"

	"github.com/displayhotkeys/dhk/internal/logging"
)

// Mutator applies settings to one display at a time. Each method works on
// a freshly queried snapshot and writes it straight back.
type Mutator struct {
	sys System

	// VerifyTopology re-queries the database before writing and refuses to
	// apply when paths were added, removed or reordered in the meantime.
	VerifyTopology bool
}

func NewMutator(sys System) *Mutator {
	return &Mutator{sys: sys, VerifyTopology: true}
}

// SetDisplayMode changes resolution, bit depth and refresh rate through the
// legacy API and persists it to the registry.
func (m *Mutator) SetDisplayMode(legacyIndex int, mode Mode) error {
	displays := LegacyDisplays(m.sys)
	if legacyIndex < 0 || legacyIndex >= len(displays) {
		return fmt.Errorf("%w: legacy index %d of %d", ErrDisplayNotFound, legacyIndex, len(displays))
	}
	device := displays[legacyIndex].DeviceName

	code := m.sys.ChangeDisplaySettings(device, mode, modeFields, cdsUpdateRegistry)
	if code != dispChangeSuccessful {
		err := &ChangeError{Code: code}
		log.Error("change display settings failed",
			logging.KeyLegacyIndex, legacyIndex,
			"deviceName", device,
			"mode", mode.String(),
			logging.KeyCode, code,
			"error", err)
		return fmt.Errorf("set display mode %s on %s: %w", mode, device, err)
	}
	log.Info("display mode applied", logging.KeyLegacyIndex, legacyIndex, "deviceName", device, "mode", mode.String())
	return nil
}

// SetScalingMode sets the target scaling of a path from a caller code.
func (m *Mutator) SetScalingMode(configIndex int, code int32) error {
	scaling := ScalingFromCode(code)
	return m.update(configIndex, "set scaling mode", func(_ *Snapshot, p *PathInfo) error {
		p.Target.Scaling = scaling
		return nil
	})
}

// SetOrientation sets the target rotation of a path from a caller code.
// Moving between landscape and portrait swaps the source mode dimensions
// so the desktop keeps covering the rotated panel.
func (m *Mutator) SetOrientation(configIndex int, code int32) error {
	rotation := RotationFromCode(code)
	return m.update(configIndex, "set orientation", func(s *Snapshot, p *PathInfo) error {
		if p.Target.Rotation.Portrait() != rotation.Portrait() {
			if mi, ok := s.SourceModeFor(p); ok {
				src := mi.SourceMode()
				src.Width, src.Height = src.Height, src.Width
				mi.SetSourceMode(src)
			}
		}
		p.Target.Rotation = rotation
		return nil
	})
}

// SetDPIScalePercentage sets the DPI scale of the path's source. Unknown
// percentages are treated as 100%.
func (m *Mutator) SetDPIScalePercentage(configIndex int, percentage int32) error {
	snap, err := QuerySnapshot(m.sys)
	if err != nil {
		return err
	}
	p, err := snap.Path(configIndex)
	if err != nil {
		return err
	}

	info, err := m.sys.GetDPIScale(p.Source.AdapterID, p.Source.ID)
	if err != nil {
		log.Error("get dpi scale failed", logging.KeyConfigIndex, configIndex, "error", err)
		return fmt.Errorf("get dpi scale: %w", err)
	}

	if _, ok := DPIScaleIndex(percentage); !ok {
		log.Warn("unsupported dpi percentage, using 100", logging.KeyConfigIndex, configIndex, "percentage", percentage)
	}
	step := info.RelativeStep(percentage)
	if !info.InRange(step) {
		log.Warn("dpi step outside advertised range",
			logging.KeyConfigIndex, configIndex,
			"step", step, "min", info.Minimum, "max", info.Maximum)
	}

	if err := m.sys.SetDPIScale(p.Source.AdapterID, p.Source.ID, step); err != nil {
		log.Error("set dpi scale failed", logging.KeyConfigIndex, configIndex, "step", step, "error", err)
		return fmt.Errorf("set dpi scale: %w", err)
	}
	log.Info("dpi scale applied", logging.KeyConfigIndex, configIndex, "percentage", percentage, "step", step)
	return nil
}

// DPIScalePercentage reads the current DPI scale of the path's source.
func (m *Mutator) DPIScalePercentage(configIndex int) (int32, error) {
	snap, err := QuerySnapshot(m.sys)
	if err != nil {
		return 0, err
	}
	p, err := snap.Path(configIndex)
	if err != nil {
		return 0, err
	}

	info, err := m.sys.GetDPIScale(p.Source.AdapterID, p.Source.ID)
	if err != nil {
		log.Error("get dpi scale failed", logging.KeyConfigIndex, configIndex, "error", err)
		return 0, fmt.Errorf("get dpi scale: %w", err)
	}
	pct, ok := info.Percentage()
	if !ok {
		return 0, fmt.Errorf("dpi scale step %d (min %d) is outside the known scale table", info.Current, info.Minimum)
	}
	return pct, nil
}

// update runs one read-modify-write cycle against the configuration database.
func (m *Mutator) update(configIndex int, op string, mutate func(*Snapshot, *PathInfo) error) error {
	snap, err := QuerySnapshot(m.sys)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p, err := snap.Path(configIndex)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := mutate(snap, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if m.VerifyTopology {
		current, err := QuerySnapshot(m.sys)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !snap.SameTopology(current) {
			log.Warn("topology changed before apply", logging.KeyConfigIndex, configIndex, "op", op)
			return fmt.Errorf("%s: %w", op, ErrStaleSnapshot)
		}
	}

	if err := m.sys.SetDisplayConfig(snap.Paths, snap.Modes, applyFlags); err != nil {
		log.Error("set display config failed", logging.KeyConfigIndex, configIndex, "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
