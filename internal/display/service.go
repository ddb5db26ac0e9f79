package display

import (
	"errors"
	"fmt"

	"github.com/displayhotkeys/dhk/internal/logging"
)

type Options struct {
	VerifyTopology         bool
	FallbackToFirstDisplay bool
}

// Service is the display surface exposed over the CLI and the IPC server.
// Every call queries the OS from scratch.
type Service struct {
	sys      System
	resolver *Resolver
	mutator  *Mutator
}

func NewService(sys System, opts Options) *Service {
	r := NewResolver(sys)
	r.FallbackToFirst = opts.FallbackToFirstDisplay
	m := NewMutator(sys)
	m.VerifyTopology = opts.VerifyTopology
	return &Service{sys: sys, resolver: r, mutator: m}
}

// NumConnectedDisplays counts the paths in the configuration database.
func (s *Service) NumConnectedDisplays() (int32, error) {
	snap, err := QuerySnapshot(s.sys)
	if err != nil {
		return 0, err
	}
	return int32(len(snap.Paths)), nil
}

func (s *Service) DisplayIDs() ([]string, error) {
	return ConfigDisplayIDs(s.sys)
}

func (s *Service) DisplayModes(id string) ([]Mode, error) {
	idx, err := s.resolver.LegacyIndex(id)
	if err != nil {
		return nil, err
	}
	return Modes(s.sys, idx)
}

// DisplayOrientation returns the raw rotation (1..4) of the path at pathIndex.
func (s *Service) DisplayOrientation(pathIndex int32) (int32, error) {
	snap, err := QuerySnapshot(s.sys)
	if err != nil {
		return 0, err
	}
	p, err := snap.Path(int(pathIndex))
	if err != nil {
		return 0, err
	}
	return int32(p.Target.Rotation), nil
}

// SetDisplay applies mode, scaling and DPI to one display. Each step is
// attempted even when an earlier one fails; failures are joined.
func (s *Service) SetDisplay(id string, settings Settings) error {
	l := logging.WithDisplay(log, id)

	var errs []error
	if legacyIdx, err := s.resolver.LegacyIndex(id); err != nil {
		errs = append(errs, fmt.Errorf("resolve legacy index: %w", err))
	} else if err := s.mutator.SetDisplayMode(legacyIdx, settings.Mode); err != nil {
		errs = append(errs, err)
	}

	configIdx, err := s.resolver.ConfigIndex(id)
	if err != nil {
		errs = append(errs, fmt.Errorf("resolve config index: %w", err))
	} else {
		if err := s.mutator.SetScalingMode(configIdx, settings.ScalingMode); err != nil {
			errs = append(errs, err)
		}
		if err := s.mutator.SetDPIScalePercentage(configIdx, settings.DPIScalePercentage); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		l.Warn("display settings partially applied", "failures", len(errs))
		return err
	}
	l.Info("display settings applied", "mode", settings.Mode.String(), "scaling", settings.ScalingMode, "dpi", settings.DPIScalePercentage)
	return nil
}

func (s *Service) SetOrientation(id string, orientation int32) error {
	idx, err := s.resolver.ConfigIndex(id)
	if err != nil {
		return err
	}
	return s.mutator.SetOrientation(idx, orientation)
}

// DPIScalePercentage reads the current scale percentage of a display.
func (s *Service) DPIScalePercentage(id string) (int32, error) {
	idx, err := s.resolver.ConfigIndex(id)
	if err != nil {
		return 0, err
	}
	return s.mutator.DPIScalePercentage(idx)
}

// Info describes one configuration path joined with its legacy device.
type Info struct {
	ID                 string   `json:"id"`
	ConfigIndex        int      `json:"configIndex"`
	LegacyIndex        int      `json:"legacyIndex"`
	DeviceName         string   `json:"deviceName,omitempty"`
	Primary            bool     `json:"primary"`
	Rotation           Rotation `json:"rotation"`
	Scaling            Scaling  `json:"scaling"`
	Width              uint32   `json:"width,omitempty"`
	Height             uint32   `json:"height,omitempty"`
	RefreshRate        float64  `json:"refreshRate,omitempty"`
	DPIScalePercentage int32    `json:"dpiScalePercentage,omitempty"`
}

// Displays lists every configuration path. LegacyIndex is -1 when the
// legacy enumeration has no matching device.
func (s *Service) Displays() ([]Info, error) {
	snap, err := QuerySnapshot(s.sys)
	if err != nil {
		return nil, err
	}
	ids, err := snap.DisplayIDs(s.sys)
	if err != nil {
		return nil, err
	}
	legacy := LegacyDisplays(s.sys)
	legacyIDs := make([]string, len(legacy))
	for i, d := range legacy {
		legacyIDs[i] = d.ID
	}
	legacyMap := NewIndexMap(legacyIDs)

	out := make([]Info, len(ids))
	for i, id := range ids {
		p := &snap.Paths[i]
		info := Info{
			ID:          id,
			ConfigIndex: i,
			LegacyIndex: -1,
			Rotation:    p.Target.Rotation,
			Scaling:     p.Target.Scaling,
		}
		if li, ok := legacyMap.Lookup(id); ok {
			info.LegacyIndex = li
			info.DeviceName = legacy[li].DeviceName
			info.Primary = legacy[li].Primary
		}
		if mi, ok := snap.SourceModeFor(p); ok {
			src := mi.SourceMode()
			info.Width, info.Height = src.Width, src.Height
		}
		if rr := p.Target.RefreshRate; rr.Denominator != 0 {
			info.RefreshRate = float64(rr.Numerator) / float64(rr.Denominator)
		}
		if dpi, err := s.sys.GetDPIScale(p.Source.AdapterID, p.Source.ID); err == nil {
			if pct, ok := dpi.Percentage(); ok {
				info.DPIScalePercentage = pct
			}
		} else {
			log.Debug("dpi scale unavailable", logging.KeyConfigIndex, i, "error", err)
		}
		out[i] = info
	}
	return out, nil
}
