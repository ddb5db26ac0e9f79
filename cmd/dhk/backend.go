package main

import (
	"fmt"

	"github.com/displayhotkeys/dhk/internal/bridge"
	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/monitorinfo"
	"github.com/displayhotkeys/dhk/internal/profile"
)

// displayAPI is what the commands need, served either by the OS directly or
// by a running bridge.
type displayAPI interface {
	bridge.DisplayService
	DisplaysWithNames() ([]display.Info, map[string]string, error)
	ApplySlot(id string, slot int) error
	Close() error
}

// localAPI calls the OS in this process.
type localAPI struct {
	*display.Service
	profilesFile string
}

func newLocalService() (*display.Service, error) {
	sys, err := display.NewSystem()
	if err != nil {
		return nil, err
	}
	return display.NewService(sys, display.Options{
		VerifyTopology:         cfg.VerifyTopology,
		FallbackToFirstDisplay: cfg.FallbackToFirstDisplay,
	}), nil
}

func openAPI() (displayAPI, error) {
	if remote {
		c, err := bridge.Dial(cfg.PipePath)
		if err != nil {
			return nil, fmt.Errorf("connect to dhk serve at %s: %w", cfg.PipePath, err)
		}
		return c, nil
	}
	svc, err := newLocalService()
	if err != nil {
		return nil, err
	}
	return &localAPI{Service: svc, profilesFile: cfg.ProfilesFile}, nil
}

func (a *localAPI) DisplaysWithNames() ([]display.Info, map[string]string, error) {
	infos, err := a.Displays()
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return infos, monitorNames(ids), nil
}

func (a *localAPI) ApplySlot(id string, slot int) error {
	return applySlotFromFile(a.profilesFile, a.Service, id, slot)
}

func (a *localAPI) Close() error { return nil }

// applySlotFromFile reads the profiles file for every call so slots saved by
// another dhk process are picked up.
func applySlotFromFile(path string, displays profile.DisplaySetter, id string, slot int) error {
	store, err := profile.Open(path)
	if err != nil {
		return err
	}
	return (&profile.Applier{Store: store, Displays: displays}).ApplySlot(id, slot)
}

// fileSlots serves apply_slot requests for the bridge.
type fileSlots struct {
	path     string
	displays profile.DisplaySetter
}

func (f fileSlots) ApplySlot(id string, slot int) error {
	return applySlotFromFile(f.path, f.displays, id, slot)
}

// monitorNames returns friendly names from WMI, or nil when they cannot be read.
func monitorNames(ids []string) map[string]string {
	monitors, err := monitorinfo.Query()
	if err != nil {
		log.Debug("monitor names unavailable", "error", err.Error())
		return nil
	}
	return monitorinfo.Names(monitors, ids)
}
