package profile

import (
	"errors"
	"testing"

	"github.com/displayhotkeys/dhk/internal/display"
)

type fakeDisplays struct {
	ids     []string
	listErr error
	applied map[string]display.Settings
}

func (f *fakeDisplays) DisplayIDs() ([]string, error) { return f.ids, f.listErr }

func (f *fakeDisplays) SetDisplay(id string, s display.Settings) error {
	if f.applied == nil {
		f.applied = map[string]display.Settings{}
	}
	f.applied[id] = s
	return nil
}

func TestApplySlot(t *testing.T) {
	s := newTestStore(t)
	want := display.Settings{Mode: mode720, ScalingMode: display.ScaleModeStretch, DPIScalePercentage: 175}
	if err := s.SetSlot("a", 2, Slot{Settings: want}); err != nil {
		t.Fatal(err)
	}

	fd := &fakeDisplays{ids: []string{"a", "b"}}
	ap := &Applier{Store: s, Displays: fd}

	if err := ap.ApplySlot("a", 2); err != nil {
		t.Fatalf("ApplySlot: %v", err)
	}
	if got := fd.applied["a"]; got != want {
		t.Fatalf("applied %+v, want %+v", got, want)
	}

	if err := ap.ApplySlot("a", 3); !errors.Is(err, ErrEmptySlot) {
		t.Fatalf("empty slot err = %v", err)
	}
	if err := ap.ApplySlot("a", 13); !errors.Is(err, ErrSlotOutOfRange) {
		t.Fatalf("out of range err = %v", err)
	}
	if err := ap.ApplySlot("zzz", 1); !errors.Is(err, ErrUnknownDisplay) {
		t.Fatalf("unknown display err = %v", err)
	}
}

func TestApplySlotDisconnectedDisplay(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSlot("gone", 1, Slot{Settings: display.Settings{Mode: mode1080}}); err != nil {
		t.Fatal(err)
	}
	fd := &fakeDisplays{ids: []string{"a"}}
	err := (&Applier{Store: s, Displays: fd}).ApplySlot("gone", 1)
	if !errors.Is(err, display.ErrDisplayNotFound) {
		t.Fatalf("expected ErrDisplayNotFound, got %v", err)
	}
	if len(fd.applied) != 0 {
		t.Fatal("nothing should be applied to a disconnected display")
	}
}
