package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/displayhotkeys/dhk/internal/display"
)

func TestValidateRepairsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	doc := `
version: 1
displays:
  mon-a:
    numSlots: 20
    orientationMode: 7
    slots:
      - {width: 2560, height: 1440, bitDepth: 32, refreshRate: 60, scalingMode: 1, dpiScalePercentage: 150, hotKey: [Ctrl, "1"]}
      - {width: 800, height: 600, bitDepth: 16, refreshRate: 75, scalingMode: 9, dpiScalePercentage: 110}
      - {width: 1920, height: 1080, bitDepth: 32, refreshRate: 60, scalingMode: 0, dpiScalePercentage: 100, hotKey: [ctrl, a, b]}
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entry := display.NewCatalogEntry("mon-a", display.RotationIdentity, []display.Mode{mode1080, mode1440, mode720})
	fixes := s.Validate([]display.CatalogEntry{entry})
	if len(fixes) == 0 {
		t.Fatal("expected fixes")
	}

	d, _ := s.Display("mon-a")
	if d.NumSlots != DefaultSlots {
		t.Errorf("NumSlots = %d, want %d", d.NumSlots, DefaultSlots)
	}
	if d.OrientationMode != display.OrientationLandscape {
		t.Errorf("OrientationMode = %d, want 0", d.OrientationMode)
	}

	first := d.Slots[0]
	if first.Mode != mode1440 || first.ScalingMode != 1 || first.DPIScalePercentage != 150 {
		t.Errorf("valid slot changed: %+v", first)
	}
	if len(first.HotKey) != 2 || first.HotKey[0] != "ctrl" {
		t.Errorf("hotkey not normalized: %v", first.HotKey)
	}

	second := d.Slots[1]
	if second.Mode != mode1440 {
		t.Errorf("unsupported mode should reset to the largest mode, got %v", second.Mode)
	}
	if second.ScalingMode != 0 || second.DPIScalePercentage != 100 {
		t.Errorf("second slot not reset: %+v", second)
	}

	if d.Slots[2].HotKey != nil {
		t.Errorf("invalid hotkey should be cleared, got %v", d.Slots[2].HotKey)
	}

	for i := 3; i < MaxSlots; i++ {
		if d.Slots[i].Mode != mode1440 || d.Slots[i].DPIScalePercentage != 100 {
			t.Fatalf("empty slot %d not filled with defaults: %+v", i+1, d.Slots[i])
		}
	}

	if again := s.Validate([]display.CatalogEntry{entry}); len(again) != 0 {
		t.Fatalf("second validation should be clean, got %v", again)
	}
}

func TestValidateCreatesProfileForNewDisplay(t *testing.T) {
	s := newTestStore(t)
	entry := display.NewCatalogEntry("new", display.RotationIdentity, []display.Mode{mode1080})

	fixes := s.Validate([]display.CatalogEntry{entry})
	if len(fixes) != 1+MaxSlots || fixes[0].Field != "profile" {
		t.Fatalf("fixes = %v, want profile creation and one fill per slot", fixes)
	}
	for _, f := range fixes[1:] {
		if f.Field != "slot" {
			t.Errorf("unexpected fix %v", f)
		}
	}
	d, ok := s.Display("new")
	if !ok || d.NumSlots != DefaultSlots || len(d.Slots) != MaxSlots {
		t.Fatalf("display = %+v", d)
	}
}

func TestValidateReportsEmptySlotFill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	entry := display.NewCatalogEntry("mon", display.RotationIdentity, []display.Mode{mode1080})
	s.Validate([]display.CatalogEntry{entry})
	if err := s.ClearSlot("mon", 2); err != nil {
		t.Fatalf("ClearSlot: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fixes := reopened.Validate([]display.CatalogEntry{entry})
	if len(fixes) != 1 || fixes[0].Slot != 2 || fixes[0].Field != "slot" {
		t.Fatalf("fixes = %v, want the fill of slot 2", fixes)
	}
	if err := reopened.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	final, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sl, err := final.Slot("mon", 2)
	if err != nil {
		t.Fatalf("Slot: %v", err)
	}
	if sl.Empty() || sl.Mode != mode1080 || sl.DPIScalePercentage != 100 {
		t.Fatalf("filled slot not persisted: %+v", sl)
	}
}

func TestValidateUsesOrientationModeList(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetOrientationMode("p", display.OrientationPortrait); err != nil {
		t.Fatal(err)
	}
	entry := display.NewCatalogEntry("p", display.RotationIdentity, []display.Mode{mode1080})
	s.Validate([]display.CatalogEntry{entry})

	sl, _ := s.Slot("p", 1)
	if sl.Width != 1080 || sl.Height != 1920 {
		t.Fatalf("portrait profile should default to a portrait mode, got %v", sl.Mode)
	}
}
