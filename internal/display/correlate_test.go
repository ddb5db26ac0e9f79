package display

import (
	"errors"
	"testing"
)

func TestEveryConfigIDResolvesToLegacyDevice(t *testing.T) {
	sys := twoMonitorSystem()
	r := NewResolver(sys)

	ids, err := ConfigDisplayIDs(sys)
	if err != nil {
		t.Fatalf("ConfigDisplayIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 config ids, got %d", len(ids))
	}

	legacy := LegacyDisplays(sys)
	for _, id := range ids {
		idx, err := r.LegacyIndex(id)
		if err != nil {
			t.Fatalf("LegacyIndex(%q): %v", id, err)
		}
		if legacy[idx].ID != id {
			t.Fatalf("legacy display %d has id %q, want %q", idx, legacy[idx].ID, id)
		}
	}
}

func TestLookupsAreIdempotent(t *testing.T) {
	sys := twoMonitorSystem()
	r := NewResolver(sys)
	id := sys.targets[101]

	for _, lookup := range []struct {
		name string
		fn   func(string) (int, error)
	}{
		{"legacy", r.LegacyIndex},
		{"config", r.ConfigIndex},
	} {
		first, err := lookup.fn(id)
		if err != nil {
			t.Fatalf("%s lookup: %v", lookup.name, err)
		}
		for i := 0; i < 3; i++ {
			again, err := lookup.fn(id)
			if err != nil {
				t.Fatalf("%s lookup repeat: %v", lookup.name, err)
			}
			if again != first {
				t.Fatalf("%s lookup changed from %d to %d", lookup.name, first, again)
			}
		}
	}
}

func TestIndexMapLastMatchWins(t *testing.T) {
	m := NewIndexMap([]string{"a", "b", "a", "c"})
	if i, ok := m.Lookup("a"); !ok || i != 2 {
		t.Fatalf("Lookup(a) = %d,%v want 2,true", i, ok)
	}
	if _, ok := m.Lookup("z"); ok {
		t.Fatal("Lookup(z) should miss")
	}
}

func TestLegacyIndexSkipsDetachedDevices(t *testing.T) {
	sys := newFakeSystem(
		fakeMonitor{id: "detached", detached: true},
		fakeMonitor{id: "mon-a", current: mode1080p60, modes: []Mode{mode1080p60}},
	)
	r := NewResolver(sys)

	idx, err := r.LegacyIndex("mon-a")
	if err != nil {
		t.Fatalf("LegacyIndex: %v", err)
	}
	if idx != 0 {
		t.Fatalf("legacy index = %d, want 0 (detached adapter skipped)", idx)
	}
	if d := LegacyDisplays(sys)[idx]; d.DeviceName != `\\.\DISPLAY2` || d.DeviceIndex != 1 {
		t.Fatalf("unexpected legacy record: %+v", d)
	}
}

func TestResolveMissingID(t *testing.T) {
	sys := twoMonitorSystem()

	tests := []struct {
		name     string
		fallback bool
		id       string
		wantIdx  int
		wantErr  error
	}{
		{"unknown id", false, "nope", 0, ErrDisplayNotFound},
		{"empty id", false, "", 0, ErrDisplayNotFound},
		{"unknown id with fallback", true, "nope", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(sys)
			r.FallbackToFirst = tt.fallback
			for _, fn := range []func(string) (int, error){r.LegacyIndex, r.ConfigIndex} {
				idx, err := fn(tt.id)
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if err == nil && idx != tt.wantIdx {
					t.Fatalf("idx = %d, want %d", idx, tt.wantIdx)
				}
			}
		})
	}
}

func TestFallbackWithNoDisplaysStillFails(t *testing.T) {
	r := NewResolver(newFakeSystem())
	r.FallbackToFirst = true
	if _, err := r.ConfigIndex("anything"); !errors.Is(err, ErrDisplayNotFound) {
		t.Fatalf("expected ErrDisplayNotFound, got %v", err)
	}
}

func TestConfigIndexPropagatesOSError(t *testing.T) {
	sys := twoMonitorSystem()
	sys.targetErr = &OSError{Op: "DisplayConfigGetDeviceInfo(target name)", Code: 31}

	_, err := NewResolver(sys).ConfigIndex(sys.targets[100])
	var osErr *OSError
	if !errors.As(err, &osErr) || osErr.Code != 31 {
		t.Fatalf("expected OSError code 31, got %v", err)
	}
}

func TestLegacyEnumerationIsBounded(t *testing.T) {
	sys := newFakeSystem()
	for i := 0; i < maxDisplayDevices+10; i++ {
		sys.adapters = append(sys.adapters, DisplayDevice{DeviceName: "x", StateFlags: displayDeviceAttachedToDesktop})
	}
	if got := len(LegacyDisplays(sys)); got != maxDisplayDevices {
		t.Fatalf("LegacyDisplays returned %d, want %d", got, maxDisplayDevices)
	}
}
