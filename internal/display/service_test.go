package display

import (
	"errors"
	"testing"
)

func TestServiceQueries(t *testing.T) {
	sys := twoMonitorSystem()
	svc := NewService(sys, Options{VerifyTopology: true})

	n, err := svc.NumConnectedDisplays()
	if err != nil || n != 2 {
		t.Fatalf("NumConnectedDisplays = %d,%v want 2", n, err)
	}

	ids, err := svc.DisplayIDs()
	if err != nil {
		t.Fatalf("DisplayIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != sys.targets[100] || ids[1] != sys.targets[101] {
		t.Fatalf("DisplayIDs = %v", ids)
	}

	modes, err := svc.DisplayModes(ids[0])
	if err != nil || len(modes) != 3 {
		t.Fatalf("DisplayModes = %v,%v", modes, err)
	}

	if _, err := svc.DisplayModes("missing"); !errors.Is(err, ErrDisplayNotFound) {
		t.Fatalf("DisplayModes(missing) err = %v", err)
	}
}

func TestServiceDisplayOrientation(t *testing.T) {
	sys := newFakeSystem(
		fakeMonitor{id: "a", current: mode1080p60},
		fakeMonitor{id: "b", current: mode1080p60, rotation: RotationRotate270},
	)
	svc := NewService(sys, Options{})

	tests := []struct {
		idx  int32
		want int32
		err  error
	}{
		{0, 1, nil},
		{1, 4, nil},
		{2, 0, ErrPathIndexOutOfRange},
		{-1, 0, ErrPathIndexOutOfRange},
	}
	for _, tt := range tests {
		got, err := svc.DisplayOrientation(tt.idx)
		if !errors.Is(err, tt.err) {
			t.Fatalf("DisplayOrientation(%d) err = %v, want %v", tt.idx, err, tt.err)
		}
		if got != tt.want {
			t.Fatalf("DisplayOrientation(%d) = %d, want %d", tt.idx, got, tt.want)
		}
	}
}

func TestServiceSetDisplayAppliesAllSteps(t *testing.T) {
	sys := twoMonitorSystem()
	svc := NewService(sys, Options{VerifyTopology: true})
	id := sys.targets[101]

	err := svc.SetDisplay(id, Settings{Mode: mode1080p60, ScalingMode: ScaleModeCentered, DPIScalePercentage: 125})
	if err != nil {
		t.Fatalf("SetDisplay: %v", err)
	}
	if len(sys.changes) != 1 || sys.changes[0].device != `\\.\DISPLAY2` {
		t.Fatalf("mode change not applied to DISPLAY2: %+v", sys.changes)
	}
	if len(sys.setConfigs) != 1 || sys.setConfigs[0].paths[1].Target.Scaling != ScalingCentered {
		t.Fatalf("scaling not applied to path 1")
	}
	if sys.setConfigs[0].paths[0].Target.Scaling != ScalingIdentity {
		t.Fatal("other path must be left untouched")
	}
	if len(sys.dpiSets) != 1 || sys.dpiSets[0].relative != -3 {
		t.Fatalf("dpi sets = %+v, want relative -3", sys.dpiSets)
	}
}

func TestServiceSetDisplayJoinsFailures(t *testing.T) {
	sys := twoMonitorSystem()
	sys.changeCode = dispChangeBadMode
	svc := NewService(sys, Options{})

	err := svc.SetDisplay(sys.targets[100], Settings{Mode: mode720p60, ScalingMode: ScaleModeStretch, DPIScalePercentage: 150})
	var ce *ChangeError
	if !errors.As(err, &ce) || ce.Code != dispChangeBadMode {
		t.Fatalf("expected bad mode ChangeError, got %v", err)
	}
	if len(sys.setConfigs) != 1 {
		t.Fatal("scaling must still be attempted after a mode failure")
	}
	if len(sys.dpiSets) != 1 {
		t.Fatal("dpi must still be attempted after a mode failure")
	}
}

func TestServiceSetDisplayUnknownID(t *testing.T) {
	sys := twoMonitorSystem()
	svc := NewService(sys, Options{})

	err := svc.SetDisplay("missing", Settings{Mode: mode720p60})
	if !errors.Is(err, ErrDisplayNotFound) {
		t.Fatalf("expected ErrDisplayNotFound, got %v", err)
	}
	if len(sys.changes)+len(sys.setConfigs)+len(sys.dpiSets) != 0 {
		t.Fatal("nothing should be applied for an unknown display")
	}

	fallback := NewService(sys, Options{FallbackToFirstDisplay: true})
	if err := fallback.SetDisplay("missing", Settings{Mode: mode720p60}); err != nil {
		t.Fatalf("fallback SetDisplay: %v", err)
	}
	if sys.changes[0].device != `\\.\DISPLAY1` {
		t.Fatalf("fallback applied to %q, want first display", sys.changes[0].device)
	}
}

func TestServiceSetOrientation(t *testing.T) {
	sys := twoMonitorSystem()
	svc := NewService(sys, Options{VerifyTopology: true})

	if err := svc.SetOrientation(sys.targets[100], OrientationLandscapeFlipped); err != nil {
		t.Fatalf("SetOrientation: %v", err)
	}
	got, err := svc.DisplayOrientation(0)
	if err != nil || got != int32(RotationRotate180) {
		t.Fatalf("orientation after set = %d,%v want 3", got, err)
	}
}

func TestServiceDisplays(t *testing.T) {
	sys := twoMonitorSystem()
	svc := NewService(sys, Options{})

	infos, err := svc.Displays()
	if err != nil {
		t.Fatalf("Displays: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 displays, got %d", len(infos))
	}
	first := infos[0]
	if !first.Primary || first.LegacyIndex != 0 || first.DeviceName != `\\.\DISPLAY1` {
		t.Fatalf("unexpected first display: %+v", first)
	}
	if first.Width != 2560 || first.Height != 1440 || first.RefreshRate != 60 {
		t.Fatalf("unexpected geometry: %+v", first)
	}
	if first.DPIScalePercentage != 125 {
		t.Fatalf("dpi = %d, want 125", first.DPIScalePercentage)
	}
	if infos[1].DPIScalePercentage != 200 {
		t.Fatalf("dpi = %d, want 200", infos[1].DPIScalePercentage)
	}
}

func TestServiceCatalog(t *testing.T) {
	sys := twoMonitorSystem()
	svc := NewService(sys, Options{})

	entries, err := svc.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if n := len(entries[1].Landscape); n != 2 {
		t.Fatalf("second display should have 2 distinct modes, got %d", n)
	}
}

func TestServiceQueryFailure(t *testing.T) {
	sys := twoMonitorSystem()
	sys.queryErr = &OSError{Op: "QueryDisplayConfig", Code: 5}
	svc := NewService(sys, Options{})

	if _, err := svc.NumConnectedDisplays(); err == nil {
		t.Fatal("expected error from failed query")
	}
	var osErr *OSError
	if _, err := svc.DisplayIDs(); !errors.As(err, &osErr) || osErr.Code != 5 {
		t.Fatalf("expected OSError code 5, got %v", err)
	}
}
