package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/displayhotkeys/dhk/internal/bridge"
	"github.com/displayhotkeys/dhk/internal/config"
	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/health"
	"github.com/displayhotkeys/dhk/internal/hotkey"
	"github.com/displayhotkeys/dhk/internal/ipc"
	"github.com/displayhotkeys/dhk/internal/poller"
	"github.com/displayhotkeys/dhk/internal/profile"
	"github.com/displayhotkeys/dhk/internal/workerpool"
)

const testID = `\\?\DISPLAY#DEL4321#5&2a1b3c&0&UID4352#{e6f07b5f-ee97-4a90-b076-33f57bf4eaa7}`

var fullHD = display.Mode{Width: 1920, Height: 1080, BitDepth: 32, RefreshRate: 60}

type idLister []string

func (l idLister) DisplayIDs() ([]string, error) { return l, nil }

// fakeAPI embeds the service interface so only the methods a test touches
// need implementing.
type fakeAPI struct {
	bridge.DisplayService
	infos []display.Info
}

func (f *fakeAPI) DisplaysWithNames() ([]display.Info, map[string]string, error) {
	return f.infos, nil, nil
}
func (f *fakeAPI) ApplySlot(string, int) error { return nil }
func (f *fakeAPI) Close() error                { return nil }

func TestParseScaling(t *testing.T) {
	tests := []struct {
		in      string
		want    int32
		wantErr bool
	}{
		{"aspect", display.ScaleModePreserveAspect, false},
		{"0", display.ScaleModePreserveAspect, false},
		{"Stretch", display.ScaleModeStretch, false},
		{"1", display.ScaleModeStretch, false},
		{" center ", display.ScaleModeCentered, false},
		{"2", display.ScaleModeCentered, false},
		{"3", 0, true},
		{"zoom", 0, true},
	}
	for _, tt := range tests {
		got, err := parseScaling(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseScaling(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseScaling(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseOrientation(t *testing.T) {
	tests := []struct {
		in      string
		want    int32
		wantErr bool
	}{
		{"landscape", display.OrientationLandscape, false},
		{"portrait", display.OrientationPortrait, false},
		{"landscape-flipped", display.OrientationLandscapeFlipped, false},
		{"3", display.OrientationPortraitFlipped, false},
		{"4", 0, true},
		{"sideways", 0, true},
	}
	for _, tt := range tests {
		got, err := parseOrientation(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseOrientation(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestParseSlot(t *testing.T) {
	if n, err := parseSlot("12"); err != nil || n != 12 {
		t.Errorf("parseSlot(12) = %d, %v", n, err)
	}
	for _, in := range []string{"0", "13", "-1"} {
		if _, err := parseSlot(in); !errors.Is(err, profile.ErrSlotOutOfRange) {
			t.Errorf("parseSlot(%q) err = %v, want ErrSlotOutOfRange", in, err)
		}
	}
	if _, err := parseSlot("two"); err == nil {
		t.Error("parseSlot(two) should fail")
	}
}

func TestParseHotKeyArg(t *testing.T) {
	keys, err := parseHotKeyArg("Alt+Ctrl+1")
	if err != nil {
		t.Fatalf("parseHotKeyArg: %v", err)
	}
	if strings.Join(keys, "+") != "ctrl+alt+1" {
		t.Errorf("keys = %v, want canonical ctrl+alt+1", keys)
	}

	for _, clear := range []string{"", "none", "NONE"} {
		if keys, err := parseHotKeyArg(clear); err != nil || keys != nil {
			t.Errorf("parseHotKeyArg(%q) = %v, %v, want nil", clear, keys, err)
		}
	}

	if _, err := parseHotKeyArg("ctrl+alt"); !errors.Is(err, hotkey.ErrNoTriggerKey) {
		t.Errorf("modifiers only err = %v", err)
	}
}

func TestSettingsFlags(t *testing.T) {
	f := settingsFlags{width: 2560, height: 1440, bitDepth: 32, refreshRate: 144, scaling: "stretch", dpi: 125}
	s, err := f.settings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	want := display.Settings{
		Mode:               display.Mode{Width: 2560, Height: 1440, BitDepth: 32, RefreshRate: 144},
		ScalingMode:        display.ScaleModeStretch,
		DPIScalePercentage: 125,
	}
	if s != want {
		t.Errorf("settings = %+v, want %+v", s, want)
	}

	bad := []settingsFlags{
		{height: 1080, scaling: "aspect", dpi: 100},
		{width: 1920, height: 1080, scaling: "zoom", dpi: 100},
		{width: 1920, height: 1080, scaling: "aspect", dpi: 110},
	}
	for _, b := range bad {
		if _, err := b.settings(); err == nil {
			t.Errorf("settings(%+v) should fail", b)
		}
	}
}

func TestResolveDisplay(t *testing.T) {
	ids := idLister{testID, `\\?\DISPLAY#GSM5B7F#1`}

	tests := []struct {
		arg     string
		want    string
		wantErr error
	}{
		{testID, testID, nil},
		{"1", ids[1], nil},
		{"0", ids[0], nil},
		{"5", "", display.ErrPathIndexOutOfRange},
		{"-1", "", display.ErrPathIndexOutOfRange},
		{"not-an-index", "not-an-index", nil},
	}
	for _, tt := range tests {
		got, err := resolveDisplay(ids, tt.arg)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("resolveDisplay(%q) err = %v, want %v", tt.arg, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("resolveDisplay(%q) = %q, %v", tt.arg, got, err)
		}
	}
}

func TestCurrentSettings(t *testing.T) {
	api := &fakeAPI{infos: []display.Info{{
		ID:                 testID,
		Width:              1920,
		Height:             1080,
		RefreshRate:        59.94,
		Scaling:            display.ScalingCentered,
		DPIScalePercentage: 150,
	}}}

	s, err := currentSettings(api, testID)
	if err != nil {
		t.Fatalf("currentSettings: %v", err)
	}
	if s.Mode != fullHD || s.ScalingMode != display.ScaleModeCentered || s.DPIScalePercentage != 150 {
		t.Errorf("settings = %+v", s)
	}

	if _, err := currentSettings(api, "missing"); !errors.Is(err, display.ErrDisplayNotFound) {
		t.Errorf("missing display err = %v", err)
	}
}

func TestDisplayRows(t *testing.T) {
	infos := []display.Info{
		{ID: testID, ConfigIndex: 0, LegacyIndex: 1, Primary: true, DeviceName: `\\.\DISPLAY2`,
			Rotation: display.RotationRotate90, Scaling: display.ScalingIdentity,
			Width: 1080, Height: 1920, RefreshRate: 60, DPIScalePercentage: 125},
		{ID: "other", ConfigIndex: 1, LegacyIndex: -1, DeviceName: `\\.\DISPLAY3`},
	}
	rows := displayRows(infos, map[string]string{testID: "DELL U2720Q"})

	want0 := []string{"0", "1", "*", "DELL U2720Q", "1080x1920@60Hz", "portrait", "identity", "125%", testID}
	if strings.Join(rows[0], "|") != strings.Join(want0, "|") {
		t.Errorf("row 0 = %v\nwant    %v", rows[0], want0)
	}
	if rows[1][1] != "-" || rows[1][3] != `\\.\DISPLAY3` || rows[1][4] != "-" || rows[1][7] != "-" {
		t.Errorf("row 1 = %v", rows[1])
	}
}

func TestWriteStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st := ipc.StatusResult{
		Version:     "0.1.0",
		StartedAt:   now.Add(-90 * time.Second),
		Connections: 2,
		Health: health.Report{Status: health.Degraded, Checks: []health.Check{
			{Name: health.Bridge, Status: health.Healthy, UpdatedAt: now},
			{Name: health.Hotkeys, Status: health.Degraded, Message: "no hotkeys bound", UpdatedAt: now},
		}},
	}
	var buf bytes.Buffer
	writeStatus(&buf, st, now)
	out := buf.String()
	for _, want := range []string{"version   0.1.0", "uptime    1m30s", "clients   2", "health    degraded", "no hotkeys bound", "COMPONENT"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestSlotRow(t *testing.T) {
	sl := profile.Slot{
		Settings: display.Settings{Mode: fullHD, ScalingMode: display.ScaleModeStretch, DPIScalePercentage: 100},
		HotKey:   []string{"ctrl", "alt", "1"},
	}
	got := slotRow("d", 3, true, sl)
	want := []string{"d", "3", "yes", fullHD.String(), "stretched", "100%", "ctrl+alt+1"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("slotRow = %v, want %v", got, want)
	}

	empty := slotRow("d", 5, false, profile.Slot{})
	if empty[2] != "no" || empty[3] != "-" || empty[6] != "-" {
		t.Errorf("empty slotRow = %v", empty)
	}
}

func TestStartupArgs(t *testing.T) {
	old := cfgFile
	defer func() { cfgFile = old }()

	cfgFile = ""
	if got := startupArgs(); len(got) != 1 || got[0] != "serve" {
		t.Errorf("startupArgs() = %v", got)
	}

	cfgFile = "dhk.yaml"
	got := startupArgs()
	if len(got) != 3 || got[1] != "--config" || !filepath.IsAbs(got[2]) {
		t.Errorf("startupArgs() with config = %v", got)
	}
}

func TestAdaptChanges(t *testing.T) {
	in := make(chan poller.Change, 2)
	in <- poller.Change{Previous: 1, Current: 2}
	close(in)

	out := adaptChanges(in)
	ev, ok := <-out
	if !ok || ev.Previous != 1 || ev.Current != 2 {
		t.Errorf("event = %+v, %v", ev, ok)
	}
	if _, ok := <-out; ok {
		t.Error("output should close with input")
	}
}

func writeProfile(t *testing.T, path string, slot int, keys ...string) {
	t.Helper()
	store, err := profile.Open(path)
	if err != nil {
		t.Fatalf("open profiles: %v", err)
	}
	s := profile.Slot{Settings: display.Settings{Mode: fullHD, DPIScalePercentage: 100}}
	if err := store.SetSlot(testID, slot, s); err != nil {
		t.Fatalf("SetSlot: %v", err)
	}
	if err := store.SetHotKey(testID, slot, keys); err != nil {
		t.Fatalf("SetHotKey: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestHotkeyDaemonAppliesAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeProfile(t, path, 1, "ctrl", "alt", "1")

	registered := make(chan []hotkey.Binding, 4)
	applied := make(chan string, 4)

	pool := workerpool.New(1, 4)
	defer pool.Shutdown(context.Background())

	d := &hotkeyDaemon{
		profilesFile: path,
		catalog: func() ([]display.CatalogEntry, error) {
			return []display.CatalogEntry{display.NewCatalogEntry(testID, display.RotationIdentity, []display.Mode{fullHD})}, nil
		},
		apply: func(id string, slot int) error {
			applied <- fmt.Sprintf("%s/%d", id, slot)
			return nil
		},
		listen: func(ctx context.Context, bindings []hotkey.Binding, h hotkey.Handler) error {
			registered <- bindings
			if len(bindings) > 0 {
				h(bindings[0])
			}
			<-ctx.Done()
			return ctx.Err()
		},
		pool:   pool,
		poller: poller.New(func() (int32, error) { return 1, nil }, time.Hour),
	}

	ctx, cancel := context.WithCancel(context.Background())
	reload := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() { done <- d.run(ctx, reload) }()

	first := receive(t, registered)
	if len(first) != 1 || first[0].Slot != 1 || first[0].Combo.String() != "ctrl+alt+1" {
		t.Fatalf("first bindings = %+v", first)
	}
	if got := receive(t, applied); got != testID+"/1" {
		t.Errorf("applied %q", got)
	}

	writeProfile(t, path, 2, "ctrl", "alt", "2")
	reload <- struct{}{}

	second := receive(t, registered)
	if len(second) != 2 {
		t.Fatalf("bindings after reload = %+v", second)
	}
	receive(t, applied)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
	pool.Shutdown(context.Background())
	if d.poller.Paused() {
		t.Error("poller left paused after apply")
	}
}

func TestHotkeyDaemonListenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	boom := errors.New("no hotkeys registered")

	d := &hotkeyDaemon{
		profilesFile: path,
		catalog:      func() ([]display.CatalogEntry, error) { return nil, nil },
		apply:        func(string, int) error { return nil },
		listen: func(context.Context, []hotkey.Binding, hotkey.Handler) error {
			return boom
		},
		pool:   workerpool.New(1, 1),
		health: health.NewMonitor(),
	}
	defer d.pool.Shutdown(context.Background())

	if err := d.run(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("run err = %v, want %v", err, boom)
	}
	c, ok := d.health.Get(health.Hotkeys)
	if !ok || c.Status != health.Unhealthy || c.Message != boom.Error() {
		t.Errorf("hotkeys health = %+v", c)
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhk.yaml")
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() {
		cfgFile = prev
		configForce = false
	})

	run := func(cmd *cobra.Command, args ...string) (string, error) {
		var out bytes.Buffer
		cmd.SetOut(&out)
		err := cmd.RunE(cmd, args)
		return out.String(), err
	}

	if out, err := run(configInitCmd); err != nil || !strings.Contains(out, path) {
		t.Fatalf("init = %q, %v", out, err)
	}
	if _, err := run(configInitCmd); err == nil {
		t.Fatal("second init overwrote the file without --force")
	}
	if _, err := run(configSetCmd, "poll_interval_seconds", "11"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := run(configSetCmd, "no_such_key", "1"); err == nil {
		t.Fatal("set accepted an unknown key")
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.PollIntervalSeconds != 11 {
		t.Errorf("poll_interval_seconds = %d, want 11", loaded.PollIntervalSeconds)
	}

	configForce = true
	if _, err := run(configInitCmd); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	if loaded, _ := config.Load(path); loaded.PollIntervalSeconds != config.Default().PollIntervalSeconds {
		t.Errorf("init --force kept poll_interval_seconds = %d", loaded.PollIntervalSeconds)
	}
}
