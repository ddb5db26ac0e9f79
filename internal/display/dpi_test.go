package display

import "testing"

func TestDPIScaleTable(t *testing.T) {
	tests := []struct {
		pct   int32
		index int
		ok    bool
	}{
		{100, 0, true},
		{125, 1, true},
		{175, 3, true},
		{300, 7, true},
		{350, 8, true},
		{110, 0, false},
		{0, 0, false},
		{400, 0, false},
	}
	for _, tt := range tests {
		idx, ok := DPIScaleIndex(tt.pct)
		if idx != tt.index || ok != tt.ok {
			t.Errorf("DPIScaleIndex(%d) = %d,%v want %d,%v", tt.pct, idx, ok, tt.index, tt.ok)
		}
		if !tt.ok {
			continue
		}
		back, ok := DPIScalePercentage(idx)
		if !ok || back != tt.pct {
			t.Errorf("DPIScalePercentage(%d) = %d,%v want %d", idx, back, ok, tt.pct)
		}
	}

	for _, i := range []int{-1, 9} {
		if _, ok := DPIScalePercentage(i); ok {
			t.Errorf("DPIScalePercentage(%d) should be out of range", i)
		}
	}
}

func TestDPIScaleInfoRelativeStep(t *testing.T) {
	tests := []struct {
		name string
		info DPIScaleInfo
		pct  int32
		want int32
	}{
		{"recommended 200 asks 150", DPIScaleInfo{Minimum: -4}, 150, -2},
		{"recommended 100 asks 100", DPIScaleInfo{Minimum: 0}, 100, 0},
		{"recommended 125 asks 350", DPIScaleInfo{Minimum: -1}, 350, 7},
		{"unknown percentage", DPIScaleInfo{Minimum: -2}, 99, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.RelativeStep(tt.pct); got != tt.want {
				t.Fatalf("RelativeStep(%d) = %d, want %d", tt.pct, got, tt.want)
			}
		})
	}
}

func TestDPIScaleInfoPercentage(t *testing.T) {
	info := DPIScaleInfo{Minimum: -2, Current: 1, Maximum: 3}
	if p, ok := info.Percentage(); !ok || p != 175 {
		t.Fatalf("Percentage = %d,%v want 175", p, ok)
	}
	if !info.InRange(3) || info.InRange(4) || info.InRange(-3) {
		t.Fatal("InRange bounds incorrect")
	}

	beyond := DPIScaleInfo{Minimum: -8, Current: 3}
	if _, ok := beyond.Percentage(); ok {
		t.Fatal("step past the table should not resolve")
	}
}

func TestDPIScalesReturnsCopy(t *testing.T) {
	s := DPIScales()
	s[0] = 1
	if DPIScales()[0] != 100 {
		t.Fatal("DPIScales must not expose the table")
	}
}

func TestSourceModeUnionRoundTrip(t *testing.T) {
	var mi ModeInfo
	want := SourceMode{Width: 3840, Height: 2160, PixelFormat: 4, X: -1920, Y: 0}
	mi.SetSourceMode(want)
	if got := mi.SourceMode(); got != want {
		t.Fatalf("SourceMode = %+v, want %+v", got, want)
	}
}
