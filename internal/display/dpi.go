package display

// dpiScales is the ordered list of scale percentages Windows steps through.
// The OS reports and accepts DPI as a signed offset into this list relative
// to the display's recommended entry.
var dpiScales = [...]int32{100, 125, 150, 175, 200, 225, 250, 300, 350}

// DPIScaleInfo is the relative scale range reported for a source.
// Minimum is the offset of 100% from the recommended scale, so it is <= 0.
type DPIScaleInfo struct {
	Minimum int32 `json:"minimum"`
	Current int32 `json:"current"`
	Maximum int32 `json:"maximum"`
}

// DPIScales returns a copy of the supported percentages in ascending order.
func DPIScales() []int32 {
	out := make([]int32, len(dpiScales))
	copy(out, dpiScales[:])
	return out
}

// DPIScaleIndex returns the position of p in the scale table.
func DPIScaleIndex(p int32) (int, bool) {
	for i, v := range dpiScales {
		if v == p {
			return i, true
		}
	}
	return 0, false
}

// DPIScalePercentage returns the percentage at table position i.
func DPIScalePercentage(i int) (int32, bool) {
	if i < 0 || i >= len(dpiScales) {
		return 0, false
	}
	return dpiScales[i], true
}

// RecommendedIndex is the table position of the OS recommended scale.
func (d DPIScaleInfo) RecommendedIndex() int {
	if d.Minimum < 0 {
		return int(-d.Minimum)
	}
	return int(d.Minimum)
}

// RelativeStep converts an absolute percentage into the offset the OS expects.
// Percentages outside the table are treated as 100%.
func (d DPIScaleInfo) RelativeStep(p int32) int32 {
	idx, _ := DPIScaleIndex(p)
	return int32(idx - d.RecommendedIndex())
}

// Percentage converts the current relative offset back into a percentage.
func (d DPIScaleInfo) Percentage() (int32, bool) {
	return DPIScalePercentage(d.RecommendedIndex() + int(d.Current))
}

// InRange reports whether a relative step lies within what the OS advertised.
func (d DPIScaleInfo) InRange(step int32) bool {
	return step >= d.Minimum && step <= d.Maximum
}
