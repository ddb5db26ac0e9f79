// Package monitorinfo reads EDID identification of connected monitors from
// WMI (root\wmi WmiMonitorID) and matches it to display ids.
package monitorinfo

import (
	"errors"
	"strings"

	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("monitorinfo")

var ErrUnsupported = errors.New("monitorinfo: WMI not available on this platform")

// Monitor is one WmiMonitorID instance.
type Monitor struct {
	InstanceName string `json:"instanceName"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ProductCode  string `json:"productCode,omitempty"`
	Serial       string `json:"serial,omitempty"`
	FriendlyName string `json:"friendlyName,omitempty"`
	Year         int    `json:"year,omitempty"`
	Week         int    `json:"week,omitempty"`
}

// Name returns the friendly name, falling back to manufacturer and product.
func (m Monitor) Name() string {
	if m.FriendlyName != "" {
		return m.FriendlyName
	}
	return strings.TrimSpace(m.Manufacturer + " " + m.ProductCode)
}

// Key returns the device instance path shared with display ids.
func (m Monitor) Key() string {
	return instanceKey(m.InstanceName)
}

// DeviceKey reduces a monitor device interface path such as
// \\?\DISPLAY#DEL4321#5&1a2b3c&0&UID4353#{e6f07b5f-...} to its device
// instance path DISPLAY\DEL4321\5&1a2b3c&0&UID4353, upper-cased.
func DeviceKey(displayID string) string {
	s := strings.TrimPrefix(displayID, `\\?\`)
	if i := strings.Index(s, "#{"); i >= 0 {
		s = s[:i]
	}
	return strings.ToUpper(strings.ReplaceAll(s, "#", `\`))
}

// instanceKey strips the WMI instance suffix (_0, _1, ...) from names like
// DISPLAY\DEL4321\5&1a2b3c&0&UID4353_0.
func instanceKey(name string) string {
	if i := strings.LastIndex(name, "_"); i > 0 && i > strings.LastIndex(name, `\`) {
		allDigits := i+1 < len(name)
		for _, c := range name[i+1:] {
			if c < '0' || c > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			name = name[:i]
		}
	}
	return strings.ToUpper(name)
}

// Match returns the monitor describing displayID.
func Match(monitors []Monitor, displayID string) (Monitor, bool) {
	key := DeviceKey(displayID)
	for _, m := range monitors {
		if m.Key() == key {
			return m, true
		}
	}
	return Monitor{}, false
}

// Names maps each display id to the friendly name of its monitor. Ids without
// a matching monitor are left out.
func Names(monitors []Monitor, displayIDs []string) map[string]string {
	out := make(map[string]string)
	for _, id := range displayIDs {
		if m, ok := Match(monitors, id); ok && m.Name() != "" {
			out[id] = m.Name()
		}
	}
	return out
}

// decodeString turns a WMI uint16 character array into a string. The array
// is zero padded.
func decodeString(values []any) string {
	var b strings.Builder
	for _, v := range values {
		var c int64
		switch n := v.(type) {
		case int32:
			c = int64(n)
		case uint16:
			c = int64(n)
		case int64:
			c = n
		case uint8:
			c = int64(n)
		case int16:
			c = int64(n)
		case uint32:
			c = int64(n)
		default:
			continue
		}
		if c == 0 {
			break
		}
		b.WriteRune(rune(c))
	}
	return strings.TrimSpace(b.String())
}
