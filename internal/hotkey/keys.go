package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MaxKeys is the largest number of keys in one combination.
const MaxKeys = 3

// Key is a Windows virtual-key code.
type Key uint32

// Modifier flags accepted by RegisterHotKey.
const (
	ModAlt      uint32 = 0x0001
	ModControl  uint32 = 0x0002
	ModShift    uint32 = 0x0004
	ModWin      uint32 = 0x0008
	ModNoRepeat uint32 = 0x4000
)

var (
	ErrEmptyCombo       = errors.New("hotkey: no keys")
	ErrTooManyKeys      = fmt.Errorf("hotkey: more than %d keys", MaxKeys)
	ErrNoTriggerKey     = errors.New("hotkey: combination needs one non-modifier key")
	ErrMultipleTriggers = errors.New("hotkey: combination has more than one non-modifier key")
	ErrDuplicateKey     = errors.New("hotkey: key repeated")
)

// modifierNames maps every accepted modifier spelling to its flag.
var modifierNames = map[string]uint32{
	"ctrl":    ModControl,
	"control": ModControl,
	"alt":     ModAlt,
	"shift":   ModShift,
	"win":     ModWin,
	"super":   ModWin,
	"cmd":     ModWin,
}

// canonical modifier names in display order
var modifierOrder = []struct {
	flag uint32
	name string
}{
	{ModControl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModWin, "win"},
}

var keyCodes = map[string]Key{
	"space": 0x20, "enter": 0x0D, "return": 0x0D, "tab": 0x09, "esc": 0x1B, "escape": 0x1B,
	"backspace": 0x08, "insert": 0x2D, "delete": 0x2E, "home": 0x24, "end": 0x23,
	"pageup": 0x21, "pagedown": 0x22, "left": 0x25, "up": 0x26, "right": 0x27, "down": 0x28,
	"pause": 0x13, "printscreen": 0x2C, "scrolllock": 0x91, "capslock": 0x14, "numlock": 0x90,
	"plus": 0xBB, "minus": 0xBD, "comma": 0xBC, "period": 0xBE, "semicolon": 0xBA,
	"slash": 0xBF, "backquote": 0xC0, "lbracket": 0xDB, "backslash": 0xDC, "rbracket": 0xDD,
	"quote": 0xDE,
	"multiply": 0x6A, "add": 0x6B, "subtract": 0x6D, "decimal": 0x6E, "divide": 0x6F,
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		keyCodes[string(c)] = Key('A' + (c - 'a'))
	}
	for d := '0'; d <= '9'; d++ {
		keyCodes[string(d)] = Key(d)
		keyCodes["numpad"+string(d)] = Key(0x60 + (d - '0'))
	}
	for i := 1; i <= 24; i++ {
		keyCodes[fmt.Sprintf("f%d", i)] = Key(0x70 + i - 1)
	}
}

// ParseKey resolves a key name (case-insensitive) to its virtual-key code.
// Modifiers are not keys here; use ParseCombo.
func ParseKey(name string) (Key, error) {
	k, ok := keyCodes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("hotkey: unknown key %q", name)
	}
	return k, nil
}

// KnownKey reports whether name is a modifier or a key.
func KnownKey(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if _, ok := modifierNames[n]; ok {
		return true
	}
	_, ok := keyCodes[n]
	return ok
}

// Combo is a hotkey as RegisterHotKey understands it.
type Combo struct {
	Modifiers uint32
	Key       Key
	Name      string // canonical trigger key name
}

// ParseCombo validates a list of key names: at most MaxKeys, no repeats,
// any modifiers plus exactly one trigger key.
func ParseCombo(keys []string) (Combo, error) {
	if len(keys) == 0 {
		return Combo{}, ErrEmptyCombo
	}
	if len(keys) > MaxKeys {
		return Combo{}, ErrTooManyKeys
	}

	var c Combo
	triggers := 0
	for _, raw := range keys {
		n := strings.ToLower(strings.TrimSpace(raw))
		if flag, ok := modifierNames[n]; ok {
			if c.Modifiers&flag != 0 {
				return Combo{}, fmt.Errorf("%w: %s", ErrDuplicateKey, n)
			}
			c.Modifiers |= flag
			continue
		}
		k, err := ParseKey(n)
		if err != nil {
			return Combo{}, err
		}
		triggers++
		if triggers > 1 {
			if k == c.Key {
				return Combo{}, fmt.Errorf("%w: %s", ErrDuplicateKey, n)
			}
			return Combo{}, ErrMultipleTriggers
		}
		c.Key = k
		c.Name = n
	}
	if triggers == 0 {
		return Combo{}, ErrNoTriggerKey
	}
	return c, nil
}

// Keys returns the canonical key names of the combination, modifiers first.
func (c Combo) Keys() []string {
	var out []string
	for _, m := range modifierOrder {
		if c.Modifiers&m.flag != 0 {
			out = append(out, m.name)
		}
	}
	return append(out, canonicalName(c.Key, c.Name))
}

func (c Combo) String() string {
	return strings.Join(c.Keys(), "+")
}

// canonicalName picks the shortest alias of a key code so that "return"
// and "enter" normalize to one spelling.
func canonicalName(k Key, fallback string) string {
	var names []string
	for n, code := range keyCodes {
		if code == k {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return fallback
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	return names[0]
}

// Split parses "Ctrl+Alt+1" style input into key names.
func Split(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "+") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Normalize validates keys and returns them in canonical form.
func Normalize(keys []string) ([]string, error) {
	c, err := ParseCombo(keys)
	if err != nil {
		return nil, err
	}
	return c.Keys(), nil
}
