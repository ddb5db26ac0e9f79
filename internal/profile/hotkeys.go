package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/displayhotkeys/dhk/internal/hotkey"
	"github.com/displayhotkeys/dhk/internal/logging"
)

// ErrHotKeyConflict is returned when a hotkey overlaps another slot's hotkey.
var ErrHotKeyConflict = errors.New("profile: hotkey conflicts with another slot")

// Conflict reports the first active slot whose hotkey clashes with keys if
// they were stored in slot n of display id. Within one display a hotkey may
// not contain or be contained in another. Across displays an identical
// hotkey is allowed, so one key press can switch several monitors, but a
// strict superset or subset is not.
func (s *Store) Conflict(id string, n int, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	set := keySet(keys)

	s.mu.Lock()
	defer s.mu.Unlock()
	for otherID, d := range s.doc.Displays {
		for i := 0; i < d.NumSlots && i < len(d.Slots); i++ {
			if otherID == id && i+1 == n {
				continue
			}
			other := d.Slots[i].HotKey
			if len(other) == 0 {
				continue
			}
			otherSet := keySet(other)
			equal := len(set) == len(otherSet) && subset(set, otherSet)
			if otherID != id && equal {
				continue
			}
			if subset(set, otherSet) || subset(otherSet, set) {
				return fmt.Errorf("%w: %s slot %d", ErrHotKeyConflict, otherID, i+1)
			}
		}
	}
	return nil
}

// SetHotKey validates, normalizes and stores the hotkey of slot n. An empty
// key list clears the hotkey.
func (s *Store) SetHotKey(id string, n int, keys []string) error {
	if err := checkSlot(n); err != nil {
		return err
	}
	if len(keys) > 0 {
		normalized, err := hotkey.Normalize(keys)
		if err != nil {
			return err
		}
		keys = normalized
	}
	if err := s.Conflict(id, n, keys); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.ensure(id)
	d.Slots[n-1].HotKey = keys
	if n > d.NumSlots {
		d.NumSlots = n
	}
	return nil
}

// Bindings returns a hotkey binding for every active slot with a valid
// hotkey and saved settings.
func (s *Store) Bindings() []hotkey.Binding {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []hotkey.Binding
	for _, id := range sortedIDs(s.doc.Displays) {
		d := s.doc.Displays[id]
		for i := 0; i < d.NumSlots && i < len(d.Slots); i++ {
			sl := d.Slots[i]
			if len(sl.HotKey) == 0 || sl.Empty() {
				continue
			}
			c, err := hotkey.ParseCombo(sl.HotKey)
			if err != nil {
				log.Warn("skipping invalid hotkey", logging.KeyDisplayID, id, "slot", i+1, "error", err.Error())
				continue
			}
			out = append(out, hotkey.Binding{DisplayID: id, Slot: i + 1, Combo: c})
		}
	}
	return out
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	return set
}

func subset(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
