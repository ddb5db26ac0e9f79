package hotkey

import (
	"errors"

	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("hotkey")

// ErrUnsupported is returned by Run on platforms without global hotkeys.
var ErrUnsupported = errors.New("hotkey: global hotkeys not supported on this platform")

// Binding ties a key combination to a profile slot of one display.
type Binding struct {
	DisplayID string
	Slot      int
	Combo     Combo
}

// Handler is invoked on the listener goroutine for every activation.
type Handler func(Binding)

// groupBindings groups bindings by identical combination. One registration can
// trigger several displays at once when their slots share a hotkey.
func groupBindings(bindings []Binding) [][]Binding {
	index := make(map[string]int)
	var groups [][]Binding
	for _, b := range bindings {
		key := b.Combo.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], b)
	}
	return groups
}

func dispatch(group []Binding, handler Handler) {
	for _, b := range group {
		log.Info("hotkey activated", "hotkey", b.Combo.String(), logging.KeyDisplayID, b.DisplayID, "slot", b.Slot)
		handler(b)
	}
}
