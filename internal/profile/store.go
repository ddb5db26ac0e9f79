// Package profile persists per-display slots: saved display settings with an
// optional hotkey, stored as YAML.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("profile")

const (
	MaxSlots     = 12
	DefaultSlots = 4
	fileVersion  = 1
)

var (
	ErrSlotOutOfRange = fmt.Errorf("profile: slot must be between 1 and %d", MaxSlots)
	ErrUnknownDisplay = errors.New("profile: no profile for display")
	ErrEmptySlot      = errors.New("profile: slot has no saved settings")
)

// Slot is one saved set of display settings.
type Slot struct {
	display.Settings `yaml:",inline"`
	HotKey           []string `yaml:"hotKey,flow,omitempty" json:"hotKey,omitempty"`
}

// Empty reports whether nothing has been saved into the slot.
func (s Slot) Empty() bool {
	return s.Width == 0 && s.Height == 0
}

// Display holds the slots of one monitor.
type Display struct {
	NumSlots        int    `yaml:"numSlots"`
	OrientationMode int32  `yaml:"orientationMode"`
	Slots           []Slot `yaml:"slots"`
}

type document struct {
	Version  int                 `yaml:"version"`
	Displays map[string]*Display `yaml:"displays"`
}

// Store is the in-memory view of the profiles file. All methods are safe for
// concurrent use; changes are persisted with Save.
type Store struct {
	path string

	mu  sync.Mutex
	doc document
}

// Open loads the profiles file at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: document{Version: fileVersion, Displays: map[string]*Display{}}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	if s.doc.Displays == nil {
		s.doc.Displays = map[string]*Display{}
	}
	for id, d := range s.doc.Displays {
		if d == nil {
			s.doc.Displays[id] = newDisplay()
		}
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Save writes the store to disk via a temp file and rename.
func (s *Store) Save() error {
	s.mu.Lock()
	s.doc.Version = fileVersion
	data, err := yaml.Marshal(&s.doc)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("profile: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("profile: create dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("profile: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("profile: replace %s: %w", s.path, err)
	}
	log.Debug("profiles saved", "path", s.path)
	return nil
}

func newDisplay() *Display {
	return &Display{NumSlots: DefaultSlots, Slots: make([]Slot, MaxSlots)}
}

// ensure returns the profile for id, creating it with defaults. Caller holds mu.
func (s *Store) ensure(id string) *Display {
	d, ok := s.doc.Displays[id]
	if !ok {
		d = newDisplay()
		s.doc.Displays[id] = d
	}
	if len(d.Slots) < MaxSlots {
		d.Slots = append(d.Slots, make([]Slot, MaxSlots-len(d.Slots))...)
	}
	return d
}

// DisplayIDs lists the displays with a stored profile, sorted.
func (s *Store) DisplayIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.doc.Displays)
}

func sortedIDs(m map[string]*Display) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Display returns a copy of the stored profile for id.
func (s *Store) Display(id string) (Display, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doc.Displays[id]
	if !ok {
		return Display{}, false
	}
	cp := *d
	cp.Slots = make([]Slot, len(d.Slots))
	for i, sl := range d.Slots {
		cp.Slots[i] = sl
		cp.Slots[i].HotKey = append([]string(nil), sl.HotKey...)
	}
	return cp, true
}

func checkSlot(n int) error {
	if n < 1 || n > MaxSlots {
		return fmt.Errorf("%w: got %d", ErrSlotOutOfRange, n)
	}
	return nil
}

// Slot returns slot n (1-based) of display id.
func (s *Store) Slot(id string, n int) (Slot, error) {
	if err := checkSlot(n); err != nil {
		return Slot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doc.Displays[id]
	if !ok {
		return Slot{}, fmt.Errorf("%w %s", ErrUnknownDisplay, id)
	}
	if n > len(d.Slots) {
		return Slot{}, nil
	}
	sl := d.Slots[n-1]
	sl.HotKey = append([]string(nil), sl.HotKey...)
	return sl, nil
}

// SetSlot stores settings and hotkey into slot n of display id. A slot beyond
// the display's slot count raises the count to n.
func (s *Store) SetSlot(id string, n int, slot Slot) error {
	if err := checkSlot(n); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.ensure(id)
	slot.HotKey = append([]string(nil), slot.HotKey...)
	d.Slots[n-1] = slot
	if n > d.NumSlots {
		d.NumSlots = n
	}
	return nil
}

// ClearSlot resets slot n of display id to empty.
func (s *Store) ClearSlot(id string, n int) error {
	if err := checkSlot(n); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doc.Displays[id]
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownDisplay, id)
	}
	if n <= len(d.Slots) {
		d.Slots[n-1] = Slot{}
	}
	return nil
}

// SetNumSlots sets how many slots display id exposes.
func (s *Store) SetNumSlots(id string, n int) error {
	if err := checkSlot(n); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(id).NumSlots = n
	return nil
}

// SetOrientationMode records which orientation's mode list display id uses.
func (s *Store) SetOrientationMode(id string, mode int32) error {
	if mode < display.OrientationLandscape || mode > display.OrientationPortraitFlipped {
		return fmt.Errorf("profile: orientation mode %d out of range", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(id).OrientationMode = mode
	return nil
}
