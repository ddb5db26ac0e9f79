package display

// CatalogEntry is the mode list of one display prepared for presentation:
// distinct modes, largest first, in both landscape and portrait shape.
type CatalogEntry struct {
	ID        string   `json:"id"`
	Rotation  Rotation `json:"rotation"`
	Landscape []Mode   `json:"landscape"`
	Portrait  []Mode   `json:"portrait"`
}

// NewCatalogEntry builds an entry from the modes reported for a display while
// it sits at the given rotation. The OS reports modes in the current
// orientation's shape, so the other list is the inverted copy.
func NewCatalogEntry(id string, rotation Rotation, modes []Mode) CatalogEntry {
	sorted := Distinct(modes)
	SortDescending(sorted)

	e := CatalogEntry{ID: id, Rotation: rotation}
	if rotation.Portrait() {
		e.Portrait = sorted
		e.Landscape = Invert(sorted)
	} else {
		e.Landscape = sorted
		e.Portrait = Invert(sorted)
	}
	return e
}

// ModesFor returns the list matching an orientation code.
func (e CatalogEntry) ModesFor(orientation int32) []Mode {
	if RotationFromCode(orientation).Portrait() {
		return e.Portrait
	}
	return e.Landscape
}

// Contains reports whether mode is offered in either shape.
func (e CatalogEntry) Contains(mode Mode) bool {
	for _, list := range [][]Mode{e.Landscape, e.Portrait} {
		for _, m := range list {
			if m == mode {
				return true
			}
		}
	}
	return false
}

// Catalog builds an entry for every display in the configuration database.
func (s *Service) Catalog() ([]CatalogEntry, error) {
	snap, err := QuerySnapshot(s.sys)
	if err != nil {
		return nil, err
	}
	ids, err := snap.DisplayIDs(s.sys)
	if err != nil {
		return nil, err
	}

	entries := make([]CatalogEntry, 0, len(ids))
	for i, id := range ids {
		modes, err := s.DisplayModes(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, NewCatalogEntry(id, snap.Paths[i].Target.Rotation, modes))
	}
	return entries, nil
}
