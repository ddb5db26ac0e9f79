package display

import "fmt"

// Snapshot is one capture of the OS configuration database. Path indices
// are only meaningful against the snapshot they came from.
type Snapshot struct {
	Paths      []PathInfo
	Modes      []ModeInfo
	TopologyID uint32
}

// QuerySnapshot captures the current configuration database.
func QuerySnapshot(sys System) (*Snapshot, error) {
	paths, modes, topology, err := sys.QueryDisplayConfig(qdcDatabaseCurrent)
	if err != nil {
		log.Error("query display config failed", "error", err)
		return nil, fmt.Errorf("query display config: %w", err)
	}
	return &Snapshot{Paths: paths, Modes: modes, TopologyID: topology}, nil
}

// Path returns a pointer into Paths so callers can modify it in place.
func (s *Snapshot) Path(i int) (*PathInfo, error) {
	if i < 0 || i >= len(s.Paths) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPathIndexOutOfRange, i, len(s.Paths))
	}
	return &s.Paths[i], nil
}

// SourceModeFor returns the source mode entry referenced by a path, if any.
func (s *Snapshot) SourceModeFor(p *PathInfo) (*ModeInfo, bool) {
	idx := p.Source.ModeInfoIdx
	if idx == modeIdxInvalid || int(idx) >= len(s.Modes) {
		return nil, false
	}
	m := &s.Modes[idx]
	if m.InfoType != ModeInfoTypeSource {
		return nil, false
	}
	return m, true
}

// SameTopology reports whether other describes the same set of paths in the
// same order, which is what makes path indices transferable between them.
func (s *Snapshot) SameTopology(other *Snapshot) bool {
	if s.TopologyID != other.TopologyID || len(s.Paths) != len(other.Paths) {
		return false
	}
	for i := range s.Paths {
		a, b := s.Paths[i], other.Paths[i]
		if a.Source.AdapterID != b.Source.AdapterID || a.Source.ID != b.Source.ID ||
			a.Target.AdapterID != b.Target.AdapterID || a.Target.ID != b.Target.ID {
			return false
		}
	}
	return true
}
