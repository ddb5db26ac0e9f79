package display

import (
	"fmt"

	"github.com/displayhotkeys/dhk/internal/logging"
)

// IndexMap maps display ids to their position in one enumeration.
// Duplicate ids resolve to the last occurrence.
type IndexMap map[string]int

func NewIndexMap(ids []string) IndexMap {
	m := make(IndexMap, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

func (m IndexMap) Lookup(id string) (int, bool) {
	i, ok := m[id]
	return i, ok
}

// Resolver translates a display id into the index each OS mechanism uses.
// It enumerates afresh on every call.
type Resolver struct {
	sys System

	// FallbackToFirst resolves unknown ids to index 0 instead of failing.
	FallbackToFirst bool
}

func NewResolver(sys System) *Resolver {
	return &Resolver{sys: sys}
}

// LegacyIndex returns the position of id among desktop-attached devices.
func (r *Resolver) LegacyIndex(id string) (int, error) {
	ids := LegacyDisplayIDs(r.sys)
	return r.resolve(id, ids, logging.KeyLegacyIndex)
}

// ConfigIndex returns the position of id among configuration database paths.
func (r *Resolver) ConfigIndex(id string) (int, error) {
	ids, err := ConfigDisplayIDs(r.sys)
	if err != nil {
		return 0, err
	}
	return r.resolve(id, ids, logging.KeyConfigIndex)
}

func (r *Resolver) resolve(id string, ids []string, key string) (int, error) {
	if id != "" {
		if i, ok := NewIndexMap(ids).Lookup(id); ok {
			return i, nil
		}
	}
	if r.FallbackToFirst && len(ids) > 0 {
		log.Warn("display id not found, falling back to first display", logging.KeyDisplayID, id, key, 0)
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %q (%s, %d candidates)", ErrDisplayNotFound, id, key, len(ids))
}
