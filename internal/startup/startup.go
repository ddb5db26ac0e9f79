// Package startup registers dhk to start at user logon through the
// per-user Run key.
package startup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("startup")

// ValueName is the Run key value dhk owns.
const ValueName = "DisplayHotKeys"

// ErrUnsupported is returned where there is no Run key.
var ErrUnsupported = errors.New("startup: run on logon not supported on this platform")

// runKey is the subset of registry access the manager needs.
type runKey interface {
	Get(name string) (string, bool, error)
	Set(name, value string) error
	Delete(name string) error
}

// Manager reads and writes the dhk Run entry.
type Manager struct {
	key runKey
}

// Command builds the quoted command line stored in the Run key.
func Command(exe string, args ...string) string {
	parts := []string{quote(exe)}
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// Enable writes the Run entry for exe with args.
func (m *Manager) Enable(exe string, args ...string) error {
	cmd := Command(exe, args...)
	if err := m.key.Set(ValueName, cmd); err != nil {
		return fmt.Errorf("startup: write run entry: %w", err)
	}
	log.Info("run on startup enabled", "command", cmd)
	return nil
}

// Disable removes the Run entry. Removing a missing entry is not an error.
func (m *Manager) Disable() error {
	if err := m.key.Delete(ValueName); err != nil {
		return fmt.Errorf("startup: delete run entry: %w", err)
	}
	log.Info("run on startup disabled")
	return nil
}

// Status reports whether the entry exists and its command line.
func (m *Manager) Status() (bool, string, error) {
	cmd, ok, err := m.key.Get(ValueName)
	if err != nil {
		return false, "", fmt.Errorf("startup: read run entry: %w", err)
	}
	return ok, cmd, nil
}

// Refresh rewrites an existing entry whose command no longer matches exe and
// args, for example after the binary was moved. It reports whether the entry
// was rewritten.
func (m *Manager) Refresh(exe string, args ...string) (bool, error) {
	enabled, cmd, err := m.Status()
	if err != nil || !enabled {
		return false, err
	}
	want := Command(exe, args...)
	if cmd == want {
		return false, nil
	}
	log.Warn("run entry is stale, rewriting", "old", cmd, "new", want)
	return true, m.Enable(exe, args...)
}
