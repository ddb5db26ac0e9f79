// Package health tracks the state of the parts of a running dhk daemon:
// the bridge, the hotkey listener, the display poller and the logon entry.
package health

import (
	"sort"
	"sync"
	"time"

	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("health")

// Component names reported by the daemon.
const (
	Bridge   = "bridge"
	Hotkeys  = "hotkeys"
	Displays = "displays"
	Startup  = "startup"
)

type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
	Unknown   Status = "unknown"
)

func (s Status) IsValid() bool {
	switch s {
	case Healthy, Degraded, Unhealthy, Unknown:
		return true
	}
	return false
}

// Check is the latest state of one component.
type Check struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Report is a consistent snapshot of every component.
type Report struct {
	Status Status  `json:"status"`
	Checks []Check `json:"checks"`
}

type Monitor struct {
	mu     sync.RWMutex
	checks map[string]Check
	now    func() time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{checks: make(map[string]Check), now: time.Now}
}

// Update records a component's state. An unrecognised status is stored as
// Unhealthy. Transitions are logged, repeats are not.
func (m *Monitor) Update(name string, status Status, message string) {
	if !status.IsValid() {
		status = Unhealthy
	}
	m.mu.Lock()
	prev, had := m.checks[name]
	m.checks[name] = Check{Name: name, Status: status, Message: message, UpdatedAt: m.now()}
	m.mu.Unlock()

	if had && prev.Status == status {
		return
	}
	if status == Healthy {
		log.Info("component healthy", "component", name, "message", message)
		return
	}
	log.Warn("component not healthy", "component", name, "status", string(status), "message", message)
}

func (m *Monitor) Get(name string) (Check, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.checks[name]
	return c, ok
}

// Overall returns the worst status, or Unknown when nothing has reported.
func (m *Monitor) Overall() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overallLocked()
}

func (m *Monitor) overallLocked() Status {
	if len(m.checks) == 0 {
		return Unknown
	}
	worst := Healthy
	for _, c := range m.checks {
		if rank(c.Status) > rank(worst) {
			worst = c.Status
		}
	}
	return worst
}

// All returns the checks sorted by name.
func (m *Monitor) All() []Check {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allLocked()
}

func (m *Monitor) allLocked() []Check {
	out := make([]Check, 0, len(m.checks))
	for _, c := range m.checks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Monitor) Report() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Report{Status: m.overallLocked(), Checks: m.allLocked()}
}

// Unknown ranks worst.
func rank(s Status) int {
	switch s {
	case Healthy:
		return 0
	case Degraded:
		return 1
	case Unhealthy:
		return 2
	default:
		return 3
	}
}
