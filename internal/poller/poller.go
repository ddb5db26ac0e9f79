// Package poller watches the number of connected displays.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("poller")

// DefaultInterval is how often the display count is sampled.
const DefaultInterval = 3 * time.Second

// CountFunc returns the current number of connected displays.
type CountFunc func() (int32, error)

// Change is emitted when the connected display count differs from the
// previous successful sample.
type Change struct {
	Previous int32
	Current  int32
}

// Poller samples a CountFunc on an interval. Sampling can be paused while
// the caller itself reconfigures displays so its own changes are not
// reported.
type Poller struct {
	count    CountFunc
	interval time.Duration

	mu     sync.Mutex
	paused bool
	last   int32
	primed bool
}

func New(count CountFunc, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{count: count, interval: interval}
}

// Pause stops emitting changes until Resume.
func (p *Poller) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume restarts sampling. The next sample becomes the new baseline, so a
// change that happened while paused is not reported.
func (p *Poller) Resume() {
	p.mu.Lock()
	p.paused = false
	p.primed = false
	p.mu.Unlock()
}

func (p *Poller) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Watch samples until ctx is done. The returned channel is closed on exit.
func (p *Poller) Watch(ctx context.Context) <-chan Change {
	ch := make(chan Change, 4)

	go func() {
		defer close(ch)

		p.sample()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				change, ok := p.sample()
				if !ok {
					continue
				}
				log.Info("connected displays changed", "previous", change.Previous, "current", change.Current)
				select {
				case ch <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}

// sample reads the count once and reports whether it changed.
func (p *Poller) sample() (Change, bool) {
	p.mu.Lock()
	paused := p.paused
	p.mu.Unlock()
	if paused {
		return Change{}, false
	}

	n, err := p.count()
	if err != nil {
		log.Warn("display count failed", logging.KeyError, err.Error())
		return Change{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return Change{}, false
	}
	if !p.primed {
		p.last, p.primed = n, true
		return Change{}, false
	}
	if n == p.last {
		return Change{}, false
	}
	c := Change{Previous: p.last, Current: n}
	p.last = n
	return c, true
}
