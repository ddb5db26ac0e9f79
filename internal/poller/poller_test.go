package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSampleReportsChangesOnly(t *testing.T) {
	var n atomic.Int32
	n.Store(2)
	p := New(func() (int32, error) { return n.Load(), nil }, time.Hour)

	if _, ok := p.sample(); ok {
		t.Fatal("first sample is the baseline")
	}
	if _, ok := p.sample(); ok {
		t.Fatal("unchanged count should not report")
	}

	n.Store(3)
	c, ok := p.sample()
	if !ok || c.Previous != 2 || c.Current != 3 {
		t.Fatalf("change = %+v,%v want 2->3", c, ok)
	}
	if _, ok := p.sample(); ok {
		t.Fatal("change reported twice")
	}
}

func TestPauseResumeRebaselines(t *testing.T) {
	var n atomic.Int32
	n.Store(1)
	p := New(func() (int32, error) { return n.Load(), nil }, time.Hour)
	p.sample()

	p.Pause()
	if !p.Paused() {
		t.Fatal("expected paused")
	}
	n.Store(2)
	if _, ok := p.sample(); ok {
		t.Fatal("paused poller reported a change")
	}

	p.Resume()
	if _, ok := p.sample(); ok {
		t.Fatal("first sample after resume is the new baseline")
	}
	n.Store(1)
	if c, ok := p.sample(); !ok || c.Previous != 2 {
		t.Fatalf("change = %+v,%v want from 2", c, ok)
	}
}

func TestSampleErrorKeepsBaseline(t *testing.T) {
	calls := 0
	p := New(func() (int32, error) {
		calls++
		if calls == 2 {
			return 0, errors.New("query failed")
		}
		return int32(calls), nil
	}, time.Hour)

	p.sample()
	if _, ok := p.sample(); ok {
		t.Fatal("failed sample must not report")
	}
	c, ok := p.sample()
	if !ok || c.Previous != 1 || c.Current != 3 {
		t.Fatalf("change = %+v,%v want 1->3", c, ok)
	}
}

func TestWatchEmitsAndCloses(t *testing.T) {
	var n atomic.Int32
	n.Store(1)
	p := New(func() (int32, error) { return n.Load(), nil }, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Watch(ctx)

	time.Sleep(30 * time.Millisecond)
	n.Store(2)

	select {
	case c := <-ch:
		if c.Previous != 1 || c.Current != 2 {
			t.Fatalf("change = %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected extra change")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestNewDefaultInterval(t *testing.T) {
	if p := New(nil, 0); p.interval != DefaultInterval {
		t.Fatalf("interval = %v", p.interval)
	}
}
