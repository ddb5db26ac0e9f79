package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/displayhotkeys/dhk/internal/bridge"
	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/health"
	"github.com/displayhotkeys/dhk/internal/hotkey"
	"github.com/displayhotkeys/dhk/internal/ipc"
	"github.com/displayhotkeys/dhk/internal/poller"
	"github.com/displayhotkeys/dhk/internal/profile"
	"github.com/displayhotkeys/dhk/internal/startup"
	"github.com/displayhotkeys/dhk/internal/workerpool"
)

// hotkeyQueueSize bounds key presses waiting behind a slow mode change.
const hotkeyQueueSize = 16

var hotkeysCmd = &cobra.Command{
	Use:   "hotkeys",
	Short: "Listen for slot hotkeys and apply slots when they are pressed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context(), false, true)
	},
}

var serveNoHotkeys bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve display requests over the dhk pipe, with slot hotkeys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context(), true, !serveNoHotkeys)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoHotkeys, "no-hotkeys", false, "serve requests only, do not register hotkeys")
	rootCmd.AddCommand(hotkeysCmd, serveCmd)
}

func runDaemon(parent context.Context, serve, hotkeys bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newLocalService()
	if err != nil {
		return err
	}
	mon := health.NewMonitor()
	refreshStartup(mon)

	if n, err := svc.NumConnectedDisplays(); err != nil {
		mon.Update(health.Displays, health.Unhealthy, err.Error())
	} else {
		mon.Update(health.Displays, health.Healthy, fmt.Sprintf("%d connected", n))
	}
	p := poller.New(svc.NumConnectedDisplays, time.Duration(cfg.PollIntervalSeconds)*time.Second)
	changes := p.Watch(ctx)

	var srv *bridge.Server
	if serve {
		srv = bridge.NewServer(svc, bridge.ServerOptions{
			Path:           cfg.PipePath,
			MaxConnections: cfg.MaxConnections,
			Slots:          fileSlots{path: cfg.ProfilesFile, displays: svc},
			Names:          monitorNames,
			Health:         mon,
			Version:        version,
		})
	}

	reload := make(chan struct{}, 1)
	go func() {
		for c := range changes {
			mon.Update(health.Displays, health.Healthy, fmt.Sprintf("%d connected", c.Current))
			if srv != nil {
				srv.Broadcast(ipc.DisplaysChanged{Previous: int(c.Previous), Current: int(c.Current)})
			}
			select {
			case reload <- struct{}{}:
			default:
			}
		}
	}()

	errc := make(chan error, 2)
	running := 0
	if hotkeys {
		pool := workerpool.New(1, hotkeyQueueSize)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			pool.Shutdown(shutdownCtx)
		}()
		d := &hotkeyDaemon{
			profilesFile: cfg.ProfilesFile,
			catalog:      svc.Catalog,
			apply: func(id string, slot int) error {
				return applySlotFromFile(cfg.ProfilesFile, svc, id, slot)
			},
			listen: hotkey.Run,
			pool:   pool,
			poller: p,
			health: mon,
		}
		running++
		go func() { errc <- d.run(ctx, reload) }()
	}
	if srv != nil {
		running++
		mon.Update(health.Bridge, health.Healthy, cfg.PipePath)
		go func() {
			err := srv.Listen(ctx)
			if err != nil {
				mon.Update(health.Bridge, health.Unhealthy, err.Error())
			}
			errc <- err
		}()
	}

	log.Info("dhk running", "version", version, "serve", serve, "hotkeys", hotkeys)

	var firstErr error
	for i := 0; i < running; i++ {
		err := <-errc
		if err != nil && firstErr == nil {
			firstErr = err
			stop()
		}
	}
	log.Info("dhk stopped")
	return firstErr
}

// hotkeyDaemon keeps the registered hotkeys in step with the profiles file
// and the connected displays.
type hotkeyDaemon struct {
	profilesFile string
	catalog      func() ([]display.CatalogEntry, error)
	apply        func(id string, slot int) error
	listen       func(context.Context, []hotkey.Binding, hotkey.Handler) error
	pool         *workerpool.Pool
	poller       *poller.Poller
	health       *health.Monitor
}

func (d *hotkeyDaemon) report(status health.Status, msg string) {
	if d.health != nil {
		d.health.Update(health.Hotkeys, status, msg)
	}
}

// loadBindings validates the profiles against the connected displays,
// persists any repairs, and returns the hotkeys to register.
func (d *hotkeyDaemon) loadBindings() ([]hotkey.Binding, error) {
	store, err := profile.Open(d.profilesFile)
	if err != nil {
		return nil, err
	}
	catalog, err := d.catalog()
	if err != nil {
		return nil, fmt.Errorf("read display catalog: %w", err)
	}
	if fixes := store.Validate(catalog); len(fixes) > 0 {
		if err := store.Save(); err != nil {
			return nil, err
		}
	}
	return store.Bindings(), nil
}

// run registers hotkeys until ctx is done. A value on reload re-reads the
// profiles and re-registers.
func (d *hotkeyDaemon) run(ctx context.Context, reload <-chan struct{}) error {
	for {
		bindings, err := d.loadBindings()
		if err != nil {
			d.report(health.Unhealthy, err.Error())
			return err
		}
		log.Info("hotkey bindings loaded", "count", len(bindings))
		if len(bindings) == 0 {
			d.report(health.Degraded, "no hotkeys bound")
		} else {
			d.report(health.Healthy, fmt.Sprintf("%d bound", len(bindings)))
		}

		lctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- d.listen(lctx, bindings, d.handle) }()

		select {
		case <-ctx.Done():
			cancel()
			<-done
			return nil
		case <-reload:
			cancel()
			if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("hotkey listener stopped", "error", err.Error())
				d.report(health.Degraded, err.Error())
			}
		case err := <-done:
			cancel()
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			d.report(health.Unhealthy, err.Error())
			return err
		}
	}
}

// handle queues the slot so the message loop never blocks on a mode change.
func (d *hotkeyDaemon) handle(b hotkey.Binding) {
	job := workerpool.Job{
		Name: fmt.Sprintf("apply slot %d of %s", b.Slot, b.DisplayID),
		Run: func() error {
			if d.poller != nil {
				d.poller.Pause()
				defer d.poller.Resume()
			}
			if err := d.apply(b.DisplayID, b.Slot); err != nil {
				d.report(health.Degraded, fmt.Sprintf("slot %d of %s: %v", b.Slot, b.DisplayID, err))
				return err
			}
			return nil
		},
	}
	if !d.pool.Submit(job) {
		log.Warn("hotkey dropped, apply queue full", "hotkey", b.Combo.String(), "slot", b.Slot)
	}
}

// refreshStartup rewrites the Run entry when the binary moved.
func refreshStartup(mon *health.Monitor) {
	m, err := startup.New()
	if err != nil {
		return
	}
	exe, err := os.Executable()
	if err != nil {
		return
	}
	changed, err := m.Refresh(exe, startupArgs()...)
	switch {
	case err != nil:
		log.Warn("startup entry refresh failed", "error", err.Error())
		mon.Update(health.Startup, health.Degraded, err.Error())
	case changed:
		mon.Update(health.Startup, health.Healthy, "entry updated to "+exe)
	default:
		mon.Update(health.Startup, health.Healthy, "")
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a line whenever the number of connected displays changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var events <-chan ipc.DisplaysChanged
		if remote {
			c, err := bridge.Dial(cfg.PipePath)
			if err != nil {
				return err
			}
			defer c.Close()
			if events, err = c.Watch(ctx); err != nil {
				return err
			}
		} else {
			svc, err := newLocalService()
			if err != nil {
				return err
			}
			events = adaptChanges(poller.New(svc.NumConnectedDisplays, time.Duration(cfg.PollIntervalSeconds)*time.Second).Watch(ctx))
		}

		for ev := range events {
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), ev)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s displays %d -> %d\n", time.Now().Format(time.RFC3339), ev.Previous, ev.Current)
		}
		return nil
	},
}

func adaptChanges(in <-chan poller.Change) <-chan ipc.DisplaysChanged {
	out := make(chan ipc.DisplaysChanged)
	go func() {
		defer close(out)
		for c := range in {
			out <- ipc.DisplaysChanged{Previous: int(c.Previous), Current: int(c.Current)}
		}
	}()
	return out
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
