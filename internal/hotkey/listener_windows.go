//go:build windows

package hotkey

import (
	"context"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procRegisterHotKey     = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32.NewProc("UnregisterHotKey")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
)

const (
	wmQuit   = 0x0012
	wmHotkey = 0x0312
)

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// Run registers every binding as a thread hotkey and blocks pumping the
// message queue until ctx is cancelled. Bindings whose combination is taken
// by another application are logged and skipped.
func Run(ctx context.Context, bindings []Binding, handler Handler) error {
	if len(bindings) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	threadID := windows.GetCurrentThreadId()
	groups := groupBindings(bindings)

	registered := make(map[uintptr][]Binding)
	for i, group := range groups {
		id := uintptr(i + 1)
		c := group[0].Combo
		r, _, err := procRegisterHotKey.Call(0, id, uintptr(c.Modifiers|ModNoRepeat), uintptr(c.Key))
		if r == 0 {
			log.Warn("hotkey registration failed", "hotkey", c.String(), "error", err.Error())
			continue
		}
		registered[id] = group
	}
	defer func() {
		for id := range registered {
			procUnregisterHotKey.Call(0, id)
		}
	}()
	if len(registered) == 0 {
		return fmt.Errorf("hotkey: none of %d hotkeys could be registered", len(groups))
	}
	log.Info("hotkeys registered", "count", len(registered))

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
		case <-stopped:
		}
	}()

	var m msg
	for {
		r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(r) {
		case -1:
			return fmt.Errorf("hotkey: GetMessageW: %w", err)
		case 0:
			return ctx.Err()
		}
		if m.message != wmHotkey {
			continue
		}
		if group, ok := registered[m.wParam]; ok {
			dispatch(group, handler)
		}
	}
}
