//go:build windows

package bridge

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

// pipeSecurity grants SYSTEM and the owning user full control. Nobody else
// can open the pipe.
func pipeSecurity(owner string) (string, error) {
	if _, err := windows.StringToSid(owner); err != nil {
		return "", fmt.Errorf("owner %q is not a SID: %w", owner, err)
	}
	return fmt.Sprintf("D:P(A;;GA;;;SY)(A;;GA;;;%s)", owner), nil
}

func listen(path, owner string) (net.Listener, error) {
	sddl, err := pipeSecurity(owner)
	if err != nil {
		return nil, err
	}
	cfg := &winio.PipeConfig{
		SecurityDescriptor: sddl,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	l, err := winio.ListenPipe(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("listen pipe %s: %w", path, err)
	}
	return l, nil
}

// Pipes vanish with their last handle.
func cleanupListener(string) {}
