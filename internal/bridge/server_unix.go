//go:build !windows

package bridge

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// The socket is owner-only, so owner needs no further enforcement here.
func listen(path, _ string) (net.Listener, error) {
	// Remove stale socket file
	os.Remove(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	// Owner only: the bridge serves the logged-in user.
	if err := os.Chmod(path, 0o600); err != nil {
		l.Close()
		return nil, fmt.Errorf("chmod %s: %w", path, err)
	}
	return l, nil
}

func cleanupListener(path string) {
	if path != "" {
		os.Remove(path)
	}
}
