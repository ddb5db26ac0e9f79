package ipc

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNoPeerIdentity is returned when the connection carries no
// kernel-verified identity for the process on the other end.
var ErrNoPeerIdentity = errors.New("ipc: peer identity not available")

// Peer is what the operating system vouches for about a connected process.
// Identity is the token user SID on Windows and the numeric UID elsewhere.
type Peer struct {
	PID        int
	Identity   string
	Executable string
}

// SameExecutable reports whether path names the binary of the running
// process. Symlinks are resolved on both sides first.
func SameExecutable(path string) bool {
	self, err := os.Executable()
	if err != nil || path == "" {
		return false
	}
	return pathsEqual(resolve(self), resolve(path))
}

func resolve(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		p = r
	}
	return filepath.Clean(p)
}
