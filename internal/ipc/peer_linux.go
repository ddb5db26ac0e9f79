//go:build linux

package ipc

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// PeerOf reads SO_PEERCRED from a unix socket and resolves the peer's
// executable through /proc.
func PeerOf(conn net.Conn) (*Peer, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a unix socket", ErrNoPeerIdentity, conn)
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return nil, err
	}

	var cred *unix.Ucred
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return nil, err
	}
	if credErr != nil {
		return nil, fmt.Errorf("ipc: SO_PEERCRED: %w", credErr)
	}

	exe, err := os.Readlink("/proc/" + strconv.Itoa(int(cred.Pid)) + "/exe")
	if err != nil {
		return nil, fmt.Errorf("ipc: executable of %d: %w", cred.Pid, err)
	}
	return &Peer{
		PID:        int(cred.Pid),
		Identity:   strconv.FormatUint(uint64(cred.Uid), 10),
		Executable: exe,
	}, nil
}

// CurrentIdentity returns the uid of the running process.
func CurrentIdentity() (string, error) { return strconv.Itoa(os.Getuid()), nil }

func pathsEqual(a, b string) bool { return a == b }
