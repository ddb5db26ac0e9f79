//go:build windows

package ipc

import (
	"fmt"
	"net"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var procGetNamedPipeClientProcessId = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetNamedPipeClientProcessId")

// PeerOf identifies the client of a named pipe connection from its process
// token.
func PeerOf(conn net.Conn) (*Peer, error) {
	fc, ok := conn.(interface{ Fd() uintptr })
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a pipe", ErrNoPeerIdentity, conn)
	}

	var pid uint32
	if r, _, err := procGetNamedPipeClientProcessId.Call(fc.Fd(), uintptr(unsafe.Pointer(&pid))); r == 0 {
		return nil, fmt.Errorf("ipc: client process id: %w", err)
	}
	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return nil, fmt.Errorf("ipc: open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(proc)

	buf := make([]uint16, windows.MAX_PATH)
	n := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &n); err != nil {
		return nil, fmt.Errorf("ipc: image name of %d: %w", pid, err)
	}

	var token windows.Token
	if err := windows.OpenProcessToken(proc, windows.TOKEN_QUERY, &token); err != nil {
		return nil, fmt.Errorf("ipc: token of %d: %w", pid, err)
	}
	defer token.Close()
	user, err := token.GetTokenUser()
	if err != nil {
		return nil, fmt.Errorf("ipc: token user of %d: %w", pid, err)
	}

	return &Peer{
		PID:        int(pid),
		Identity:   user.User.Sid.String(),
		Executable: windows.UTF16ToString(buf[:n]),
	}, nil
}

// CurrentIdentity returns the user SID of the running process.
func CurrentIdentity() (string, error) {
	user, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return "", fmt.Errorf("ipc: current token user: %w", err)
	}
	return user.User.Sid.String(), nil
}

// NTFS paths compare case-insensitively.
func pathsEqual(a, b string) bool { return strings.EqualFold(a, b) }
