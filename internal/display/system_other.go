//go:build !windows

package display

// NewSystem reports ErrUnsupported: the display configuration database only
// exists on Windows. Use the IPC client to reach a Windows host.
func NewSystem() (System, error) {
	return nil, ErrUnsupported
}
