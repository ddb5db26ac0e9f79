//go:build !windows

package monitorinfo

// Query is unavailable off Windows.
func Query() ([]Monitor, error) {
	return nil, ErrUnsupported
}
