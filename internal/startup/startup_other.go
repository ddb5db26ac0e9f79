//go:build !windows

package startup

// New fails off Windows.
func New() (*Manager, error) {
	return nil, ErrUnsupported
}
