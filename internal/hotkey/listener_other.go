//go:build !windows

package hotkey

import "context"

// Run is unavailable off Windows.
func Run(ctx context.Context, bindings []Binding, handler Handler) error {
	return ErrUnsupported
}
