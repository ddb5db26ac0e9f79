package bridge

import (
	"errors"
	"fmt"

	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/ipc"
	"github.com/displayhotkeys/dhk/internal/profile"
)

var (
	ErrServerClosed   = errors.New("bridge: server is closed")
	ErrClientClosed   = errors.New("bridge: connection closed")
	ErrCallTimeout    = errors.New("bridge: call timed out")
	ErrMaxConnections = errors.New("bridge: max connections exceeded")
	ErrRateLimited    = errors.New("bridge: connection rate limited")
	ErrAuthFailed     = errors.New("bridge: authentication failed")
	ErrInvalidBinary  = errors.New("bridge: binary path verification failed")
	ErrNotOwner       = errors.New("bridge: daemon belongs to another user")
)

// rejection turns a handshake failure into an error that matches
// ErrAuthFailed and, where the server named one, the specific cause.
func rejection(f ipc.Failure) error {
	var cause error
	switch f.Code {
	case ipc.CodeNotOwner:
		cause = ErrNotOwner
	case ipc.CodeRateLimited:
		cause = ErrRateLimited
	case ipc.CodeMaxConnections:
		cause = ErrMaxConnections
	case ipc.CodeInvalidBinary:
		cause = ErrInvalidBinary
	default:
		return fmt.Errorf("%w: %s", ErrAuthFailed, f.Message)
	}
	return fmt.Errorf("%w: %w (%s)", ErrAuthFailed, cause, f.Message)
}

// RemoteError is a failure reported by the server. It unwraps to the display
// error it was built from, so errors.Is and errors.As work across the pipe.
type RemoteError struct {
	Code    string
	Message string
	OSCode  int64
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case ipc.CodeNotFound:
		return display.ErrDisplayNotFound
	case ipc.CodeOutOfRange:
		return display.ErrPathIndexOutOfRange
	case ipc.CodeStaleSnapshot:
		return display.ErrStaleSnapshot
	case ipc.CodeUnsupported:
		return display.ErrUnsupported
	case ipc.CodeChangeFailed:
		return &display.ChangeError{Code: int32(e.OSCode)}
	case ipc.CodeOSError:
		return &display.OSError{Op: "remote", Code: e.OSCode}
	}
	return nil
}

// failureFor classifies err for the wire.
func failureFor(err error) ipc.Failure {
	f := ipc.Failure{Code: ipc.CodeInternal, Message: err.Error()}

	var ce *display.ChangeError
	var oe *display.OSError
	var br badRequest
	var ut unknownType
	switch {
	case errors.As(err, &br):
		f.Code = ipc.CodeBadRequest
	case errors.As(err, &ut):
		f.Code = ipc.CodeUnknownType
	case errors.Is(err, display.ErrDisplayNotFound):
		f.Code = ipc.CodeNotFound
	case errors.Is(err, display.ErrPathIndexOutOfRange):
		f.Code = ipc.CodeOutOfRange
	case errors.Is(err, display.ErrStaleSnapshot):
		f.Code = ipc.CodeStaleSnapshot
	case errors.Is(err, display.ErrUnsupported):
		f.Code = ipc.CodeUnsupported
	case errors.As(err, &ce):
		f.Code = ipc.CodeChangeFailed
		f.OSCode = int64(ce.Code)
	case errors.As(err, &oe):
		f.Code = ipc.CodeOSError
		f.OSCode = oe.Code
	case errors.Is(err, profile.ErrEmptySlot),
		errors.Is(err, profile.ErrSlotOutOfRange),
		errors.Is(err, profile.ErrUnknownDisplay):
		f.Code = ipc.CodeSlotUnavailable
	}
	return f
}
