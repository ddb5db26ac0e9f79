package display

import (
	"errors"
	"fmt"
)

var (
	// ErrDisplayNotFound is returned when an id is absent from the enumeration
	// that was asked to resolve it.
	ErrDisplayNotFound = errors.New("display not found")

	ErrPathIndexOutOfRange = errors.New("path index out of range")

	// ErrStaleSnapshot means the topology changed between reading a
	// configuration and writing it back.
	ErrStaleSnapshot = errors.New("display topology changed during update")

	ErrUnsupported = errors.New("display configuration is only supported on windows")
)

// OSError carries the raw return code of a failed user32 call.
type OSError struct {
	Op   string
	Code int64
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%s failed with code %d", e.Op, e.Code)
}

// ChangeError is a non-success DISP_CHANGE_* result from ChangeDisplaySettingsEx.
type ChangeError struct {
	Code int32
}

const (
	dispChangeSuccessful  int32 = 0
	dispChangeRestart     int32 = 1
	dispChangeFailed      int32 = -1
	dispChangeBadMode     int32 = -2
	dispChangeNotUpdated  int32 = -3
	dispChangeBadFlags    int32 = -4
	dispChangeBadParam    int32 = -5
	dispChangeBadDualView int32 = -6
)

func (e *ChangeError) Error() string {
	switch e.Code {
	case dispChangeRestart:
		return "display mode saved, restart required to apply"
	case dispChangeFailed:
		return "display driver failed the specified mode"
	case dispChangeBadMode:
		return "display mode not supported"
	case dispChangeNotUpdated:
		return "unable to write display settings to the registry"
	case dispChangeBadFlags:
		return "invalid display change flags"
	case dispChangeBadParam:
		return "invalid display change parameter"
	case dispChangeBadDualView:
		return "display mode change rejected on a dualview system"
	default:
		return fmt.Sprintf("display mode change failed with code %d", e.Code)
	}
}

// RestartRequired reports whether the mode was stored but needs a reboot.
func (e *ChangeError) RestartRequired() bool {
	return e.Code == dispChangeRestart
}
