package display

import "fmt"

// Scaling is the DISPLAYCONFIG_SCALING value stored on a path target.
type Scaling uint32

const (
	ScalingIdentity               Scaling = 1
	ScalingCentered               Scaling = 2
	ScalingStretched              Scaling = 3
	ScalingAspectRatioCenteredMax Scaling = 4
	ScalingCustom                 Scaling = 5
	ScalingPreferred              Scaling = 128
)

// Scaling mode codes accepted from callers.
const (
	ScaleModePreserveAspect int32 = 0
	ScaleModeStretch        int32 = 1
	ScaleModeCentered       int32 = 2
)

// ScalingFromCode maps a caller scaling code onto the OS constant. Unknown
// codes fall back to preserving the aspect ratio.
func ScalingFromCode(code int32) Scaling {
	switch code {
	case ScaleModeStretch:
		return ScalingStretched
	case ScaleModeCentered:
		return ScalingCentered
	default:
		return ScalingAspectRatioCenteredMax
	}
}

// Code maps the OS constant back onto a caller scaling code.
func (s Scaling) Code() int32 {
	switch s {
	case ScalingStretched:
		return ScaleModeStretch
	case ScalingCentered:
		return ScaleModeCentered
	default:
		return ScaleModePreserveAspect
	}
}

func (s Scaling) String() string {
	switch s {
	case ScalingIdentity:
		return "identity"
	case ScalingCentered:
		return "centered"
	case ScalingStretched:
		return "stretched"
	case ScalingAspectRatioCenteredMax:
		return "preserve-aspect"
	case ScalingCustom:
		return "custom"
	case ScalingPreferred:
		return "preferred"
	default:
		return fmt.Sprintf("scaling(%d)", uint32(s))
	}
}

// Rotation is the DISPLAYCONFIG_ROTATION value stored on a path target.
type Rotation uint32

const (
	RotationIdentity  Rotation = 1
	RotationRotate90  Rotation = 2
	RotationRotate180 Rotation = 3
	RotationRotate270 Rotation = 4
)

// Orientation codes accepted from callers.
const (
	OrientationLandscape        int32 = 0
	OrientationPortrait         int32 = 1
	OrientationLandscapeFlipped int32 = 2
	OrientationPortraitFlipped  int32 = 3
)

// RotationFromCode maps a caller orientation code onto the OS constant.
// Unknown codes fall back to identity.
func RotationFromCode(code int32) Rotation {
	switch code {
	case OrientationPortrait:
		return RotationRotate90
	case OrientationLandscapeFlipped:
		return RotationRotate180
	case OrientationPortraitFlipped:
		return RotationRotate270
	default:
		return RotationIdentity
	}
}

// Portrait reports whether the rotation turns the desktop on its side.
func (r Rotation) Portrait() bool {
	return r == RotationRotate90 || r == RotationRotate270
}

func (r Rotation) String() string {
	switch r {
	case RotationIdentity:
		return "landscape"
	case RotationRotate90:
		return "portrait"
	case RotationRotate180:
		return "landscape (flipped)"
	case RotationRotate270:
		return "portrait (flipped)"
	default:
		return fmt.Sprintf("rotation(%d)", uint32(r))
	}
}
