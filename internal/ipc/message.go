package ipc

import (
	"encoding/json"
	"time"

	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/health"
)

// Message type constants for IPC communication.
const (
	TypeAuthRequest  = "auth_request"
	TypeAuthResponse = "auth_response"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeDisconnect   = "disconnect"
	TypeResult       = "result"
	TypeStatus       = "status"

	// Display queries
	TypeNumDisplays        = "num_displays"
	TypeDisplayIDs         = "display_ids"
	TypeDisplayModes       = "display_modes"
	TypeDisplayOrientation = "display_orientation"
	TypeDisplays           = "displays"
	TypeCatalog            = "catalog"
	TypeDPIScale           = "dpi_scale"

	// Display mutations
	TypeSetDisplay     = "set_display"
	TypeSetOrientation = "set_orientation"
	TypeApplySlot      = "apply_slot"

	// Notifications
	TypeSubscribe       = "subscribe"
	TypeDisplaysChanged = "displays_changed"
)

// MaxMessageSize is the maximum size of a JSON IPC message (1MB).
const MaxMessageSize = 1 * 1024 * 1024

// ProtocolVersion is the current IPC protocol version.
const ProtocolVersion = 1

// Envelope is the wire-format wrapper for all IPC messages.
type Envelope struct {
	ID      string          `json:"id"`
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error,omitempty"`
	HMAC    string          `json:"hmac"`
}

// AuthRequest is sent by a client to the display server after connecting.
type AuthRequest struct {
	ProtocolVersion int    `json:"protocolVersion"`
	SID             string `json:"sid,omitempty"` // Windows Security Identifier
	UID             uint32 `json:"uid"`
	Username        string `json:"username"`
	PID             int    `json:"pid"`
	BinaryPath      string `json:"binaryPath"`
}

// AuthResponse is sent by the display server back to the client.
type AuthResponse struct {
	Accepted   bool   `json:"accepted"`
	SessionKey string `json:"sessionKey,omitempty"`
}

// Failure codes carried in error envelopes.
const (
	CodeNotFound        = "not_found"
	CodeOutOfRange      = "index_out_of_range"
	CodeStaleSnapshot   = "stale_snapshot"
	CodeUnsupported     = "unsupported"
	CodeOSError         = "os_error"
	CodeChangeFailed    = "change_failed"
	CodeBadRequest      = "bad_request"
	CodeUnknownType     = "unknown_type"
	CodeInternal        = "internal"
	CodeSlotUnavailable = "slot_unavailable"

	// Handshake rejections.
	CodeNotOwner       = "not_owner"
	CodeRateLimited    = "rate_limited"
	CodeMaxConnections = "max_connections"
	CodeInvalidBinary  = "invalid_binary"
	CodeAuthFailed     = "auth_failed"
)

// Failure is the payload of an error envelope.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	OSCode  int64  `json:"osCode,omitempty"`
}

// DisplayRequest addresses a display by its monitor device path.
type DisplayRequest struct {
	DisplayID string `json:"displayId"`
}

// OrientationRequest asks for the raw rotation of a configuration path.
type OrientationRequest struct {
	PathIndex int32 `json:"pathIndex"`
}

// SetDisplayRequest applies mode, scaling and DPI in one call.
type SetDisplayRequest struct {
	DisplayID string           `json:"displayId"`
	Settings  display.Settings `json:"settings"`
}

// SetOrientationRequest rotates a display.
type SetOrientationRequest struct {
	DisplayID   string `json:"displayId"`
	Orientation int32  `json:"orientation"`
}

// ApplySlotRequest applies a saved profile slot to a display.
type ApplySlotRequest struct {
	DisplayID string `json:"displayId"`
	Slot      int    `json:"slot"`
}

// CountResult answers num_displays.
type CountResult struct {
	Count int32 `json:"count"`
}

// IDsResult answers display_ids.
type IDsResult struct {
	IDs []string `json:"ids"`
}

// ModesResult answers display_modes.
type ModesResult struct {
	Modes []display.Mode `json:"modes"`
}

// OrientationResult answers display_orientation with the raw rotation (1..4).
type OrientationResult struct {
	Rotation int32 `json:"rotation"`
}

// DPIScaleResult answers dpi_scale.
type DPIScaleResult struct {
	Percentage int32 `json:"percentage"`
}

// DisplaysResult answers displays.
type DisplaysResult struct {
	Displays []display.Info   `json:"displays"`
	Names    map[string]string `json:"names,omitempty"` // friendly monitor names by display id
}

// CatalogResult answers catalog.
type CatalogResult struct {
	Entries []display.CatalogEntry `json:"entries"`
}

// DisplaysChanged is pushed to subscribers when the connected display count changes.
type DisplaysChanged struct {
	Previous int `json:"previous"`
	Current  int `json:"current"`
}

// StatusResult describes the daemon on the other end of the pipe.
type StatusResult struct {
	Version     string        `json:"version"`
	StartedAt   time.Time     `json:"startedAt"`
	Connections int           `json:"connections"`
	Health      health.Report `json:"health"`
}
