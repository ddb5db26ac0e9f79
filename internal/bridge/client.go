package bridge

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/ipc"
)

// CallTimeout bounds how long a request waits for its reply. Mode changes can
// take a few seconds while the driver retrains the link.
const CallTimeout = 15 * time.Second

// Client talks to a running display bridge. It implements the same surface
// as the local display service, so commands can run against either.
type Client struct {
	conn *ipc.Conn

	pendingMu sync.Mutex
	pending   map[string]chan *ipc.Envelope
	closed    bool

	events chan ipc.DisplaysChanged
	done   chan struct{}
}

// Dial connects to the bridge at path and authenticates.
func Dial(path string) (*Client, error) {
	raw, err := dial(path)
	if err != nil {
		return nil, err
	}
	c, err := newClient(raw)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return c, nil
}

func newClient(raw net.Conn) (*Client, error) {
	c := &Client{
		conn:    ipc.NewConn(raw),
		pending: make(map[string]chan *ipc.Envelope),
		events:  make(chan ipc.DisplaysChanged, 8),
		done:    make(chan struct{}),
	}
	raw.SetDeadline(time.Now().Add(HandshakeTimeout))
	if err := c.authenticate(); err != nil {
		return nil, err
	}
	raw.SetDeadline(time.Time{})
	go c.recvLoop()
	return c, nil
}

func (c *Client) authenticate() error {
	cu, err := user.Current()
	if err != nil {
		return fmt.Errorf("get current user: %w", err)
	}

	uid, err := strconv.ParseUint(cu.Uid, 10, 32)
	var sid string
	if err != nil {
		// On Windows, cu.Uid is the SID string (e.g., "S-1-5-21-...")
		uid = 0
		sid = cu.Uid
	}
	exe, _ := os.Executable()

	authReq := ipc.AuthRequest{
		ProtocolVersion: ipc.ProtocolVersion,
		UID:             uint32(uid),
		SID:             sid,
		Username:        cu.Username,
		PID:             os.Getpid(),
		BinaryPath:      exe,
	}
	if err := c.conn.SendTyped("auth", ipc.TypeAuthRequest, authReq); err != nil {
		return fmt.Errorf("send auth request: %w", err)
	}

	env, err := c.conn.Recv()
	if err != nil {
		// Without peer credentials the server hangs up without a reply.
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if env.Type != ipc.TypeAuthResponse {
		return fmt.Errorf("expected auth_response, got %s", env.Type)
	}
	if env.Error != "" {
		f, err := ipc.UnmarshalPayload[ipc.Failure](env)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrAuthFailed, env.Error)
		}
		return rejection(f)
	}
	authResp, err := ipc.UnmarshalPayload[ipc.AuthResponse](env)
	if err != nil {
		return err
	}
	if !authResp.Accepted {
		return ErrAuthFailed
	}

	key, err := hex.DecodeString(authResp.SessionKey)
	if err != nil {
		return fmt.Errorf("decode session key: %w", err)
	}
	c.conn.SetSessionKey(key)
	return nil
}

func (c *Client) recvLoop() {
	defer c.shutdown()
	for {
		env, err := c.conn.Recv()
		if err != nil {
			log.Debug("client recv loop ended", "error", err.Error())
			return
		}
		switch env.Type {
		case ipc.TypeDisplaysChanged:
			change, err := ipc.UnmarshalPayload[ipc.DisplaysChanged](env)
			if err != nil {
				log.Warn("invalid displays_changed event", "error", err.Error())
				continue
			}
			select {
			case c.events <- change:
			default:
				log.Warn("event buffer full, dropping displays_changed")
			}
		case ipc.TypeDisconnect:
			return
		default:
			if !c.resolve(env) {
				log.Warn("unsolicited reply", "id", env.ID, "type", env.Type)
			}
		}
	}
}

func (c *Client) resolve(env *ipc.Envelope) bool {
	c.pendingMu.Lock()
	ch := c.pending[env.ID]
	delete(c.pending, env.ID)
	c.pendingMu.Unlock()
	if ch == nil {
		return false
	}
	ch <- env
	return true
}

// shutdown fails every pending call and ends the event stream.
func (c *Client) shutdown() {
	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
	c.pendingMu.Unlock()
	close(c.done)
	close(c.events)
}

// call sends a request and decodes its result into out (which may be nil).
func (c *Client) call(msgType string, req, out any) error {
	id := msgType + "-" + uuid.NewString()
	ch := make(chan *ipc.Envelope, 1)

	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()
		return ErrClientClosed
	}
	c.pending[id] = ch
	c.pendingMu.Unlock()

	if req == nil {
		req = struct{}{}
	}
	if err := c.conn.SendTyped(id, msgType, req); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("bridge: send %s: %w", msgType, err)
	}

	timer := time.NewTimer(CallTimeout)
	defer timer.Stop()

	var env *ipc.Envelope
	select {
	case e, ok := <-ch:
		if !ok {
			return ErrClientClosed
		}
		env = e
	case <-timer.C:
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("%w: %s", ErrCallTimeout, msgType)
	}

	if env.Error != "" || env.Type != ipc.TypeResult {
		f, err := ipc.UnmarshalPayload[ipc.Failure](env)
		if err != nil {
			f = ipc.Failure{Code: ipc.CodeInternal, Message: env.Error}
		}
		return &RemoteError{Code: f.Code, Message: f.Message, OSCode: f.OSCode}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("bridge: decode %s result: %w", msgType, err)
	}
	return nil
}

func (c *Client) Ping() error {
	return c.call(ipc.TypePing, nil, nil)
}

// Status reports the daemon's version, connection count and component health.
func (c *Client) Status() (ipc.StatusResult, error) {
	var r ipc.StatusResult
	err := c.call(ipc.TypeStatus, nil, &r)
	return r, err
}

func (c *Client) NumConnectedDisplays() (int32, error) {
	var r ipc.CountResult
	err := c.call(ipc.TypeNumDisplays, nil, &r)
	return r.Count, err
}

func (c *Client) DisplayIDs() ([]string, error) {
	var r ipc.IDsResult
	err := c.call(ipc.TypeDisplayIDs, nil, &r)
	return r.IDs, err
}

func (c *Client) DisplayModes(id string) ([]display.Mode, error) {
	var r ipc.ModesResult
	err := c.call(ipc.TypeDisplayModes, ipc.DisplayRequest{DisplayID: id}, &r)
	return r.Modes, err
}

func (c *Client) DisplayOrientation(pathIndex int32) (int32, error) {
	var r ipc.OrientationResult
	err := c.call(ipc.TypeDisplayOrientation, ipc.OrientationRequest{PathIndex: pathIndex}, &r)
	return r.Rotation, err
}

func (c *Client) DPIScalePercentage(id string) (int32, error) {
	var r ipc.DPIScaleResult
	err := c.call(ipc.TypeDPIScale, ipc.DisplayRequest{DisplayID: id}, &r)
	return r.Percentage, err
}

func (c *Client) Displays() ([]display.Info, error) {
	var r ipc.DisplaysResult
	err := c.call(ipc.TypeDisplays, nil, &r)
	return r.Displays, err
}

// DisplaysWithNames also returns the friendly monitor names the server knows.
func (c *Client) DisplaysWithNames() ([]display.Info, map[string]string, error) {
	var r ipc.DisplaysResult
	err := c.call(ipc.TypeDisplays, nil, &r)
	return r.Displays, r.Names, err
}

func (c *Client) Catalog() ([]display.CatalogEntry, error) {
	var r ipc.CatalogResult
	err := c.call(ipc.TypeCatalog, nil, &r)
	return r.Entries, err
}

func (c *Client) SetDisplay(id string, s display.Settings) error {
	return c.call(ipc.TypeSetDisplay, ipc.SetDisplayRequest{DisplayID: id, Settings: s}, nil)
}

func (c *Client) SetOrientation(id string, orientation int32) error {
	return c.call(ipc.TypeSetOrientation, ipc.SetOrientationRequest{DisplayID: id, Orientation: orientation}, nil)
}

func (c *Client) ApplySlot(id string, slot int) error {
	return c.call(ipc.TypeApplySlot, ipc.ApplySlotRequest{DisplayID: id, Slot: slot}, nil)
}

// Watch subscribes to display count changes. The channel closes when the
// connection drops. Cancelling ctx closes the client.
func (c *Client) Watch(ctx context.Context) (<-chan ipc.DisplaysChanged, error) {
	if err := c.call(ipc.TypeSubscribe, nil, nil); err != nil {
		return nil, err
	}
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()
	return c.events, nil
}

// Close tells the server goodbye and drops the connection.
func (c *Client) Close() error {
	c.pendingMu.Lock()
	closed := c.closed
	c.pendingMu.Unlock()
	if !closed {
		c.conn.SendTyped("disconnect", ipc.TypeDisconnect, nil)
	}
	return c.conn.Close()
}
