package ipc

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("ipc")

const (
	headerSize = 4
	keySize    = 32
)

var (
	ErrTooLarge = errors.New("ipc: frame exceeds maximum size")
	ErrBadMAC   = errors.New("ipc: frame signature mismatch")
	ErrReplay   = errors.New("ipc: frame sequence did not advance")
)

// handshakeKey signs frames exchanged before a session key is agreed.
var handshakeKey = make([]byte, keySize)

// Conn frames envelopes over a stream: a 4-byte big-endian length followed
// by the JSON envelope. Every frame carries a sequence number and an
// HMAC-SHA256 under the session key.
//
// Send may be called from several goroutines. Recv must be called from one.
type Conn struct {
	raw net.Conn

	key []byte

	wmu  sync.Mutex
	sent uint64

	received uint64
}

func NewConn(raw net.Conn) *Conn {
	return &Conn{raw: raw, key: handshakeKey}
}

// SetSessionKey switches signing to key. Both ends switch after the
// auth_response frame.
func (c *Conn) SetSessionKey(key []byte) { c.key = key }

func (c *Conn) Close() error                       { return c.raw.Close() }
func (c *Conn) SetDeadline(t time.Time) error     { return c.raw.SetDeadline(t) }
func (c *Conn) SetReadDeadline(t time.Time) error { return c.raw.SetReadDeadline(t) }

// Send stamps env with the next sequence number and its signature and writes
// it as one frame.
func (c *Conn) Send(env *Envelope) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	env.Seq = c.sent + 1
	env.HMAC = c.sign(env)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("ipc: encode %s: %w", env.Type, err)
	}
	if len(body) > MaxMessageSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, env.Type, len(body))
	}

	frame := make([]byte, headerSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[headerSize:], body)
	if _, err := c.raw.Write(frame); err != nil {
		return fmt.Errorf("ipc: write %s: %w", env.Type, err)
	}
	c.sent = env.Seq
	return nil
}

// Recv reads one frame and rejects it unless the signature verifies and the
// sequence number is above the last one seen.
func (c *Conn) Recv() (*Envelope, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(c.raw, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	switch {
	case n == 0:
		return nil, errors.New("ipc: empty frame")
	case n > MaxMessageSize:
		return nil, fmt.Errorf("%w: peer announced %d bytes", ErrTooLarge, n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(c.raw, body); err != nil {
		return nil, fmt.Errorf("ipc: short frame: %w", err)
	}
	env := new(Envelope)
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("ipc: decode frame: %w", err)
	}

	want, _ := hex.DecodeString(c.sign(env))
	got, err := hex.DecodeString(env.HMAC)
	if err != nil || !hmac.Equal(got, want) {
		return nil, ErrBadMAC
	}
	if env.Seq <= c.received {
		return nil, fmt.Errorf("%w: %d after %d", ErrReplay, env.Seq, c.received)
	}
	c.received = env.Seq
	return env, nil
}

// SendTyped marshals payload into an envelope and sends it.
func (c *Conn) SendTyped(id, msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ipc: encode %s payload: %w", msgType, err)
	}
	return c.Send(&Envelope{ID: id, Type: msgType, Payload: raw})
}

// SendFailure answers request id with f. The code travels in the signed
// payload and the message is repeated in Error for older readers.
func (c *Conn) SendFailure(id, msgType string, f Failure) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("ipc: encode failure: %w", err)
	}
	err = c.Send(&Envelope{ID: id, Type: msgType, Payload: raw, Error: f.Message})
	if err != nil {
		log.Warn("failure reply not sent", "id", id, "type", msgType, "code", f.Code, "error", err.Error())
	}
	return err
}

func UnmarshalPayload[T any](env *Envelope) (T, error) {
	var v T
	if len(env.Payload) == 0 {
		return v, fmt.Errorf("ipc: %s has no payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf("ipc: decode %s payload: %w", env.Type, err)
	}
	return v, nil
}

// sign returns hex(HMAC-SHA256(key, id, seq, type, payload, error)). The
// variable-length fields are length-prefixed so they cannot be shifted into
// one another.
func (c *Conn) sign(env *Envelope) string {
	mac := hmac.New(sha256.New, c.key)
	var n [8]byte
	field := func(b []byte) {
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		mac.Write(n[:])
		mac.Write(b)
	}
	field([]byte(env.ID))
	binary.BigEndian.PutUint64(n[:], env.Seq)
	mac.Write(n[:])
	field([]byte(env.Type))
	field(env.Payload)
	field([]byte(env.Error))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewSessionKey returns a random 256-bit key.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("ipc: session key: %w", err)
	}
	return key, nil
}
