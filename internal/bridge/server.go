// Package bridge exposes the display service to other local processes over
// a named pipe (a unix socket off Windows) using the ipc wire protocol.
package bridge

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/displayhotkeys/dhk/internal/display"
	"github.com/displayhotkeys/dhk/internal/health"
	"github.com/displayhotkeys/dhk/internal/ipc"
	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("bridge")

const (
	// HandshakeTimeout is the deadline for completing auth after connecting.
	HandshakeTimeout = 5 * time.Second

	// IdleTimeout disconnects clients that send no messages for this duration.
	IdleTimeout = 30 * time.Minute

	// DefaultMaxConnections limits concurrent connections per identity.
	DefaultMaxConnections = 8

	// RateLimitAttempts is max connection attempts per identity per window.
	RateLimitAttempts = 20

	// RateLimitWindow is the sliding window for rate limiting.
	RateLimitWindow = 60 * time.Second

	// IdleCheckInterval is how often to scan for idle connections.
	IdleCheckInterval = 60 * time.Second
)

// DisplayService is the display surface served over the pipe.
type DisplayService interface {
	NumConnectedDisplays() (int32, error)
	DisplayIDs() ([]string, error)
	DisplayModes(id string) ([]display.Mode, error)
	DisplayOrientation(pathIndex int32) (int32, error)
	SetDisplay(id string, s display.Settings) error
	SetOrientation(id string, orientation int32) error
	DPIScalePercentage(id string) (int32, error)
	Displays() ([]display.Info, error)
	Catalog() ([]display.CatalogEntry, error)
}

// SlotApplier applies a saved profile slot.
type SlotApplier interface {
	ApplySlot(id string, slot int) error
}

// NameFunc resolves friendly monitor names for display ids.
type NameFunc func(ids []string) map[string]string

type ServerOptions struct {
	Path           string
	MaxConnections int
	Slots          SlotApplier
	Names          NameFunc
	// Health and Version are reported to status requests.
	Health  *health.Monitor
	Version string
	// Owner is the only identity allowed to connect. Empty means the
	// identity of the running process.
	Owner string
}

// Server accepts authenticated connections and answers display requests.
type Server struct {
	path        string
	owner       string
	listener    net.Listener
	rateLimiter *ipc.RateLimiter
	maxConns    int

	service DisplayService
	slots   SlotApplier
	names   NameFunc
	health  *health.Monitor
	version string
	started time.Time

	peerCheck    func(net.Conn) (*ipc.Peer, error)
	verifyBinary func(string) bool

	mu         sync.RWMutex
	peers      map[*peer]struct{}
	byIdentity map[string]int
	closed     bool

	eventSeq atomic.Uint64
}

func NewServer(svc DisplayService, opts ServerOptions) *Server {
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = DefaultMaxConnections
	}
	if opts.Owner == "" {
		id, err := ipc.CurrentIdentity()
		if err != nil {
			log.Error("cannot determine daemon identity, all clients will be refused", logging.KeyError, err.Error())
		}
		opts.Owner = id
	}
	return &Server{
		path:         opts.Path,
		owner:        opts.Owner,
		rateLimiter:  ipc.NewRateLimiter(RateLimitAttempts, RateLimitWindow),
		maxConns:     opts.MaxConnections,
		service:      svc,
		slots:        opts.Slots,
		names:        opts.Names,
		health:       opts.Health,
		version:      opts.Version,
		started:      time.Now(),
		peerCheck:    ipc.PeerOf,
		verifyBinary: ipc.SameExecutable,
		peers:        make(map[*peer]struct{}),
		byIdentity:   make(map[string]int),
	}
}

// Listen creates the pipe or socket at the configured path and serves until
// ctx is done.
func (s *Server) Listen(ctx context.Context) error {
	l, err := listen(s.path, s.owner)
	if err != nil {
		return fmt.Errorf("bridge: setup listener: %w", err)
	}
	log.Info("display bridge listening", "path", s.path)
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is done or Close is called.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stop:
		}
	}()
	go s.idleReaper(stop)

	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()
			if closed {
				return nil
			}
			log.Warn("accept error", logging.KeyError, err.Error())
			time.Sleep(50 * time.Millisecond)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Close stops accepting and disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.peers = make(map[*peer]struct{})
	s.byIdentity = make(map[string]int)
	l := s.listener
	s.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
	if l != nil {
		l.Close()
	}
	cleanupListener(s.path)
	log.Info("display bridge closed")
}

// ConnCount returns the number of authenticated connections.
func (s *Server) ConnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Broadcast pushes a displays_changed event to every subscribed client.
func (s *Server) Broadcast(change ipc.DisplaysChanged) {
	s.mu.RLock()
	var targets []*peer
	for p := range s.peers {
		if p.subscribed.Load() {
			targets = append(targets, p)
		}
	}
	s.mu.RUnlock()

	id := "evt-" + strconv.FormatUint(s.eventSeq.Add(1), 10)
	for _, p := range targets {
		if err := p.conn.SendTyped(id, ipc.TypeDisplaysChanged, change); err != nil {
			log.Debug("event delivery failed", "identity", p.identity, logging.KeyError, err.Error())
		}
	}
}

func (s *Server) handleConnection(rawConn net.Conn) {
	rawConn.SetDeadline(time.Now().Add(HandshakeTimeout))

	// Step 1: peer credentials (kernel-enforced)
	caller, err := s.peerCheck(rawConn)
	if err != nil {
		log.Warn("peer credential check failed", logging.KeyError, err.Error())
		rawConn.Close()
		return
	}
	conn := ipc.NewConn(rawConn)

	// Step 2: only the user the daemon runs as
	if s.owner == "" || caller.Identity != s.owner {
		log.Warn("connection from another user rejected", "identity", caller.Identity, "owner", s.owner, "pid", caller.PID)
		s.reject(conn, ipc.CodeNotOwner, "caller is not the daemon's user")
		return
	}

	// Step 3: rate limit
	if !s.rateLimiter.Allow(caller.Identity) {
		log.Warn("connection rate limited", "identity", caller.Identity, "pid", caller.PID)
		s.reject(conn, ipc.CodeRateLimited, "too many connection attempts")
		return
	}

	// Step 4: connections per identity. The slot is held from here on and
	// released unless the peer gets registered.
	if !s.reserve(caller.Identity) {
		log.Warn("max connections per identity exceeded", "identity", caller.Identity, "max", s.maxConns)
		s.reject(conn, ipc.CodeMaxConnections, fmt.Sprintf("at most %d connections per user", s.maxConns))
		return
	}
	registered := false
	defer func() {
		if !registered {
			s.release(caller.Identity)
		}
	}()

	// Step 5: only dhk itself may connect
	if !s.verifyBinary(caller.Executable) {
		log.Warn("binary path verification failed", "identity", caller.Identity, "pid", caller.PID, "path", caller.Executable)
		s.reject(conn, ipc.CodeInvalidBinary, "client is not the dhk binary")
		return
	}

	// Step 6: auth request
	env, err := conn.Recv()
	if err != nil {
		log.Warn("auth request read failed", "identity", caller.Identity, logging.KeyError, err.Error())
		conn.Close()
		return
	}
	if env.Type != ipc.TypeAuthRequest {
		log.Warn("expected auth_request", "type", env.Type)
		conn.Close()
		return
	}
	authReq, err := ipc.UnmarshalPayload[ipc.AuthRequest](env)
	if err != nil {
		log.Warn("invalid auth request payload", logging.KeyError, err.Error())
		conn.Close()
		return
	}

	if reason := checkAuthRequest(authReq, caller); reason != "" {
		log.Warn("auth rejected", "identity", caller.Identity, "reason", reason)
		refuse(conn, env.ID, ipc.CodeAuthFailed, reason)
		return
	}

	sessionKey, err := ipc.NewSessionKey()
	if err != nil {
		log.Error("failed to generate session key", logging.KeyError, err.Error())
		conn.Close()
		return
	}
	if err := conn.SendTyped(env.ID, ipc.TypeAuthResponse, ipc.AuthResponse{
		Accepted:   true,
		SessionKey: hex.EncodeToString(sessionKey),
	}); err != nil {
		log.Warn("failed to send auth response", logging.KeyError, err.Error())
		conn.Close()
		return
	}
	conn.SetSessionKey(sessionKey)
	rawConn.SetDeadline(time.Time{})

	p := newPeer(conn, caller.Identity, authReq.Username, caller.PID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.peers[p] = struct{}{}
	registered = true
	s.mu.Unlock()

	log.Info("client connected", "identity", caller.Identity, "username", authReq.Username, "pid", caller.PID)

	p.recvLoop(s.dispatch)

	s.removePeer(p)
	log.Info("client disconnected", "identity", p.identity, "pid", p.pid)
}

// reject answers the client's pending auth request with a failure and hangs
// up. The request is read first so the client sees the reply rather than a
// reset.
func (s *Server) reject(conn *ipc.Conn, code, message string) {
	id := "auth"
	if env, err := conn.Recv(); err == nil {
		id = env.ID
	}
	refuse(conn, id, code, message)
}

func refuse(conn *ipc.Conn, id, code, message string) {
	conn.SendFailure(id, ipc.TypeAuthResponse, ipc.Failure{Code: code, Message: message})
	conn.Close()
}

// reserve takes one of identity's connection slots if any is free.
func (s *Server) reserve(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byIdentity[identity] >= s.maxConns {
		return false
	}
	s.byIdentity[identity]++
	return true
}

func (s *Server) release(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(identity)
}

func (s *Server) releaseLocked(identity string) {
	s.byIdentity[identity]--
	if s.byIdentity[identity] <= 0 {
		delete(s.byIdentity, identity)
	}
}

// checkAuthRequest compares the claimed identity with the verified one and
// returns a rejection reason, or "" when the request is acceptable.
func checkAuthRequest(req ipc.AuthRequest, caller *ipc.Peer) string {
	if req.ProtocolVersion != ipc.ProtocolVersion {
		return fmt.Sprintf("protocol version %d not supported", req.ProtocolVersion)
	}
	claimed := req.SID
	if claimed == "" {
		claimed = strconv.FormatUint(uint64(req.UID), 10)
	}
	if claimed != caller.Identity {
		return "identity mismatch"
	}
	return ""
}

func (s *Server) removePeer(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[p]; !ok {
		return
	}
	delete(s.peers, p)
	s.releaseLocked(p.identity)
}

func (s *Server) idleReaper(stop <-chan struct{}) {
	ticker := time.NewTicker(IdleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.reapIdle()
		case <-stop:
			return
		}
	}
}

func (s *Server) reapIdle() {
	s.mu.RLock()
	var idle []*peer
	for p := range s.peers {
		if p.idleDuration() > IdleTimeout && !p.subscribed.Load() {
			idle = append(idle, p)
		}
	}
	s.mu.RUnlock()

	for _, p := range idle {
		log.Info("disconnecting idle client", "identity", p.identity, "idle", p.idleDuration())
		p.close()
		s.removePeer(p)
	}
}
