package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/displayhotkeys/dhk/internal/ipc"
)

// peer is one authenticated client connection.
type peer struct {
	identity    string
	username    string
	pid         int
	connectedAt time.Time
	subscribed  atomic.Bool

	conn *ipc.Conn

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
}

func newPeer(conn *ipc.Conn, identity, username string, pid int) *peer {
	now := time.Now()
	return &peer{
		identity:    identity,
		username:    username,
		pid:         pid,
		connectedAt: now,
		lastSeen:    now,
		conn:        conn,
	}
}

func (p *peer) touch() {
	p.mu.Lock()
	p.lastSeen = time.Now()
	p.mu.Unlock()
}

func (p *peer) idleDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastSeen)
}

func (p *peer) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.conn.Close()
}

// recvLoop handles requests one at a time until the connection drops.
func (p *peer) recvLoop(handle func(*peer, *ipc.Envelope)) {
	for {
		env, err := p.conn.Recv()
		if err != nil {
			log.Debug("recv loop ended", "identity", p.identity, "error", err.Error())
			return
		}
		p.touch()
		if env.Type == ipc.TypeDisconnect {
			p.close()
			return
		}
		handle(p, env)
	}
}
