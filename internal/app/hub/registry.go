// Package hub holds the in-process registry of live push connections. State
// here is per-process and ephemeral: it is rebuilt empty on restart and
// clients are expected to re-subscribe.
package hub

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/marcelojr/cineclube/internal/domain"
	"github.com/marcelojr/cineclube/internal/platform/metrics"
)

const (
	FrameConnected    = "connected"
	FramePing         = "ping"
	FrameNotification = "notification"
)

// Frame is one unit pushed down a connection.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Conn is one user's live push channel. The generation token is strictly
// increasing across the registry; eviction compares it so that a stale
// completion callback can never tear down a newer connection.
type Conn struct {
	userID     domain.UserID
	generation uint64
	frames     chan Frame
	done       chan struct{}
	once       sync.Once
}

func (c *Conn) UserID() domain.UserID { return c.userID }

func (c *Conn) Generation() uint64 { return c.generation }

// Frames is the stream the transport drains and writes to the wire.
func (c *Conn) Frames() <-chan Frame { return c.frames }

// Done closes when the connection is completed, either by eviction or by a
// newer subscription taking over.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) complete() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Registry enforces at most one live connection per user.
type Registry struct {
	mu      sync.RWMutex
	conns   map[domain.UserID]*Conn
	nextGen atomic.Uint64
	buffer  int
	logger  *slog.Logger
}

func NewRegistry(buffer int, logger *slog.Logger) *Registry {
	if buffer <= 0 {
		buffer = 16
	}
	return &Registry{
		conns:  make(map[domain.UserID]*Conn),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe installs a fresh connection for the user. Takeover, not
// rejection: an existing connection is completed and the newest subscriber
// wins. The acknowledgment frame is queued before the connection becomes
// visible to any producer, so it is always the first frame delivered.
func (r *Registry) Subscribe(user domain.UserID) *Conn {
	c := &Conn{
		userID:     user,
		generation: r.nextGen.Add(1),
		frames:     make(chan Frame, r.buffer),
		done:       make(chan struct{}),
	}
	c.frames <- Frame{Type: FrameConnected}

	r.mu.Lock()
	prev := r.conns[user]
	r.conns[user] = c
	total := len(r.conns)
	r.mu.Unlock()

	if prev != nil {
		prev.complete()
		metrics.IncConnectionTakeover()
		r.logger.Info("push connection replaced", "user", user, "generation", c.generation)
	}
	metrics.SetLiveConnections(total)

	return c
}

// Evict removes the user's connection if it still carries the given
// generation. Idempotent; a mismatched generation means a newer connection
// already took the slot and must be left alone.
func (r *Registry) Evict(user domain.UserID, generation uint64) {
	r.mu.Lock()
	c, ok := r.conns[user]
	if !ok || c.generation != generation {
		r.mu.Unlock()
		return
	}
	delete(r.conns, user)
	total := len(r.conns)
	r.mu.Unlock()

	c.complete()
	metrics.SetLiveConnections(total)
}

// Push delivers a frame to the user's live connection, best effort. A full
// send buffer means the transport stopped draining; the connection is evicted
// and false is returned. Push never fails loudly to the caller.
func (r *Registry) Push(user domain.UserID, frame Frame) bool {
	r.mu.RLock()
	c := r.conns[user]
	r.mu.RUnlock()

	if c == nil {
		return false
	}

	select {
	case <-c.done:
		return false
	case c.frames <- frame:
		return true
	default:
		r.Evict(user, c.generation)
		metrics.IncPushFailure()
		r.logger.Warn("push buffer full, evicting connection", "user", user, "generation", c.generation)
		return false
	}
}

// Connected reports whether the user currently holds a live connection.
func (r *Registry) Connected(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[user]
	return ok
}

// Users snapshots the currently connected user ids.
func (r *Registry) Users() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.UserID, 0, len(r.conns))
	for user := range r.conns {
		users = append(users, user)
	}
	return users
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
