// Package runtime hosts the relay core: the connection registry, the
// per-connection liveness monitor, and the persist-then-fan-out pipeline.
// It coordinates connections without containing transport or storage logic.
package runtime

import (
	"sync"
	"sync/atomic"

	"courier/contract"
	"courier/domain"
)

// Conn is the registry entry for one open connection. The identity is nil
// until the handshake credential resolves; such connections stay out of
// the roster and receive no relayed messages.
type Conn struct {
	id       uint64
	sink     contract.Sink
	identity atomic.Pointer[domain.Identity]
}

func (c *Conn) Identity() (domain.Identity, bool) {
	ident := c.identity.Load()
	if ident == nil {
		return domain.Identity{}, false
	}
	return *ident, true
}

func (c *Conn) Sink() contract.Sink {
	return c.sink
}

// Registry is the authoritative in-process table of open connections.
// It is the single writer of connection identity; every membership or
// identity change emits a coalesced signal on Changes for the presence
// broadcaster.
type Registry struct {
	mu      sync.RWMutex
	conns   map[uint64]*Conn
	nextID  uint64
	changes chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[uint64]*Conn),
		changes: make(chan struct{}, 1),
	}
}

// Admit registers a new, not yet resolved connection. It never fails.
func (r *Registry) Admit(sink contract.Sink) *Conn {
	r.mu.Lock()
	r.nextID++
	conn := &Conn{id: r.nextID, sink: sink}
	r.conns[conn.id] = conn
	r.mu.Unlock()

	r.notify()
	return conn
}

// Resolve tags a connection with its verified identity. A no-op when the
// connection has already been removed: the close/handshake race must not
// resurrect an entry.
func (r *Registry) Resolve(conn *Conn, identity domain.Identity) {
	r.mu.Lock()
	_, present := r.conns[conn.id]
	if present {
		conn.identity.Store(&identity)
	}
	r.mu.Unlock()

	if present {
		r.notify()
	}
}

// Remove evicts a connection. Idempotent.
func (r *Registry) Remove(conn *Conn) {
	r.mu.Lock()
	_, present := r.conns[conn.id]
	if present {
		delete(r.conns, conn.id)
	}
	r.mu.Unlock()

	if present {
		r.notify()
	}
}

// Snapshot returns the current membership. Visitors iterate the copy, so
// a concurrent removal is never observed half way.
func (r *Registry) Snapshot() []contract.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]contract.Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// FindByIdentity returns every connection resolved to the given identity.
// An identity with several tabs open has several entries; all of them
// receive relayed traffic.
func (r *Registry) FindByIdentity(id string) []contract.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []contract.Conn
	for _, conn := range r.conns {
		if ident := conn.identity.Load(); ident != nil && ident.ID == id {
			matches = append(matches, conn)
		}
	}
	return matches
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Changes delivers coalesced change signals: consecutive mutations may
// collapse into one signal, which is fine for a full-snapshot broadcast.
func (r *Registry) Changes() <-chan struct{} {
	return r.changes
}

func (r *Registry) notify() {
	select {
	case r.changes <- struct{}{}:
	default:
	}
}
