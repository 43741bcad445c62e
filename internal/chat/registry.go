// Package chat tracks which principals currently hold a live websocket
// connection. The registry is owned by the application, not a package-level
// global, so tests can spin up as many independent instances as they like.
package chat

import "sync"

// Conn is the slice of a websocket connection the registry needs. The real
// implementation is *websocket.Conn; tests substitute something in-memory.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// entry pairs a connection with its write lock. A websocket connection
// tolerates at most one concurrent writer, and a recipient's connection is
// written from every sender's goroutine, so writes must serialize here.
type entry struct {
	writeMu sync.Mutex
	conn    Conn
}

// Registry maps a principal id to its single live connection. A principal
// gets at most one: adding a new connection evicts and closes the previous
// one, which is what keeps reconnecting clients from leaking sessions.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*entry)}
}

// Add registers the connection for the principal, closing and replacing any
// previous one.
func (r *Registry) Add(userID string, conn Conn) {
	r.mu.Lock()
	prev := r.conns[userID]
	r.conns[userID] = &entry{conn: conn}
	r.mu.Unlock()

	if prev != nil {
		_ = prev.conn.Close()
	}
}

// Remove drops the principal's registration, but only when conn is still the
// registered one. A stale disconnect from an evicted connection must not tear
// down its replacement.
func (r *Registry) Remove(userID string, conn Conn) {
	r.mu.Lock()
	if e, ok := r.conns[userID]; ok && e.conn == conn {
		delete(r.conns, userID)
	}
	r.mu.Unlock()
}

// Send writes v to the principal's connection, holding that connection's
// write lock for the duration. Every write to a registered connection goes
// through here; writing to the Conn directly would race with other senders.
// Returns false when the principal has no live connection.
func (r *Registry) Send(userID string, v any) (bool, error) {
	r.mu.Lock()
	e, ok := r.conns[userID]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return true, e.conn.WriteJSON(v)
}

// Get returns the live connection for the principal, if any.
func (r *Registry) Get(userID string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[userID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Len reports how many principals are currently connected.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes every connection and empties the registry. Used during
// graceful shutdown to drain websocket sessions.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range conns {
		_ = e.conn.Close()
	}
}
