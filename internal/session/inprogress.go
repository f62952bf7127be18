// Package session tracks server-side transfer state that must be shared
// across concurrently-handled connections. Unlike the session persistence
// this package's teacher implementation offered, nothing here is written to
// disk: delta is computed per connection and there is no resumption across
// separate sessions.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// InProgress is the set of destination filenames currently being written by
// some in-flight ServerSession, read back for the listener's status line.
// It does not stop two concurrent connections from writing the same path;
// the lock is only ever held for the map mutation itself, never across file
// I/O.
type InProgress struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewInProgress returns an empty InProgress set.
func NewInProgress() *InProgress {
	return &InProgress{names: make(map[string]struct{})}
}

// Add registers name as in-progress, returning false if it was already
// registered (the caller should treat this as a collision, not retry).
func (p *InProgress) Add(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.names[name]; exists {
		return false
	}
	p.names[name] = struct{}{}
	return true
}

// Remove clears name from the in-progress set. Safe to call even if name
// was never added, so cleanup paths don't need to track whether Add
// succeeded.
func (p *InProgress) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.names, name)
}

// Contains reports whether name is currently registered. Intended for
// tests and diagnostics; callers deciding whether to proceed should use the
// return value of Add instead, to avoid a check-then-act race.
func (p *InProgress) Contains(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, exists := p.names[name]
	return exists
}

// Snapshot returns the names currently registered, for a listener to print
// as a status line. The returned slice is a copy; it does not alias the
// internal map.
func (p *InProgress) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.names))
	for name := range p.names {
		names = append(names, name)
	}
	return names
}

// NewID generates a session identifier for logging, one per accepted
// connection.
func NewID() string {
	return uuid.NewString()
}
