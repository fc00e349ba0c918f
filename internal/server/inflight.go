package server

import "sync"

// inflightGuard serializes conversion attempts per identifier so two
// concurrent first-time requests for the same comic never duplicate the
// fetch+convert work. Requests for different identifiers never contend.
type inflightGuard struct {
	mu      sync.Mutex
	entries map[string]*inflightEntry
}

type inflightEntry struct {
	mu   sync.Mutex
	refs int
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{entries: make(map[string]*inflightEntry)}
}

// acquire blocks until the caller holds the identifier's slot and returns
// the release function.
func (g *inflightGuard) acquire(id string) func() {
	g.mu.Lock()
	entry, ok := g.entries[id]
	if !ok {
		entry = &inflightEntry{}
		g.entries[id] = entry
	}
	entry.refs++
	g.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		g.mu.Lock()
		entry.refs--
		if entry.refs <= 0 {
			delete(g.entries, id)
		}
		g.mu.Unlock()
	}
}
