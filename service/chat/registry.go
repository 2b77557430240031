package chat

import (
	"sort"
	"sync"
)

// ConnRegistry indexes live clients by connection and by user. It is the
// one-to-many publish primitive: "send to user X" resolves to all of X's
// connections.
type ConnRegistry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Client // user id -> conn id -> client
	byConn map[string]*Client
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		byUser: make(map[string]map[string]*Client),
		byConn: make(map[string]*Client),
	}
}

func (r *ConnRegistry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byUser[c.UserID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[c.UserID] = m
	}
	m[c.ConnID] = c
	r.byConn[c.ConnID] = c
}

func (r *ConnRegistry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.byUser[c.UserID]; m != nil {
		delete(m, c.ConnID)
		if len(m) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	delete(r.byConn, c.ConnID)
}

func (r *ConnRegistry) ListByUser(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func (r *ConnRegistry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}

// ViewersOf reports which users have at least one connection currently
// viewing threadID. Advisory input for unseen-counter suppression.
func (r *ConnRegistry) ViewersOf(threadID string) map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool)
	for _, c := range r.byConn {
		if c.Viewing() == threadID {
			out[c.UserID] = true
		}
	}
	return out
}

// Presence is the reference-counted online set, keyed by user id and
// decoupled from connection identity: several simultaneous connections
// coalesce into one online/offline signal per user.
type Presence struct {
	mu   sync.RWMutex
	refs map[string]int
}

func NewPresence() *Presence {
	return &Presence{refs: make(map[string]int)}
}

// Join records a live connection; reports whether the user just came
// online (first connection).
func (p *Presence) Join(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs[userID]++
	return p.refs[userID] == 1
}

// Leave drops a connection; reports whether the user just went offline
// (last connection).
func (p *Presence) Leave(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.refs[userID]
	if n <= 1 {
		delete(p.refs, userID)
		return n == 1
	}
	p.refs[userID] = n - 1
	return false
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.refs[userID] > 0
}

// Snapshot returns the online user ids, sorted for deterministic payloads.
func (p *Presence) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.refs))
	for id := range p.refs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
