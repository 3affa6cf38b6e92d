package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Registry keeps one Session per user and drops sessions that stay idle
// longer than the TTL. Every lookup refreshes the TTL.
type Registry struct {
	deps  Deps
	cache *cache.Cache
	mu    sync.Mutex
}

func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanup := ttl / 4
	if cleanup < time.Second {
		cleanup = time.Second
	}
	r := &Registry{deps: deps, cache: cache.New(ttl, cleanup)}
	r.cache.OnEvicted(func(id string, v interface{}) {
		s, ok := v.(*Session)
		if !ok {
			return
		}
		s.Close()
		deps.Metrics.SessionClosed()
		if deps.Logger != nil {
			deps.Logger.Info(module, "session evicted", map[string]interface{}{"session_id": id})
		}
	})
	return r
}

// Get returns the session for id, creating a new one with a fresh id when id
// is empty or unknown.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" {
		if v, ok := r.cache.Get(id); ok {
			s := v.(*Session)
			r.cache.SetDefault(id, s)
			return s
		}
	}
	s := New(uuid.NewString(), r.deps)
	r.cache.SetDefault(s.ID(), s)
	r.deps.Metrics.SessionOpened()
	if r.deps.Logger != nil {
		r.deps.Logger.Info(module, "session opened", map[string]interface{}{"session_id": s.ID()})
	}
	return s
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

func (r *Registry) Len() int { return r.cache.ItemCount() }

// Remove ends one session.
func (r *Registry) Remove(id string) { r.cache.Delete(id) }

// Close ends every session.
func (r *Registry) Close() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}
