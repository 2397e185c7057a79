package fetch

import (
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Pool hands out court sessions for exclusive use by one pipeline run at a
// time. Idle sessions are parked in a TTL cache; sessions that sit unused
// past the TTL are evicted and their connections closed.
type Pool struct {
	mu   sync.Mutex
	idle *gocache.Cache

	newSession func() (*Session, error)
}

// NewPool creates a session pool. ttl bounds how long an idle session keeps
// its cookies before being torn down.
func NewPool(ttl time.Duration, newSession func() (*Session, error)) *Pool {
	idle := gocache.New(ttl, ttl/2)
	idle.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
		}
	})
	return &Pool{idle: idle, newSession: newSession}
}

// Checkout returns a session owned exclusively by the caller until Checkin.
func (p *Pool) Checkout() (*Session, error) {
	p.mu.Lock()
	for key, item := range p.idle.Items() {
		if s, ok := item.Object.(*Session); ok {
			p.idle.Delete(key)
			p.mu.Unlock()
			return s, nil
		}
	}
	p.mu.Unlock()

	return p.newSession()
}

// Checkin parks a session for reuse by a later run.
func (p *Pool) Checkin(s *Session) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle.SetDefault(uuid.NewString(), s)
}

// Close tears down every idle session.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.idle.Items() {
		p.idle.Delete(key)
	}
}
