// Package session holds the server-side session state behind opaque
// token IDs. The store is injected everywhere it is needed; nothing in
// the codebase reaches for a process-global map.
package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"devicelab/internal/domain"
)

type Session struct {
	UserID   int64
	Username string
	Role     domain.Role
	IssuedAt time.Time
}

// Store is safe for concurrent use. Remove must be atomic per key.
type Store interface {
	Put(id string, s Session)
	Get(id string) (Session, bool)
	Remove(id string)
}

// CacheStore backs Store with an expiring in-memory cache so that
// abandoned sessions age out without an explicit logout.
type CacheStore struct {
	c *gocache.Cache
}

func NewCacheStore(ttl time.Duration) *CacheStore {
	return &CacheStore{c: gocache.New(ttl, ttl/2)}
}

func (s *CacheStore) Put(id string, sess Session) {
	s.c.Set(id, sess, gocache.DefaultExpiration)
}

func (s *CacheStore) Get(id string) (Session, bool) {
	v, ok := s.c.Get(id)
	if !ok {
		return Session{}, false
	}
	return v.(Session), true
}

func (s *CacheStore) Remove(id string) {
	s.c.Delete(id)
}
