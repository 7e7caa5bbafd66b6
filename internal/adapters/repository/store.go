// Package repository holds live assignment sessions for the lifetime of the process.
package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/statline/internal/domain/engine"
)

// Session binds an engine to the identifier clients address it by.
type Session struct {
	ID        string
	Engine    *engine.Engine
	CreatedAt time.Time
}

// Store provides access to live sessions.
type Store interface {
	// Put adds a session. Returns ErrExists if the id is taken.
	Put(ctx context.Context, s *Session) error

	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes the session. Returns ErrNotFound if it is unknown.
	Delete(ctx context.Context, id string) error

	// Count returns the number of live sessions.
	Count(ctx context.Context) int
}

// MemoryStore is an in-memory Store that keeps sessions in insertion order so
// the oldest can be evicted when the store is full.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*list.Element // id -> element holding *Session
	order       *list.List               // front = oldest
	maxSessions int                      // 0 or negative = unbounded
	onEvict     func(*Session)
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*list.Element),
		order:    list.New(),
		onEvict:  func(*Session) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put adds a session, evicting the oldest sessions first if the store is full.
func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	if _, exists := s.sessions[sess.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, sess.ID)
	}

	var evicted []*Session
	for s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		oldest := s.order.Front()
		victim := s.order.Remove(oldest).(*Session)
		delete(s.sessions, victim.ID)
		evicted = append(evicted, victim)
	}

	s.sessions[sess.ID] = s.order.PushBack(sess)
	s.mu.Unlock()

	for _, victim := range evicted {
		s.onEvict(victim)
	}
	return nil
}

// Get returns the session with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return el.Value.(*Session), nil
}

// Delete removes the session with the given id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.order.Remove(el)
	delete(s.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
