package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Store keeps one Session per chat.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// Get returns the session for id, creating it when missing. created
// reports whether a new session was made.
func (st *Store) Get(id int64) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		return s, false
	}

	s := newSession(id, st.now)
	st.sessions[id] = s

	return s, true
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.sessions)
}

// Sweep closes and removes sessions idle for longer than ttl. Sessions with a
// summary in flight are kept.
func (st *Store) Sweep(ttl time.Duration) (int, error) {
	cutoff := st.now().Add(-ttl)

	st.mu.Lock()
	var evicted []*Session
	for id, s := range st.sessions {
		lastSeen, streaming := s.idleSince()
		if streaming || !lastSeen.Before(cutoff) {
			continue
		}

		evicted = append(evicted, s)
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	var errs []error
	for _, s := range evicted {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %d: %w", s.ID(), err))
		}
	}

	return len(evicted), errors.Join(errs...)
}

// Close tears down every session.
func (st *Store) Close() error {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[int64]*Session)
	st.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %d: %w", s.ID(), err))
		}
	}

	return errors.Join(errs...)
}
