// Package memory provides in-process stores used when Redis is not
// configured, and by tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time // zero means no expiry
}

func (e entry[T]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store keeps sessions, sign-in flows and view states in maps guarded by a
// single RWMutex. Expired entries are dropped lazily on read and by Purge.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]entry[domain.Session] // sid -> session
	flows    map[string]entry[string]         // flow id -> PKCE verifier
	views    map[string]entry[domain.ViewState]
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]entry[domain.Session]),
		flows:    make(map[string]entry[string]),
		views:    make(map[string]entry[domain.ViewState]),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now = now
}

func (s *Store) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// ─────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────

// SaveSession stores a copy of sess under sid.
func (s *Store) SaveSession(_ context.Context, sid string, sess *domain.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sid] = entry[domain.Session]{value: *sess, expiresAt: s.deadline(ttl)}
	return nil
}

// GetSession returns a copy of the session, nil when missing or expired.
func (s *Store) GetSession(_ context.Context, sid string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sid]
	if !ok || e.expired(s.now()) {
		return nil, nil
	}
	sess := e.value
	return &sess, nil
}

// DeleteSession removes sid. Unknown ids are ignored.
func (s *Store) DeleteSession(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sid)
	return nil
}

// SessionIDs returns every live sid, sorted.
func (s *Store) SessionIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	ids := make([]string, 0, len(s.sessions))
	for sid, e := range s.sessions {
		if !e.expired(now) {
			ids = append(ids, sid)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ─────────────────────────────────────────────────────────────────
// Sign-in flows
// ─────────────────────────────────────────────────────────────────

// SaveFlow stores a PKCE verifier.
func (s *Store) SaveFlow(_ context.Context, flowID, verifier string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flows[flowID] = entry[string]{value: verifier, expiresAt: s.deadline(ttl)}
	return nil
}

// TakeFlow returns the verifier once.
func (s *Store) TakeFlow(_ context.Context, flowID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.flows[flowID]
	delete(s.flows, flowID)
	if !ok || e.expired(s.now()) {
		return "", domain.ErrFlowNotFound
	}
	return e.value, nil
}

// ─────────────────────────────────────────────────────────────────
// View states
// ─────────────────────────────────────────────────────────────────

// LoadView returns a copy of the view state for sid, nil when none.
func (s *Store) LoadView(_ context.Context, sid string) (*domain.ViewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.views[sid]
	if !ok || e.expired(s.now()) {
		return nil, nil
	}
	return cloneView(e.value), nil
}

// SaveView stores a copy of v under sid.
func (s *Store) SaveView(_ context.Context, sid string, v *domain.ViewState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.views[sid] = entry[domain.ViewState]{value: *cloneView(*v), expiresAt: s.deadline(ttl)}
	return nil
}

// DeleteView removes the view state for sid.
func (s *Store) DeleteView(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.views, sid)
	return nil
}

// Purge drops every expired entry and returns how many were removed.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.sessions {
		if e.expired(now) {
			delete(s.sessions, k)
			removed++
		}
	}
	for k, e := range s.flows {
		if e.expired(now) {
			delete(s.flows, k)
			removed++
		}
	}
	for k, e := range s.views {
		if e.expired(now) {
			delete(s.views, k)
			removed++
		}
	}
	return removed
}

// Count returns the number of stored sessions, expired ones included.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

func cloneView(v domain.ViewState) *domain.ViewState {
	out := v
	out.Bookmarks = append([]domain.Bookmark{}, v.Bookmarks...)
	if v.Notices != nil {
		out.Notices = append([]domain.Notice(nil), v.Notices...)
	}
	return &out
}
