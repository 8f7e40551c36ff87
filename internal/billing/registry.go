package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for unknown or discarded bill sessions.
	ErrSessionNotFound = errors.New("bill session not found")
	// ErrTooManySessions is returned when the registry is at capacity.
	ErrTooManySessions = errors.New("too many open bill sessions")
)

const (
	// DefaultMaxSessions bounds the registry when no limit is configured.
	DefaultMaxSessions = 1024
	// DefaultIdleTTL is how long an untouched session survives once the registry is full.
	DefaultIdleTTL = 2 * time.Hour
	// emptyGrace is how long a session with no lines is kept once the registry is full.
	emptyGrace = time.Minute
)

type session struct {
	mu       sync.Mutex
	bill     *Bill
	lastUsed time.Time
}

// Registry owns the open bill sessions. Each bill is only touched while
// its session lock is held, so different counters never share state.
//
// Abandoned sessions are reclaimed lazily: only when Open finds the
// registry full does it drop sessions idle past the TTL, and empty ones
// idle for more than a minute.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	max      int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewRegistry(maxSessions int, idleTTL time.Duration) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{
		sessions: make(map[string]*session),
		max:      maxSessions,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Open starts an empty bill and returns its session id.
func (r *Registry) Open() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.max {
		r.evictIdleLocked()
	}
	if len(r.sessions) >= r.max {
		return "", ErrTooManySessions
	}
	id := uuid.NewString()
	r.sessions[id] = &session{bill: NewBill(), lastUsed: r.now()}
	return id, nil
}

// evictIdleLocked drops reclaimable sessions. r.mu must be held. Sessions
// busy in With are skipped.
func (r *Registry) evictIdleLocked() {
	now := r.now()
	for id, s := range r.sessions {
		if !s.mu.TryLock() {
			continue
		}
		idle := now.Sub(s.lastUsed)
		if s.bill == nil || idle > r.idleTTL || (s.bill.IsEmpty() && idle > emptyGrace) {
			s.bill = nil
			delete(r.sessions, id)
		}
		s.mu.Unlock()
	}
}

// With runs fn with exclusive access to the session's bill.
func (r *Registry) With(ctx context.Context, id string, fn func(ctx context.Context, bill *Bill) error) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bill == nil {
		// discarded or evicted while we waited
		return ErrSessionNotFound
	}
	defer func() { s.lastUsed = r.now() }()
	return fn(ctx, s.bill)
}

// Discard drops a session and its bill.
func (r *Registry) Discard(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	s.bill = nil
	s.mu.Unlock()
	return nil
}

// Len reports the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
