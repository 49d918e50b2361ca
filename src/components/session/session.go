// Package session tracks seat-selection sessions: short-lived,
// one-shot interactions waiting for a single button click.
package session

import (
	"sync"
	"time"

	"github.com/aprp/electionbot/src/types"
	"github.com/google/uuid"
)

// State of a session. Exactly one transition out of Waiting happens.
type State int

const (
	Waiting State = iota
	Resolved
	Expired
	Cancelled
)

// DefaultTimeout matches the 60s button window of the signup flow.
const DefaultTimeout = 60 * time.Second

// Session is one pending seat selection.
type Session struct {
	ID     string
	UserID string
	Name   string
	Party  string
	State  string
	Seats  []types.Seat

	mu    sync.Mutex
	state State
	timer *time.Timer
}

// Registry owns every pending session.
type Registry struct {
	timeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{timeout: timeout, sessions: make(map[string]*Session)}
}

// Open starts a session for one user's signup. onExpire fires if the
// window lapses without a click.
func (r *Registry) Open(userID, name, party, state string, seats []types.Seat, onExpire func(*Session)) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		Party:  party,
		State:  state,
		Seats:  seats,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	s.timer = time.AfterFunc(r.timeout, func() {
		if s.transition(Expired) {
			r.remove(s.ID)
			if onExpire != nil {
				onExpire(s)
			}
		}
	})
	return s
}

// Resolve consumes the session with the chosen seat. Only the opening
// user may resolve it, and only once.
func (r *Registry) Resolve(sessionID, userID, seatID string) (*Session, types.Seat, bool) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok || s.UserID != userID {
		return nil, types.Seat{}, false
	}

	var seat types.Seat
	found := false
	for _, candidate := range s.Seats {
		if candidate.SeatID == seatID {
			seat = candidate
			found = true
			break
		}
	}
	if !found {
		return nil, types.Seat{}, false
	}

	if !s.transition(Resolved) {
		return nil, types.Seat{}, false
	}
	s.timer.Stop()
	r.remove(sessionID)
	return s, seat, true
}

// Cancel drops a session without resolving it.
func (r *Registry) Cancel(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}
	if s.transition(Cancelled) {
		s.timer.Stop()
		r.remove(sessionID)
	}
}

// Current reports the session state.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves Waiting to a terminal state; any later attempt
// reports false so racing close triggers fire once.
func (s *Session) transition(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Waiting {
		return false
	}
	s.state = to
	return true
}

func (r *Registry) remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}
