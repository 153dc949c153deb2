package store

import (
	"context"
	"sync"
	"time"
)

// State is the application state of one signed-in user.
type State struct {
	Auth     *AuthStore
	Cards    *CardsStore
	Contacts *ContactsStore
}

// Close detaches the state from the identity provider.
func (s *State) Close() {
	s.Auth.Close()
}

// StateFactory builds an empty, uninitialized State.
type StateFactory func() *State

// Registry owns the live states, keyed by user id.
// States not touched for a while are dropped by Sweep.
type Registry struct {
	newState StateFactory
	now      func() time.Time

	mu       sync.Mutex
	states   map[string]*State
	lastSeen map[string]time.Time
}

func NewRegistry(newState StateFactory) *Registry {
	return &Registry{
		newState: newState,
		now:      time.Now,
		states:   make(map[string]*State),
		lastSeen: make(map[string]time.Time),
	}
}

// touch must be called with r.mu held.
func (r *Registry) touch(userID string) {
	r.lastSeen[userID] = r.now()
}

// New returns a fresh state that is not registered yet (e.g. for a sign-in in progress).
func (r *Registry) New() *State {
	return r.newState()
}

// Get returns the live state of userID.
func (r *Registry) Get(userID string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[userID]
	if ok {
		r.touch(userID)
	}
	return s, ok
}

// Attach returns the state of userID, creating and initializing it from accessToken when needed.
// A changed access token is handed to the existing state.
func (r *Registry) Attach(ctx context.Context, userID, accessToken string) (*State, error) {
	r.mu.Lock()
	s, exists := r.states[userID]
	if exists {
		r.touch(userID)
	}
	r.mu.Unlock()

	if exists {
		if sess := s.Auth.Session(); sess == nil || sess.AccessToken != accessToken {
			if err := s.Auth.AdoptSession(ctx, accessToken, ""); err != nil {
				return nil, err
			}
		}
		return s, nil
	}

	s = r.newState()
	if err := s.Auth.AdoptSession(ctx, accessToken, ""); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Auth.Initialize(ctx); err != nil {
		s.Close()
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch(userID)
	if cur, raced := r.states[userID]; raced {
		s.Close()
		return cur, nil
	}
	r.states[userID] = s
	return s, nil
}

// Adopt registers s under its signed-in user and replaces any previous state of that user.
func (r *Registry) Adopt(s *State) bool {
	userID := s.Auth.UserID()
	if userID == "" {
		return false
	}
	r.mu.Lock()
	prev := r.states[userID]
	r.states[userID] = s
	r.touch(userID)
	r.mu.Unlock()
	if prev != nil && prev != s {
		prev.Close()
	}
	return true
}

// Remove drops and closes the state of userID.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	s := r.states[userID]
	delete(r.states, userID)
	delete(r.lastSeen, userID)
	r.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Sweep drops and closes every state that was not used within idle.
// It returns the number of states dropped.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	var stale []*State
	r.mu.Lock()
	for userID, seen := range r.lastSeen {
		if seen.Before(cutoff) {
			stale = append(stale, r.states[userID])
			delete(r.states, userID)
			delete(r.lastSeen, userID)
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		if s != nil {
			s.Close()
		}
	}
	return len(stale)
}

// Janitor sweeps every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(idle)
		}
	}
}
