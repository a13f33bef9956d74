package session

import (
	"slices"
	"sync"
)

// Registry is the process-wide directory of live sessions keyed by user.
// A user's sessions are kept in registration order.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string][]Session
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string][]Session),
	}
}

func (r *Registry) Register(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := s.UserID()
	existing := r.byUser[userID]
	if slices.ContainsFunc(existing, func(cur Session) bool { return cur.ID() == s.ID() }) {
		return
	}
	r.byUser[userID] = append(existing, s)
}

func (r *Registry) Unregister(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := s.UserID()
	existing, ok := r.byUser[userID]
	if !ok {
		return
	}
	remaining := slices.DeleteFunc(slices.Clone(existing), func(cur Session) bool { return cur.ID() == s.ID() })
	if len(remaining) == 0 {
		delete(r.byUser, userID)
		return
	}
	r.byUser[userID] = remaining
}

// SessionsOf returns a copy of the user's sessions, or nil when none are live.
func (r *Registry) SessionsOf(userID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	existing := r.byUser[userID]
	if len(existing) == 0 {
		return nil
	}
	return slices.Clone(existing)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, list := range r.byUser {
		n += len(list)
	}
	return n
}

func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	slices.Sort(users)
	return users
}
