// Package sessiontest provides an in-memory session.Session for tests.
package sessiontest

import (
	"errors"
	"sync"

	"github.com/foxseedlab/dispatchd/internal/session"
)

var ErrClosed = errors.New("recorder closed")

type Delivery struct {
	EventType string
	Payload   session.Payload
}

// Recorder records every pushed event. It can be made to fail or panic to
// simulate a broken transport.
type Recorder struct {
	id      string
	userID  string
	version string

	mu         sync.Mutex
	profile    session.Profile
	deliveries []Delivery
	closed     bool
	panics     bool
}

func New(id, userID, version string) *Recorder {
	return &Recorder{id: id, userID: userID, version: version}
}

func (r *Recorder) ID() string              { return r.id }
func (r *Recorder) UserID() string          { return r.userID }
func (r *Recorder) ProtocolVersion() string { return r.version }

func (r *Recorder) Push(eventType string, payload session.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panics {
		panic("recorder transport exploded")
	}
	if r.closed {
		return ErrClosed
	}
	r.deliveries = append(r.deliveries, Delivery{EventType: eventType, Payload: payload})
	return nil
}

func (r *Recorder) Profile() session.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile
}

func (r *Recorder) SetProfile(profile session.Profile) {
	r.mu.Lock()
	r.profile = profile
	r.mu.Unlock()
}

func (r *Recorder) EmitSelfUpdate() error {
	return r.Push("USER_UPDATE", r.Profile().Payload())
}

// Close makes later pushes fail.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// PanicOnPush makes later pushes panic.
func (r *Recorder) PanicOnPush() {
	r.mu.Lock()
	r.panics = true
	r.mu.Unlock()
}

func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

func (r *Recorder) Received(eventType string) int {
	n := 0
	for _, d := range r.Deliveries() {
		if d.EventType == eventType {
			n++
		}
	}
	return n
}

// Last returns the most recent delivery, or false when nothing arrived.
func (r *Recorder) Last() (Delivery, bool) {
	deliveries := r.Deliveries()
	if len(deliveries) == 0 {
		return Delivery{}, false
	}
	return deliveries[len(deliveries)-1], true
}
