package session

import (
	"context"
	"maps"
)

// Payload is the opaque body of a dispatched event.
type Payload map[string]any

// Clone returns a shallow copy; nested values are shared.
func (p Payload) Clone() Payload {
	return maps.Clone(p)
}

type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Bot           bool   `json:"bot"`
}

func (p Profile) Payload() Payload {
	return Payload{
		"id":            p.ID,
		"username":      p.Username,
		"discriminator": p.Discriminator,
		"avatar":        p.Avatar,
		"bot":           p.Bot,
	}
}

// Session is one live client connection. Push must not block on the network.
type Session interface {
	ID() string
	UserID() string
	ProtocolVersion() string
	Push(eventType string, payload Payload) error
	Profile() Profile
	SetProfile(profile Profile)
	EmitSelfUpdate() error
}

type Directory interface {
	SessionsOf(userID string) []Session
}

// Identifier resolves a gateway token to the profile of its user. A nil
// profile with a nil error means the token is unknown.
type Identifier interface {
	LookupProfile(ctx context.Context, token string) (*Profile, error)
}
