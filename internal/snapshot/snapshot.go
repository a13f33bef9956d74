package snapshot

import "context"

// Provider returns point-in-time reads of guild topology. A nil result with a
// nil error means the guild or channel does not exist.
type Provider interface {
	GetGuild(ctx context.Context, guildID string) (*Guild, error)
	GetChannel(ctx context.Context, channelID string) (*Channel, error)
}
