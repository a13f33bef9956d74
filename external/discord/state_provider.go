package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/foxseedlab/dispatchd/internal/snapshot"
	"github.com/samber/lo"
)

// StateProvider serves guild snapshots out of an in-process discordgo.State
// cache. Every read is converted into a detached snapshot value.
type StateProvider struct {
	state *discordgo.State
}

func NewStateProvider() *StateProvider {
	return &StateProvider{state: discordgo.NewState()}
}

// Seed is the on-disk format read by LoadSeed: Discord API guild and channel
// objects.
type Seed struct {
	Guilds          []*discordgo.Guild   `json:"guilds"`
	PrivateChannels []*discordgo.Channel `json:"private_channels"`
}

func (p *StateProvider) LoadSeed(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return fmt.Errorf("failed to decode snapshot seed: %w", err)
	}
	for _, g := range seed.Guilds {
		if err := p.PutGuild(g); err != nil {
			return fmt.Errorf("failed to load guild %s: %w", g.ID, err)
		}
	}
	for _, c := range seed.PrivateChannels {
		if err := p.PutPrivateChannel(c); err != nil {
			return fmt.Errorf("failed to load private channel %s: %w", c.ID, err)
		}
	}
	return nil
}

func (p *StateProvider) PutGuild(g *discordgo.Guild) error {
	if g == nil || g.ID == "" {
		return errors.New("guild id is required")
	}
	if g.Members == nil {
		g.Members = []*discordgo.Member{}
	}
	for _, m := range g.Members {
		m.GuildID = g.ID
	}
	for _, c := range g.Channels {
		c.GuildID = g.ID
	}
	return p.state.GuildAdd(g)
}

func (p *StateProvider) RemoveGuild(guildID string) error {
	return p.state.GuildRemove(&discordgo.Guild{ID: guildID})
}

func (p *StateProvider) AddMember(guildID string, m *discordgo.Member) error {
	if m == nil || m.User == nil {
		return errors.New("member user is required")
	}
	m.GuildID = guildID
	return p.state.MemberAdd(m)
}

func (p *StateProvider) RemoveMember(guildID, userID string) error {
	return p.state.MemberRemove(&discordgo.Member{GuildID: guildID, User: &discordgo.User{ID: userID}})
}

func (p *StateProvider) PutPrivateChannel(c *discordgo.Channel) error {
	if c == nil || (c.Type != discordgo.ChannelTypeDM && c.Type != discordgo.ChannelTypeGroupDM) {
		return errors.New("private channel must be a DM or group DM")
	}
	return p.state.ChannelAdd(c)
}

func (p *StateProvider) GetGuild(_ context.Context, guildID string) (*snapshot.Guild, error) {
	g, err := p.state.Guild(guildID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.state.RLock()
	defer p.state.RUnlock()
	return toSnapshotGuild(g), nil
}

func (p *StateProvider) GetChannel(_ context.Context, channelID string) (*snapshot.Channel, error) {
	c, err := p.state.Channel(channelID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.state.RLock()
	defer p.state.RUnlock()
	ch := toSnapshotChannel(c)
	return &ch, nil
}

// LookupProfile treats the token as a user ID and resolves it against the
// cached members and private channel recipients. Development only.
func (p *StateProvider) LookupProfile(_ context.Context, token string) (*session.Profile, error) {
	if token == "" {
		return nil, nil
	}
	p.state.RLock()
	defer p.state.RUnlock()
	for _, g := range p.state.Guilds {
		for _, m := range g.Members {
			if m.User != nil && m.User.ID == token {
				return toProfile(m.User), nil
			}
		}
	}
	for _, c := range p.state.PrivateChannels {
		for _, u := range c.Recipients {
			if u != nil && u.ID == token {
				return toProfile(u), nil
			}
		}
	}
	return nil, nil
}

func toProfile(u *discordgo.User) *session.Profile {
	return &session.Profile{
		ID:            u.ID,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		Avatar:        u.Avatar,
		Bot:           u.Bot,
	}
}

func toSnapshotGuild(g *discordgo.Guild) *snapshot.Guild {
	return &snapshot.Guild{
		ID:      g.ID,
		Name:    g.Name,
		OwnerID: g.OwnerID,
		Roles: lo.Map(g.Roles, func(r *discordgo.Role, _ int) snapshot.Role {
			return snapshot.Role{ID: r.ID, Name: r.Name, Permissions: r.Permissions, Position: r.Position}
		}),
		Members: lo.FilterMap(g.Members, func(m *discordgo.Member, _ int) (snapshot.Member, bool) {
			if m == nil || m.User == nil {
				return snapshot.Member{}, false
			}
			return snapshot.Member{UserID: m.User.ID, Nick: m.Nick, RoleIDs: append([]string(nil), m.Roles...)}, true
		}),
		Channels: lo.Map(g.Channels, func(c *discordgo.Channel, _ int) snapshot.Channel {
			return toSnapshotChannel(c)
		}),
	}
}

func toSnapshotChannel(c *discordgo.Channel) snapshot.Channel {
	return snapshot.Channel{
		ID:      c.ID,
		GuildID: c.GuildID,
		Name:    c.Name,
		Type:    snapshot.ChannelType(c.Type),
		RecipientIDs: lo.FilterMap(c.Recipients, func(u *discordgo.User, _ int) (string, bool) {
			if u == nil {
				return "", false
			}
			return u.ID, true
		}),
		Overwrites: lo.Map(c.PermissionOverwrites, func(ow *discordgo.PermissionOverwrite, _ int) snapshot.Overwrite {
			return snapshot.Overwrite{ID: ow.ID, Type: snapshot.OverwriteType(ow.Type), Allow: ow.Allow, Deny: ow.Deny}
		}),
	}
}
