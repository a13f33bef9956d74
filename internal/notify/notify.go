package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/dispatchd/internal/permission"
	"github.com/foxseedlab/dispatchd/internal/session"
)

const (
	EventGuildDelete       = "GUILD_DELETE"
	EventGuildMemberAdd    = "GUILD_MEMBER_ADD"
	EventGuildMemberRemove = "GUILD_MEMBER_REMOVE"
	EventGuildMemberUpdate = "GUILD_MEMBER_UPDATE"
	EventGuildBanAdd       = "GUILD_BAN_ADD"
	EventGuildBanRemove    = "GUILD_BAN_REMOVE"
	EventGuildRoleUpdate   = "GUILD_ROLE_UPDATE"
	EventGuildRoleDelete   = "GUILD_ROLE_DELETE"
	EventChannelUpdate     = "CHANNEL_UPDATE"
	EventChannelDelete     = "CHANNEL_DELETE"
	EventMessageCreate     = "MESSAGE_CREATE"
	EventMessageDelete     = "MESSAGE_DELETE"
	EventPresenceUpdate    = "PRESENCE_UPDATE"
	EventTypingStart       = "TYPING_START"
	EventUserUpdate        = "USER_UPDATE"
	EventWebhooksUpdate    = "WEBHOOKS_UPDATE"
)

// Dispatcher is the delivery surface of the dispatch engine.
type Dispatcher interface {
	DispatchTo(ctx context.Context, userID, eventType string, payload session.Payload) bool
	DispatchToAllWithPermission(ctx context.Context, guildID, channelID string, capability permission.Capability, eventType string, payload session.Payload) bool
	DispatchInGuild(ctx context.Context, guildID, eventType string, payload session.Payload) bool
	DispatchInChannel(ctx context.Context, guildID, channelID, eventType string, payload session.Payload) bool
	DispatchInPrivateChannel(ctx context.Context, channelID, eventType string, payload session.Payload) bool
	PropagateProfileUpdate(ctx context.Context, userID string, profile session.Profile) bool
}

// Notifier translates completed mutations into event deliveries. Each method
// returns true when at least one step had a recipient set.
type Notifier struct {
	dispatcher Dispatcher
	now        func() time.Time
}

func NewNotifier(dispatcher Dispatcher) *Notifier {
	return &Notifier{dispatcher: dispatcher, now: time.Now}
}

func (n *Notifier) MemberJoined(ctx context.Context, guildID string, member session.Payload) bool {
	return n.dispatcher.DispatchInGuild(ctx, guildID, EventGuildMemberAdd, withGuild(member, guildID))
}

// MemberKicked tells the removed user the guild is gone, then tells the
// remaining members.
func (n *Notifier) MemberKicked(ctx context.Context, guildID, userID string) bool {
	toUser := n.dispatcher.DispatchTo(ctx, userID, EventGuildDelete, session.Payload{"id": guildID})
	toGuild := n.dispatcher.DispatchInGuild(ctx, guildID, EventGuildMemberRemove, memberRef(guildID, userID))
	slog.Debug("member kick notified", "guild_id", guildID, "user_id", userID, "user_reached", toUser, "guild_reached", toGuild)
	return toUser || toGuild
}

func (n *Notifier) MemberBanned(ctx context.Context, guildID, userID string) bool {
	toUser := n.dispatcher.DispatchTo(ctx, userID, EventGuildDelete, session.Payload{"id": guildID})
	toMods := n.dispatcher.DispatchToAllWithPermission(ctx, guildID, "", permission.BanMembers, EventGuildBanAdd, memberRef(guildID, userID))
	toGuild := n.dispatcher.DispatchInGuild(ctx, guildID, EventGuildMemberRemove, memberRef(guildID, userID))
	slog.Debug("member ban notified", "guild_id", guildID, "user_id", userID, "user_reached", toUser, "moderators_reached", toMods, "guild_reached", toGuild)
	return toUser || toMods || toGuild
}

func (n *Notifier) MemberUnbanned(ctx context.Context, guildID, userID string) bool {
	return n.dispatcher.DispatchToAllWithPermission(ctx, guildID, "", permission.BanMembers, EventGuildBanRemove, memberRef(guildID, userID))
}

func (n *Notifier) MemberUpdated(ctx context.Context, guildID string, member session.Payload) bool {
	return n.dispatcher.DispatchInGuild(ctx, guildID, EventGuildMemberUpdate, withGuild(member, guildID))
}

func (n *Notifier) RoleUpdated(ctx context.Context, guildID string, role session.Payload) bool {
	return n.dispatcher.DispatchInGuild(ctx, guildID, EventGuildRoleUpdate, session.Payload{"guild_id": guildID, "role": role})
}

func (n *Notifier) RoleDeleted(ctx context.Context, guildID, roleID string) bool {
	return n.dispatcher.DispatchInGuild(ctx, guildID, EventGuildRoleDelete, session.Payload{"guild_id": guildID, "role_id": roleID})
}

// PresenceChanged fans a status change out to every guild the user shares.
// All guilds are notified even if an earlier one had no recipients.
func (n *Notifier) PresenceChanged(ctx context.Context, userID, status string, guildIDs []string) bool {
	reached := false
	for _, guildID := range guildIDs {
		payload := session.Payload{
			"guild_id": guildID,
			"user":     session.Payload{"id": userID},
			"status":   status,
		}
		if n.dispatcher.DispatchInGuild(ctx, guildID, EventPresenceUpdate, payload) {
			reached = true
		}
	}
	return reached
}

func (n *Notifier) MessageCreated(ctx context.Context, guildID, channelID string, message session.Payload) bool {
	return n.toChannel(ctx, guildID, channelID, EventMessageCreate, withChannel(message, guildID, channelID))
}

func (n *Notifier) MessageDeleted(ctx context.Context, guildID, channelID, messageID string) bool {
	return n.toChannel(ctx, guildID, channelID, EventMessageDelete, withChannel(session.Payload{"id": messageID}, guildID, channelID))
}

func (n *Notifier) TypingStarted(ctx context.Context, guildID, channelID, userID string) bool {
	payload := withChannel(session.Payload{
		"user_id":   userID,
		"timestamp": n.now().Unix(),
	}, guildID, channelID)
	return n.toChannel(ctx, guildID, channelID, EventTypingStart, payload)
}

// ChannelUpdated goes to the whole guild, or to the recipients of a private
// channel when guildID is empty.
func (n *Notifier) ChannelUpdated(ctx context.Context, guildID, channelID string, channel session.Payload) bool {
	return n.toGuildOrPrivate(ctx, guildID, channelID, EventChannelUpdate, withChannelID(channel, guildID, channelID))
}

func (n *Notifier) ChannelDeleted(ctx context.Context, guildID, channelID string, channel session.Payload) bool {
	return n.toGuildOrPrivate(ctx, guildID, channelID, EventChannelDelete, withChannelID(channel, guildID, channelID))
}

func (n *Notifier) WebhooksUpdated(ctx context.Context, guildID, channelID string) bool {
	payload := session.Payload{"guild_id": guildID, "channel_id": channelID}
	return n.dispatcher.DispatchToAllWithPermission(ctx, guildID, channelID, permission.ManageWebhooks, EventWebhooksUpdate, payload)
}

func (n *Notifier) ProfileUpdated(ctx context.Context, userID string, profile session.Profile) bool {
	return n.dispatcher.PropagateProfileUpdate(ctx, userID, profile)
}

func (n *Notifier) toChannel(ctx context.Context, guildID, channelID, eventType string, payload session.Payload) bool {
	if guildID == "" {
		return n.dispatcher.DispatchInPrivateChannel(ctx, channelID, eventType, payload)
	}
	return n.dispatcher.DispatchInChannel(ctx, guildID, channelID, eventType, payload)
}

func (n *Notifier) toGuildOrPrivate(ctx context.Context, guildID, channelID, eventType string, payload session.Payload) bool {
	if guildID == "" {
		return n.dispatcher.DispatchInPrivateChannel(ctx, channelID, eventType, payload)
	}
	return n.dispatcher.DispatchInGuild(ctx, guildID, eventType, payload)
}

func memberRef(guildID, userID string) session.Payload {
	return session.Payload{"guild_id": guildID, "user": session.Payload{"id": userID}}
}

// withGuild and the helpers below copy the caller's payload before tagging it.
func withGuild(p session.Payload, guildID string) session.Payload {
	out := p.Clone()
	if out == nil {
		out = session.Payload{}
	}
	out["guild_id"] = guildID
	return out
}

func withChannel(p session.Payload, guildID, channelID string) session.Payload {
	out := p.Clone()
	if out == nil {
		out = session.Payload{}
	}
	out["channel_id"] = channelID
	if guildID != "" {
		out["guild_id"] = guildID
	}
	return out
}

func withChannelID(p session.Payload, guildID, channelID string) session.Payload {
	out := p.Clone()
	if out == nil {
		out = session.Payload{}
	}
	out["id"] = channelID
	if guildID != "" {
		out["guild_id"] = guildID
	}
	return out
}
