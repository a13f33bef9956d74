package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/dispatchd/internal/permission"
	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/foxseedlab/dispatchd/internal/snapshot"
	"github.com/foxseedlab/dispatchd/internal/webhook"
)

const alertTimeout = 5 * time.Second

// Engine decides which live sessions receive an event and in which shape.
// Every strategy fetches a fresh snapshot, iterates members and sessions
// sequentially, and isolates per-session delivery failures. A false result
// means nothing could be targeted, never that a delivery failed.
type Engine struct {
	sessions  session.Directory
	snapshots snapshot.Provider
	perms     permission.Evaluator
	builds    permission.Builds
	alerts    webhook.Sender
}

func NewEngine(sessions session.Directory, snapshots snapshot.Provider, perms permission.Evaluator, builds permission.Builds, alerts webhook.Sender) *Engine {
	return &Engine{
		sessions:  sessions,
		snapshots: snapshots,
		perms:     perms,
		builds:    builds,
		alerts:    alerts,
	}
}

// DispatchTo delivers the payload unmodified to every session of one user
// without any permission check.
func (e *Engine) DispatchTo(ctx context.Context, userID, eventType string, payload session.Payload) bool {
	sessions := e.sessions.SessionsOf(userID)
	if len(sessions) == 0 {
		slog.Debug("no live session for direct dispatch", "user_id", userID, "event_type", eventType)
		return false
	}
	for _, s := range sessions {
		e.deliver(s, eventType, payload)
	}
	return true
}

// DispatchToAllWithPermission delivers to guild members holding capability.
// The owner always qualifies. Other members are checked per session, and the
// first failing session stops delivery to that member's remaining sessions.
// When channelID is set the channel-level check is applied as well.
func (e *Engine) DispatchToAllWithPermission(ctx context.Context, guildID, channelID string, capability permission.Capability, eventType string, payload session.Payload) bool {
	guild, ok := e.fetchGuild(ctx, guildID, eventType)
	if !ok {
		return false
	}
	var channel *snapshot.Channel
	if channelID != "" {
		channel, ok = guild.Channel(channelID)
		if !ok {
			slog.Debug("channel not found in guild snapshot", "guild_id", guildID, "channel_id", channelID, "event_type", eventType)
			return false
		}
	}

	for _, member := range guild.Members {
		sessions := e.sessions.SessionsOf(member.UserID)
		if len(sessions) == 0 {
			continue
		}
		if guild.IsOwner(member.UserID) {
			for _, s := range sessions {
				e.deliver(s, eventType, payload)
			}
			continue
		}
		userID := member.UserID
		allow := func(s session.Session) bool {
			if !e.perms.HasGuildPermission(ctx, guild, userID, capability, s.ProtocolVersion()) {
				slog.Debug("guild permission denied", "guild_id", guild.ID, "user_id", userID, "session_id", s.ID(), "capability", capability.String())
				return false
			}
			if channel != nil && !e.perms.HasChannelPermission(ctx, channel, guild, userID, capability) {
				slog.Debug("channel permission denied", "guild_id", guild.ID, "channel_id", channel.ID, "user_id", userID, "session_id", s.ID(), "capability", capability.String())
				return false
			}
			return true
		}
		deliverWhilePermitted(e.versioned(ctx, sessions, eventType), allow, func(s session.Session) {
			e.deliver(s, eventType, payload)
		})
	}
	return true
}

// DispatchInGuild delivers to every session of every current member. Legacy
// sessions receive presence updates with a coerced status; sessions without a
// protocol version receive them untransformed and are reported.
func (e *Engine) DispatchInGuild(ctx context.Context, guildID, eventType string, payload session.Payload) bool {
	guild, ok := e.fetchGuild(ctx, guildID, eventType)
	if !ok {
		return false
	}
	for _, member := range guild.Members {
		for _, s := range e.sessions.SessionsOf(member.UserID) {
			if eventType == EventPresenceUpdate && s.ProtocolVersion() == "" {
				// Cannot be classified as legacy, so it gets the payload as is.
				e.reportUnversioned(ctx, webhook.SeverityWarning, s, eventType)
			}
			e.deliver(s, eventType, e.shapeFor(s, eventType, payload))
		}
	}
	return true
}

// DispatchInChannel delivers to every session of each member who can view
// the channel. The check is made once per member.
func (e *Engine) DispatchInChannel(ctx context.Context, guildID, channelID, eventType string, payload session.Payload) bool {
	guild, ok := e.fetchGuild(ctx, guildID, eventType)
	if !ok {
		return false
	}
	channel, ok := guild.Channel(channelID)
	if !ok {
		slog.Debug("channel not found in guild snapshot", "guild_id", guildID, "channel_id", channelID, "event_type", eventType)
		return false
	}
	for _, member := range guild.Members {
		if !e.perms.HasChannelPermission(ctx, channel, guild, member.UserID, permission.ViewChannel) {
			slog.Debug("channel read denied", "guild_id", guild.ID, "channel_id", channel.ID, "user_id", member.UserID)
			continue
		}
		for _, s := range e.sessions.SessionsOf(member.UserID) {
			e.deliver(s, eventType, payload)
		}
	}
	return true
}

// DispatchInPrivateChannel delivers to every session of every listed
// recipient. Being on the recipient list is the authorization.
func (e *Engine) DispatchInPrivateChannel(ctx context.Context, channelID, eventType string, payload session.Payload) bool {
	channel, err := e.snapshots.GetChannel(ctx, channelID)
	if err != nil {
		slog.Error("failed to load channel snapshot", "error", err, "channel_id", channelID, "event_type", eventType)
		return false
	}
	if channel == nil || !channel.HasRecipients() {
		slog.Debug("private channel missing or without recipients", "channel_id", channelID, "event_type", eventType)
		return false
	}
	for _, recipientID := range channel.RecipientIDs {
		for _, s := range e.sessions.SessionsOf(recipientID) {
			e.deliver(s, eventType, payload)
		}
	}
	return true
}

// PropagateProfileUpdate refreshes the cached profile on every session of
// the user and has each session announce it to its own connection. The
// profile ID is always forced to userID.
func (e *Engine) PropagateProfileUpdate(ctx context.Context, userID string, profile session.Profile) bool {
	sessions := e.sessions.SessionsOf(userID)
	if len(sessions) == 0 {
		slog.Debug("no live session for profile update", "user_id", userID)
		return false
	}
	if profile.ID != userID {
		slog.Warn("profile id does not match target user, overriding", "user_id", userID, "profile_id", profile.ID)
		profile.ID = userID
	}
	for _, s := range sessions {
		isolate(s, EventUserUpdate, func() error {
			s.SetProfile(profile)
			return s.EmitSelfUpdate()
		})
	}
	return true
}

func (e *Engine) fetchGuild(ctx context.Context, guildID, eventType string) (*snapshot.Guild, bool) {
	guild, err := e.snapshots.GetGuild(ctx, guildID)
	if err != nil {
		slog.Error("failed to load guild snapshot", "error", err, "guild_id", guildID, "event_type", eventType)
		return nil, false
	}
	if guild == nil {
		slog.Debug("guild not found", "guild_id", guildID, "event_type", eventType)
		return nil, false
	}
	return guild, true
}

// versioned drops sessions that never negotiated a protocol version and
// reports each one. The remaining sessions keep their order.
func (e *Engine) versioned(ctx context.Context, sessions []session.Session, eventType string) []session.Session {
	out := sessions[:0:0]
	for _, s := range sessions {
		if s.ProtocolVersion() == "" {
			e.reportUnversioned(ctx, webhook.SeverityCritical, s, eventType)
			continue
		}
		out = append(out, s)
	}
	return out
}

func (e *Engine) reportUnversioned(ctx context.Context, severity webhook.Severity, s session.Session, eventType string) {
	e.reportInvariant(ctx, severity, "session has no protocol version", map[string]string{
		"session_id": s.ID(),
		"user_id":    s.UserID(),
		"event_type": eventType,
	})
}

func (e *Engine) deliver(s session.Session, eventType string, payload session.Payload) bool {
	return isolate(s, eventType, func() error {
		return s.Push(eventType, payload)
	})
}

// isolate runs one session operation so that an error or panic stays local.
func isolate(s session.Session, eventType string, op func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("session delivery panicked", "session_id", s.ID(), "user_id", s.UserID(), "event_type", eventType, "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	if err := op(); err != nil {
		slog.Debug("session delivery failed", "session_id", s.ID(), "user_id", s.UserID(), "event_type", eventType, "error", err)
		return false
	}
	return true
}

func (e *Engine) reportInvariant(ctx context.Context, severity webhook.Severity, message string, attrs map[string]string) {
	args := make([]any, 0, len(attrs)*2)
	for k, v := range attrs {
		args = append(args, k, v)
	}
	slog.Error("dispatch invariant violated: "+message, args...)
	if e.alerts == nil {
		return
	}
	alert := webhook.Alert{
		Severity:   severity,
		Component:  "dispatch",
		Message:    message,
		Attributes: attrs,
		OccurredAt: time.Now().UTC(),
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
		defer cancel()
		if err := e.alerts.SendAlert(sendCtx, alert); err != nil {
			slog.Warn("failed to send diagnostic alert", "error", err, "message", message)
		}
	}()
}
