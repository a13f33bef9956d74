package permission

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/dispatchd/internal/snapshot"
)

// Capability is a permission bit using the Discord permission layout.
type Capability int64

const (
	KickMembers        = Capability(discordgo.PermissionKickMembers)
	BanMembers         = Capability(discordgo.PermissionBanMembers)
	Administrator      = Capability(discordgo.PermissionAdministrator)
	ManageChannels     = Capability(discordgo.PermissionManageChannels)
	ManageGuild        = Capability(discordgo.PermissionManageGuild)
	ViewAuditLog       = Capability(discordgo.PermissionViewAuditLogs)
	ViewChannel        = Capability(discordgo.PermissionViewChannel)
	SendMessages       = Capability(discordgo.PermissionSendMessages)
	ManageMessages     = Capability(discordgo.PermissionManageMessages)
	ReadMessageHistory = Capability(discordgo.PermissionReadMessageHistory)
	ManageNicknames    = Capability(discordgo.PermissionManageNicknames)
	ManageRoles        = Capability(discordgo.PermissionManageRoles)
	ManageWebhooks     = Capability(discordgo.PermissionManageWebhooks)
	ManageEvents       = Capability(discordgo.PermissionManageEvents)
	ManageThreads      = Capability(discordgo.PermissionManageThreads)
	ModerateMembers    = Capability(discordgo.PermissionModerateMembers)
)

var capabilityNames = map[Capability]string{
	KickMembers:        "KICK_MEMBERS",
	BanMembers:         "BAN_MEMBERS",
	Administrator:      "ADMINISTRATOR",
	ManageChannels:     "MANAGE_CHANNELS",
	ManageGuild:        "MANAGE_GUILD",
	ViewAuditLog:       "VIEW_AUDIT_LOG",
	ViewChannel:        "VIEW_CHANNEL",
	SendMessages:       "SEND_MESSAGES",
	ManageMessages:     "MANAGE_MESSAGES",
	ReadMessageHistory: "READ_MESSAGE_HISTORY",
	ManageNicknames:    "MANAGE_NICKNAMES",
	ManageRoles:        "MANAGE_ROLES",
	ManageWebhooks:     "MANAGE_WEBHOOKS",
	ManageEvents:       "MANAGE_EVENTS",
	ManageThreads:      "MANAGE_THREADS",
	ModerateMembers:    "MODERATE_MEMBERS",
}

var capabilitiesByName = func() map[string]Capability {
	m := make(map[string]Capability, len(capabilityNames))
	for c, name := range capabilityNames {
		m[name] = c
	}
	// Older clients call VIEW_CHANNEL by its earlier name.
	m["READ_MESSAGES"] = ViewChannel
	return m
}()

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", int64(c))
}

// Parse resolves an upper-snake capability name such as "KICK_MEMBERS".
func Parse(name string) (Capability, bool) {
	c, ok := capabilitiesByName[name]
	return c, ok
}

// In reports whether the capability bit is set in a permission bitfield.
func (c Capability) In(permissions int64) bool {
	return permissions&int64(c) == int64(c)
}

// Evaluator decides whether a user may exercise a capability. Guild-level
// answers may differ between sessions of one user because capability
// semantics depend on the negotiated protocol version.
type Evaluator interface {
	HasGuildPermission(ctx context.Context, guild *snapshot.Guild, userID string, c Capability, protocolVersion string) bool
	HasChannelPermission(ctx context.Context, channel *snapshot.Channel, guild *snapshot.Guild, userID string, c Capability) bool
}
