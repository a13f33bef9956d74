package permission

import (
	"context"

	"github.com/foxseedlab/dispatchd/internal/permission"
	"github.com/foxseedlab/dispatchd/internal/snapshot"
	"github.com/samber/lo"
)

// Capabilities that legacy clients have no notion of. They are never granted
// to a legacy build, not even through Administrator.
var modernOnly = []permission.Capability{
	permission.ModerateMembers,
	permission.ManageThreads,
	permission.ManageEvents,
}

// RoleEvaluator resolves permissions from guild roles and channel overwrites
// the way Discord does.
type RoleEvaluator struct {
	builds permission.Builds
}

func NewRoleEvaluator(builds permission.Builds) permission.Evaluator {
	return &RoleEvaluator{builds: builds}
}

func (e *RoleEvaluator) HasGuildPermission(_ context.Context, guild *snapshot.Guild, userID string, c permission.Capability, protocolVersion string) bool {
	if guild == nil || userID == "" {
		return false
	}
	if e.builds.IsLegacy(protocolVersion) && lo.Contains(modernOnly, c) {
		return false
	}
	if guild.IsOwner(userID) {
		return true
	}
	member, ok := guild.Member(userID)
	if !ok {
		return false
	}
	perms := basePermissions(guild, member)
	if permission.Administrator.In(perms) {
		return true
	}
	return c.In(perms)
}

func (e *RoleEvaluator) HasChannelPermission(_ context.Context, channel *snapshot.Channel, guild *snapshot.Guild, userID string, c permission.Capability) bool {
	if channel == nil || guild == nil || userID == "" {
		return false
	}
	if guild.IsOwner(userID) {
		return true
	}
	member, ok := guild.Member(userID)
	if !ok {
		return false
	}
	perms := basePermissions(guild, member)
	if permission.Administrator.In(perms) {
		return true
	}
	perms = applyOverwrites(perms, channel, guild.ID, member)
	// Without VIEW_CHANNEL nothing else in the channel applies.
	if !permission.ViewChannel.In(perms) {
		return false
	}
	return c.In(perms)
}

func basePermissions(guild *snapshot.Guild, member *snapshot.Member) int64 {
	var perms int64
	if everyone, ok := guild.EveryoneRole(); ok {
		perms |= everyone.Permissions
	}
	for _, roleID := range member.RoleIDs {
		if role, ok := guild.Role(roleID); ok {
			perms |= role.Permissions
		}
	}
	return perms
}

// applyOverwrites layers @everyone, then the member's roles combined, then
// the member's own overwrite.
func applyOverwrites(perms int64, channel *snapshot.Channel, guildID string, member *snapshot.Member) int64 {
	for _, ow := range channel.Overwrites {
		if ow.Type == snapshot.OverwriteTypeRole && ow.ID == guildID {
			perms &^= ow.Deny
			perms |= ow.Allow
		}
	}

	var allow, deny int64
	for _, ow := range channel.Overwrites {
		if ow.Type == snapshot.OverwriteTypeRole && ow.ID != guildID && lo.Contains(member.RoleIDs, ow.ID) {
			allow |= ow.Allow
			deny |= ow.Deny
		}
	}
	perms &^= deny
	perms |= allow

	for _, ow := range channel.Overwrites {
		if ow.Type == snapshot.OverwriteTypeMember && ow.ID == member.UserID {
			perms &^= ow.Deny
			perms |= ow.Allow
		}
	}
	return perms
}
