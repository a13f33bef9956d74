package discord

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/dispatchd/internal/snapshot"
)

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      "guild-1",
		Name:    "lab",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "guild-1", Name: "@everyone", Permissions: discordgo.PermissionViewChannel},
			{ID: "mod", Name: "mod", Permissions: discordgo.PermissionKickMembers, Position: 1},
		},
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: "owner"}},
			{User: &discordgo.User{ID: "alice", Username: "alice", Discriminator: "0001"}, Roles: []string{"mod"}, Nick: "al"},
			{User: &discordgo.User{ID: "bob"}},
		},
		Channels: []*discordgo.Channel{
			{
				ID:   "general",
				Name: "general",
				Type: discordgo.ChannelTypeGuildText,
				PermissionOverwrites: []*discordgo.PermissionOverwrite{
					{ID: "mod", Type: discordgo.PermissionOverwriteTypeRole, Allow: discordgo.PermissionManageMessages},
				},
			},
		},
	}
}

func TestGetGuild_ConvertsSnapshot(t *testing.T) {
	p := NewStateProvider()
	if err := p.PutGuild(testGuild()); err != nil {
		t.Fatalf("failed to add guild: %v", err)
	}

	g, err := p.GetGuild(context.Background(), "guild-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g == nil || g.OwnerID != "owner" {
		t.Fatalf("unexpected guild: %+v", g)
	}
	if len(g.Members) != 3 || g.Members[1].UserID != "alice" || g.Members[1].RoleIDs[0] != "mod" {
		t.Fatalf("unexpected members: %+v", g.Members)
	}
	ch, ok := g.Channel("general")
	if !ok {
		t.Fatal("expected general channel")
	}
	if ch.GuildID != "guild-1" || len(ch.Overwrites) != 1 || ch.Overwrites[0].Type != snapshot.OverwriteTypeRole {
		t.Fatalf("unexpected channel: %+v", ch)
	}
	role, ok := g.Role("mod")
	if !ok || role.Permissions != discordgo.PermissionKickMembers {
		t.Fatalf("unexpected role: %+v", role)
	}
}

func TestGetGuild_Unknown(t *testing.T) {
	p := NewStateProvider()
	g, err := p.GetGuild(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != nil {
		t.Fatalf("expected nil guild, got %+v", g)
	}
}

func TestGetGuild_SnapshotIsDetached(t *testing.T) {
	p := NewStateProvider()
	if err := p.PutGuild(testGuild()); err != nil {
		t.Fatalf("failed to add guild: %v", err)
	}
	before, _ := p.GetGuild(context.Background(), "guild-1")

	if err := p.RemoveMember("guild-1", "bob"); err != nil {
		t.Fatalf("failed to remove member: %v", err)
	}
	after, _ := p.GetGuild(context.Background(), "guild-1")

	if len(before.Members) != 3 {
		t.Fatalf("earlier snapshot changed: %+v", before.Members)
	}
	if _, ok := after.Member("bob"); ok {
		t.Fatal("removed member still present in fresh snapshot")
	}
}

func TestAddMember_AppearsInSnapshot(t *testing.T) {
	p := NewStateProvider()
	if err := p.PutGuild(testGuild()); err != nil {
		t.Fatalf("failed to add guild: %v", err)
	}
	if err := p.AddMember("guild-1", &discordgo.Member{User: &discordgo.User{ID: "carol"}}); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}

	g, _ := p.GetGuild(context.Background(), "guild-1")
	if _, ok := g.Member("carol"); !ok {
		t.Fatalf("expected carol in snapshot: %+v", g.Members)
	}
}

func TestGetChannel_PrivateChannel(t *testing.T) {
	p := NewStateProvider()
	err := p.PutPrivateChannel(&discordgo.Channel{
		ID:         "dm-1",
		Type:       discordgo.ChannelTypeDM,
		Recipients: []*discordgo.User{{ID: "alice"}, {ID: "bob"}},
	})
	if err != nil {
		t.Fatalf("failed to add channel: %v", err)
	}

	ch, err := p.GetChannel(context.Background(), "dm-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch == nil || !ch.IsPrivate() || len(ch.RecipientIDs) != 2 || ch.RecipientIDs[1] != "bob" {
		t.Fatalf("unexpected channel: %+v", ch)
	}

	missing, err := p.GetChannel(context.Background(), "dm-2")
	if err != nil || missing != nil {
		t.Fatalf("expected nil channel, got %+v (err %v)", missing, err)
	}
}

func TestPutPrivateChannel_RejectsGuildChannel(t *testing.T) {
	p := NewStateProvider()
	if err := p.PutPrivateChannel(&discordgo.Channel{ID: "c", Type: discordgo.ChannelTypeGuildText}); err == nil {
		t.Fatal("expected error for guild channel")
	}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `{
		"guilds": [{
			"id": "g1",
			"owner_id": "owner",
			"roles": [{"id": "g1", "name": "@everyone", "permissions": "1024"}],
			"members": [{"user": {"id": "owner"}, "roles": []}, {"user": {"id": "alice"}, "roles": ["g1"]}],
			"channels": [{"id": "general", "type": 0}]
		}],
		"private_channels": [{"id": "dm", "type": 1, "recipients": [{"id": "alice"}, {"id": "owner"}]}]
	}`
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatalf("failed to write seed: %v", err)
	}

	p := NewStateProvider()
	if err := p.LoadSeed(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, _ := p.GetGuild(context.Background(), "g1")
	if g == nil || len(g.Members) != 2 || g.Roles[0].Permissions != 1024 {
		t.Fatalf("unexpected seeded guild: %+v", g)
	}
	dm, _ := p.GetChannel(context.Background(), "dm")
	if dm == nil || len(dm.RecipientIDs) != 2 {
		t.Fatalf("unexpected seeded channel: %+v", dm)
	}
}

func TestLoadSeed_MissingFile(t *testing.T) {
	p := NewStateProvider()
	if err := p.LoadSeed(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing seed")
	}
}

func TestLookupProfile(t *testing.T) {
	p := NewStateProvider()
	if err := p.PutGuild(testGuild()); err != nil {
		t.Fatalf("failed to add guild: %v", err)
	}
	if err := p.PutPrivateChannel(&discordgo.Channel{
		ID:         "dm-1",
		Type:       discordgo.ChannelTypeDM,
		Recipients: []*discordgo.User{{ID: "zed", Username: "zed"}},
	}); err != nil {
		t.Fatalf("failed to add channel: %v", err)
	}
	ctx := context.Background()

	prof, err := p.LookupProfile(ctx, "alice")
	if err != nil || prof == nil || prof.Username != "alice" || prof.Discriminator != "0001" {
		t.Fatalf("unexpected profile: %+v (err %v)", prof, err)
	}
	prof, err = p.LookupProfile(ctx, "zed")
	if err != nil || prof == nil || prof.ID != "zed" {
		t.Fatalf("unexpected recipient profile: %+v (err %v)", prof, err)
	}
	prof, err = p.LookupProfile(ctx, "nobody")
	if err != nil || prof != nil {
		t.Fatalf("expected unknown token, got %+v (err %v)", prof, err)
	}
}
