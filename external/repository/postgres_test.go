package repository

import (
	"strings"
	"testing"

	"github.com/foxseedlab/dispatchd/internal/snapshot"
)

func TestAttachOverwrites(t *testing.T) {
	channels := []snapshot.Channel{{ID: "general"}, {ID: "staff"}, {ID: "voice"}}
	rows := []overwriteRow{
		{ChannelID: "staff", Overwrite: snapshot.Overwrite{ID: "g1", Type: snapshot.OverwriteTypeRole, Deny: 1024}},
		{ChannelID: "general", Overwrite: snapshot.Overwrite{ID: "muted", Type: snapshot.OverwriteTypeRole, Deny: 2048}},
		{ChannelID: "staff", Overwrite: snapshot.Overwrite{ID: "alice", Type: snapshot.OverwriteTypeMember, Allow: 1024}},
	}

	got := attachOverwrites(channels, rows)

	if len(got) != 3 || got[0].ID != "general" || got[2].ID != "voice" {
		t.Fatalf("channel order changed: %+v", got)
	}
	if len(got[0].Overwrites) != 1 || got[0].Overwrites[0].ID != "muted" {
		t.Fatalf("unexpected general overwrites: %+v", got[0].Overwrites)
	}
	if len(got[1].Overwrites) != 2 || got[1].Overwrites[0].ID != "g1" || got[1].Overwrites[1].ID != "alice" {
		t.Fatalf("unexpected staff overwrites: %+v", got[1].Overwrites)
	}
	if len(got[2].Overwrites) != 0 {
		t.Fatalf("expected no overwrites on voice: %+v", got[2].Overwrites)
	}
}

func TestMigrationStatements_Idempotent(t *testing.T) {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("statement is not idempotent: %s", strings.SplitN(stmt, "\n", 2)[0])
		}
	}
}
