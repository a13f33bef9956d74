package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS guilds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL REFERENCES guilds(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		permissions BIGINT NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_roles_guild ON roles (guild_id, position)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		discriminator TEXT NOT NULL DEFAULT '0000',
		avatar TEXT NOT NULL DEFAULT '',
		bot BOOLEAN NOT NULL DEFAULT FALSE,
		token TEXT UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS guild_members (
		guild_id TEXT NOT NULL REFERENCES guilds(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		nick TEXT NOT NULL DEFAULT '',
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (guild_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_guild_members_order ON guild_members (guild_id, joined_at, user_id)`,
	`CREATE TABLE IF NOT EXISTS member_roles (
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role_id TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		PRIMARY KEY (guild_id, user_id, role_id),
		FOREIGN KEY (guild_id, user_id) REFERENCES guild_members(guild_id, user_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		guild_id TEXT REFERENCES guilds(id) ON DELETE CASCADE,
		name TEXT NOT NULL DEFAULT '',
		type SMALLINT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_guild ON channels (guild_id, position) WHERE guild_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS channel_recipients (
		seq BIGSERIAL PRIMARY KEY,
		channel_id TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		UNIQUE (channel_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS permission_overwrites (
		channel_id TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		target_id TEXT NOT NULL,
		target_type SMALLINT NOT NULL,
		allow BIGINT NOT NULL DEFAULT 0,
		deny BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (channel_id, target_type, target_id)
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
