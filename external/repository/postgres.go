package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/foxseedlab/dispatchd/internal/snapshot"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// PostgresProvider builds guild snapshots and resolves gateway tokens from
// Postgres. Each call reads fresh rows.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

type overwriteRow struct {
	ChannelID string
	Overwrite snapshot.Overwrite
}

func (r *PostgresProvider) GetGuild(ctx context.Context, guildID string) (*snapshot.Guild, error) {
	var g snapshot.Guild
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, owner_id FROM guilds WHERE id = $1`,
		guildID).Scan(&g.ID, &g.Name, &g.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load guild: %w", err)
	}

	var (
		roles      []snapshot.Role
		members    []snapshot.Member
		channels   []snapshot.Channel
		overwrites []overwriteRow
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		roles, err = r.listRoles(egCtx, guildID)
		return err
	})
	eg.Go(func() (err error) {
		members, err = r.listMembers(egCtx, guildID)
		return err
	})
	eg.Go(func() (err error) {
		channels, err = r.listChannels(egCtx, guildID)
		return err
	})
	eg.Go(func() (err error) {
		overwrites, err = r.listGuildOverwrites(egCtx, guildID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load guild %s: %w", guildID, err)
	}

	g.Roles = roles
	g.Members = members
	g.Channels = attachOverwrites(channels, overwrites)
	return &g, nil
}

func (r *PostgresProvider) GetChannel(ctx context.Context, channelID string) (*snapshot.Channel, error) {
	var (
		c   snapshot.Channel
		typ int
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, COALESCE(guild_id, ''), name, type FROM channels WHERE id = $1`,
		channelID).Scan(&c.ID, &c.GuildID, &c.Name, &typ)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	c.Type = snapshot.ChannelType(typ)

	var overwrites []overwriteRow
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rows, err := r.pool.Query(egCtx,
			`SELECT user_id FROM channel_recipients WHERE channel_id = $1 ORDER BY seq`,
			channelID)
		if err != nil {
			return err
		}
		c.RecipientIDs, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	eg.Go(func() error {
		rows, err := r.pool.Query(egCtx,
			`SELECT channel_id, target_id, target_type, allow, deny
			 FROM permission_overwrites WHERE channel_id = $1
			 ORDER BY target_type, target_id`,
			channelID)
		if err != nil {
			return err
		}
		overwrites, err = pgx.CollectRows(rows, scanOverwrite)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load channel %s: %w", channelID, err)
	}

	c.Overwrites = lo.Map(overwrites, func(o overwriteRow, _ int) snapshot.Overwrite {
		return o.Overwrite
	})
	return &c, nil
}

func (r *PostgresProvider) LookupProfile(ctx context.Context, token string) (*session.Profile, error) {
	if token == "" {
		return nil, nil
	}
	var p session.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, discriminator, avatar, bot FROM users WHERE token = $1`,
		token).Scan(&p.ID, &p.Username, &p.Discriminator, &p.Avatar, &p.Bot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresProvider) listRoles(ctx context.Context, guildID string) ([]snapshot.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, permissions, position FROM roles
		 WHERE guild_id = $1 ORDER BY position, id`,
		guildID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Role, error) {
		var role snapshot.Role
		err := row.Scan(&role.ID, &role.Name, &role.Permissions, &role.Position)
		return role, err
	})
}

func (r *PostgresProvider) listMembers(ctx context.Context, guildID string) ([]snapshot.Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.user_id, m.nick,
		        COALESCE(array_agg(mr.role_id ORDER BY mr.role_id) FILTER (WHERE mr.role_id IS NOT NULL), '{}')
		 FROM guild_members m
		 LEFT JOIN member_roles mr ON mr.guild_id = m.guild_id AND mr.user_id = m.user_id
		 WHERE m.guild_id = $1
		 GROUP BY m.user_id, m.nick, m.joined_at
		 ORDER BY m.joined_at, m.user_id`,
		guildID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Member, error) {
		var m snapshot.Member
		err := row.Scan(&m.UserID, &m.Nick, &m.RoleIDs)
		return m, err
	})
}

func (r *PostgresProvider) listChannels(ctx context.Context, guildID string) ([]snapshot.Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, guild_id, name, type FROM channels
		 WHERE guild_id = $1 ORDER BY position, id`,
		guildID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Channel, error) {
		var (
			c   snapshot.Channel
			typ int
		)
		err := row.Scan(&c.ID, &c.GuildID, &c.Name, &typ)
		c.Type = snapshot.ChannelType(typ)
		return c, err
	})
}

func (r *PostgresProvider) listGuildOverwrites(ctx context.Context, guildID string) ([]overwriteRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.channel_id, o.target_id, o.target_type, o.allow, o.deny
		 FROM permission_overwrites o
		 JOIN channels c ON c.id = o.channel_id
		 WHERE c.guild_id = $1
		 ORDER BY o.channel_id, o.target_type, o.target_id`,
		guildID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanOverwrite)
}

func scanOverwrite(row pgx.CollectableRow) (overwriteRow, error) {
	var (
		o   overwriteRow
		typ int
	)
	err := row.Scan(&o.ChannelID, &o.Overwrite.ID, &typ, &o.Overwrite.Allow, &o.Overwrite.Deny)
	o.Overwrite.Type = snapshot.OverwriteType(typ)
	return o, err
}

// attachOverwrites distributes overwrite rows onto their channels, keeping
// both the channel order and the per-channel row order.
func attachOverwrites(channels []snapshot.Channel, rows []overwriteRow) []snapshot.Channel {
	byChannel := lo.GroupBy(rows, func(o overwriteRow) string { return o.ChannelID })
	for i := range channels {
		channels[i].Overwrites = lo.Map(byChannel[channels[i].ID], func(o overwriteRow, _ int) snapshot.Overwrite {
			return o.Overwrite
		})
	}
	return channels
}
