package dispatch

import (
	"context"
	"sync"

	"github.com/foxseedlab/dispatchd/internal/permission"
	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/foxseedlab/dispatchd/internal/session/sessiontest"
	"github.com/foxseedlab/dispatchd/internal/snapshot"
	"github.com/foxseedlab/dispatchd/internal/webhook"
)

const (
	legacyBuild  = "november_16_2015"
	currentBuild = "october_5_2017"
)

type mockSnapshots struct {
	guilds   map[string]*snapshot.Guild
	channels map[string]*snapshot.Channel
	err      error
	calls    int
}

func (m *mockSnapshots) GetGuild(_ context.Context, guildID string) (*snapshot.Guild, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.guilds[guildID], nil
}

func (m *mockSnapshots) GetChannel(_ context.Context, channelID string) (*snapshot.Channel, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.channels[channelID], nil
}

type guildCheck struct {
	userID  string
	version string
}

type mockEvaluator struct {
	mu           sync.Mutex
	guildAllow   func(userID, version string) bool
	channelAllow func(channelID, userID string) bool
	guildCalls   []guildCheck
	channelCalls []string
}

func (m *mockEvaluator) HasGuildPermission(_ context.Context, _ *snapshot.Guild, userID string, _ permission.Capability, protocolVersion string) bool {
	m.mu.Lock()
	m.guildCalls = append(m.guildCalls, guildCheck{userID: userID, version: protocolVersion})
	m.mu.Unlock()
	if m.guildAllow == nil {
		return true
	}
	return m.guildAllow(userID, protocolVersion)
}

func (m *mockEvaluator) HasChannelPermission(_ context.Context, channel *snapshot.Channel, _ *snapshot.Guild, userID string, _ permission.Capability) bool {
	m.mu.Lock()
	m.channelCalls = append(m.channelCalls, userID)
	m.mu.Unlock()
	if m.channelAllow == nil {
		return true
	}
	return m.channelAllow(channel.ID, userID)
}

func (m *mockEvaluator) guildChecksFor(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.guildCalls {
		if c.userID == userID {
			n++
		}
	}
	return n
}

type mockAlerts struct {
	sent chan webhook.Alert
}

func newMockAlerts() *mockAlerts {
	return &mockAlerts{sent: make(chan webhook.Alert, 16)}
}

func (m *mockAlerts) SendAlert(_ context.Context, alert webhook.Alert) error {
	m.sent <- alert
	return nil
}

type fixture struct {
	registry  *session.Registry
	snapshots *mockSnapshots
	perms     *mockEvaluator
	alerts    *mockAlerts
	engine    *Engine
}

func newFixture(guilds ...*snapshot.Guild) *fixture {
	f := &fixture{
		registry: session.NewRegistry(),
		snapshots: &mockSnapshots{
			guilds:   make(map[string]*snapshot.Guild),
			channels: make(map[string]*snapshot.Channel),
		},
		perms:  &mockEvaluator{},
		alerts: newMockAlerts(),
	}
	for _, g := range guilds {
		f.snapshots.guilds[g.ID] = g
	}
	f.engine = NewEngine(f.registry, f.snapshots, f.perms, permission.NewBuilds([]string{"2015"}), f.alerts)
	return f
}

func (f *fixture) connect(id, userID, version string) *sessiontest.Recorder {
	r := sessiontest.New(id, userID, version)
	f.registry.Register(r)
	return r
}

// guildG is owner O plus members A and B.
func guildG() *snapshot.Guild {
	return &snapshot.Guild{
		ID:      "G",
		OwnerID: "O",
		Roles:   []snapshot.Role{{ID: "G", Name: "@everyone"}},
		Members: []snapshot.Member{
			{UserID: "O"},
			{UserID: "A"},
			{UserID: "B"},
		},
		Channels: []snapshot.Channel{
			{ID: "general", GuildID: "G", Type: snapshot.ChannelTypeGuildText},
			{ID: "staff", GuildID: "G", Type: snapshot.ChannelTypeGuildText},
		},
	}
}

func lastPayload(r *sessiontest.Recorder) func() (session.Payload, bool) {
	return func() (session.Payload, bool) {
		d, ok := r.Last()
		return d.Payload, ok
	}
}
