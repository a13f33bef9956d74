package snapshot

type ChannelType int

// Values match the Discord wire protocol.
const (
	ChannelTypeGuildText     ChannelType = 0
	ChannelTypeDM            ChannelType = 1
	ChannelTypeGuildVoice    ChannelType = 2
	ChannelTypeGroupDM       ChannelType = 3
	ChannelTypeGuildCategory ChannelType = 4
	ChannelTypeGuildNews     ChannelType = 5
)

type OverwriteType int

const (
	OverwriteTypeRole   OverwriteType = 0
	OverwriteTypeMember OverwriteType = 1
)

type Guild struct {
	ID       string
	Name     string
	OwnerID  string
	Roles    []Role
	Members  []Member
	Channels []Channel
}

type Member struct {
	UserID  string
	Nick    string
	RoleIDs []string
}

type Role struct {
	ID          string
	Name        string
	Permissions int64
	Position    int
}

type Channel struct {
	ID           string
	GuildID      string
	Name         string
	Type         ChannelType
	RecipientIDs []string
	Overwrites   []Overwrite
}

type Overwrite struct {
	ID    string
	Type  OverwriteType
	Allow int64
	Deny  int64
}

func (g *Guild) IsOwner(userID string) bool {
	return g.OwnerID != "" && g.OwnerID == userID
}

func (g *Guild) Channel(channelID string) (*Channel, bool) {
	for i := range g.Channels {
		if g.Channels[i].ID == channelID {
			return &g.Channels[i], true
		}
	}
	return nil, false
}

func (g *Guild) Member(userID string) (*Member, bool) {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i], true
		}
	}
	return nil, false
}

func (g *Guild) Role(roleID string) (*Role, bool) {
	for i := range g.Roles {
		if g.Roles[i].ID == roleID {
			return &g.Roles[i], true
		}
	}
	return nil, false
}

// EveryoneRole is the implicit role whose ID equals the guild ID.
func (g *Guild) EveryoneRole() (*Role, bool) {
	return g.Role(g.ID)
}

func (c *Channel) IsPrivate() bool {
	return c.Type == ChannelTypeDM || c.Type == ChannelTypeGroupDM
}

func (c *Channel) HasRecipients() bool {
	return len(c.RecipientIDs) > 0
}
