package dispatch

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/samber/lo"
)

const (
	EventPresenceUpdate = "PRESENCE_UPDATE"
	EventUserUpdate     = "USER_UPDATE"

	statusField = "status"
)

// Legacy clients only know online and offline.
var legacyOfflineStatuses = []discordgo.Status{
	discordgo.StatusIdle,
	discordgo.StatusOffline,
	discordgo.StatusInvisible,
	discordgo.StatusDoNotDisturb,
}

func legacyStatus(status string) string {
	if lo.Contains(legacyOfflineStatuses, discordgo.Status(status)) {
		return string(discordgo.StatusOffline)
	}
	return string(discordgo.StatusOnline)
}

func statusOf(payload session.Payload) string {
	switch v := payload[statusField].(type) {
	case nil:
		return ""
	case string:
		return v
	case discordgo.Status:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// legacyPresence returns a copy of payload with the status coerced for a
// legacy client. payload itself is left untouched.
func legacyPresence(payload session.Payload) session.Payload {
	out := payload.Clone()
	if out == nil {
		out = session.Payload{}
	}
	out[statusField] = legacyStatus(statusOf(payload))
	return out
}

// shapeFor returns the payload a given session should receive.
func (e *Engine) shapeFor(s session.Session, eventType string, payload session.Payload) session.Payload {
	if eventType == EventPresenceUpdate && e.builds.IsLegacy(s.ProtocolVersion()) {
		return legacyPresence(payload)
	}
	return payload
}
