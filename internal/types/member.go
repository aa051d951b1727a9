package types

import "time"

// UserStatus represents a member's presence.
type UserStatus int

const (
	StatusOffline UserStatus = iota
	StatusOnline
	StatusIdle
	StatusDoNotDisturb
	StatusStreaming
)

// UserStatusFromWire maps a wire value to a status. Unknown values read as offline.
func UserStatusFromWire(value int32) UserStatus {
	status := UserStatus(value)
	if status < StatusOffline || status > StatusStreaming {
		return StatusOffline
	}
	return status
}

func (s UserStatus) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusIdle:
		return "idle"
	case StatusDoNotDisturb:
		return "dnd"
	case StatusStreaming:
		return "streaming"
	default:
		return "offline"
	}
}

// Member is a user profile. Members are global; guilds only hold their ids.
type Member struct {
	Username string     `json:"username"`
	Status   UserStatus `json:"status"`
	Avatar   *AssetRef  `json:"avatar,omitempty"`
	Typing   *Typing    `json:"typing,omitempty"`
	IsBot    bool       `json:"is_bot,omitempty"`
}

// Typing records where and when a member last started typing.
type Typing struct {
	GuildID   uint64    `json:"guild_id"`
	ChannelID uint64    `json:"channel_id"`
	At        time.Time `json:"at"`
}

// IsTypingIn reports whether the member's typing indicator for the channel is
// younger than ttl.
func (m *Member) IsTypingIn(guildID, channelID uint64, now time.Time, ttl time.Duration) bool {
	if m.Typing == nil {
		return false
	}
	if m.Typing.GuildID != guildID || m.Typing.ChannelID != channelID {
		return false
	}
	return now.Sub(m.Typing.At) < ttl
}
