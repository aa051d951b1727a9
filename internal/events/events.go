// Package events holds the decoded inbound events the client applies to its
// local state.
package events

import "encoding/json"

// Event is one inbound event. The set of implementations is closed; Unknown
// stands in for anything the decoder does not recognise.
type Event interface {
	Kind() string
	isEvent()
}

const (
	KindMessageSent          = "message_sent"
	KindMessageDeleted       = "message_deleted"
	KindMessageEdited        = "message_edited"
	KindChannelCreated       = "channel_created"
	KindChannelUpdated       = "channel_updated"
	KindChannelDeleted       = "channel_deleted"
	KindTyping               = "typing"
	KindMemberJoined         = "member_joined"
	KindMemberLeft           = "member_left"
	KindProfileUpdated       = "profile_updated"
	KindGuildAddedToList     = "guild_added_to_list"
	KindGuildRemovedFromList = "guild_removed_from_list"
	KindGuildDeleted         = "guild_deleted"
	KindGuildUpdated         = "guild_updated"
)

// MessageSent is the server echo of a new message. EchoID carries the
// sender's transaction id when the message originated from this client.
type MessageSent struct {
	EchoID  uint64   `json:"echo_id,omitempty"`
	Message *Message `json:"message"`
}

type MessageDeleted struct {
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
	MessageID uint64 `json:"message_id"`
}

type MessageEdited struct {
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
	MessageID uint64 `json:"message_id"`
	Content   string `json:"content"`
	EditedAt  int64  `json:"edited_at,omitempty"`
}

type ChannelCreated struct {
	GuildID    uint64 `json:"guild_id"`
	ChannelID  uint64 `json:"channel_id"`
	Name       string `json:"name"`
	PreviousID uint64 `json:"previous_id,omitempty"`
	NextID     uint64 `json:"next_id,omitempty"`
	IsCategory bool   `json:"is_category,omitempty"`
}

// ChannelUpdated carries partial updates; fields apply only when their
// Update flag is set.
type ChannelUpdated struct {
	GuildID     uint64 `json:"guild_id"`
	ChannelID   uint64 `json:"channel_id"`
	Name        string `json:"name,omitempty"`
	UpdateName  bool   `json:"update_name,omitempty"`
	PreviousID  uint64 `json:"previous_id,omitempty"`
	NextID      uint64 `json:"next_id,omitempty"`
	UpdateOrder bool   `json:"update_order,omitempty"`
}

type ChannelDeleted struct {
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
}

type Typing struct {
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
	UserID    uint64 `json:"user_id"`
}

type MemberJoined struct {
	GuildID  uint64 `json:"guild_id"`
	MemberID uint64 `json:"member_id"`
}

type MemberLeft struct {
	GuildID     uint64 `json:"guild_id"`
	MemberID    uint64 `json:"member_id"`
	LeaveReason int32  `json:"leave_reason,omitempty"`
}

// ProfileUpdated carries partial updates; fields apply only when their
// Update flag is set.
type ProfileUpdated struct {
	UserID         uint64 `json:"user_id"`
	NewUsername    string `json:"new_username,omitempty"`
	UpdateUsername bool   `json:"update_username,omitempty"`
	NewAvatar      string `json:"new_avatar,omitempty"`
	UpdateAvatar   bool   `json:"update_avatar,omitempty"`
	NewStatus      int32  `json:"new_status,omitempty"`
	UpdateStatus   bool   `json:"update_status,omitempty"`
	IsBot          bool   `json:"is_bot,omitempty"`
	UpdateIsBot    bool   `json:"update_is_bot,omitempty"`
}

type GuildAddedToList struct {
	GuildID    uint64 `json:"guild_id"`
	Homeserver string `json:"homeserver,omitempty"`
}

type GuildRemovedFromList struct {
	GuildID    uint64 `json:"guild_id"`
	Homeserver string `json:"homeserver,omitempty"`
}

type GuildDeleted struct {
	GuildID uint64 `json:"guild_id"`
}

// GuildUpdated carries partial updates; fields apply only when their Update
// flag is set.
type GuildUpdated struct {
	GuildID       uint64 `json:"guild_id"`
	Name          string `json:"name,omitempty"`
	UpdateName    bool   `json:"update_name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	UpdatePicture bool   `json:"update_picture,omitempty"`
}

// Unknown is an event whose type the decoder does not recognise.
type Unknown struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (MessageSent) Kind() string          { return KindMessageSent }
func (MessageDeleted) Kind() string       { return KindMessageDeleted }
func (MessageEdited) Kind() string        { return KindMessageEdited }
func (ChannelCreated) Kind() string       { return KindChannelCreated }
func (ChannelUpdated) Kind() string       { return KindChannelUpdated }
func (ChannelDeleted) Kind() string       { return KindChannelDeleted }
func (Typing) Kind() string               { return KindTyping }
func (MemberJoined) Kind() string         { return KindMemberJoined }
func (MemberLeft) Kind() string           { return KindMemberLeft }
func (ProfileUpdated) Kind() string       { return KindProfileUpdated }
func (GuildAddedToList) Kind() string     { return KindGuildAddedToList }
func (GuildRemovedFromList) Kind() string { return KindGuildRemovedFromList }
func (GuildDeleted) Kind() string         { return KindGuildDeleted }
func (GuildUpdated) Kind() string         { return KindGuildUpdated }
func (u Unknown) Kind() string            { return u.Type }

func (MessageSent) isEvent()          {}
func (MessageDeleted) isEvent()       {}
func (MessageEdited) isEvent()        {}
func (ChannelCreated) isEvent()       {}
func (ChannelUpdated) isEvent()       {}
func (ChannelDeleted) isEvent()       {}
func (Typing) isEvent()               {}
func (MemberJoined) isEvent()         {}
func (MemberLeft) isEvent()           {}
func (ProfileUpdated) isEvent()       {}
func (GuildAddedToList) isEvent()     {}
func (GuildRemovedFromList) isEvent() {}
func (GuildDeleted) isEvent()         {}
func (GuildUpdated) isEvent()         {}
func (Unknown) isEvent()              {}
