package client

import (
	"context"

	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/types"
)

// Transport performs the network side of client actions. Implementations
// are called from tea.Cmd goroutines and must be safe for concurrent use.
type Transport interface {
	SendMessage(ctx context.Context, req SendMessageRequest) (uint64, error)
	UpdateMessageText(ctx context.Context, req UpdateMessageTextRequest) error
	DeleteMessage(ctx context.Context, req DeleteMessageRequest) error
	GetMessageHistory(ctx context.Context, req HistoryRequest) (HistoryPage, error)
	UpdateGuildInformation(ctx context.Context, req UpdateGuildInfoRequest) error
}

type SendMessageRequest struct {
	GuildID   uint64            `json:"guild_id"`
	ChannelID uint64            `json:"channel_id"`
	EchoID    uint64            `json:"echo_id"`
	Content   events.Content    `json:"content"`
	Overrides *events.Overrides `json:"overrides,omitempty"`
}

type UpdateMessageTextRequest struct {
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
	MessageID uint64 `json:"message_id"`
	Text      string `json:"text"`
}

type DeleteMessageRequest struct {
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
	MessageID uint64 `json:"message_id"`
}

// HistoryRequest asks for messages older than BeforeMessage. Zero asks for
// the latest page.
type HistoryRequest struct {
	GuildID       uint64 `json:"guild_id"`
	ChannelID     uint64 `json:"channel_id"`
	BeforeMessage uint64 `json:"before_message,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// HistoryPage is one page of history, oldest message first.
type HistoryPage struct {
	Messages   []events.Message `json:"messages"`
	ReachedTop bool             `json:"reached_top"`
}

// UpdateGuildInfoRequest changes a guild's name and/or picture. Nil fields
// are left unchanged.
type UpdateGuildInfoRequest struct {
	GuildID uint64          `json:"guild_id"`
	Name    *string         `json:"name,omitempty"`
	Picture *types.AssetRef `json:"-"`
}
