package client

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/metrics"
	"github.com/adamavenir/chatmirror/internal/types"
)

// HistoryMsg carries a fetched history page back into the update loop.
type HistoryMsg struct {
	GuildID    uint64
	ChannelID  uint64
	Messages   []events.Message
	ReachedTop bool
	Err        error
}

// ProcessHistory prepends an older page to a channel. The page must be
// oldest first and older than everything already held. Messages the channel
// already has are skipped.
func (c *Client) ProcessHistory(guildID, channelID uint64, page []events.Message, reachedTop bool) []PostProcess {
	channel := c.Channel(guildID, channelID)
	if channel == nil {
		return nil
	}

	var (
		post      []PostProcess
		overrides []PostProcess
		older     = make([]types.Message, 0, len(page))
	)
	for _, wire := range page {
		msg := convertMessage(wire)
		if channel.IndexOf(msg.ID) >= 0 {
			continue
		}
		post = contentThumbnails(post, msg)
		overrides = overrideThumbnail(overrides, msg)
		older = append(older, msg)
	}
	post = append(post, overrides...)

	// Keep the cursor on the same message; a first page starts at the newest.
	held := len(channel.Messages)
	channel.Messages = append(older, channel.Messages...)
	if held > 0 {
		channel.LookingAtMessage += len(older)
	} else {
		channel.LookingAtMessage = max(len(channel.Messages)-1, 0)
	}
	channel.ReachedTop = reachedTop
	channel.LoadingMessagesHistory = false
	metrics.HistoryPagesMerged.Inc()
	return post
}

// FetchHistoryCmd requests the page before the oldest confirmed message of a
// channel. It returns nil while a fetch is already in flight or once the
// channel has reached its first message.
func (c *Client) FetchHistoryCmd(ctx context.Context, guildID, channelID uint64) tea.Cmd {
	channel := c.Channel(guildID, channelID)
	if channel == nil || channel.LoadingMessagesHistory || channel.ReachedTop || c.transport == nil {
		return nil
	}
	before, _ := channel.OldestAcknowledged()
	channel.LoadingMessagesHistory = true

	transport := c.transport
	req := HistoryRequest{GuildID: guildID, ChannelID: channelID, BeforeMessage: before, Limit: c.historyPageSize}
	return func() tea.Msg {
		page, err := transport.GetMessageHistory(ctx, req)
		if err != nil {
			return HistoryMsg{
				GuildID:   guildID,
				ChannelID: channelID,
				Err:       actionError(ActionHistory, guildID, channelID, 0, err),
			}
		}
		return HistoryMsg{GuildID: guildID, ChannelID: channelID, Messages: page.Messages, ReachedTop: page.ReachedTop}
	}
}

// historyFailed clears the in-flight flag after a failed fetch.
func (c *Client) historyFailed(guildID, channelID uint64) {
	if channel := c.Channel(guildID, channelID); channel != nil {
		channel.LoadingMessagesHistory = false
	}
}
