package client

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adamavenir/chatmirror/internal/metrics"
	"github.com/adamavenir/chatmirror/internal/types"
)

// SendMessageMsg asks for a pending message to be (re)dispatched after
// RetryAfter. Failed sends come back as this message with a longer delay.
type SendMessageMsg struct {
	GuildID    uint64
	ChannelID  uint64
	RetryAfter time.Duration
	Message    types.Message
}

// MessageSentMsg reports that the server accepted a pending message.
type MessageSentMsg struct {
	GuildID       uint64
	ChannelID     uint64
	TransactionID uint64
	MessageID     uint64
}

// SendCancelledMsg reports that a pending message was abandoned because its
// context ended before it could be dispatched. The pending copy stays.
type SendCancelledMsg struct {
	GuildID       uint64
	ChannelID     uint64
	TransactionID uint64
}

// MessageEditedMsg reports the outcome of an edit request.
type MessageEditedMsg struct {
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
	Err       error
}

// MessageDeletedMsg reports the outcome of a delete request.
type MessageDeletedMsg struct {
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
	Err       error
}

// GuildInfoUpdatedMsg reports the outcome of a guild information update.
type GuildInfoUpdatedMsg struct {
	GuildID uint64
	Err     error
}

// SubmitMessage appends a pending copy of a new message to the channel and
// returns its transaction id with the command that dispatches it. It returns
// (0, nil) when the channel is not held locally.
func (c *Client) SubmitMessage(ctx context.Context, guildID, channelID uint64, content types.Content, overrides *types.Overrides) (uint64, tea.Cmd) {
	channel := c.Channel(guildID, channelID)
	if channel == nil {
		return 0, nil
	}
	transactionID := newTransactionID(channel)
	msg := types.Message{
		ID:        types.Unack(transactionID),
		Sender:    c.UserID,
		Content:   content,
		Overrides: overrides,
		CreatedAt: c.now().UTC(),
	}
	return transactionID, c.SendMessageCmd(ctx, guildID, channelID, 0, msg)
}

// SendMessageCmd dispatches a pending message after retryAfter. The first
// attempt (retryAfter == 0) also inserts the pending copy into the channel;
// a retry whose pending copy is gone returns nil. A failed attempt yields a
// SendMessageMsg whose delay is one retry step longer, a successful one a
// MessageSentMsg, and a canceled context a SendCancelledMsg.
func (c *Client) SendMessageCmd(ctx context.Context, guildID, channelID uint64, retryAfter time.Duration, msg types.Message) tea.Cmd {
	channel := c.Channel(guildID, channelID)
	if channel == nil {
		return nil
	}
	transactionID, ok := msg.ID.TransactionID()
	if !ok {
		return nil
	}
	if channel.IndexOf(msg.ID) < 0 {
		if retryAfter > 0 {
			c.logger.Debug().
				Uint64("guild_id", guildID).
				Uint64("channel_id", channelID).
				Uint64("transaction_id", transactionID).
				Msg("pending message already confirmed, dropping retry")
			return nil
		}
		channel.Messages = append(channel.Messages, msg)
	}
	if c.transport == nil {
		return nil
	}

	transport := c.transport
	step := c.retryStep
	logger := c.logger
	req := SendMessageRequest{
		GuildID:   guildID,
		ChannelID: channelID,
		EchoID:    transactionID,
		Content:   wireContent(msg.Content),
		Overrides: wireOverrides(msg.Overrides),
	}
	return func() tea.Msg {
		if err := sleepContext(ctx, retryAfter); err != nil {
			return SendCancelledMsg{GuildID: guildID, ChannelID: channelID, TransactionID: transactionID}
		}
		messageID, err := transport.SendMessage(ctx, req)
		if err != nil {
			next := retryAfter + step
			logger.Error().Err(err).
				Uint64("guild_id", guildID).
				Uint64("channel_id", channelID).
				Uint64("transaction_id", transactionID).
				Dur("retry_after", next).
				Msg("send message failed")
			metrics.SendRetries.Inc()
			return SendMessageMsg{GuildID: guildID, ChannelID: channelID, RetryAfter: next, Message: msg}
		}
		return MessageSentMsg{GuildID: guildID, ChannelID: channelID, TransactionID: transactionID, MessageID: messageID}
	}
}

// AckMessage promotes a pending message to its server id. If the server echo
// already placed the confirmed copy, the pending one is dropped instead.
// Completions for messages no longer pending change nothing.
func (c *Client) AckMessage(guildID, channelID, transactionID, messageID uint64) bool {
	channel := c.Channel(guildID, channelID)
	if channel == nil {
		return false
	}
	pending := channel.IndexOf(types.Unack(transactionID))
	if pending < 0 {
		return false
	}
	if channel.IndexOf(types.Ack(messageID)) >= 0 {
		return channel.Remove(types.Unack(transactionID))
	}
	channel.Messages[pending].ID = types.Ack(messageID)
	return true
}

// EditMessageCmd requests a text edit. The local copy is updated when the
// matching edit event arrives, not on completion.
func (c *Client) EditMessageCmd(ctx context.Context, guildID, channelID, messageID uint64, text string) tea.Cmd {
	if c.transport == nil {
		return nil
	}
	transport := c.transport
	req := UpdateMessageTextRequest{GuildID: guildID, ChannelID: channelID, MessageID: messageID, Text: text}
	return func() tea.Msg {
		err := transport.UpdateMessageText(ctx, req)
		return MessageEditedMsg{
			GuildID:   guildID,
			ChannelID: channelID,
			MessageID: messageID,
			Err:       actionError(ActionEdit, guildID, channelID, messageID, err),
		}
	}
}

// DeleteMessageCmd requests a delete. The local copy is removed once the
// server confirms.
func (c *Client) DeleteMessageCmd(ctx context.Context, guildID, channelID, messageID uint64) tea.Cmd {
	if c.transport == nil {
		return nil
	}
	transport := c.transport
	req := DeleteMessageRequest{GuildID: guildID, ChannelID: channelID, MessageID: messageID}
	return func() tea.Msg {
		err := transport.DeleteMessage(ctx, req)
		return MessageDeletedMsg{
			GuildID:   guildID,
			ChannelID: channelID,
			MessageID: messageID,
			Err:       actionError(ActionDelete, guildID, channelID, messageID, err),
		}
	}
}

// UpdateGuildInfoCmd requests a change to a guild's name or picture. The
// local guild changes when the guild-updated event arrives.
func (c *Client) UpdateGuildInfoCmd(ctx context.Context, req UpdateGuildInfoRequest) tea.Cmd {
	if c.transport == nil {
		return nil
	}
	transport := c.transport
	return func() tea.Msg {
		err := transport.UpdateGuildInformation(ctx, req)
		return GuildInfoUpdatedMsg{
			GuildID: req.GuildID,
			Err:     actionError(ActionUpdateGuild, req.GuildID, 0, 0, err),
		}
	}
}

// ApplyMessageDeleted removes a confirmed message. Deleting a message that is
// already gone is a no-op.
func (c *Client) ApplyMessageDeleted(guildID, channelID, messageID uint64) bool {
	return c.deleteMessage(guildID, channelID, messageID)
}

func actionError(action string, guildID, channelID, messageID uint64, err error) error {
	if err == nil {
		return nil
	}
	metrics.ActionFailures.WithLabelValues(action).Inc()
	return &ActionError{Action: action, GuildID: guildID, ChannelID: channelID, MessageID: messageID, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
