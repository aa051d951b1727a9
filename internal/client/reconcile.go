package client

import (
	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/metrics"
	"github.com/adamavenir/chatmirror/internal/types"
)

// ProcessEvent applies one inbound event and returns the follow-up requests
// it produced. Events naming a guild, channel or message that is not held
// locally change nothing. Unknown events are logged and skipped.
func (c *Client) ProcessEvent(ev events.Event) []PostProcess {
	var (
		post    []PostProcess
		applied bool
	)

	switch ev := ev.(type) {
	case events.MessageSent:
		post, applied = c.messageSent(ev)
	case events.MessageDeleted:
		applied = c.deleteMessage(ev.GuildID, ev.ChannelID, ev.MessageID)
	case events.MessageEdited:
		applied = c.messageEdited(ev)
	case events.ChannelCreated:
		applied = c.channelCreated(ev)
	case events.ChannelUpdated:
		applied = c.channelUpdated(ev)
	case events.ChannelDeleted:
		if guild := c.Guild(ev.GuildID); guild != nil {
			guild.RemoveChannel(ev.ChannelID)
			applied = true
		}
	case events.Typing:
		if member := c.Member(ev.UserID); member != nil {
			member.Typing = &types.Typing{GuildID: ev.GuildID, ChannelID: ev.ChannelID, At: c.now()}
			applied = true
		}
	case events.MemberJoined:
		post, applied = c.memberJoined(ev)
	case events.MemberLeft:
		if guild := c.Guild(ev.GuildID); guild != nil {
			delete(guild.Members, ev.MemberID)
			applied = true
		}
	case events.ProfileUpdated:
		post, applied = c.profileUpdated(ev), true
	case events.GuildAddedToList:
		if _, ok := c.Guilds[ev.GuildID]; !ok {
			c.Guilds[ev.GuildID] = types.NewGuild()
		}
		post, applied = []PostProcess{FetchGuildData{GuildID: ev.GuildID}}, true
	case events.GuildRemovedFromList:
		applied = c.removeGuild(ev.GuildID)
	case events.GuildDeleted:
		applied = c.removeGuild(ev.GuildID)
	case events.GuildUpdated:
		post, applied = c.guildUpdated(ev)
	default:
		c.logger.Warn().Str("kind", ev.Kind()).Msg("ignoring unknown event")
		metrics.EventsIgnored.WithLabelValues(ev.Kind()).Inc()
		return nil
	}

	if applied {
		metrics.EventsApplied.WithLabelValues(ev.Kind()).Inc()
	} else {
		c.logger.Debug().Str("kind", ev.Kind()).Msg("event refers to state not held locally")
		metrics.EventsIgnored.WithLabelValues(ev.Kind()).Inc()
	}
	return post
}

func (c *Client) messageSent(ev events.MessageSent) ([]PostProcess, bool) {
	if ev.Message == nil {
		return nil, false
	}
	channel := c.Channel(ev.Message.GuildID, ev.Message.ChannelID)
	if channel == nil {
		return nil, false
	}

	msg := convertMessage(*ev.Message)
	post := overrideThumbnail(nil, msg)
	post = contentThumbnails(post, msg)

	placeMessage(channel, ev.EchoID, msg)

	if scroll := c.followLatest(channel); scroll {
		post = append(post, ScrollToLatest{GuildID: ev.Message.GuildID, ChannelID: ev.Message.ChannelID})
	}
	return post, true
}

// placeMessage inserts a confirmed message, replacing the pending copy that
// carried echoID or an earlier copy with the same server id. The channel
// never ends up holding both.
func placeMessage(channel *types.Channel, echoID uint64, msg types.Message) {
	pending := -1
	if echoID != 0 {
		pending = channel.IndexOf(types.Unack(echoID))
	}
	confirmed := channel.IndexOf(msg.ID)

	switch {
	case pending >= 0:
		if confirmed >= 0 {
			channel.RemoveAt(confirmed)
			if confirmed < pending {
				pending--
			}
		}
		channel.Messages[pending] = msg
	case confirmed >= 0:
		channel.Messages[confirmed] = msg
	default:
		channel.Messages = append(channel.Messages, msg)
	}
}

// followLatest moves the cursor to the newest message when the viewer was
// already within the shown window at the end of the channel.
func (c *Client) followLatest(channel *types.Channel) bool {
	count := len(channel.Messages)
	if channel.LookingAtMessage < max(count-c.shownMessagesLimit, 0) {
		return false
	}
	channel.LookingAtMessage = max(count-1, 0)
	return true
}

func (c *Client) deleteMessage(guildID, channelID, messageID uint64) bool {
	channel := c.Channel(guildID, channelID)
	if channel == nil {
		return false
	}
	return channel.Remove(types.Ack(messageID))
}

func (c *Client) messageEdited(ev events.MessageEdited) bool {
	channel := c.Channel(ev.GuildID, ev.ChannelID)
	if channel == nil {
		return false
	}
	msg := channel.Find(types.Ack(ev.MessageID))
	if msg == nil {
		return false
	}
	msg.Content.Text = ev.Content
	edited := c.now().UTC()
	if ev.EditedAt != 0 {
		edited = unixMillis(ev.EditedAt)
	}
	msg.EditedAt = &edited
	return true
}

func (c *Client) channelCreated(ev events.ChannelCreated) bool {
	guild := c.Guild(ev.GuildID)
	if guild == nil {
		return false
	}
	if channel, ok := guild.Channels[ev.ChannelID]; ok {
		channel.Name = ev.Name
		channel.IsCategory = ev.IsCategory
	} else {
		guild.Channels[ev.ChannelID] = &types.Channel{Name: ev.Name, IsCategory: ev.IsCategory}
	}
	guild.UpdateChannelOrder(ev.PreviousID, ev.NextID, ev.ChannelID)
	return true
}

func (c *Client) channelUpdated(ev events.ChannelUpdated) bool {
	guild := c.Guild(ev.GuildID)
	if guild == nil {
		return false
	}
	channel, ok := guild.Channels[ev.ChannelID]
	if !ok {
		return false
	}
	if ev.UpdateName {
		channel.Name = ev.Name
	}
	if ev.UpdateOrder {
		guild.UpdateChannelOrder(ev.PreviousID, ev.NextID, ev.ChannelID)
	}
	return true
}

func (c *Client) memberJoined(ev events.MemberJoined) ([]PostProcess, bool) {
	if ev.MemberID == 0 {
		return nil, false
	}
	guild := c.Guild(ev.GuildID)
	if guild == nil {
		return nil, false
	}
	guild.Members[ev.MemberID] = struct{}{}
	if _, known := c.Members[ev.MemberID]; known {
		return nil, true
	}
	return []PostProcess{FetchProfile{UserID: ev.MemberID}}, true
}

func (c *Client) profileUpdated(ev events.ProfileUpdated) []PostProcess {
	member, ok := c.Members[ev.UserID]
	if !ok {
		member = &types.Member{}
		c.Members[ev.UserID] = member
	}

	var post []PostProcess
	if ev.UpdateUsername {
		member.Username = ev.NewUsername
	}
	if ev.UpdateStatus {
		member.Status = types.UserStatusFromWire(ev.NewStatus)
	}
	if ev.UpdateIsBot {
		member.IsBot = ev.IsBot
	}
	if ev.UpdateAvatar {
		member.Avatar = parseRef(ev.NewAvatar)
		if member.Avatar != nil {
			post = append(post, fetchImage(*member.Avatar))
		}
	}
	return post
}

func (c *Client) removeGuild(guildID uint64) bool {
	if _, ok := c.Guilds[guildID]; !ok {
		return false
	}
	delete(c.Guilds, guildID)
	return true
}

func (c *Client) guildUpdated(ev events.GuildUpdated) ([]PostProcess, bool) {
	guild := c.Guild(ev.GuildID)
	if guild == nil {
		return nil, false
	}

	var post []PostProcess
	if ev.UpdateName {
		guild.Name = ev.Name
	}
	if ev.UpdatePicture {
		guild.Picture = parseRef(ev.Picture)
		if guild.Picture != nil {
			post = append(post, fetchImage(*guild.Picture))
		}
	}
	return post, true
}
