package hostclient

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/events"
)

// Handler executes follow-up requests against the homeserver. Results come
// back into the update loop as events or asset bytes. Scroll requests are a
// presentation concern and are dropped.
func (c *Client) Handler(ctx context.Context, logger zerolog.Logger) client.RequestHandler {
	return func(req client.PostProcess) tea.Cmd {
		switch req := req.(type) {
		case client.FetchProfile:
			return c.fetchProfileCmd(ctx, logger, req.UserID)
		case client.FetchGuildData:
			return c.fetchGuildDataCmd(ctx, logger, req.GuildID)
		case client.FetchThumbnail:
			ref := req.Attachment.Ref
			return func() tea.Msg {
				data, err := c.FetchAsset(ctx, ref)
				return client.AssetMsg{Ref: ref, Data: data, Err: err}
			}
		}
		return nil
	}
}

func (c *Client) fetchProfileCmd(ctx context.Context, logger zerolog.Logger, userID uint64) tea.Cmd {
	return func() tea.Msg {
		profile, err := c.GetProfile(ctx, userID)
		if err != nil {
			logger.Warn().Err(err).Uint64("user_id", userID).Msg("fetch profile failed")
			return nil
		}
		return client.EventMsg{Event: ProfileEvent(userID, profile)}
	}
}

func (c *Client) fetchGuildDataCmd(ctx context.Context, logger zerolog.Logger, guildID uint64) tea.Cmd {
	return func() tea.Msg {
		data, err := c.GetGuildData(ctx, guildID)
		if err != nil {
			logger.Warn().Err(err).Uint64("guild_id", guildID).Msg("fetch guild data failed")
			return nil
		}
		cmds := make([]tea.Cmd, 0)
		for _, ev := range GuildEvents(guildID, data) {
			ev := ev
			cmds = append(cmds, func() tea.Msg { return client.EventMsg{Event: ev} })
		}
		return tea.BatchMsg(cmds)
	}
}

// ProfileEvent expresses a fetched profile as a full profile update.
func ProfileEvent(userID uint64, profile Profile) events.ProfileUpdated {
	return events.ProfileUpdated{
		UserID:         userID,
		NewUsername:    profile.Username,
		UpdateUsername: true,
		NewAvatar:      profile.Avatar,
		UpdateAvatar:   true,
		NewStatus:      profile.Status,
		UpdateStatus:   true,
		IsBot:          profile.IsBot,
		UpdateIsBot:    true,
	}
}

// GuildEvents expresses fetched guild data as the events that would have
// built it: the guild update, each channel in order, then each member.
func GuildEvents(guildID uint64, data GuildData) []events.Event {
	out := make([]events.Event, 0, 1+len(data.Channels)+len(data.Members))
	out = append(out, events.GuildUpdated{
		GuildID:       guildID,
		Name:          data.Name,
		UpdateName:    true,
		Picture:       data.Picture,
		UpdatePicture: data.Picture != "",
	})
	var previous uint64
	for _, channel := range data.Channels {
		out = append(out, events.ChannelCreated{
			GuildID:    guildID,
			ChannelID:  channel.ChannelID,
			Name:       channel.Name,
			PreviousID: previous,
			IsCategory: channel.IsCategory,
		})
		previous = channel.ChannelID
	}
	for _, member := range data.Members {
		out = append(out, events.MemberJoined{GuildID: guildID, MemberID: member})
	}
	return out
}
