package client

import (
	"fmt"

	"github.com/adamavenir/chatmirror/internal/types"
)

// PostProcess is a follow-up request produced while applying state changes.
// The caller executes them, in any order.
type PostProcess interface {
	fmt.Stringer
	isPostProcess()
}

// FetchProfile asks for a member's profile.
type FetchProfile struct {
	UserID uint64
}

// FetchGuildData asks for a guild's name, picture, channels and members.
type FetchGuildData struct {
	GuildID uint64
}

// FetchThumbnail asks for an asset to be fetched into the thumbnail cache.
type FetchThumbnail struct {
	Attachment types.Attachment
}

// ScrollToLatest asks the view of a channel to jump to its newest message.
type ScrollToLatest struct {
	GuildID   uint64
	ChannelID uint64
}

func (FetchProfile) isPostProcess()   {}
func (FetchGuildData) isPostProcess() {}
func (FetchThumbnail) isPostProcess() {}
func (ScrollToLatest) isPostProcess() {}

func (p FetchProfile) String() string   { return fmt.Sprintf("fetch-profile user=%d", p.UserID) }
func (p FetchGuildData) String() string { return fmt.Sprintf("fetch-guild-data guild=%d", p.GuildID) }
func (p FetchThumbnail) String() string {
	return fmt.Sprintf("fetch-thumbnail ref=%s kind=%s", p.Attachment.Ref, p.Attachment.Kind)
}
func (p ScrollToLatest) String() string {
	return fmt.Sprintf("scroll-to-latest guild=%d channel=%d", p.GuildID, p.ChannelID)
}

func fetchImage(ref types.AssetRef) PostProcess {
	return FetchThumbnail{Attachment: types.ImageAttachment(ref)}
}

// contentThumbnails appends fetches for image attachments and embed heading icons.
func contentThumbnails(post []PostProcess, msg types.Message) []PostProcess {
	for _, attachment := range msg.Content.Attachments {
		if attachment.IsImage() {
			post = append(post, FetchThumbnail{Attachment: attachment})
		}
	}
	for _, embed := range msg.Content.Embeds {
		for _, heading := range []*types.EmbedHeading{embed.Header, embed.Footer} {
			if heading != nil && heading.Icon != nil {
				post = append(post, fetchImage(*heading.Icon))
			}
		}
	}
	return post
}

// overrideThumbnail appends a fetch for an avatar override.
func overrideThumbnail(post []PostProcess, msg types.Message) []PostProcess {
	if msg.Overrides != nil && msg.Overrides.Avatar != nil {
		post = append(post, fetchImage(*msg.Overrides.Avatar))
	}
	return post
}
