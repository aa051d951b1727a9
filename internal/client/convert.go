package client

import (
	"time"

	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/types"
)

// parseRef parses an optional locator. Empty or invalid values yield nil.
func parseRef(raw string) *types.AssetRef {
	if raw == "" {
		return nil
	}
	ref, err := types.ParseAssetRef(raw)
	if err != nil {
		return nil
	}
	return &ref
}

func unixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// convertMessage turns a wire message into its local form. Attachments with
// an unparseable locator are dropped.
func convertMessage(wire events.Message) types.Message {
	msg := types.Message{
		ID:        types.Ack(wire.MessageID),
		Sender:    wire.AuthorID,
		Content:   convertContent(wire.Content),
		Overrides: convertOverrides(wire.Overrides),
		CreatedAt: unixMillis(wire.CreatedAt),
	}
	if wire.EditedAt != 0 {
		edited := unixMillis(wire.EditedAt)
		msg.EditedAt = &edited
	}
	return msg
}

func convertContent(wire events.Content) types.Content {
	content := types.Content{Text: wire.Text}
	for _, embed := range wire.Embeds {
		content.Embeds = append(content.Embeds, types.Embed{
			Title:  embed.Title,
			Body:   embed.Body,
			Color:  embed.Color,
			Header: convertHeading(embed.Header),
			Footer: convertHeading(embed.Footer),
		})
	}
	for _, attachment := range wire.Attachments {
		ref := parseRef(attachment.ID)
		if ref == nil {
			continue
		}
		content.Attachments = append(content.Attachments, types.Attachment{
			Ref:  *ref,
			Name: attachment.Name,
			Kind: attachment.Type,
			Size: attachment.Size,
		})
	}
	return content
}

func convertHeading(wire *events.EmbedHeading) *types.EmbedHeading {
	if wire == nil {
		return nil
	}
	return &types.EmbedHeading{
		Text:    wire.Text,
		Subtext: wire.Subtext,
		URL:     wire.URL,
		Icon:    parseRef(wire.Icon),
	}
}

func convertOverrides(wire *events.Overrides) *types.Overrides {
	if wire == nil {
		return nil
	}
	return &types.Overrides{
		Name:   wire.Name,
		Avatar: parseRef(wire.Avatar),
		Reason: wire.Reason,
	}
}

// wireContent is the reverse of convertContent, used for outbound requests.
func wireContent(content types.Content) events.Content {
	wire := events.Content{Text: content.Text}
	for _, embed := range content.Embeds {
		wire.Embeds = append(wire.Embeds, events.Embed{
			Title:  embed.Title,
			Body:   embed.Body,
			Color:  embed.Color,
			Header: wireHeading(embed.Header),
			Footer: wireHeading(embed.Footer),
		})
	}
	for _, attachment := range content.Attachments {
		wire.Attachments = append(wire.Attachments, events.Attachment{
			ID:   attachment.Ref.String(),
			Name: attachment.Name,
			Type: attachment.Kind,
			Size: attachment.Size,
		})
	}
	return wire
}

func wireHeading(heading *types.EmbedHeading) *events.EmbedHeading {
	if heading == nil {
		return nil
	}
	wire := &events.EmbedHeading{Text: heading.Text, Subtext: heading.Subtext, URL: heading.URL}
	if heading.Icon != nil {
		wire.Icon = heading.Icon.String()
	}
	return wire
}

func wireOverrides(overrides *types.Overrides) *events.Overrides {
	if overrides == nil {
		return nil
	}
	wire := &events.Overrides{Name: overrides.Name, Reason: overrides.Reason}
	if overrides.Avatar != nil {
		wire.Avatar = overrides.Avatar.String()
	}
	return wire
}
