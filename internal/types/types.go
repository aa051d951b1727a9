package types

import (
	"fmt"
	"time"
)

// MessageID identifies a message either by the transaction id assigned when it
// was sent locally or by the id the server assigned to it. The two namespaces
// never compare equal.
type MessageID struct {
	Acknowledged bool   `json:"acknowledged"`
	ID           uint64 `json:"id"`
}

// Unack returns the id of a locally sent message the server has not confirmed.
func Unack(transactionID uint64) MessageID {
	return MessageID{ID: transactionID}
}

// Ack returns the id of a server-confirmed message.
func Ack(messageID uint64) MessageID {
	return MessageID{Acknowledged: true, ID: messageID}
}

// TransactionID returns the transaction id for unacknowledged messages.
func (id MessageID) TransactionID() (uint64, bool) {
	if id.Acknowledged {
		return 0, false
	}
	return id.ID, true
}

// MessageID returns the server id for acknowledged messages.
func (id MessageID) MessageID() (uint64, bool) {
	if !id.Acknowledged {
		return 0, false
	}
	return id.ID, true
}

func (id MessageID) String() string {
	if id.Acknowledged {
		return fmt.Sprintf("ack:%d", id.ID)
	}
	return fmt.Sprintf("unack:%d", id.ID)
}

// Message represents a channel message.
type Message struct {
	ID        MessageID  `json:"id"`
	Sender    uint64     `json:"sender"`
	Content   Content    `json:"content"`
	Overrides *Overrides `json:"overrides,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// Pending reports whether the message is still waiting for the server.
func (m Message) Pending() bool {
	return !m.ID.Acknowledged
}

// Content is the body of a message. Text-only messages leave Embeds and
// Attachments empty.
type Content struct {
	Text        string       `json:"text,omitempty"`
	Embeds      []Embed      `json:"embeds,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// TextContent returns a text-only content value.
func TextContent(text string) Content {
	return Content{Text: text}
}

// Embed is a rich content block.
type Embed struct {
	Title  string        `json:"title,omitempty"`
	Body   string        `json:"body,omitempty"`
	Color  int64         `json:"color,omitempty"`
	Header *EmbedHeading `json:"header,omitempty"`
	Footer *EmbedHeading `json:"footer,omitempty"`
}

// EmbedHeading is the header or footer line of an embed.
type EmbedHeading struct {
	Text    string    `json:"text"`
	Subtext string    `json:"subtext,omitempty"`
	URL     string    `json:"url,omitempty"`
	Icon    *AssetRef `json:"icon,omitempty"`
}

// Attachment references a file attached to a message.
type Attachment struct {
	Ref  AssetRef `json:"ref"`
	Name string   `json:"name"`
	Kind string   `json:"kind"`
	Size uint32   `json:"size"`
}

// UnknownAttachment returns an attachment for which only the reference is known.
func UnknownAttachment(ref AssetRef) Attachment {
	return Attachment{
		Ref:  ref,
		Name: "unknown",
		Kind: "application/octet-stream",
	}
}

// ImageAttachment returns an attachment hinted as an image.
func ImageAttachment(ref AssetRef) Attachment {
	a := UnknownAttachment(ref)
	a.Kind = "image"
	return a
}

// IsImage reports whether the kind hint is an image type.
func (a Attachment) IsImage() bool {
	return a.Kind == "image" || len(a.Kind) > 6 && a.Kind[:6] == "image/"
}

// Overrides replace the sender's display name and avatar, e.g. for bridged messages.
type Overrides struct {
	Name   string    `json:"name,omitempty"`
	Avatar *AssetRef `json:"avatar,omitempty"`
	Reason string    `json:"reason,omitempty"`
}
