package events

// Message is a message as decoded from the server. Asset locators are kept as
// the raw strings the server sent.
type Message struct {
	GuildID   uint64     `json:"guild_id"`
	ChannelID uint64     `json:"channel_id"`
	MessageID uint64     `json:"message_id"`
	AuthorID  uint64     `json:"author_id"`
	CreatedAt int64      `json:"created_at"`
	EditedAt  int64      `json:"edited_at,omitempty"`
	Content   Content    `json:"content"`
	Overrides *Overrides `json:"overrides,omitempty"`
}

type Content struct {
	Text        string       `json:"text,omitempty"`
	Embeds      []Embed      `json:"embeds,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Embed struct {
	Title  string        `json:"title,omitempty"`
	Body   string        `json:"body,omitempty"`
	Color  int64         `json:"color,omitempty"`
	Header *EmbedHeading `json:"header,omitempty"`
	Footer *EmbedHeading `json:"footer,omitempty"`
}

type EmbedHeading struct {
	Text    string `json:"text"`
	Subtext string `json:"subtext,omitempty"`
	URL     string `json:"url,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size uint32 `json:"size"`
}

type Overrides struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Reason string `json:"reason,omitempty"`
}
