package types

// Guild mirrors a server-side guild.
type Guild struct {
	Name         string              `json:"name"`
	Picture      *AssetRef           `json:"picture,omitempty"`
	Channels     map[uint64]*Channel `json:"channels"`
	ChannelOrder []uint64            `json:"channel_order"`
	Members      map[uint64]struct{} `json:"members"`
}

// NewGuild returns an empty guild with its maps allocated.
func NewGuild() *Guild {
	return &Guild{
		Channels: make(map[uint64]*Channel),
		Members:  make(map[uint64]struct{}),
	}
}

// UpdateChannelOrder moves channelID next to its declared neighbours. The
// previous id wins when both anchors are present; an unknown or zero anchor
// falls through to the other one, and with neither the channel goes last.
func (g *Guild) UpdateChannelOrder(previousID, nextID, channelID uint64) {
	g.ChannelOrder = removeID(g.ChannelOrder, channelID)

	if previousID != 0 {
		if idx := indexOfID(g.ChannelOrder, previousID); idx >= 0 {
			g.ChannelOrder = insertID(g.ChannelOrder, idx+1, channelID)
			return
		}
	}
	if nextID != 0 {
		if idx := indexOfID(g.ChannelOrder, nextID); idx >= 0 {
			g.ChannelOrder = insertID(g.ChannelOrder, idx, channelID)
			return
		}
	}
	g.ChannelOrder = append(g.ChannelOrder, channelID)
}

// RemoveChannel drops the channel and its position in the order.
func (g *Guild) RemoveChannel(channelID uint64) {
	delete(g.Channels, channelID)
	g.ChannelOrder = removeID(g.ChannelOrder, channelID)
}

// OrderedChannels returns channel ids in display order. Channels missing from
// the order list are appended so nothing is hidden.
func (g *Guild) OrderedChannels() []uint64 {
	ids := make([]uint64, 0, len(g.Channels))
	seen := make(map[uint64]struct{}, len(g.ChannelOrder))
	for _, id := range g.ChannelOrder {
		if _, ok := g.Channels[id]; !ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id := range g.Channels {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func indexOfID(ids []uint64, id uint64) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

func removeID(ids []uint64, id uint64) []uint64 {
	if idx := indexOfID(ids, id); idx >= 0 {
		return append(ids[:idx], ids[idx+1:]...)
	}
	return ids
}

func insertID(ids []uint64, idx int, id uint64) []uint64 {
	ids = append(ids, 0)
	copy(ids[idx+1:], ids[idx:])
	ids[idx] = id
	return ids
}

// Channel mirrors a guild channel and the locally held slice of its history.
type Channel struct {
	Name                   string    `json:"name"`
	IsCategory             bool      `json:"is_category"`
	Messages               []Message `json:"messages"`
	LookingAtMessage       int       `json:"looking_at_message"`
	ReachedTop             bool      `json:"reached_top"`
	LoadingMessagesHistory bool      `json:"loading_messages_history"`
}

// IndexOf returns the position of the message with the given id, or -1.
func (c *Channel) IndexOf(id MessageID) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the message with the given id.
func (c *Channel) Find(id MessageID) *Message {
	if idx := c.IndexOf(id); idx >= 0 {
		return &c.Messages[idx]
	}
	return nil
}

// Remove deletes the message with the given id and reports whether it existed.
func (c *Channel) Remove(id MessageID) bool {
	idx := c.IndexOf(id)
	if idx < 0 {
		return false
	}
	c.RemoveAt(idx)
	return true
}

// RemoveAt deletes the message at idx. The cursor keeps pointing at the same
// message when an older one is removed.
func (c *Channel) RemoveAt(idx int) {
	if idx < 0 || idx >= len(c.Messages) {
		return
	}
	c.Messages = append(c.Messages[:idx], c.Messages[idx+1:]...)
	if idx < c.LookingAtMessage {
		c.LookingAtMessage--
	}
	if c.LookingAtMessage >= len(c.Messages) {
		c.LookingAtMessage = max(len(c.Messages)-1, 0)
	}
}

// OldestAcknowledged returns the server id of the oldest confirmed message.
func (c *Channel) OldestAcknowledged() (uint64, bool) {
	for _, msg := range c.Messages {
		if id, ok := msg.ID.MessageID(); ok {
			return id, true
		}
	}
	return 0, false
}
