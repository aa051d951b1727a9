// Package client mirrors server-owned chat state locally. All mutation goes
// through a Client value owned by a single goroutine: inbound events,
// history pages and completions of asynchronous requests are applied one at a
// time, and nothing here performs I/O except inside the returned tea.Cmds.
package client

import (
	"crypto/rand"
	"encoding/binary"
	"sort"
	"time"

	"github.com/adamavenir/chatmirror/internal/types"
	"github.com/rs/zerolog"
)

const (
	// DefaultRetryStep is added to the delay of every failed send attempt.
	DefaultRetryStep = time.Second
	// DefaultShownMessagesLimit is how close to the end of a channel the
	// viewer must be for a new message to scroll it to the latest one.
	DefaultShownMessagesLimit = 32
	// DefaultHistoryPageSize is the number of messages requested per page.
	DefaultHistoryPageSize = 50
)

// Options configure a Client.
type Options struct {
	UserID             uint64
	Transport          Transport
	Logger             *zerolog.Logger
	RetryStep          time.Duration
	ShownMessagesLimit int
	HistoryPageSize    int
	Now                func() time.Time
}

// Client is the local mirror of guilds, channels, members and messages.
type Client struct {
	Guilds  map[uint64]*types.Guild
	Members map[uint64]*types.Member
	UserID  uint64

	transport          Transport
	logger             zerolog.Logger
	retryStep          time.Duration
	shownMessagesLimit int
	historyPageSize    int
	now                func() time.Time
}

// New creates an empty client.
func New(opts Options) *Client {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.RetryStep <= 0 {
		opts.RetryStep = DefaultRetryStep
	}
	if opts.ShownMessagesLimit <= 0 {
		opts.ShownMessagesLimit = DefaultShownMessagesLimit
	}
	if opts.HistoryPageSize <= 0 {
		opts.HistoryPageSize = DefaultHistoryPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		Guilds:             make(map[uint64]*types.Guild),
		Members:            make(map[uint64]*types.Member),
		UserID:             opts.UserID,
		transport:          opts.Transport,
		logger:             logger.With().Str("component", "client").Logger(),
		retryStep:          opts.RetryStep,
		shownMessagesLimit: opts.ShownMessagesLimit,
		historyPageSize:    opts.HistoryPageSize,
		now:                opts.Now,
	}
}

// Guild returns the guild with the given id.
func (c *Client) Guild(guildID uint64) *types.Guild {
	return c.Guilds[guildID]
}

// Channel returns a channel of a known guild.
func (c *Client) Channel(guildID, channelID uint64) *types.Channel {
	guild := c.Guild(guildID)
	if guild == nil {
		return nil
	}
	return guild.Channels[channelID]
}

// Member returns the member with the given user id.
func (c *Client) Member(userID uint64) *types.Member {
	return c.Members[userID]
}

// EventSourceKind distinguishes homeserver-wide and per-guild streams.
type EventSourceKind int

const (
	SourceHomeserver EventSourceKind = iota
	SourceGuild
)

// EventSource is a stream the client should subscribe to.
type EventSource struct {
	Kind    EventSourceKind
	GuildID uint64
}

// SubscribeTo lists the streams covering the current state: one per known
// guild, then the homeserver stream.
func (c *Client) SubscribeTo() []EventSource {
	ids := make([]uint64, 0, len(c.Guilds))
	for id := range c.Guilds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	sources := make([]EventSource, 0, len(ids)+1)
	for _, id := range ids {
		sources = append(sources, EventSource{Kind: SourceGuild, GuildID: id})
	}
	return append(sources, EventSource{Kind: SourceHomeserver})
}

// newTransactionID returns a random non-zero id not pending in channel.
func newTransactionID(channel *types.Channel) uint64 {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand does not fail on supported platforms.
			panic(err)
		}
		id := binary.BigEndian.Uint64(buf[:])
		if id == 0 {
			continue
		}
		if channel != nil && channel.IndexOf(types.Unack(id)) >= 0 {
			continue
		}
		return id
	}
}
