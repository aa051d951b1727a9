package client

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/types"
)

func sent(echoID uint64, msg events.Message) events.MessageSent {
	return events.MessageSent{EchoID: echoID, Message: &msg}
}

func TestMessageSentAppendsAndScrolls(t *testing.T) {
	c := newTestClient(t, nil)
	post := c.ProcessEvent(sent(0, wireMessage(1, "first")))

	channel := testChannelOf(t, c)
	if got := messageIDs(channel); !reflect.DeepEqual(got, []types.MessageID{types.Ack(1)}) {
		t.Fatalf("messages: %v", got)
	}
	want := []PostProcess{ScrollToLatest{GuildID: testGuild, ChannelID: testChannel}}
	if !reflect.DeepEqual(post, want) {
		t.Fatalf("post: got %v want %v", post, want)
	}
}

func TestMessageSentReplacesPendingCopy(t *testing.T) {
	c := newTestClient(t, nil)
	channel := testChannelOf(t, c)
	channel.Messages = append(channel.Messages,
		types.Message{ID: types.Ack(1)},
		types.Message{ID: types.Unack(7), Content: types.TextContent("hello")},
	)

	c.ProcessEvent(sent(7, wireMessage(42, "hello")))

	want := []types.MessageID{types.Ack(1), types.Ack(42)}
	if got := messageIDs(channel); !reflect.DeepEqual(got, want) {
		t.Fatalf("messages: got %v want %v", got, want)
	}
	if channel.Messages[1].Content.Text != "hello" {
		t.Fatalf("content: %q", channel.Messages[1].Content.Text)
	}
}

func TestMessageSentReplacesConfirmedCopy(t *testing.T) {
	c := newTestClient(t, nil)
	c.ProcessEvent(sent(0, wireMessage(42, "old")))
	c.ProcessEvent(sent(0, wireMessage(42, "new")))

	channel := testChannelOf(t, c)
	if len(channel.Messages) != 1 || channel.Messages[0].Content.Text != "new" {
		t.Fatalf("messages: %+v", channel.Messages)
	}
}

func TestMessageSentCollapsesPendingAndConfirmed(t *testing.T) {
	c := newTestClient(t, nil)
	channel := testChannelOf(t, c)
	channel.Messages = append(channel.Messages,
		types.Message{ID: types.Unack(7)},
		types.Message{ID: types.Ack(42)},
	)

	c.ProcessEvent(sent(7, wireMessage(42, "hello")))
	if got := messageIDs(channel); !reflect.DeepEqual(got, []types.MessageID{types.Ack(42)}) {
		t.Fatalf("messages: %v", got)
	}
}

func TestCollapseKeepsCursorOnSameMessage(t *testing.T) {
	channel := &types.Channel{
		Messages: []types.Message{
			{ID: types.Ack(42)},
			{ID: types.Ack(50)},
			{ID: types.Ack(51)},
			{ID: types.Unack(7)},
			{ID: types.Ack(60)},
		},
		LookingAtMessage: 2,
	}

	placeMessage(channel, 7, types.Message{ID: types.Ack(42)})
	want := []types.MessageID{types.Ack(50), types.Ack(51), types.Ack(42), types.Ack(60)}
	if got := messageIDs(channel); !reflect.DeepEqual(got, want) {
		t.Fatalf("messages: %v", got)
	}
	if got := channel.Messages[channel.LookingAtMessage].ID; got != types.Ack(51) {
		t.Fatalf("cursor on %v, want ack 51", got)
	}
}

func TestMessageSentScrollsOnlyNearLatest(t *testing.T) {
	c := newTestClient(t, nil)
	channel := testChannelOf(t, c)
	for i := uint64(1); i <= 100; i++ {
		channel.Messages = append(channel.Messages, types.Message{ID: types.Ack(i)})
	}
	channel.LookingAtMessage = 10

	post := c.ProcessEvent(sent(0, wireMessage(101, "far")))
	if len(post) != 0 || channel.LookingAtMessage != 10 {
		t.Fatalf("cursor moved while reading old messages: %d %v", channel.LookingAtMessage, post)
	}

	// After the append the window starts at len+1-limit.
	channel.LookingAtMessage = len(channel.Messages) + 1 - DefaultShownMessagesLimit
	post = c.ProcessEvent(sent(0, wireMessage(102, "near")))
	if len(post) != 1 || channel.LookingAtMessage != len(channel.Messages)-1 {
		t.Fatalf("cursor should follow: %d %v", channel.LookingAtMessage, post)
	}
}

func TestMessageSentThumbnails(t *testing.T) {
	c := newTestClient(t, nil)
	msg := wireMessage(1, "look")
	msg.Overrides = &events.Overrides{Name: "bridge", Avatar: "hmc://cdn.example.org/avatar"}
	msg.Content.Attachments = []events.Attachment{
		{ID: "hmc://cdn.example.org/pic", Name: "pic.png", Type: "image/png"},
		{ID: "hmc://cdn.example.org/doc", Name: "doc.pdf", Type: "application/pdf"},
	}
	msg.Content.Embeds = []events.Embed{{
		Title:  "embed",
		Header: &events.EmbedHeading{Text: "head", Icon: "hmc://cdn.example.org/icon"},
	}}

	post := c.ProcessEvent(sent(0, msg))
	want := []PostProcess{
		FetchThumbnail{Attachment: types.ImageAttachment(types.MustParseAssetRef("hmc://cdn.example.org/avatar"))},
		FetchThumbnail{Attachment: types.Attachment{
			Ref:  types.MustParseAssetRef("hmc://cdn.example.org/pic"),
			Name: "pic.png",
			Kind: "image/png",
		}},
		FetchThumbnail{Attachment: types.ImageAttachment(types.MustParseAssetRef("hmc://cdn.example.org/icon"))},
		ScrollToLatest{GuildID: testGuild, ChannelID: testChannel},
	}
	if !reflect.DeepEqual(post, want) {
		t.Fatalf("post:\n got %v\nwant %v", post, want)
	}
}

func TestMessageSentForUnknownChannelIsNoop(t *testing.T) {
	c := newTestClient(t, nil)
	msg := wireMessage(1, "x")
	msg.ChannelID = 999
	if post := c.ProcessEvent(sent(0, msg)); len(post) != 0 {
		t.Fatalf("post: %v", post)
	}
	if post := c.ProcessEvent(events.MessageSent{}); len(post) != 0 {
		t.Fatalf("nil message post: %v", post)
	}
}

func TestMessageDeletedIsIdempotent(t *testing.T) {
	c := newTestClient(t, nil)
	c.ProcessEvent(sent(0, wireMessage(1, "a")))
	c.ProcessEvent(sent(0, wireMessage(2, "b")))

	del := events.MessageDeleted{GuildID: testGuild, ChannelID: testChannel, MessageID: 1}
	c.ProcessEvent(del)
	once := append([]types.MessageID(nil), messageIDs(testChannelOf(t, c))...)
	c.ProcessEvent(del)
	c.ProcessEvent(events.MessageDeleted{GuildID: testGuild, ChannelID: testChannel, MessageID: 77})

	if got := messageIDs(testChannelOf(t, c)); !reflect.DeepEqual(got, once) {
		t.Fatalf("second delete changed state: %v vs %v", got, once)
	}
	if !reflect.DeepEqual(once, []types.MessageID{types.Ack(2)}) {
		t.Fatalf("messages: %v", once)
	}
}

func TestMessageEditedReplacesText(t *testing.T) {
	c := newTestClient(t, nil)
	msg := wireMessage(1, "before")
	msg.Content.Attachments = []events.Attachment{{ID: "hmc://cdn.example.org/a", Name: "a", Type: "text/plain"}}
	c.ProcessEvent(sent(0, msg))

	c.ProcessEvent(events.MessageEdited{GuildID: testGuild, ChannelID: testChannel, MessageID: 1, Content: "after"})
	got := testChannelOf(t, c).Messages[0]
	if got.Content.Text != "after" || len(got.Content.Attachments) != 1 {
		t.Fatalf("content: %+v", got.Content)
	}
	if got.EditedAt == nil || !got.EditedAt.Equal(fixedNow) {
		t.Fatalf("edited at: %v", got.EditedAt)
	}

	c.ProcessEvent(events.MessageEdited{GuildID: testGuild, ChannelID: testChannel, MessageID: 9, Content: "ghost"})
	if len(testChannelOf(t, c).Messages) != 1 {
		t.Fatalf("edit of missing message must not insert")
	}
}

func TestChannelLifecycle(t *testing.T) {
	c := newTestClient(t, nil)
	guild := c.Guild(testGuild)

	c.ProcessEvent(events.ChannelCreated{GuildID: testGuild, ChannelID: 30, Name: "random", PreviousID: testChannel})
	c.ProcessEvent(events.ChannelCreated{GuildID: testGuild, ChannelID: 25, Name: "cat", NextID: 30, IsCategory: true})
	if want := []uint64{testChannel, 25, 30}; !reflect.DeepEqual(guild.ChannelOrder, want) {
		t.Fatalf("order: got %v want %v", guild.ChannelOrder, want)
	}
	if !guild.Channels[25].IsCategory {
		t.Fatalf("category flag lost")
	}

	c.ProcessEvent(events.ChannelUpdated{GuildID: testGuild, ChannelID: 30, Name: "ignored"})
	if guild.Channels[30].Name != "random" {
		t.Fatalf("name changed without update flag")
	}
	c.ProcessEvent(events.ChannelUpdated{GuildID: testGuild, ChannelID: 30, Name: "offtopic", UpdateName: true, NextID: testChannel, UpdateOrder: true})
	if guild.Channels[30].Name != "offtopic" {
		t.Fatalf("rename not applied")
	}
	if want := []uint64{30, testChannel, 25}; !reflect.DeepEqual(guild.ChannelOrder, want) {
		t.Fatalf("order after move: got %v want %v", guild.ChannelOrder, want)
	}

	c.ProcessEvent(events.ChannelDeleted{GuildID: testGuild, ChannelID: 25})
	if _, ok := guild.Channels[25]; ok {
		t.Fatalf("channel not removed")
	}
	if want := []uint64{30, testChannel}; !reflect.DeepEqual(guild.ChannelOrder, want) {
		t.Fatalf("order after delete: got %v want %v", guild.ChannelOrder, want)
	}
}

func TestChannelCreatedKeepsExistingMessages(t *testing.T) {
	c := newTestClient(t, nil)
	c.ProcessEvent(sent(0, wireMessage(1, "keep")))
	c.ProcessEvent(events.ChannelCreated{GuildID: testGuild, ChannelID: testChannel, Name: "renamed"})

	channel := testChannelOf(t, c)
	if channel.Name != "renamed" || len(channel.Messages) != 1 {
		t.Fatalf("channel: %+v", channel)
	}
}

func TestTypingUpdatesKnownMember(t *testing.T) {
	c := newTestClient(t, nil)
	c.Members[5] = &types.Member{Username: "ana"}
	c.ProcessEvent(events.Typing{GuildID: testGuild, ChannelID: testChannel, UserID: 5})
	c.ProcessEvent(events.Typing{GuildID: testGuild, ChannelID: testChannel, UserID: 6})

	typing := c.Member(5).Typing
	if typing == nil || typing.ChannelID != testChannel || !typing.At.Equal(fixedNow) {
		t.Fatalf("typing: %+v", typing)
	}
	if c.Member(6) != nil {
		t.Fatalf("typing must not create members")
	}
}

func TestMemberJoinAndLeave(t *testing.T) {
	c := newTestClient(t, nil)
	c.Members[5] = &types.Member{Username: "known"}

	post := c.ProcessEvent(events.MemberJoined{GuildID: testGuild, MemberID: 5})
	if len(post) != 0 {
		t.Fatalf("known member should not be fetched: %v", post)
	}
	post = c.ProcessEvent(events.MemberJoined{GuildID: testGuild, MemberID: 6})
	if !reflect.DeepEqual(post, []PostProcess{FetchProfile{UserID: 6}}) {
		t.Fatalf("post: %v", post)
	}
	if post := c.ProcessEvent(events.MemberJoined{GuildID: testGuild, MemberID: 0}); len(post) != 0 {
		t.Fatalf("member 0 must be ignored: %v", post)
	}

	guild := c.Guild(testGuild)
	if len(guild.Members) != 2 {
		t.Fatalf("members: %v", guild.Members)
	}
	c.ProcessEvent(events.MemberLeft{GuildID: testGuild, MemberID: 5})
	if _, ok := guild.Members[5]; ok {
		t.Fatalf("member 5 should have left")
	}
	if c.Member(5) == nil {
		t.Fatalf("leaving a guild must not drop the global profile")
	}
}

func TestProfileUpdateRespectsFlags(t *testing.T) {
	c := newTestClient(t, nil)
	c.Members[5] = &types.Member{Username: "ana", Status: types.StatusOnline}

	post := c.ProcessEvent(events.ProfileUpdated{
		UserID:       5,
		NewUsername:  "ignored",
		NewStatus:    2,
		UpdateStatus: true,
	})
	member := c.Member(5)
	if member.Username != "ana" {
		t.Fatalf("username changed without flag: %q", member.Username)
	}
	if member.Status != types.StatusIdle {
		t.Fatalf("status: %v", member.Status)
	}
	if len(post) != 0 {
		t.Fatalf("post: %v", post)
	}

	post = c.ProcessEvent(events.ProfileUpdated{
		UserID:       5,
		NewAvatar:    "hmc://cdn.example.org/face",
		UpdateAvatar: true,
		IsBot:        true,
		UpdateIsBot:  true,
	})
	avatar := types.MustParseAssetRef("hmc://cdn.example.org/face")
	if member.Avatar == nil || *member.Avatar != avatar || !member.IsBot {
		t.Fatalf("member: %+v", member)
	}
	if !reflect.DeepEqual(post, []PostProcess{FetchThumbnail{Attachment: types.ImageAttachment(avatar)}}) {
		t.Fatalf("post: %v", post)
	}
}

func TestProfileUpdateCreatesMember(t *testing.T) {
	c := newTestClient(t, nil)
	c.ProcessEvent(events.ProfileUpdated{UserID: 9, NewUsername: "new", UpdateUsername: true})
	if m := c.Member(9); m == nil || m.Username != "new" {
		t.Fatalf("member: %+v", m)
	}
}

func TestGuildListEvents(t *testing.T) {
	c := New(Options{})
	post := c.ProcessEvent(events.GuildAddedToList{GuildID: 3})
	if !reflect.DeepEqual(post, []PostProcess{FetchGuildData{GuildID: 3}}) {
		t.Fatalf("post: %v", post)
	}
	c.Guild(3).Name = "kept"
	c.ProcessEvent(events.GuildAddedToList{GuildID: 3})
	if c.Guild(3).Name != "kept" {
		t.Fatalf("re-adding a guild must keep its state")
	}

	c.ProcessEvent(events.GuildRemovedFromList{GuildID: 3})
	if c.Guild(3) != nil {
		t.Fatalf("guild not removed")
	}
	c.ProcessEvent(events.GuildAddedToList{GuildID: 4})
	c.ProcessEvent(events.GuildDeleted{GuildID: 4})
	if len(c.Guilds) != 0 {
		t.Fatalf("guilds: %v", c.Guilds)
	}
}

func TestGuildUpdated(t *testing.T) {
	c := newTestClient(t, nil)
	post := c.ProcessEvent(events.GuildUpdated{
		GuildID:       testGuild,
		Name:          "ignored",
		Picture:       "hmc://cdn.example.org/pic",
		UpdatePicture: true,
	})
	guild := c.Guild(testGuild)
	if guild.Name != "guild" {
		t.Fatalf("name changed without flag")
	}
	pic := types.MustParseAssetRef("hmc://cdn.example.org/pic")
	if guild.Picture == nil || *guild.Picture != pic {
		t.Fatalf("picture: %v", guild.Picture)
	}
	if !reflect.DeepEqual(post, []PostProcess{FetchThumbnail{Attachment: types.ImageAttachment(pic)}}) {
		t.Fatalf("post: %v", post)
	}

	if post := c.ProcessEvent(events.GuildUpdated{GuildID: 99, Name: "x", UpdateName: true}); len(post) != 0 {
		t.Fatalf("post for unknown guild: %v", post)
	}
	if c.Guild(99) != nil {
		t.Fatalf("update must not create guilds")
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	c := newTestClient(t, nil)
	post := c.ProcessEvent(events.Unknown{Type: "emote_pack_added", Data: json.RawMessage(`{}`)})
	if len(post) != 0 {
		t.Fatalf("post: %v", post)
	}
}

func TestNoDuplicateIDsAfterMixedEvents(t *testing.T) {
	c := newTestClient(t, nil)
	channel := testChannelOf(t, c)
	channel.Messages = append(channel.Messages, types.Message{ID: types.Unack(3)}, types.Message{ID: types.Unack(4)})

	sequence := []events.Event{
		sent(0, wireMessage(1, "a")),
		sent(3, wireMessage(2, "b")),
		sent(0, wireMessage(2, "b2")),
		sent(4, wireMessage(1, "a2")),
		events.MessageDeleted{GuildID: testGuild, ChannelID: testChannel, MessageID: 2},
		sent(0, wireMessage(2, "b3")),
		sent(3, wireMessage(5, "stale echo")),
	}
	for _, ev := range sequence {
		c.ProcessEvent(ev)
		assertUniqueIDs(t, channel)
	}
	want := []types.MessageID{types.Ack(1), types.Ack(2), types.Ack(5)}
	if got := messageIDs(channel); !reflect.DeepEqual(got, want) {
		t.Fatalf("messages: got %v want %v", got, want)
	}
}
