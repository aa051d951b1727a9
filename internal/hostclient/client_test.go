package hostclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/types"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, "tok-123")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://chat.example.org/", want: "https://chat.example.org"},
		{in: "  http://localhost:2289  ", want: "http://localhost:2289"},
		{in: "chat.example.org", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeBaseURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %q %v want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSendMessage(t *testing.T) {
	var got client.SendMessageRequest
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/messages/send" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message_id":42}`))
	})

	id, err := c.SendMessage(context.Background(), client.SendMessageRequest{
		GuildID:   1,
		ChannelID: 2,
		EchoID:    7,
		Content:   events.Content{Text: "hello"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != 42 {
		t.Fatalf("id: %d", id)
	}
	if got.EchoID != 7 || got.Content.Text != "hello" {
		t.Fatalf("payload: %+v", got)
	}
}

func TestSendMessageWithoutID(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	if _, err := c.SendMessage(context.Background(), client.SendMessageRequest{}); err == nil {
		t.Fatalf("expected error for missing message id")
	}
}

func TestAPIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden","message":"not a member"}`))
	})

	err := c.DeleteMessage(context.Background(), client.DeleteMessageRequest{GuildID: 1, ChannelID: 2, MessageID: 3})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Code != "forbidden" || apiErr.Message != "not a member" {
		t.Fatalf("api error: %+v", apiErr)
	}
	if got := apiErr.Error(); got != "homeserver error: forbidden (403): not a member" {
		t.Fatalf("message: %q", got)
	}
}

func TestNotFoundWrapsSentinel(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such guild", http.StatusNotFound)
	})
	_, err := c.GetGuildData(context.Background(), 9)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "no such guild" {
		t.Fatalf("api error: %v", err)
	}
}

func TestGetMessageHistory(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req client.HistoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.BeforeMessage != 10 || req.Limit != 2 {
			t.Errorf("request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"messages":[{"guild_id":1,"channel_id":2,"message_id":8,"content":{"text":"a"}},{"guild_id":1,"channel_id":2,"message_id":9,"content":{"text":"b"}}],"reached_top":true}`))
	})

	page, err := c.GetMessageHistory(context.Background(), client.HistoryRequest{GuildID: 1, ChannelID: 2, BeforeMessage: 10, Limit: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Messages) != 2 || page.Messages[0].MessageID != 8 || !page.ReachedTop {
		t.Fatalf("page: %+v", page)
	}
}

func TestUpdateGuildInformation(t *testing.T) {
	var body updateGuildInfoBody
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	picture := types.MustParseAssetRef("hmc://cdn.example.org/pic")
	if err := c.UpdateGuildInformation(context.Background(), client.UpdateGuildInfoRequest{GuildID: 5, Picture: &picture}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if body.UpdateName || !body.UpdatePicture || body.NewPicture != "hmc://cdn.example.org/pic" {
		t.Fatalf("body: %+v", body)
	}
}

func TestAssetURL(t *testing.T) {
	c, err := NewClient("https://home.example.org", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	tests := []struct {
		ref  types.AssetRef
		want string
	}{
		{types.AssetRef{Path: "abc"}, "https://home.example.org/v1/media/abc"},
		{types.AssetRef{Scheme: "hmc", Authority: "other.example.org", Path: "a/b"}, "https://other.example.org/v1/media/a%2Fb"},
		{types.AssetRef{Scheme: "https", Authority: "img.example.org", Path: "x.png"}, "https://img.example.org/x.png"},
	}
	for _, tt := range tests {
		got, err := c.AssetURL(tt.ref)
		if err != nil || got != tt.want {
			t.Errorf("%v: got %q %v want %q", tt.ref, got, err, tt.want)
		}
	}
	if _, err := c.AssetURL(types.AssetRef{}); err == nil {
		t.Errorf("expected error for empty ref")
	}
}

func TestFetchAsset(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/media/") {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	})
	data, err := c.FetchAsset(context.Background(), types.AssetRef{Path: "avatar"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "\x89PNG\r\n\x1a\n" {
		t.Fatalf("data: %q", data)
	}
}

func TestGuildEventsKeepOrder(t *testing.T) {
	evs := GuildEvents(3, GuildData{
		Name:     "guild",
		Channels: []GuildChannel{{ChannelID: 1, Name: "a"}, {ChannelID: 2, Name: "b", IsCategory: true}},
		Members:  []uint64{7},
	})

	c := client.New(client.Options{})
	c.Guilds[3] = types.NewGuild()
	for _, ev := range evs {
		c.ProcessEvent(ev)
	}
	guild := c.Guild(3)
	if guild.Name != "guild" {
		t.Fatalf("name: %q", guild.Name)
	}
	if len(guild.ChannelOrder) != 2 || guild.ChannelOrder[0] != 1 || guild.ChannelOrder[1] != 2 {
		t.Fatalf("order: %v", guild.ChannelOrder)
	}
	if !guild.Channels[2].IsCategory {
		t.Fatalf("category lost")
	}
	if _, ok := guild.Members[7]; !ok {
		t.Fatalf("member missing")
	}
}

func TestProfileEventSetsAllFields(t *testing.T) {
	ev := ProfileEvent(4, Profile{Username: "ana", Status: 1, IsBot: true})
	if !ev.UpdateUsername || !ev.UpdateStatus || !ev.UpdateAvatar || !ev.UpdateIsBot || ev.UserID != 4 {
		t.Fatalf("event: %+v", ev)
	}
}
