package events

import (
	"strings"
	"testing"
)

func TestDecodeLineKnownKinds(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{
			name: "message deleted",
			line: `{"type":"message_deleted","data":{"guild_id":1,"channel_id":2,"message_id":3}}`,
			want: MessageDeleted{GuildID: 1, ChannelID: 2, MessageID: 3},
		},
		{
			name: "profile updated keeps flags",
			line: `{"type":"profile_updated","data":{"user_id":5,"new_username":"bob","update_username":false}}`,
			want: ProfileUpdated{UserID: 5, NewUsername: "bob"},
		},
		{
			name: "guild added without payload fields",
			line: `{"type":"guild_added_to_list","data":{"guild_id":9}}`,
			want: GuildAddedToList{GuildID: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, err := DecodeLine([]byte(tt.line))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %#v want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeMessageSent(t *testing.T) {
	line := `{"type":"message_sent","data":{"echo_id":7,"message":{"guild_id":1,"channel_id":2,"message_id":42,"content":{"text":"hello"},"overrides":{"avatar":"hmc://a.b/c"}}}}`
	_, ev, err := DecodeLine([]byte(line))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sent, ok := ev.(MessageSent)
	if !ok {
		t.Fatalf("expected MessageSent, got %T", ev)
	}
	if sent.EchoID != 7 || sent.Message == nil || sent.Message.MessageID != 42 {
		t.Fatalf("unexpected event: %+v", sent)
	}
	if sent.Message.Content.Text != "hello" || sent.Message.Overrides.Avatar != "hmc://a.b/c" {
		t.Fatalf("unexpected message: %+v", sent.Message)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, ev, err := DecodeLine([]byte(`{"type":"invite_created","data":{"x":1}}`))
	if err != nil {
		t.Fatalf("unknown kinds should not fail decoding: %v", err)
	}
	unknown, ok := ev.(Unknown)
	if !ok || unknown.Kind() != "invite_created" {
		t.Fatalf("expected Unknown, got %#v", ev)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	_, _, err := DecodeLine([]byte(`{"type":"typing","data":{"user_id":"nope"}}`))
	if err == nil || !strings.Contains(err.Error(), "typing") {
		t.Fatalf("expected typing decode error, got %v", err)
	}
	if _, _, err := DecodeLine([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected missing type error")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	original := ChannelUpdated{GuildID: 1, ChannelID: 2, Name: "general", UpdateName: true}
	env, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if env.Type != KindChannelUpdated {
		t.Fatalf("type: got %q", env.Type)
	}
	decoded, err := Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != original {
		t.Fatalf("got %#v want %#v", decoded, original)
	}
}
