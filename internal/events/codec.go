package events

import (
	"encoding/json"
	"fmt"
)

// Envelope is the JSON form of an event: a type tag plus its payload. ID and
// TS are filled in by whoever records the envelope.
type Envelope struct {
	ID   string          `json:"id,omitempty"`
	TS   int64           `json:"ts,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var decoders = map[string]func(json.RawMessage) (Event, error){
	KindMessageSent:          decodeAs[MessageSent],
	KindMessageDeleted:       decodeAs[MessageDeleted],
	KindMessageEdited:        decodeAs[MessageEdited],
	KindChannelCreated:       decodeAs[ChannelCreated],
	KindChannelUpdated:       decodeAs[ChannelUpdated],
	KindChannelDeleted:       decodeAs[ChannelDeleted],
	KindTyping:               decodeAs[Typing],
	KindMemberJoined:         decodeAs[MemberJoined],
	KindMemberLeft:           decodeAs[MemberLeft],
	KindProfileUpdated:       decodeAs[ProfileUpdated],
	KindGuildAddedToList:     decodeAs[GuildAddedToList],
	KindGuildRemovedFromList: decodeAs[GuildRemovedFromList],
	KindGuildDeleted:         decodeAs[GuildDeleted],
	KindGuildUpdated:         decodeAs[GuildUpdated],
}

func decodeAs[T Event](data json.RawMessage) (Event, error) {
	var ev T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// Decode turns an envelope into its event. Unrecognised types decode to
// Unknown without an error; a malformed payload for a known type is an error.
func Decode(env Envelope) (Event, error) {
	decode, ok := decoders[env.Type]
	if !ok {
		return Unknown{Type: env.Type, Data: env.Data}, nil
	}
	ev, err := decode(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", env.Type, err)
	}
	return ev, nil
}

// Encode wraps an event in an envelope.
func Encode(ev Event) (Envelope, error) {
	if ev == nil {
		return Envelope{}, fmt.Errorf("encode: nil event")
	}
	if unknown, ok := ev.(Unknown); ok {
		return Envelope{Type: unknown.Type, Data: unknown.Data}, nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s event: %w", ev.Kind(), err)
	}
	return Envelope{Type: ev.Kind(), Data: data}, nil
}

// DecodeLine parses one JSON line holding an envelope.
func DecodeLine(line []byte) (Envelope, Event, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("invalid event envelope: %w", err)
	}
	if env.Type == "" {
		return env, nil, fmt.Errorf("event envelope missing type")
	}
	ev, err := Decode(env)
	if err != nil {
		return env, nil, err
	}
	return env, ev, nil
}
