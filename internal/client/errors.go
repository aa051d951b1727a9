package client

import "fmt"

// ActionError reports a failed edit, delete, guild update or history fetch.
// These are not retried.
type ActionError struct {
	Action    string
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
	Err       error
}

func (e *ActionError) Error() string {
	switch {
	case e.MessageID != 0:
		return fmt.Sprintf("%s message %d in %d/%d: %v", e.Action, e.MessageID, e.GuildID, e.ChannelID, e.Err)
	case e.ChannelID != 0:
		return fmt.Sprintf("%s in %d/%d: %v", e.Action, e.GuildID, e.ChannelID, e.Err)
	default:
		return fmt.Sprintf("%s guild %d: %v", e.Action, e.GuildID, e.Err)
	}
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

const (
	ActionEdit        = "edit"
	ActionDelete      = "delete"
	ActionUpdateGuild = "update_guild"
	ActionHistory     = "history"
)
