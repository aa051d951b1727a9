package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/types"
)

func writeJSON(cmd *cobra.Command, v any) error {
	return json.NewEncoder(cmd.OutOrStdout()).Encode(v)
}

// requireIDs reads the named uint64 flags and fails when any is zero.
func requireIDs(cmd *cobra.Command, names ...string) ([]uint64, error) {
	ids := make([]uint64, 0, len(names))
	for _, name := range names {
		id, _ := cmd.Flags().GetUint64(name)
		if id == 0 {
			return nil, fmt.Errorf("--%s is required", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func truncate(value string, max int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	if max <= 0 || len([]rune(value)) <= max {
		return value
	}
	runes := []rune(value)
	return string(runes[:max-1]) + "…"
}

func formatMessageLine(msg types.Message) string {
	id := msg.ID.String()
	text := msg.Content.Text
	if text == "" && len(msg.Content.Attachments) > 0 {
		text = fmt.Sprintf("[%d attachments]", len(msg.Content.Attachments))
	}
	edited := ""
	if !msg.EditedAt.IsZero() {
		edited = " (edited)"
	}
	return fmt.Sprintf("%-14s %-6d %s%s", id, msg.Sender, truncate(text, 80), edited)
}
