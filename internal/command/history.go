package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/journal"
)

type historyMessageJSON struct {
	ID       string `json:"id"`
	Sender   uint64 `json:"sender"`
	Text     string `json:"text"`
	EditedAt int64  `json:"edited_at,omitempty"`
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [journal] --guild <id> --channel <id>",
		Short: "Load channel history pages from the journal index",
		Long: "Builds guilds and channels from the journal, then loads message history into one channel\n" +
			"page by page from the sqlite index, the way a freshly started client would.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			ids, err := requireIDs(cmd, "guild", "channel")
			if err != nil {
				return writeCommandError(cmd, err)
			}
			guildID, channelID := ids[0], ids[1]
			pages, _ := cmd.Flags().GetInt("pages")
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				ctx.Config.HistoryPageSize = limit
			}

			j, err := journal.Open(ctx.JournalPath(args))
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer j.Close()

			batch, err := journal.ReadAll(j.Path())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			c := ctx.NewClient(&journal.HistorySource{Journal: j})
			for _, record := range batch.Records {
				if carriesMessage(record.Event) {
					continue
				}
				c.ProcessEvent(record.Event)
			}
			if c.Channel(guildID, channelID) == nil {
				return writeCommandError(cmd, fmt.Errorf("channel %d/%d not found in %s", guildID, channelID, j.Path()))
			}

			runner := client.NewRunner(c, client.RunnerOptions{Context: cmd.Context()})
			loaded := 0
			for pages <= 0 || loaded < pages {
				_, fetch := runner.Update(client.LoadHistoryMsg{GuildID: guildID, ChannelID: channelID})
				if fetch == nil {
					break
				}
				runner.Update(fetch())
				if errs := runner.Errors(); len(errs) > 0 {
					return writeCommandError(cmd, errs[0])
				}
				loaded++
			}

			channel := c.Channel(guildID, channelID)
			if ctx.JSONMode {
				messages := make([]historyMessageJSON, 0, len(channel.Messages))
				for _, msg := range channel.Messages {
					item := historyMessageJSON{ID: msg.ID.String(), Sender: msg.Sender, Text: msg.Content.Text}
					if !msg.EditedAt.IsZero() {
						item.EditedAt = msg.EditedAt.UnixMilli()
					}
					messages = append(messages, item)
				}
				return writeJSON(cmd, map[string]any{
					"guild_id":    guildID,
					"channel_id":  channelID,
					"pages":       loaded,
					"reached_top": channel.ReachedTop,
					"messages":    messages,
					"requests":    len(runner.Requests()),
				})
			}

			out := cmd.OutOrStdout()
			for i, msg := range channel.Messages {
				marker := " "
				if i == channel.LookingAtMessage {
					marker = ">"
				}
				fmt.Fprintf(out, "%s %s\n", marker, formatMessageLine(msg))
			}
			top := "no"
			if channel.ReachedTop {
				top = "yes"
			}
			fmt.Fprintf(out, "%d messages in %d pages, reached top: %s, %d follow-up requests\n",
				len(channel.Messages), loaded, top, len(runner.Requests()))
			return nil
		},
	}

	cmd.Flags().Uint64("guild", 0, "guild id")
	cmd.Flags().Uint64("channel", 0, "channel id")
	cmd.Flags().Int("pages", 1, "pages to load (0 loads until the top)")
	cmd.Flags().Int("limit", 0, "messages per page (default from config)")

	return cmd
}

// carriesMessage reports events whose effect the history index already holds.
func carriesMessage(ev events.Event) bool {
	switch ev.(type) {
	case events.MessageSent, events.MessageEdited, events.MessageDeleted:
		return true
	}
	return false
}
