package command

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/journal"
)

type stateCounts struct {
	Guilds   int `json:"guilds"`
	Channels int `json:"channels"`
	Members  int `json:"members"`
	Messages int `json:"messages"`
	Pending  int `json:"pending"`
}

type replaySummary struct {
	Journal  string      `json:"journal"`
	Events   int         `json:"events"`
	Skipped  int         `json:"skipped"`
	Requests []string    `json:"requests"`
	State    stateCounts `json:"state"`
}

// NewReplayCmd creates the replay command.
func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [journal]",
		Short: "Apply a recorded event journal to an empty mirror",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			path := ctx.JournalPath(args)

			batch, err := journal.ReadAll(path)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			c := ctx.NewClient(nil)
			out := cmd.OutOrStdout()

			summary := replaySummary{Journal: path, Events: len(batch.Records), Skipped: batch.Skipped, Requests: []string{}}
			for _, record := range batch.Records {
				for _, req := range c.ProcessEvent(record.Event) {
					summary.Requests = append(summary.Requests, req.String())
					if !ctx.JSONMode {
						fmt.Fprintf(out, "%-24s %s\n", record.Envelope.Type, req)
					}
				}
			}
			summary.State = countState(c)

			if ctx.JSONMode {
				return writeJSON(cmd, summary)
			}
			printReplaySummary(out, summary)
			return nil
		},
	}

	return cmd
}

func printReplaySummary(out io.Writer, summary replaySummary) {
	fmt.Fprintf(out, "Replayed %d events from %s", summary.Events, summary.Journal)
	if summary.Skipped > 0 {
		fmt.Fprintf(out, " (%d unreadable lines skipped)", summary.Skipped)
	}
	fmt.Fprintln(out)
	s := summary.State
	fmt.Fprintf(out, "%d guilds, %d channels, %d members, %d messages (%d pending), %d follow-up requests\n",
		s.Guilds, s.Channels, s.Members, s.Messages, s.Pending, len(summary.Requests))
}

func countState(c *client.Client) stateCounts {
	counts := stateCounts{Guilds: len(c.Guilds), Members: len(c.Members)}
	for _, guild := range c.Guilds {
		counts.Channels += len(guild.Channels)
		for _, channel := range guild.Channels {
			counts.Messages += len(channel.Messages)
			for _, msg := range channel.Messages {
				if msg.Pending() {
					counts.Pending++
				}
			}
		}
	}
	return counts
}
