package command

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/journal"
	"github.com/adamavenir/chatmirror/internal/types"
)

var (
	guildStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	channelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("157"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	typingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("216"))
)

// NewStateCmd creates the state command.
func NewStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state [journal]",
		Short: "Show the mirrored guilds, channels and members after a replay",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			path := ctx.JournalPath(args)

			var matcher glob.Glob
			if pattern, _ := cmd.Flags().GetString("channels"); pattern != "" {
				matcher, err = glob.Compile(pattern)
				if err != nil {
					return writeCommandError(cmd, fmt.Errorf("invalid --channels pattern: %w", err))
				}
			}
			showMembers, _ := cmd.Flags().GetBool("members")

			batch, err := journal.ReadAll(path)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			c := ctx.NewClient(nil)
			for _, record := range batch.Records {
				c.ProcessEvent(record.Event)
			}

			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{
					"guilds":  c.Guilds,
					"members": c.Members,
					"counts":  countState(c),
				})
			}

			out := cmd.OutOrStdout()
			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, metaStyle.Render(fmt.Sprintf("%s · %s · %d events", path, humanize.Bytes(uint64(info.Size())), len(batch.Records))))
			}
			renderState(out, c, stateView{
				matcher:     matcher,
				showMembers: showMembers,
				now:         time.Now(),
				typingTTL:   ctx.Config.TypingTTL.Duration(),
			})
			return nil
		},
	}

	cmd.Flags().String("channels", "", "only show channels whose name matches this glob")
	cmd.Flags().Bool("members", false, "list members under each guild")

	return cmd
}

type stateView struct {
	matcher     glob.Glob
	showMembers bool
	now         time.Time
	typingTTL   time.Duration
}

func renderState(out io.Writer, c *client.Client, view stateView) {
	guildIDs := make([]uint64, 0, len(c.Guilds))
	for id := range c.Guilds {
		guildIDs = append(guildIDs, id)
	}
	sort.Slice(guildIDs, func(i, j int) bool { return guildIDs[i] < guildIDs[j] })

	if len(guildIDs) == 0 {
		fmt.Fprintln(out, "No guilds.")
		return
	}

	for _, guildID := range guildIDs {
		guild := c.Guilds[guildID]
		name := guild.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(out, "%s %s\n", guildStyle.Render(name), metaStyle.Render(fmt.Sprintf("%d · %d members", guildID, len(guild.Members))))

		for _, channelID := range guild.OrderedChannels() {
			channel := guild.Channels[channelID]
			if view.matcher != nil && !view.matcher.Match(channel.Name) {
				continue
			}
			if channel.IsCategory {
				fmt.Fprintf(out, "  %s\n", categoryStyle.Render(strings.ToUpper(channel.Name)))
				continue
			}
			line := fmt.Sprintf("  %s %s", channelStyle.Render("#"+channel.Name), metaStyle.Render(channelSummary(channel)))
			if typing := typingNames(c, guildID, channelID, view); len(typing) > 0 {
				line += " " + typingStyle.Render(strings.Join(typing, ", ")+" typing")
			}
			fmt.Fprintln(out, line)
		}

		if view.showMembers {
			for _, memberID := range sortedMembers(guild) {
				fmt.Fprintf(out, "    %s\n", memberLine(c, memberID))
			}
		}
	}
}

func channelSummary(channel *types.Channel) string {
	pending := 0
	for _, msg := range channel.Messages {
		if msg.Pending() {
			pending++
		}
	}
	parts := []string{fmt.Sprintf("%d messages", len(channel.Messages))}
	if pending > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", pending))
	}
	if channel.ReachedTop {
		parts = append(parts, "top")
	}
	return strings.Join(parts, " · ")
}

func typingNames(c *client.Client, guildID, channelID uint64, view stateView) []string {
	guild := c.Guild(guildID)
	var names []string
	for _, memberID := range sortedMembers(guild) {
		member := c.Member(memberID)
		if member == nil || !member.IsTypingIn(guildID, channelID, view.now, view.typingTTL) {
			continue
		}
		names = append(names, displayName(member, memberID))
	}
	return names
}

func sortedMembers(guild *types.Guild) []uint64 {
	ids := make([]uint64, 0, len(guild.Members))
	for id := range guild.Members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func memberLine(c *client.Client, memberID uint64) string {
	member := c.Member(memberID)
	if member == nil {
		return metaStyle.Render(fmt.Sprintf("%d (profile not loaded)", memberID))
	}
	line := fmt.Sprintf("%s %s", displayName(member, memberID), metaStyle.Render(member.Status.String()))
	if member.IsBot {
		line += metaStyle.Render(" bot")
	}
	return line
}

func displayName(member *types.Member, id uint64) string {
	if member.Username != "" {
		return member.Username
	}
	return fmt.Sprintf("%d", id)
}
