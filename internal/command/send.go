package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/hostclient"
	"github.com/adamavenir/chatmirror/internal/types"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send --guild <id> --channel <id> <message>",
		Short: "Send a message, retrying until the homeserver accepts it",
		Args:  cobra.MinimumNArgs(1),
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

			overrides, err := overridesFromFlags(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			text := strings.Join(args, " ")

			hc, err := homeserverClient(ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			runCtx, stop := actionContext(cmd)
			defer stop()

			c := ctx.NewClient(hc)
			if err := loadGuild(runCtx, hc, c, guildID); err != nil {
				return writeCommandError(cmd, err)
			}
			if c.Channel(guildID, channelID) == nil {
				return writeCommandError(cmd, fmt.Errorf("channel %d not found in guild %d", channelID, guildID))
			}

			runner, err := runHeadless(runCtx, ctx, hc, c, client.SubmitMsg{
				GuildID:   guildID,
				ChannelID: channelID,
				Content:   types.TextContent(text),
				Overrides: overrides,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}

			submitted := runner.Submitted()
			if len(submitted) == 0 {
				return writeCommandError(cmd, fmt.Errorf("message was not submitted"))
			}
			transactionID := submitted[0]
			messageID, ok := runner.SentMessageID(transactionID)
			if !ok {
				return writeCommandError(cmd, fmt.Errorf("message %d was not acknowledged", transactionID))
			}

			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{
					"guild_id":       guildID,
					"channel_id":     channelID,
					"transaction_id": transactionID,
					"message_id":     messageID,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %d to %d/%d\n", messageID, guildID, channelID)
			return nil
		},
	}

	cmd.Flags().Uint64("guild", 0, "guild id")
	cmd.Flags().Uint64("channel", 0, "channel id")
	cmd.Flags().String("as-name", "", "display name override")
	cmd.Flags().String("as-avatar", "", "avatar override (asset reference)")
	cmd.Flags().String("reason", "", "reason shown with the overrides")

	return cmd
}

func overridesFromFlags(cmd *cobra.Command) (*types.Overrides, error) {
	name, _ := cmd.Flags().GetString("as-name")
	avatar, _ := cmd.Flags().GetString("as-avatar")
	reason, _ := cmd.Flags().GetString("reason")
	if name == "" && avatar == "" && reason == "" {
		return nil, nil
	}
	overrides := &types.Overrides{Name: name, Reason: reason}
	if avatar != "" {
		ref, err := types.ParseAssetRef(avatar)
		if err != nil {
			return nil, fmt.Errorf("invalid --as-avatar: %w", err)
		}
		overrides.Avatar = &ref
	}
	return overrides, nil
}

func homeserverClient(ctx *CommandContext) (*hostclient.Client, error) {
	if ctx.Config.Homeserver == "" {
		return nil, fmt.Errorf("no homeserver configured: set homeserver in the config file or CHATMIRROR_HOMESERVER")
	}
	return hostclient.NewClient(ctx.Config.Homeserver, ctx.Config.Token)
}

func actionContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

// loadGuild adds a guild to the mirror and fills it from the homeserver.
func loadGuild(ctx context.Context, hc *hostclient.Client, c *client.Client, guildID uint64) error {
	c.ProcessEvent(events.GuildAddedToList{GuildID: guildID})
	data, err := hc.GetGuildData(ctx, guildID)
	if err != nil {
		return fmt.Errorf("load guild %d: %w", guildID, err)
	}
	for _, ev := range hostclient.GuildEvents(guildID, data) {
		c.ProcessEvent(ev)
	}
	return nil
}

// runHeadless drives one action through a renderer-less program and returns
// once every dispatched action has completed.
func runHeadless(runCtx context.Context, ctx *CommandContext, hc *hostclient.Client, c *client.Client, initial tea.Msg) (*client.Runner, error) {
	runner := client.NewRunner(c, client.RunnerOptions{
		Context:      runCtx,
		Handle:       hc.Handler(runCtx, ctx.Logger),
		QuitWhenIdle: true,
	})
	program := tea.NewProgram(runner,
		tea.WithContext(runCtx),
		tea.WithInput(nil),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	go program.Send(initial)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return runner, fmt.Errorf("interrupted: %w", context.Cause(runCtx))
		}
		return runner, err
	}
	if errs := runner.Errors(); len(errs) > 0 {
		return runner, errors.Join(errs...)
	}
	return runner, nil
}
