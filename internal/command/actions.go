package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/types"
)

// NewEditCmd creates the edit command.
func NewEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit --guild <id> --channel <id> --message <id> <text>",
		Short: "Replace the text of a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			ids, err := requireIDs(cmd, "guild", "channel", "message")
			if err != nil {
				return writeCommandError(cmd, err)
			}
			hc, err := homeserverClient(ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			runCtx, stop := actionContext(cmd)
			defer stop()

			msg := client.EditMsg{GuildID: ids[0], ChannelID: ids[1], MessageID: ids[2], Text: strings.Join(args, " ")}
			if _, err := runHeadless(runCtx, ctx, hc, ctx.NewClient(hc), msg); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Edited message %d\n", msg.MessageID)
			return nil
		},
	}

	cmd.Flags().Uint64("guild", 0, "guild id")
	cmd.Flags().Uint64("channel", 0, "channel id")
	cmd.Flags().Uint64("message", 0, "message id")

	return cmd
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete --guild <id> --channel <id> --message <id>",
		Short: "Delete a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			ids, err := requireIDs(cmd, "guild", "channel", "message")
			if err != nil {
				return writeCommandError(cmd, err)
			}
			hc, err := homeserverClient(ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			runCtx, stop := actionContext(cmd)
			defer stop()

			msg := client.DeleteMsg{GuildID: ids[0], ChannelID: ids[1], MessageID: ids[2]}
			if _, err := runHeadless(runCtx, ctx, hc, ctx.NewClient(hc), msg); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted message %d\n", msg.MessageID)
			return nil
		},
	}

	cmd.Flags().Uint64("guild", 0, "guild id")
	cmd.Flags().Uint64("channel", 0, "channel id")
	cmd.Flags().Uint64("message", 0, "message id")

	return cmd
}

// NewRenameGuildCmd creates the rename-guild command.
func NewRenameGuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename-guild --guild <id> [--name <name>] [--picture <asset>]",
		Short: "Change a guild's name or picture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			ids, err := requireIDs(cmd, "guild")
			if err != nil {
				return writeCommandError(cmd, err)
			}

			req := client.UpdateGuildInfoRequest{GuildID: ids[0]}
			if cmd.Flags().Changed("name") {
				name, _ := cmd.Flags().GetString("name")
				req.Name = &name
			}
			if picture, _ := cmd.Flags().GetString("picture"); picture != "" {
				ref, err := types.ParseAssetRef(picture)
				if err != nil {
					return writeCommandError(cmd, fmt.Errorf("invalid --picture: %w", err))
				}
				req.Picture = &ref
			}
			if req.Name == nil && req.Picture == nil {
				return writeCommandError(cmd, fmt.Errorf("nothing to change: pass --name or --picture"))
			}

			hc, err := homeserverClient(ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			runCtx, stop := actionContext(cmd)
			defer stop()

			if _, err := runHeadless(runCtx, ctx, hc, ctx.NewClient(hc), client.UpdateGuildMsg{Request: req}); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated guild %d\n", req.GuildID)
			return nil
		},
	}

	cmd.Flags().Uint64("guild", 0, "guild id")
	cmd.Flags().String("name", "", "new guild name")
	cmd.Flags().String("picture", "", "new guild picture (asset reference)")

	return cmd
}
