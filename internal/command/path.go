package command

import (
	"fmt"
	neturl "net/url"

	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/hostclient"
	"github.com/adamavenir/chatmirror/internal/media"
	"github.com/adamavenir/chatmirror/internal/types"
)

// NewPathCmd creates the path command.
func NewPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path <asset-ref>",
		Short: "Print where an asset is stored under the data directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			ref, err := types.ParseAssetRef(args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			var url string
			if ctx.Config.Homeserver != "" {
				if hc, err := hostclient.NewClient(ctx.Config.Homeserver, ctx.Config.Token); err == nil {
					url, _ = hc.AssetURL(ref)
				}
			}
			// Local ids are stored under the homeserver's host.
			if ref.Authority == "" && ctx.Config.Homeserver != "" {
				if base, err := neturl.Parse(ctx.Config.Homeserver); err == nil {
					ref.Authority = base.Host
				}
			}

			path, ok := media.ContentPath(ctx.Config.DataDir, ref)
			if !ok {
				return writeCommandError(cmd, fmt.Errorf("asset %q has no host to store it under", args[0]))
			}
			exists := media.ContentExists(ctx.Config.DataDir, ref)

			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{
					"ref":    ref.String(),
					"path":   path,
					"exists": exists,
					"name":   media.FileName(path),
					"url":    url,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, path)
			if url != "" {
				fmt.Fprintf(out, "url: %s\n", url)
			}
			if !exists {
				fmt.Fprintln(out, "(not downloaded)")
			}
			return nil
		},
	}

	return cmd
}
