package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const AppName = "chatmirror"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "chatmirror - local mirror of a chat homeserver",
		Long:          "chatmirror keeps a local copy of guilds, channels, members and messages and replays recorded event journals through it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "path to a YAML config file")
	cmd.PersistentFlags().String("data-dir", "", "override the data directory")
	cmd.PersistentFlags().String("log-level", "", "override the log level")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewReplayCmd(),
		NewFollowCmd(),
		NewHistoryCmd(),
		NewStateCmd(),
		NewSendCmd(),
		NewEditCmd(),
		NewDeleteCmd(),
		NewRenameGuildCmd(),
		NewPullCmd(),
		NewPathCmd(),
	)

	return cmd
}

func Execute() error {
	cmd := NewRootCmd(Version)
	err := cmd.Execute()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	}
	return err
}
