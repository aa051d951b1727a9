package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/hostclient"
	"github.com/adamavenir/chatmirror/internal/journal"
)

// NewPullCmd creates the pull command.
func NewPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull [journal]",
		Short: "Record homeserver events into the journal",
		Long: "Polls the homeserver event feed and appends every event to the journal and its history index.\n" +
			"The feed cursor is saved next to the journal so the next pull resumes where this one stopped.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			once, _ := cmd.Flags().GetBool("once")
			duration, _ := cmd.Flags().GetDuration("for")

			hc, err := homeserverClient(ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			j, err := journal.Open(ctx.JournalPath(args))
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer j.Close()

			cursorPath := cursorPathFor(j.Path())
			cursor, err := readCursor(cursorPath)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			runCtx, stop := actionContext(cmd)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, duration)
				defer cancel()
			}

			recorded := 0
			var appendErr error
			sink := func(ev events.Event) {
				if appendErr != nil {
					return
				}
				if _, err := j.Append(ev); err != nil {
					appendErr = err
					return
				}
				recorded++
			}

			poller := &hostclient.Poller{
				Client:   hc,
				Interval: ctx.Config.PollInterval.Duration(),
				Logger:   ctx.Logger,
				Cursor:   cursor,
			}
			if once {
				_, err = poller.PollOnce(runCtx, sink)
			} else {
				err = poller.Run(runCtx, sink)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					err = nil
				}
			}
			if err == nil {
				err = appendErr
			}
			if saveErr := writeCursor(cursorPath, poller.Cursor); saveErr != nil && err == nil {
				err = saveErr
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{"recorded": recorded, "cursor": poller.Cursor, "journal": j.Path()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d events into %s\n", recorded, j.Path())
			return nil
		},
	}

	cmd.Flags().Bool("once", false, "poll a single batch and exit")
	cmd.Flags().Duration("for", 0, "stop after this long (default: until interrupted)")

	return cmd
}

func cursorPathFor(journalPath string) string {
	return strings.TrimSuffix(journalPath, filepath.Ext(journalPath)) + ".cursor"
}

func readCursor(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeCursor(path, cursor string) error {
	if cursor == "" {
		return nil
	}
	return os.WriteFile(path, []byte(cursor+"\n"), 0o644)
}
