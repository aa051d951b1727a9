package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/journal"
)

// NewFollowCmd creates the follow command.
func NewFollowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "follow [journal]",
		Short: "Replay a journal and keep applying events as they are appended",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			path := ctx.JournalPath(args)

			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			if metricsAddr == "" {
				metricsAddr = ctx.Config.MetricsAddr
			}
			duration, _ := cmd.Flags().GetDuration("for")

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, duration)
				defer cancel()
			}

			if metricsAddr != "" {
				shutdown := serveMetrics(metricsAddr, ctx.Logger)
				defer shutdown()
			}

			runner, err := followJournal(runCtx, ctx, path, cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			summary := replaySummary{Journal: path, Requests: []string{}, State: countState(runner.Client())}
			for _, req := range runner.Requests() {
				summary.Requests = append(summary.Requests, req.String())
			}
			if ctx.JSONMode {
				return writeJSON(cmd, summary)
			}
			s := summary.State
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped following %s: %d guilds, %d channels, %d members, %d messages\n",
				path, s.Guilds, s.Channels, s.Members, s.Messages)
			return nil
		},
	}

	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Duration("for", 0, "stop after this long (default: until interrupted)")

	return cmd
}

// followJournal streams the journal into a headless program until runCtx
// ends and returns the runner once every event has been applied.
func followJournal(runCtx context.Context, ctx *CommandContext, path string, cmd *cobra.Command) (*client.Runner, error) {
	feed := make(chan events.Event)
	// Outlives runCtx so lines read while the follower stops are still applied.
	feedCtx, cancelFeed := context.WithCancel(context.Background())
	defer cancelFeed()

	out := cmd.OutOrStdout()
	var handle client.RequestHandler
	if !ctx.JSONMode {
		handle = func(req client.PostProcess) tea.Cmd {
			fmt.Fprintf(out, "request  %s\n", req)
			return nil
		}
	}

	runner := client.NewRunner(ctx.NewClient(nil), client.RunnerOptions{
		Context:      feedCtx,
		Events:       feed,
		QuitWhenIdle: true,
		Handle:       handle,
	})

	followErr := make(chan error, 1)
	go func() {
		defer close(feed)
		_, err := journal.Follow(runCtx, path, 0, func(batch journal.Batch) {
			if batch.Skipped > 0 {
				ctx.Logger.Warn().Int("skipped", batch.Skipped).Str("journal", path).Msg("unreadable journal lines")
			}
			for _, record := range batch.Records {
				select {
				case feed <- record.Event:
				case <-feedCtx.Done():
					return
				}
			}
		})
		followErr <- err
	}()

	program := tea.NewProgram(runner, tea.WithInput(nil), tea.WithoutRenderer(), tea.WithoutSignalHandler())
	if _, err := program.Run(); err != nil {
		return nil, err
	}

	err := <-followErr
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return runner, err
	}
	return runner, nil
}

func serveMetrics(addr string, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
