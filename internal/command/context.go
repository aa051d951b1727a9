package command

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/config"
	"github.com/adamavenir/chatmirror/internal/logging"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	Config   config.Config
	Logger   zerolog.Logger
	JSONMode bool
}

// GetContext resolves configuration and logging for a command.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	logLevel, _ := cmd.Flags().GetString("log-level")
	jsonMode, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	return &CommandContext{Config: cfg, Logger: logger, JSONMode: jsonMode}, nil
}

// NewClient builds a client configured from ctx.
func (ctx *CommandContext) NewClient(transport client.Transport) *client.Client {
	logger := ctx.Logger
	return client.New(client.Options{
		UserID:             ctx.Config.UserID,
		Transport:          transport,
		Logger:             &logger,
		RetryStep:          ctx.Config.RetryStep.Duration(),
		ShownMessagesLimit: ctx.Config.ShownMessagesLimit,
		HistoryPageSize:    ctx.Config.HistoryPageSize,
	})
}

// JournalPath returns the journal named by args, or the configured one.
func (ctx *CommandContext) JournalPath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return ctx.Config.JournalPath()
}
