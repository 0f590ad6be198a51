package cmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/config"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/format"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/logging"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/notify"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/provider_output/discord"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/providers/github"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/retry"
)

var (
	_ notify.ChatClient = (*discord.APIClient)(nil)
	_ notify.HostClient = (*github.GitHubProvider)(nil)
)

// components is everything a command needs once configuration has been accepted.
type components struct {
	cfg    *config.Config
	logger zerolog.Logger
	engine *notify.Engine
}

// loadRuntime loads and validates configuration before any side effect is attempted.
func loadRuntime(c *cli.Context) (*components, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg, c.App.ErrWriter, c.String("log-level"))
	if err != nil {
		return nil, err
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &components{cfg: cfg, logger: logger, engine: engine}, nil
}

func newLogger(cfg *config.Config, w io.Writer, levelOverride string) (zerolog.Logger, error) {
	level := cfg.Log.Level
	if levelOverride != "" {
		level = levelOverride
	}
	return logging.New(logging.Options{Level: level, Format: cfg.Log.Format, Writer: w})
}

// newEngine wires both collaborators into a notification engine.
func newEngine(cfg *config.Config, logger zerolog.Logger) (*notify.Engine, error) {
	users, err := cfg.UserMapper()
	if err != nil {
		return nil, err
	}

	retryCfg := retry.ChatRetryConfig()
	retryCfg.MaxRetries = cfg.Discord.MaxRetries

	chat := discord.NewAPIClient(discord.Config{
		Token:             cfg.Discord.Token,
		BaseURL:           cfg.Discord.APIURL,
		RequestsPerSecond: cfg.Discord.RequestsPerSecond,
		Burst:             cfg.Discord.Burst,
		Retry:             retryCfg,
	}, logger)

	host, err := github.New(github.GitHubConfig{
		Token:      cfg.GitHub.Token,
		Repository: cfg.GitHub.Repository,
		APIURL:     cfg.GitHub.APIURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	logger.Debug().Int("mapped_users", users.Len()).Str("channel_id", cfg.Discord.ChannelID).Msg("relay configured")

	return notify.NewEngine(chat, host, notify.Config{
		ChannelID: cfg.Discord.ChannelID,
		Renderer:  format.NewRenderer(users),
		Users:     users,
		Logger:    logger,
	}), nil
}
