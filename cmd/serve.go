package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/api"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/provider_input/github"
)

// ServeCommand returns the CLI command for receiving GitHub webhooks directly
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Receive GitHub webhooks over HTTP and relay them to Discord",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address, overrides server.addr",
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}

			addr := rt.cfg.Server.Addr
			if override := c.String("addr"); override != "" {
				addr = override
			}
			if rt.cfg.Server.WebhookSecret == "" {
				rt.logger.Warn().Msg("server.webhook_secret is empty; deliveries will not be authenticated")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(addr, github.NewWebhookProvider(rt.cfg.Server.WebhookSecret), rt.engine, rt.logger)
			return server.Start(ctx)
		},
	}
}
