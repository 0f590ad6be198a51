package cmd

import (
	"github.com/urfave/cli/v2"
)

// NewApp assembles the command-line application.
func NewApp(version string) *cli.App {
	return &cli.App{
		Name:    "prthread",
		Usage:   "Mirror GitHub pull request activity into Discord threads",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: ./prthread.toml, then ~/.prthread.toml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` before anything else",
			},
		},
		Before: func(c *cli.Context) error {
			if path := c.String("env-file"); path != "" {
				return LoadEnvFile(path)
			}
			return nil
		},
		Commands: []*cli.Command{
			RelayCommand(),
			ServeCommand(),
			ConfigCommand(),
		},
	}
}
