package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/logging"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/provider_input/github"
)

// RelayCommand returns the relay command, which handles one event inside a GitHub Actions job.
func RelayCommand() *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "Relay a single pull request event to Discord",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "event",
				Aliases: []string{"e"},
				Usage:   "GitHub event name (pull_request, pull_request_review)",
				EnvVars: []string{"GITHUB_EVENT_NAME"},
			},
			&cli.StringFlag{
				Name:    "payload",
				Aliases: []string{"p"},
				Usage:   "Path to the webhook payload `FILE`",
				EnvVars: []string{"GITHUB_EVENT_PATH"},
			},
		},
		Action: runRelay,
	}
}

func runRelay(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}

	eventName := c.String("event")
	payloadPath := c.String("payload")
	if eventName == "" || payloadPath == "" {
		return fmt.Errorf("both an event name and a payload file are required (GITHUB_EVENT_NAME, GITHUB_EVENT_PATH)")
	}

	body, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	runID := uuid.NewString()
	logger := logging.ForRun(rt.logger, runID, eventName, "", 0)

	event, err := github.Convert(eventName, body)
	if errors.Is(err, github.ErrUnhandledEvent) {
		logger.Warn().Err(err).Msg("ignoring unhandled event")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s payload: %w", eventName, err)
	}
	event.DeliveryID = runID

	logger = logging.ForRun(rt.logger, runID, event.Name, event.Action, event.PullRequest.Number)
	ctx := logger.WithContext(c.Context)

	out, err := rt.engine.Handle(ctx, *event)
	if err != nil {
		return fmt.Errorf("failed to relay %s: %w", event.Kind, err)
	}
	if len(out.Warnings) > 0 {
		logger.Warn().Int("warnings", len(out.Warnings)).Msg("relay finished with warnings")
	}
	return nil
}
