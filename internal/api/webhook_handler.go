package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/logging"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/provider_input/github"
)

// DeliveryResponse is the JSON body returned for every webhook delivery.
type DeliveryResponse struct {
	Status     string   `json:"status"`
	DeliveryID string   `json:"delivery_id,omitempty"`
	Event      string   `json:"event,omitempty"`
	Skipped    string   `json:"skipped,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Delivery statuses.
const (
	StatusRelayed  = "relayed"
	StatusIgnored  = "ignored"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// handleGitHubWebhook runs one delivery synchronously. Deliveries for the same pull request
// are not serialized against each other.
func (s *Server) handleGitHubWebhook(c echo.Context) error {
	req := c.Request()
	deliveryID := req.Header.Get("X-GitHub-Delivery")
	runID := deliveryID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := logging.ForRun(s.logger, runID, req.Header.Get("X-GitHub-Event"), "", 0)

	event, err := s.webhooks.ConvertRequest(req)
	switch {
	case errors.Is(err, github.ErrInvalidDelivery):
		logger.Warn().Err(err).Msg("rejected webhook delivery")
		return c.JSON(http.StatusUnauthorized, DeliveryResponse{Status: StatusRejected, DeliveryID: deliveryID, Error: err.Error()})
	case errors.Is(err, github.ErrUnhandledEvent):
		logger.Warn().Err(err).Msg("ignoring unhandled event")
		return c.JSON(http.StatusAccepted, DeliveryResponse{Status: StatusIgnored, DeliveryID: deliveryID, Error: err.Error()})
	case err != nil:
		logger.Error().Err(err).Msg("failed to parse webhook delivery")
		return c.JSON(http.StatusBadRequest, DeliveryResponse{Status: StatusRejected, DeliveryID: deliveryID, Error: err.Error()})
	}

	logger = logging.ForRun(s.logger, runID, event.Name, event.Action, event.PullRequest.Number)
	ctx := logger.WithContext(req.Context())

	out, err := s.handler.Handle(ctx, *event)
	resp := DeliveryResponse{
		Status:     StatusRelayed,
		DeliveryID: deliveryID,
		Event:      event.Kind.String(),
	}
	if out != nil {
		resp.Skipped = out.Skipped
		for _, w := range out.Warnings {
			resp.Warnings = append(resp.Warnings, w.Error())
		}
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to relay event")
		resp.Status = StatusFailed
		resp.Error = err.Error()
		return c.JSON(http.StatusInternalServerError, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
