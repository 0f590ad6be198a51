// Package github turns GitHub webhook deliveries into relay events.
package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v71/github"

	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

// ErrInvalidDelivery marks a delivery whose signature or encoding was rejected.
var ErrInvalidDelivery = errors.New("invalid webhook delivery")

// WebhookProvider converts GitHub deliveries received over HTTP.
type WebhookProvider struct {
	secret []byte
}

// NewWebhookProvider creates a provider. An empty secret disables signature checks.
func NewWebhookProvider(secret string) *WebhookProvider {
	return &WebhookProvider{secret: []byte(secret)}
}

// ProviderName returns the provider name.
func (p *WebhookProvider) ProviderName() string {
	return "github"
}

// CanHandleWebhook checks if the request came from GitHub.
func (p *WebhookProvider) CanHandleWebhook(headers http.Header) bool {
	return headers.Get(gh.EventTypeHeader) != "" || headers.Get(gh.DeliveryIDHeader) != ""
}

// SignatureRequired reports whether deliveries must be signed.
func (p *WebhookProvider) SignatureRequired() bool {
	return len(p.secret) > 0
}

// ConvertRequest validates and converts a delivery. The request body is consumed.
func (p *WebhookProvider) ConvertRequest(r *http.Request) (*models.Event, error) {
	var secret []byte
	if p.SignatureRequired() {
		secret = p.secret
	}
	body, err := gh.ValidatePayload(r, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDelivery, err)
	}

	event, err := Convert(strings.TrimSpace(gh.WebHookType(r)), body)
	if err != nil {
		return nil, err
	}
	event.DeliveryID = gh.DeliveryID(r)
	return event, nil
}
