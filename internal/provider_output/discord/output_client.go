package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/retry"
	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

const (
	DefaultBaseURL = "https://discord.com/api/v10"

	// flagSuppressEmbeds hides link previews on sent and edited messages.
	flagSuppressEmbeds = 1 << 2

	// autoArchiveWeek keeps threads open for seven days of inactivity.
	autoArchiveWeek = 10080
)

// Config configures the Discord REST client.
type Config struct {
	Token             string
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	Retry             retry.RetryConfig
	HTTPClient        *http.Client
}

// APIClient is the chat-platform collaborator backed by the Discord REST API.
type APIClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      retry.RetryConfig
	logger     zerolog.Logger
}

// NewAPIClient constructs a Discord client with sensible defaults.
func NewAPIClient(cfg Config, logger zerolog.Logger) *APIClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	retryCfg := cfg.Retry
	if retryCfg.Retryable == nil {
		retryCfg.Retryable = isRetryable
	}

	return &APIClient{
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		retry:      retryCfg,
		logger:     logger.With().Str("component", "discord").Logger(),
	}
}

type messageBody struct {
	Content         string           `json:"content"`
	Flags           int              `json:"flags"`
	AllowedMentions *allowedMentions `json:"allowed_mentions,omitempty"`
}

type allowedMentions struct {
	Parse []string `json:"parse"`
}

type wireEmoji struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

type wireReaction struct {
	Count int       `json:"count"`
	Me    bool      `json:"me"`
	Emoji wireEmoji `json:"emoji"`
}

type wireMessage struct {
	ID        string         `json:"id"`
	ChannelID string         `json:"channel_id"`
	Content   string         `json:"content"`
	Reactions []wireReaction `json:"reactions"`
}

type wireChannel struct {
	ID string `json:"id"`
}

func (m wireMessage) toModel() *models.ChatMessage {
	msg := &models.ChatMessage{ID: m.ID, ChannelID: m.ChannelID, Content: m.Content}
	for _, r := range m.Reactions {
		msg.Reactions = append(msg.Reactions, models.Reaction{Emoji: r.Emoji.Name, Count: r.Count, Me: r.Me})
	}
	return msg
}

func newMessageBody(content string) messageBody {
	return messageBody{
		Content:         content,
		Flags:           flagSuppressEmbeds,
		AllowedMentions: &allowedMentions{Parse: []string{"users"}},
	}
}

// SendMessage posts content to a channel and returns the created message.
func (c *APIClient) SendMessage(ctx context.Context, channelID, content string) (*models.ChatMessage, error) {
	var out wireMessage
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channelID))
	if err := c.do(ctx, http.MethodPost, path, newMessageBody(content), &out); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return out.toModel(), nil
}

// CreateThread starts a thread on an existing message and returns the thread id.
func (c *APIClient) CreateThread(ctx context.Context, channelID, messageID, name string) (string, error) {
	var out wireChannel
	path := fmt.Sprintf("/channels/%s/messages/%s/threads", url.PathEscape(channelID), url.PathEscape(messageID))
	body := map[string]interface{}{
		"name":                  name,
		"auto_archive_duration": autoArchiveWeek,
	}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return out.ID, nil
}

// SendThreadMessage posts content into a thread.
func (c *APIClient) SendThreadMessage(ctx context.Context, threadID, content string) error {
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(threadID))
	if err := c.do(ctx, http.MethodPost, path, newMessageBody(content), nil); err != nil {
		return fmt.Errorf("send thread message: %w", err)
	}
	return nil
}

// GetMessage fetches a message with its reactions.
func (c *APIClient) GetMessage(ctx context.Context, channelID, messageID string) (*models.ChatMessage, error) {
	var out wireMessage
	path := fmt.Sprintf("/channels/%s/messages/%s", url.PathEscape(channelID), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return out.toModel(), nil
}

// EditMessage replaces the content of a message.
func (c *APIClient) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", url.PathEscape(channelID), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodPatch, path, newMessageBody(content), nil); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// AddReaction reacts to a message as the bot.
func (c *APIClient) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := c.do(ctx, http.MethodPut, reactionPath(channelID, messageID, emoji), nil, nil); err != nil {
		return fmt.Errorf("add reaction %s: %w", emoji, err)
	}
	return nil
}

// RemoveReaction removes the bot's reaction. A reaction that is already gone is not an error.
func (c *APIClient) RemoveReaction(ctx context.Context, channelID, messageID, emoji string) error {
	err := c.do(ctx, http.MethodDelete, reactionPath(channelID, messageID, emoji), nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("remove reaction %s: %w", emoji, err)
	}
	return nil
}

// LockThread sets or clears the locked flag of a thread.
func (c *APIClient) LockThread(ctx context.Context, threadID string, locked bool) error {
	path := fmt.Sprintf("/channels/%s", url.PathEscape(threadID))
	if err := c.do(ctx, http.MethodPatch, path, map[string]bool{"locked": locked}, nil); err != nil {
		return fmt.Errorf("set thread locked=%t: %w", locked, err)
	}
	return nil
}

// ArchiveThread archives and locks a thread.
func (c *APIClient) ArchiveThread(ctx context.Context, threadID string) error {
	path := fmt.Sprintf("/channels/%s", url.PathEscape(threadID))
	if err := c.do(ctx, http.MethodPatch, path, map[string]bool{"archived": true, "locked": true}, nil); err != nil {
		return fmt.Errorf("archive thread: %w", err)
	}
	return nil
}

// RemoveThreadMember removes a user from a thread. A user who is not a member is not an error.
func (c *APIClient) RemoveThreadMember(ctx context.Context, threadID, userID string) error {
	path := fmt.Sprintf("/channels/%s/thread-members/%s", url.PathEscape(threadID), url.PathEscape(userID))
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("remove thread member: %w", err)
	}
	return nil
}

func reactionPath(channelID, messageID, emoji string) string {
	return fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		url.PathEscape(channelID), url.PathEscape(messageID), url.PathEscape(emoji))
}

// do performs one logical request, throttled and retried on rate limits. Server
// errors are retried too, except for POST requests.
func (c *APIClient) do(ctx context.Context, method, path string, requestBody, out interface{}) error {
	var payload []byte
	if requestBody != nil {
		var err error
		payload, err = json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	cfg := c.retry
	if method == http.MethodPost {
		// POSTs create resources, so they are repeated on rate limits only.
		cfg.Retryable = isRateLimited
	}

	logger := c.logger.With().Str("method", method).Str("path", path).Logger()
	result := retry.RetryWithBackoff(ctx, cfg, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.send(ctx, method, path, payload, out)
	}, &logger)

	if !result.Success {
		return result.LastError
	}
	return nil
}

func (c *APIClient) send(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", "DiscordBot (https://github.com/Third-Cult/agile-automation-playground, 1.0)")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("discord request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return newAPIError(resp, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return retry.IsRetryableError(err)
}

func isRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
