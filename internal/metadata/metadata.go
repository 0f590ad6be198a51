// Package metadata persists the chat identifiers of a pull request's notification
// inside an invisible pull request comment.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

const (
	// StartMarker opens the hidden block. It renders as nothing on the host.
	StartMarker = "<!-- DISCORD_BOT_METADATA"
	// EndMarker closes the hidden block.
	EndMarker = "-->"
)

// Metadata binds a pull request to its parent message and thread.
type Metadata struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
	ChannelID string `json:"channel_id"`
}

// Encode returns the comment body that stores m.
func Encode(m Metadata) (string, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return StartMarker + "\n" + string(payload) + "\n" + EndMarker, nil
}

// Decode scans comments in order and returns the first parseable metadata block.
// A nil result means the integration was never initialized for the pull request.
func Decode(comments []models.Comment) *Metadata {
	for _, c := range comments {
		if m, ok := Parse(c.Body); ok {
			return m
		}
	}
	return nil
}

// Parse extracts metadata from a single comment body.
func Parse(body string) (*Metadata, bool) {
	start := strings.Index(body, StartMarker)
	if start < 0 {
		return nil, false
	}
	rest := body[start+len(StartMarker):]
	end := strings.Index(rest, EndMarker)
	if end < 0 {
		return nil, false
	}

	var m Metadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &m); err != nil {
		return nil, false
	}
	if m.MessageID == "" || m.ChannelID == "" {
		return nil, false
	}
	return &m, true
}

// IsMetadataComment reports whether body carries a metadata block, parseable or not.
func IsMetadataComment(body string) bool {
	return strings.Contains(body, StartMarker)
}
