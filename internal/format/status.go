// Package format renders the parent notification message and thread announcements,
// and parses the status and reviewer lines back out of an existing message.
package format

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the notification status shown on the parent message.
type Status int

const (
	StatusDraft Status = iota
	StatusReadyForReview
	StatusApproved
	StatusChangesRequested
	StatusClosed
	StatusMerged
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusDraft,
	StatusReadyForReview,
	StatusApproved,
	StatusChangesRequested,
	StatusClosed,
	StatusMerged,
}

// StatusPrefix starts the status line of every parent message.
const StatusPrefix = "**Status**: "

// ErrUnknownStatus is returned when a parent message has no recognizable status line.
var ErrUnknownStatus = errors.New("unrecognized status line")

type statusToken struct {
	name  string
	emoji string
	label string
}

var statusTokens = map[Status]statusToken{
	StatusDraft:            {"draft", ":pencil:", "Draft - In Progress"},
	StatusReadyForReview:   {"ready_for_review", ":eyes:", "Ready for Review"},
	StatusApproved:         {"approved", ":white_check_mark:", "Approved"},
	StatusChangesRequested: {"changes_requested", ":tools:", "Changes Requested"},
	StatusClosed:           {"closed", ":closed_book:", "Closed"},
	StatusMerged:           {"merged", ":tada:", "Merged"},
}

func (s Status) String() string {
	if t, ok := statusTokens[s]; ok {
		return t.name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Emoji is the shortcode shown before the label.
func (s Status) Emoji() string { return statusTokens[s].emoji }

// Label is the human readable status name.
func (s Status) Label() string { return statusTokens[s].label }

// Line renders the full status line, e.g. "**Status**: :eyes: Ready for Review".
func (s Status) Line() string {
	return StatusPrefix + s.Emoji() + " " + s.Label()
}

// Terminal reports whether the pull request lifecycle has ended.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusMerged
}

// WarnsWithoutReviewers reports whether an empty reviewer set shows the warning block.
func (s Status) WarnsWithoutReviewers() bool {
	return s != StatusDraft && !s.Terminal()
}

// ExtractStatus returns the status encoded on the last status line of text.
// Any status line that is not an exact emoji and label pair is an error.
func ExtractStatus(text string) (Status, error) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, StatusPrefix) {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, StatusPrefix))
		for _, s := range AllStatuses {
			if value == s.Emoji()+" "+s.Label() {
				return s, nil
			}
		}
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, line)
	}
	return 0, fmt.Errorf("%w: no %q line found", ErrUnknownStatus, strings.TrimSpace(StatusPrefix))
}
