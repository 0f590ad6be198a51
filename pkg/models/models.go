package models

import (
	"time"
)

// Pull request models

// PullRequest is the subset of a host pull request the relay renders and reacts to.
type PullRequest struct {
	Number             int       `json:"number"`
	Title              string    `json:"title"`
	URL                string    `json:"url"`
	Body               string    `json:"body"`
	Draft              bool      `json:"draft"`
	State              string    `json:"state"`
	Author             string    `json:"author"`
	BaseBranch         string    `json:"base_branch"`
	HeadBranch         string    `json:"head_branch"`
	RequestedReviewers []string  `json:"requested_reviewers"`
	Merged             bool      `json:"merged"`
	MergeCommitSHA     string    `json:"merge_commit_sha,omitempty"`
	MergedBy           string    `json:"merged_by,omitempty"`
	ClosedAt           time.Time `json:"closed_at,omitempty"`
}

// Review is a submitted (or dismissed) pull request review.
type Review struct {
	ID     int64  `json:"id"`
	Author string `json:"author"`
	State  string `json:"state"`
	Body   string `json:"body"`
}

// Review states as reported by the host, lower-cased.
const (
	ReviewApproved         = "approved"
	ReviewChangesRequested = "changes_requested"
	ReviewCommented        = "commented"
	ReviewDismissed        = "dismissed"
)

// Comment is a top-level pull request (issue) comment.
type Comment struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat models

// ChatMessage is a chat-platform message as returned by the chat collaborator.
type ChatMessage struct {
	ID        string     `json:"id"`
	ChannelID string     `json:"channel_id"`
	Content   string     `json:"content"`
	Reactions []Reaction `json:"reactions,omitempty"`
}

// Reaction is one emoji aggregate on a chat message. Me reports whether the bot added it.
type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
	Me    bool   `json:"me"`
}

// HasOwnReaction reports whether the bot has already reacted with emoji.
func (m *ChatMessage) HasOwnReaction(emoji string) bool {
	if m == nil {
		return false
	}
	for _, r := range m.Reactions {
		if r.Emoji == emoji && r.Me {
			return true
		}
	}
	return false
}

// Events

// EventKind identifies which lifecycle handler an event is routed to.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventOpened
	EventReadyForReview
	EventReviewerAdded
	EventReviewerRemoved
	EventReviewSubmitted
	EventReviewDismissed
	EventSynchronize
	EventClosed
	EventMerged
)

var eventKindNames = map[EventKind]string{
	EventUnknown:         "unknown",
	EventOpened:          "opened",
	EventReadyForReview:  "ready_for_review",
	EventReviewerAdded:   "reviewer_added",
	EventReviewerRemoved: "reviewer_removed",
	EventReviewSubmitted: "review_submitted",
	EventReviewDismissed: "review_dismissed",
	EventSynchronize:     "synchronize",
	EventClosed:          "closed",
	EventMerged:          "merged",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one pull request lifecycle event, already classified.
type Event struct {
	Kind        EventKind   `json:"kind"`
	Name        string      `json:"name"`
	Action      string      `json:"action"`
	DeliveryID  string      `json:"delivery_id,omitempty"`
	Repository  string      `json:"repository"`
	Sender      string      `json:"sender"`
	PullRequest PullRequest `json:"pull_request"`

	// Set for review_submitted and review_dismissed.
	Review *Review `json:"review,omitempty"`

	// Set for reviewer_added and reviewer_removed. A team request fills RequestedTeam instead.
	RequestedReviewer string `json:"requested_reviewer,omitempty"`
	RequestedTeam     string `json:"requested_team,omitempty"`
}
