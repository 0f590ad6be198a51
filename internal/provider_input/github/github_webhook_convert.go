package github

import (
	"errors"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v71/github"

	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

// ErrUnhandledEvent marks an event or action the relay deliberately ignores.
var ErrUnhandledEvent = errors.New("unhandled event")

// Event names as sent in X-GitHub-Event and GITHUB_EVENT_NAME.
const (
	EventPullRequest       = "pull_request"
	EventPullRequestTarget = "pull_request_target"
	EventPullRequestReview = "pull_request_review"
)

// Convert parses a webhook payload and classifies it.
// Events and actions without a handler return ErrUnhandledEvent.
func Convert(eventName string, body []byte) (*models.Event, error) {
	name := eventName
	if name == EventPullRequestTarget {
		// Same payload as pull_request, delivered in the base repository's context.
		name = EventPullRequest
	}

	switch name {
	case EventPullRequest, EventPullRequestReview:
	default:
		return nil, fmt.Errorf("%w: event %q", ErrUnhandledEvent, eventName)
	}

	parsed, err := gh.ParseWebHook(name, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GitHub %s webhook: %w", eventName, err)
	}

	switch payload := parsed.(type) {
	case *gh.PullRequestEvent:
		return ConvertPullRequestEvent(eventName, payload)
	case *gh.PullRequestReviewEvent:
		return ConvertPullRequestReviewEvent(eventName, payload)
	default:
		return nil, fmt.Errorf("%w: event %q decoded as %T", ErrUnhandledEvent, eventName, parsed)
	}
}

// ConvertPullRequestEvent classifies a pull_request payload by action.
func ConvertPullRequestEvent(eventName string, payload *gh.PullRequestEvent) (*models.Event, error) {
	if payload.PullRequest == nil {
		return nil, fmt.Errorf("pull_request payload has no pull_request object")
	}

	action := payload.GetAction()
	event := baseEvent(eventName, action, payload.GetRepo(), payload.GetSender(), payload.GetPullRequest())

	switch action {
	case "opened":
		event.Kind = models.EventOpened
	case "ready_for_review":
		event.Kind = models.EventReadyForReview
	case "review_requested":
		event.Kind = models.EventReviewerAdded
	case "review_request_removed":
		event.Kind = models.EventReviewerRemoved
	case "synchronize":
		event.Kind = models.EventSynchronize
	case "closed":
		event.Kind = models.EventClosed
		if event.PullRequest.Merged {
			event.Kind = models.EventMerged
		}
	default:
		return nil, fmt.Errorf("%w: %s action %q", ErrUnhandledEvent, eventName, action)
	}

	if event.Kind == models.EventReviewerAdded || event.Kind == models.EventReviewerRemoved {
		event.RequestedReviewer = payload.GetRequestedReviewer().GetLogin()
		event.RequestedTeam = teamName(payload.GetRequestedTeam())
		if event.RequestedReviewer == "" && event.RequestedTeam == "" {
			return nil, fmt.Errorf("%s payload names neither a reviewer nor a team", action)
		}
	}

	return event, nil
}

// ConvertPullRequestReviewEvent classifies a pull_request_review payload by action.
func ConvertPullRequestReviewEvent(eventName string, payload *gh.PullRequestReviewEvent) (*models.Event, error) {
	if payload.PullRequest == nil {
		return nil, fmt.Errorf("pull_request_review payload has no pull_request object")
	}
	if payload.Review == nil {
		return nil, fmt.Errorf("pull_request_review payload has no review object")
	}

	action := payload.GetAction()
	event := baseEvent(eventName, action, payload.GetRepo(), payload.GetSender(), payload.GetPullRequest())

	switch action {
	case "submitted":
		event.Kind = models.EventReviewSubmitted
	case "dismissed":
		event.Kind = models.EventReviewDismissed
	default:
		return nil, fmt.Errorf("%w: %s action %q", ErrUnhandledEvent, eventName, action)
	}

	review := payload.GetReview()
	event.Review = &models.Review{
		ID:     review.GetID(),
		Author: review.GetUser().GetLogin(),
		State:  strings.ToLower(review.GetState()),
		Body:   review.GetBody(),
	}
	return event, nil
}

func baseEvent(eventName, action string, repo *gh.Repository, sender *gh.User, pr *gh.PullRequest) *models.Event {
	return &models.Event{
		Name:        eventName,
		Action:      action,
		Repository:  repo.GetFullName(),
		Sender:      sender.GetLogin(),
		PullRequest: convertPullRequest(pr),
	}
}

func convertPullRequest(pr *gh.PullRequest) models.PullRequest {
	reviewers := make([]string, 0, len(pr.RequestedReviewers))
	for _, u := range pr.RequestedReviewers {
		if login := u.GetLogin(); login != "" {
			reviewers = append(reviewers, login)
		}
	}

	return models.PullRequest{
		Number:             pr.GetNumber(),
		Title:              pr.GetTitle(),
		URL:                pr.GetHTMLURL(),
		Body:               pr.GetBody(),
		Draft:              pr.GetDraft(),
		State:              pr.GetState(),
		Author:             pr.GetUser().GetLogin(),
		BaseBranch:         pr.GetBase().GetRef(),
		HeadBranch:         pr.GetHead().GetRef(),
		RequestedReviewers: reviewers,
		Merged:             pr.GetMerged(),
		MergeCommitSHA:     pr.GetMergeCommitSHA(),
		MergedBy:           pr.GetMergedBy().GetLogin(),
		ClosedAt:           pr.GetClosedAt().Time,
	}
}

func teamName(team *gh.Team) string {
	if team == nil {
		return ""
	}
	if name := team.GetName(); name != "" {
		return name
	}
	return team.GetSlug()
}
