// Package notify keeps a pull request's chat notification in step with the pull request.
// Each call to Engine.Handle is one stateless invocation: prior state is recovered from the
// pull request's comments and from the parent message text, never from memory.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/format"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/metadata"
	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

// Reaction emoji kept on the parent message.
const (
	EmojiApproved         = "✅"
	EmojiChangesRequested = "❌"
	EmojiMerged           = "🎉"
)

// closingCommentWindow is how long before closed_at a comment still counts as the closing remark.
const closingCommentWindow = 2 * time.Minute

// ChatClient is the chat-platform collaborator.
type ChatClient interface {
	SendMessage(ctx context.Context, channelID, content string) (*models.ChatMessage, error)
	CreateThread(ctx context.Context, channelID, messageID, name string) (string, error)
	SendThreadMessage(ctx context.Context, threadID, content string) error
	GetMessage(ctx context.Context, channelID, messageID string) (*models.ChatMessage, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	RemoveReaction(ctx context.Context, channelID, messageID, emoji string) error
	LockThread(ctx context.Context, threadID string, locked bool) error
	ArchiveThread(ctx context.Context, threadID string) error
	RemoveThreadMember(ctx context.Context, threadID, userID string) error
}

// HostClient is the source-control host collaborator.
type HostClient interface {
	ListComments(ctx context.Context, number int) ([]models.Comment, error)
	CreateComment(ctx context.Context, number int, body string) error
	GetReview(ctx context.Context, number int, reviewID int64) (*models.Review, error)
	RequestReviewers(ctx context.Context, number int, logins []string) error
	GetCommitMessage(ctx context.Context, sha string) (string, error)
}

// UserDirectory maps host logins to chat user ids.
type UserDirectory interface {
	ChatID(login string) (string, bool)
}

// ErrUnhandledKind is returned for an event kind with no handler.
var ErrUnhandledKind = errors.New("no handler for event kind")

// Config wires an Engine.
type Config struct {
	ChannelID string
	Renderer  *format.Renderer
	Users     UserDirectory
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Engine applies pull request events to the chat notification.
type Engine struct {
	chat      ChatClient
	host      HostClient
	render    *format.Renderer
	users     UserDirectory
	channelID string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(chat ChatClient, host HostClient, cfg Config) *Engine {
	render := cfg.Renderer
	if render == nil {
		render = format.NewRenderer(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		chat:      chat,
		host:      host,
		render:    render,
		users:     cfg.Users,
		channelID: cfg.ChannelID,
		logger:    cfg.Logger,
		now:       now,
	}
}

// Handle runs the handler for ev. A logger attached to ctx with zerolog's WithContext
// replaces the engine logger for this call. Only unrecoverable conditions are returned as errors:
// failing to create the parent message, and a parent message whose status cannot be read.
// Every other collaborator failure is recorded on the Outcome as a Warning.
func (e *Engine) Handle(ctx context.Context, ev models.Event) (*Outcome, error) {
	base := e.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		base = *l
	}

	inv := &invocation{
		Engine: e,
		ev:     ev,
		out:    &Outcome{Kind: ev.Kind},
		logger: base.With().
			Str("event", ev.Kind.String()).
			Int("pr", ev.PullRequest.Number).
			Logger(),
	}

	var err error
	switch ev.Kind {
	case models.EventOpened:
		err = inv.opened(ctx)
	case models.EventReadyForReview:
		err = inv.readyForReview(ctx)
	case models.EventReviewerAdded:
		err = inv.reviewerAdded(ctx)
	case models.EventReviewerRemoved:
		err = inv.reviewerRemoved(ctx)
	case models.EventReviewSubmitted:
		err = inv.reviewSubmitted(ctx)
	case models.EventReviewDismissed:
		err = inv.reviewDismissed(ctx)
	case models.EventSynchronize:
		err = inv.synchronize(ctx)
	case models.EventClosed:
		err = inv.closed(ctx)
	case models.EventMerged:
		err = inv.merged(ctx)
	default:
		return inv.out, fmt.Errorf("%w: %s", ErrUnhandledKind, ev.Kind)
	}

	log := inv.logger.Info()
	if len(inv.out.Warnings) > 0 {
		log = inv.logger.Warn().Int("warnings", len(inv.out.Warnings)).Str("warning_summary", inv.out.Summary())
	}
	if inv.out.Skipped != "" {
		log = log.Str("skipped", inv.out.Skipped)
	}
	log.Str("status", inv.out.Status.String()).Msg("event handled")

	return inv.out, err
}

// invocation holds what one Handle call has learned so far. Nothing outlives it.
type invocation struct {
	*Engine
	ev     models.Event
	out    *Outcome
	logger zerolog.Logger

	comments       []models.Comment
	commentsLoaded bool
}

// current is the notification state recovered at the start of a handler.
type current struct {
	meta    *metadata.Metadata
	message *models.ChatMessage
	status  format.Status
}

func (inv *invocation) pr() models.PullRequest { return inv.ev.PullRequest }

// warn records a failed side effect. It returns true when err was nil.
func (inv *invocation) warn(step string, err error) bool {
	if err == nil {
		return true
	}
	inv.out.Warnings = append(inv.out.Warnings, Warning{Step: step, Err: err})
	inv.logger.Warn().Err(err).Str("step", step).Msg("side effect failed")
	return false
}

func (inv *invocation) skip(reason string) {
	inv.out.Skipped = reason
	inv.logger.Debug().Str("reason", reason).Msg("skipping event")
}

func (inv *invocation) listComments(ctx context.Context) ([]models.Comment, error) {
	if inv.commentsLoaded {
		return inv.comments, nil
	}
	comments, err := inv.host.ListComments(ctx, inv.pr().Number)
	if err != nil {
		return nil, err
	}
	inv.comments = comments
	inv.commentsLoaded = true
	return comments, nil
}

// load runs the common preamble: recover metadata, fetch the parent message and read its status.
// ok is false when the handler should return quietly.
func (inv *invocation) load(ctx context.Context) (cur *current, ok bool, err error) {
	comments, err := inv.listComments(ctx)
	if !inv.warn("list comments", err) {
		inv.skip("metadata could not be recovered")
		return nil, false, nil
	}

	meta := metadata.Decode(comments)
	if meta == nil {
		inv.reportMissingMetadata(ctx, comments)
		return nil, false, nil
	}

	msg, err := inv.chat.GetMessage(ctx, meta.ChannelID, meta.MessageID)
	if !inv.warn("get parent message", err) {
		inv.skip("parent message unavailable")
		return nil, false, nil
	}

	status, err := format.ExtractStatus(msg.Content)
	if err != nil {
		inv.skip("parent status unreadable")
		return nil, false, fmt.Errorf("parent message %s: %w", meta.MessageID, err)
	}

	inv.out.Previous = status
	inv.out.Status = status
	return &current{meta: meta, message: msg, status: status}, true, nil
}

func (inv *invocation) reportMissingMetadata(ctx context.Context, comments []models.Comment) {
	inv.skip("metadata missing")
	inv.logger.Warn().Msg("no notification metadata on pull request; Discord integration not initialized")

	for _, c := range comments {
		if strings.Contains(c.Body, format.NotInitialized) {
			return
		}
	}
	inv.warn("post not-initialized comment", inv.host.CreateComment(ctx, inv.pr().Number, format.NotInitialized))
}

// editParent re-renders the parent message for status and skips the call when nothing changed.
func (inv *invocation) editParent(ctx context.Context, cur *current, reviewers []string, status format.Status) {
	text := inv.render.Parent(format.ParentFromPullRequest(inv.pr(), reviewers, status))
	inv.out.Status = status
	if text == cur.message.Content {
		return
	}
	if inv.warn("edit parent message", inv.chat.EditMessage(ctx, cur.meta.ChannelID, cur.meta.MessageID, text)) {
		cur.message.Content = text
	}
}

func (inv *invocation) announce(ctx context.Context, cur *current, text string) {
	if cur.meta.ThreadID == "" {
		inv.warn("post thread message", errors.New("no thread recorded for this pull request"))
		return
	}
	inv.warn("post thread message", inv.chat.SendThreadMessage(ctx, cur.meta.ThreadID, text))
}

func (inv *invocation) lockThread(ctx context.Context, cur *current, locked bool) {
	if cur.meta.ThreadID == "" {
		return
	}
	step := "lock thread"
	if !locked {
		step = "unlock thread"
	}
	inv.warn(step, inv.chat.LockThread(ctx, cur.meta.ThreadID, locked))
}

func (inv *invocation) react(ctx context.Context, cur *current, emoji string) {
	inv.warn("add reaction "+emoji, inv.chat.AddReaction(ctx, cur.meta.ChannelID, cur.meta.MessageID, emoji))
}

func (inv *invocation) unreact(ctx context.Context, cur *current, emoji string) {
	if !cur.message.HasOwnReaction(emoji) {
		return
	}
	inv.warn("remove reaction "+emoji, inv.chat.RemoveReaction(ctx, cur.meta.ChannelID, cur.meta.MessageID, emoji))
}

// knownReviewers is the reviewer set for events that cannot change it: whatever the parent
// message shows plus whatever the host still has requested.
func (inv *invocation) knownReviewers(cur *current) []string {
	return format.MergeReviewers(inv.render.ExtractReviewers(cur.message.Content), inv.pr().RequestedReviewers)
}

// reviewBody returns the review text, fetching it from the host when the payload had none.
func (inv *invocation) reviewBody(ctx context.Context) string {
	review := inv.ev.Review
	if review == nil {
		return ""
	}
	if strings.TrimSpace(review.Body) != "" || review.ID == 0 {
		return review.Body
	}
	fetched, err := inv.host.GetReview(ctx, inv.pr().Number, review.ID)
	if !inv.warn("fetch review body", err) {
		return ""
	}
	return fetched.Body
}
