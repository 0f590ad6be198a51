package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/format"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/metadata"
	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

// opened posts the parent message, opens its thread and records where both live.
func (inv *invocation) opened(ctx context.Context) error {
	pr := inv.pr()

	comments, err := inv.listComments(ctx)
	if inv.warn("list comments", err) && metadata.Decode(comments) != nil {
		inv.skip("notification already initialized")
		return nil
	}

	status := format.StatusReadyForReview
	if pr.Draft {
		status = format.StatusDraft
	}
	reviewers := format.MergeReviewers(pr.RequestedReviewers)

	text := inv.render.Parent(format.ParentFromPullRequest(pr, reviewers, status))
	msg, err := inv.chat.SendMessage(ctx, inv.channelID, text)
	if err != nil {
		return fmt.Errorf("failed to post parent message: %w", err)
	}
	inv.out.Status = status
	inv.logger.Info().Str("message_id", msg.ID).Msg("parent message posted")

	threadID, err := inv.chat.CreateThread(ctx, inv.channelID, msg.ID, format.ThreadName(pr.Number, pr.Title))
	inv.warn("create thread", err)

	body, err := metadata.Encode(metadata.Metadata{
		MessageID: msg.ID,
		ThreadID:  threadID,
		ChannelID: inv.channelID,
	})
	if inv.warn("encode metadata", err) {
		inv.warn("store metadata", inv.host.CreateComment(ctx, pr.Number, body))
	}

	if threadID == "" {
		return nil
	}
	for _, login := range reviewers {
		inv.warn("post thread message", inv.chat.SendThreadMessage(ctx, threadID, inv.render.ReviewerRequested(login)))
	}
	return nil
}

func (inv *invocation) readyForReview(ctx context.Context) error {
	cur, ok, err := inv.load(ctx)
	if !ok {
		return err
	}
	if cur.status != format.StatusDraft {
		inv.skip("pull request is not a draft")
		return nil
	}

	reviewers := format.MergeReviewers(inv.pr().RequestedReviewers)
	inv.editParent(ctx, cur, reviewers, format.StatusReadyForReview)
	inv.announce(ctx, cur, inv.render.ReadyForReview(reviewers))
	return nil
}

func (inv *invocation) reviewerAdded(ctx context.Context) error {
	cur, ok, err := inv.load(ctx)
	if !ok {
		return err
	}

	reviewers := inv.pr().RequestedReviewers
	if inv.ev.RequestedReviewer != "" {
		reviewers = format.MergeReviewers(reviewers, []string{inv.ev.RequestedReviewer})
	}
	inv.editParent(ctx, cur, reviewers, cur.status)

	switch {
	case inv.ev.RequestedReviewer != "":
		inv.announce(ctx, cur, inv.render.ReviewerRequested(inv.ev.RequestedReviewer))
	case inv.ev.RequestedTeam != "":
		inv.announce(ctx, cur, inv.render.TeamRequested(inv.ev.RequestedTeam))
	}
	return nil
}

func (inv *invocation) reviewerRemoved(ctx context.Context) error {
	cur, ok, err := inv.load(ctx)
	if !ok {
		return err
	}

	removed := inv.ev.RequestedReviewer
	reviewers := make([]string, 0, len(inv.pr().RequestedReviewers))
	for _, login := range inv.pr().RequestedReviewers {
		if !strings.EqualFold(login, removed) {
			reviewers = append(reviewers, login)
		}
	}
	inv.editParent(ctx, cur, reviewers, cur.status)

	switch {
	case removed != "":
		inv.announce(ctx, cur, inv.render.ReviewerRemoved(removed))
		inv.dropThreadMember(ctx, cur, removed)
	case inv.ev.RequestedTeam != "":
		inv.announce(ctx, cur, inv.render.TeamRemoved(inv.ev.RequestedTeam))
	}
	return nil
}

func (inv *invocation) dropThreadMember(ctx context.Context, cur *current, login string) {
	if cur.meta.ThreadID == "" || inv.users == nil {
		return
	}
	userID, ok := inv.users.ChatID(login)
	if !ok {
		return
	}
	inv.warn("remove thread member", inv.chat.RemoveThreadMember(ctx, cur.meta.ThreadID, userID))
}

func (inv *invocation) reviewSubmitted(ctx context.Context) error {
	review := inv.ev.Review
	if review == nil {
		inv.skip("event carries no review")
		return nil
	}

	switch review.State {
	case models.ReviewApproved:
		return inv.approved(ctx)
	case models.ReviewChangesRequested:
		return inv.changesRequested(ctx)
	default:
		inv.skip("review state " + review.State + " does not change status")
		return nil
	}
}

// approved leaves exactly one of the approval and changes-requested reactions and locks the thread.
// The bot keeps posting into locked threads, so the announcement follows the lock.
func (inv *invocation) approved(ctx context.Context) error {
	cur, ok, err := inv.load(ctx)
	if !ok {
		return err
	}

	inv.unreact(ctx, cur, EmojiChangesRequested)
	inv.react(ctx, cur, EmojiApproved)
	inv.editParent(ctx, cur, inv.knownReviewers(cur), format.StatusApproved)
	inv.lockThread(ctx, cur, true)
	inv.announce(ctx, cur, inv.render.Approved(inv.ev.Review.Author, inv.reviewBody(ctx)))
	return nil
}

// changesRequested keeps any earlier approval reaction and leaves the thread as it is.
func (inv *invocation) changesRequested(ctx context.Context) error {
	cur, ok, err := inv.load(ctx)
	if !ok {
		return err
	}

	inv.react(ctx, cur, EmojiChangesRequested)
	inv.editParent(ctx, cur, inv.knownReviewers(cur), format.StatusChangesRequested)
	inv.announce(ctx, cur, inv.render.ChangesRequested(inv.ev.Review.Author, inv.reviewBody(ctx)))
	return nil
}

func (inv *invocation) reviewDismissed(ctx context.Context) error {
	review := inv.ev.Review
	if review == nil {
		inv.skip("event carries no review")
		return nil
	}

	cur, ok, err := inv.load(ctx)
	if !ok {
		return err
	}

	if dismissedState(review.State, cur.status) != models.ReviewChangesRequested {
		inv.skip("dismissed review did not request changes")
		return nil
	}

	inv.editParent(ctx, cur, inv.knownReviewers(cur), format.StatusReadyForReview)
	inv.announce(ctx, cur, inv.render.ChangesAddressed(review.Author))
	return nil
}

// dismissedState is the state a review had before it was dismissed. The payload reports
// "dismissed" once that happens, so the parent status stands in for it.
func dismissedState(payloadState string, status format.Status) string {
	switch payloadState {
	case models.ReviewApproved, models.ReviewChangesRequested:
		return payloadState
	}
	switch status {
	case format.StatusChangesRequested:
		return models.ReviewChangesRequested
	case format.StatusApproved:
		return models.ReviewApproved
	}
	return payloadState
}

// synchronize reopens review on an approved PR once new commits arrive.
func (inv *invocation) synchronize(ctx context.Context) error {
	cur, ok, err := inv.load(ctx)
	if !ok {
		return err
	}
	if cur.status != format.StatusApproved {
		inv.skip("pull request is not approved")
		return nil
	}

	author := inv.pr().Author
	var reviewers []string
	for _, login := range inv.knownReviewers(cur) {
		if !strings.EqualFold(login, author) {
			reviewers = append(reviewers, login)
		}
	}

	inv.lockThread(ctx, cur, false)
	inv.editParent(ctx, cur, reviewers, format.StatusReadyForReview)
	inv.announce(ctx, cur, inv.render.NewCommits(reviewers))
	if len(reviewers) > 0 {
		inv.warn("re-request reviewers", inv.host.RequestReviewers(ctx, inv.pr().Number, reviewers))
	}
	return nil
}

func (inv *invocation) closed(ctx context.Context) error {
	cur, ok, err := inv.load(ctx)
	if !ok {
		return err
	}

	inv.lockThread(ctx, cur, true)
	inv.editParent(ctx, cur, inv.knownReviewers(cur), format.StatusClosed)
	inv.announce(ctx, cur, inv.render.Closed(inv.ev.Sender, inv.closingComment()))
	return nil
}

// closingComment finds the latest comment left in the window just before the close, if any.
func (inv *invocation) closingComment() string {
	closedAt := inv.pr().ClosedAt
	if closedAt.IsZero() {
		closedAt = inv.now()
	}

	var found string
	for _, c := range inv.comments {
		if metadata.IsMetadataComment(c.Body) || strings.Contains(c.Body, format.NotInitialized) {
			continue
		}
		if c.CreatedAt.Before(closedAt.Add(-closingCommentWindow)) || c.CreatedAt.After(closedAt) {
			continue
		}
		found = c.Body
	}
	return found
}

// merged celebrates, announces and archives. The thread is archived last since an archived,
// locked thread no longer accepts the announcement.
func (inv *invocation) merged(ctx context.Context) error {
	cur, ok, err := inv.load(ctx)
	if !ok {
		return err
	}

	pr := inv.pr()
	inv.react(ctx, cur, EmojiMerged)
	inv.editParent(ctx, cur, inv.knownReviewers(cur), format.StatusMerged)

	mergedBy := pr.MergedBy
	if mergedBy == "" {
		mergedBy = inv.ev.Sender
	}
	inv.announce(ctx, cur, inv.render.Merged(mergedBy, pr.BaseBranch, inv.commitHeadline(ctx)))

	if cur.meta.ThreadID != "" {
		inv.warn("archive thread", inv.chat.ArchiveThread(ctx, cur.meta.ThreadID))
	}
	return nil
}

func (inv *invocation) commitHeadline(ctx context.Context) string {
	sha := inv.pr().MergeCommitSHA
	if sha == "" {
		return ""
	}
	message, err := inv.host.GetCommitMessage(ctx, sha)
	if !inv.warn("fetch merge commit", err) {
		return ""
	}
	headline, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(headline)
}
