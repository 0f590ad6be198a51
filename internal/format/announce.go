package format

import (
	"fmt"
	"strings"
)

// Thread announcements. Each returns a complete thread message capped at MaxMessageLength.

// ReviewerRequested pings a newly requested reviewer.
func (r *Renderer) ReviewerRequested(login string) string {
	return fmt.Sprintf("👋 %s, you have been requested to review this PR.", r.Mention(login))
}

// TeamRequested announces a team review request. Teams are not mentioned.
func (r *Renderer) TeamRequested(team string) string {
	return fmt.Sprintf("👋 Team **%s** has been requested to review this PR.", team)
}

// ReviewerRemoved notes that a reviewer is no longer requested.
func (r *Renderer) ReviewerRemoved(login string) string {
	return fmt.Sprintf("🚪 %s is no longer requested to review this PR.", r.Mention(login))
}

// TeamRemoved notes that a team is no longer requested.
func (r *Renderer) TeamRemoved(team string) string {
	return fmt.Sprintf("🚪 Team **%s** is no longer requested to review this PR.", team)
}

// ReadyForReview is posted when a draft leaves draft, pinging any reviewers.
func (r *Renderer) ReadyForReview(reviewers []string) string {
	msg := "🚀 This PR is now ready for review!"
	if len(reviewers) > 0 {
		msg += " " + r.mentionList(reviewers) + ", please take a look."
	}
	return msg
}

// Approved announces an approval, quoting the review body when there is one.
func (r *Renderer) Approved(reviewer, body string) string {
	return withQuote(fmt.Sprintf("✅ %s approved this PR.", r.Mention(reviewer)), body)
}

// ChangesRequested announces a changes-requested review with its body quoted.
func (r *Renderer) ChangesRequested(reviewer, body string) string {
	return withQuote(fmt.Sprintf("🛠️ %s requested changes:", r.Mention(reviewer)), body)
}

// ChangesAddressed is posted when a changes-requested review is dismissed.
func (r *Renderer) ChangesAddressed(reviewer string) string {
	return fmt.Sprintf("🔄 The changes requested by %s have been addressed and the review was dismissed. Back to ready for review.", r.Mention(reviewer))
}

// NewCommits is posted when commits land on an approved PR.
// With no reviewers it asks for some instead of pinging anyone.
func (r *Renderer) NewCommits(reviewers []string) string {
	msg := "🔄 New commits have been pushed, so the previous approval no longer applies."
	if len(reviewers) == 0 {
		return msg + "\n" + "⚠️ Please add reviewers to this PR."
	}
	return msg + "\n" + r.mentionList(reviewers) + ", please review again."
}

// Closed announces a close without merge, quoting the closing comment if any.
func (r *Renderer) Closed(closedBy, comment string) string {
	head := "📕 This PR was closed without merging."
	if closedBy != "" {
		head = fmt.Sprintf("📕 This PR was closed without merging by %s.", r.Mention(closedBy))
	}
	return withQuote(head, comment)
}

// Merged announces a merge into base, quoting the merge commit headline if any.
func (r *Renderer) Merged(mergedBy, base, commitLine string) string {
	head := fmt.Sprintf("🎉 This PR was merged into `%s`!", base)
	if mergedBy != "" {
		head = fmt.Sprintf("🎉 This PR was merged into `%s` by %s!", base, r.Mention(mergedBy))
	}
	return withQuote(head, commitLine)
}

// NotInitialized is the host comment left when a PR has no metadata.
const NotInitialized = "⚠️ Discord integration not initialized for this PR. " +
	"No notification message was found, so this event was not relayed to Discord."

func (r *Renderer) mentionList(logins []string) string {
	mentions := make([]string, 0, len(logins))
	for _, login := range logins {
		mentions = append(mentions, r.Mention(login))
	}
	return strings.Join(mentions, ", ")
}

// withQuote appends body as a block quote under head.
func withQuote(head, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return Truncate(head, MaxMessageLength)
	}
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return Truncate(head+"\n"+strings.Join(lines, "\n"), MaxMessageLength)
}
