package format

import (
	"fmt"
	"strings"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/usermapping"
	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

const (
	// MaxMessageLength is the chat platform's content limit per message.
	MaxMessageLength = 2000
	// MaxThreadNameLength is the chat platform's thread name limit.
	MaxThreadNameLength = 100
	// MaxDescriptionLength caps the PR body copied into the parent message.
	MaxDescriptionLength = 1000

	ellipsis = "..."

	ReviewersPrefix = "**Reviewers:** "
	WarningHeadline = "⚠️ WARNING::No reviewers assigned:"
	WarningDetail   = "Please request at least one reviewer on GitHub so this PR can move forward."
)

// Parent is everything needed to render a parent message.
type Parent struct {
	Number      int
	Title       string
	URL         string
	HeadBranch  string
	BaseBranch  string
	Author      string
	Description string
	Reviewers   []string
	Status      Status
}

// ParentFromPullRequest fills the PR fields of a Parent.
func ParentFromPullRequest(pr models.PullRequest, reviewers []string, status Status) Parent {
	return Parent{
		Number:      pr.Number,
		Title:       pr.Title,
		URL:         pr.URL,
		HeadBranch:  pr.HeadBranch,
		BaseBranch:  pr.BaseBranch,
		Author:      pr.Author,
		Description: pr.Body,
		Reviewers:   reviewers,
		Status:      status,
	}
}

// Renderer turns notification state into chat text. Mentions go through the user mapping.
type Renderer struct {
	users *usermapping.Mapper
}

// NewRenderer returns a Renderer using users for mentions. users may be nil.
func NewRenderer(users *usermapping.Mapper) *Renderer {
	return &Renderer{users: users}
}

// Mention renders a host login for the chat platform.
func (r *Renderer) Mention(login string) string {
	return r.users.Mention(login)
}

// Parent renders the exact parent message text.
func (r *Renderer) Parent(p Parent) string {
	var head strings.Builder
	head.WriteString(fmt.Sprintf("**[PR #%d: %s](%s)**\n", p.Number, strings.TrimSpace(p.Title), p.URL))
	head.WriteString(fmt.Sprintf("**Branch:** `%s` → `%s`\n", p.HeadBranch, p.BaseBranch))
	head.WriteString("\n")
	head.WriteString("**Author:** " + r.Mention(p.Author) + "\n")

	if desc := strings.TrimSpace(p.Description); desc != "" {
		head.WriteString("**Description:**\n")
		head.WriteString(Truncate(escapeDescription(desc), MaxDescriptionLength) + "\n")
		head.WriteString("\n")
	}

	var tail strings.Builder
	switch {
	case len(p.Reviewers) > 0:
		tail.WriteString(r.ReviewersLine(p.Reviewers) + "\n")
		tail.WriteString("\n")
	case p.Status.WarnsWithoutReviewers():
		tail.WriteString(WarningHeadline + "\n")
		tail.WriteString(WarningDetail + "\n")
		tail.WriteString("\n")
	}
	tail.WriteString(p.Status.Line())

	// The reviewers and status lines are read back, so the header gives way first.
	body, rest := head.String(), tail.String()
	room := MaxMessageLength - len([]rune(rest))
	if len([]rune(body)) <= room {
		return body + rest
	}
	if room > len(ellipsis)+2 {
		return Truncate(strings.TrimRight(body, "\n"), room-2) + "\n\n" + rest
	}
	// Only a reviewer list longer than the message limit gets here. The cut
	// line ends in an ellipsis, which ExtractReviewers refuses to read.
	status := p.Status.Line()
	all := strings.TrimRight(body+strings.TrimSuffix(rest, status), "\n")
	return Truncate(all, MaxMessageLength-len([]rune(status))-2) + "\n\n" + status
}

// escapeDescription keeps description lines from passing for the reviewers or status line.
func escapeDescription(desc string) string {
	reviewers := strings.TrimSpace(ReviewersPrefix)
	status := strings.TrimSpace(StatusPrefix)
	lines := strings.Split(strings.ReplaceAll(desc, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, reviewers) || strings.HasPrefix(trimmed, status) {
			lines[i] = `\*\*` + strings.TrimPrefix(trimmed, "**")
		}
	}
	return strings.Join(lines, "\n")
}

// ReviewersLine renders the reviewers line for a non-empty reviewer set.
func (r *Renderer) ReviewersLine(reviewers []string) string {
	mentions := make([]string, 0, len(reviewers))
	for _, login := range reviewers {
		mentions = append(mentions, r.Mention(login))
	}
	return ReviewersPrefix + strings.Join(mentions, ", ")
}

// ExtractReviewers parses the reviewers line of a parent message back into host logins.
// The reviewers line is the last non-blank line above the status line; a message
// without one, or whose reviewers line was cut short, yields nil.
func (r *Renderer) ExtractReviewers(text string) []string {
	prefix := strings.TrimSpace(ReviewersPrefix)
	lines := strings.Split(text, "\n")

	statusIdx := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), StatusPrefix) {
			statusIdx = i
			break
		}
	}

	for i := statusIdx - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, prefix) || strings.HasSuffix(line, ellipsis) {
			return nil
		}
		var logins []string
		for _, token := range strings.Split(strings.TrimPrefix(line, prefix), ",") {
			if login := r.users.Unmention(token); login != "" {
				logins = append(logins, login)
			}
		}
		return logins
	}
	return nil
}

// ThreadName returns "PR #<n>: <title>" with the title shortened to fit the platform limit.
func ThreadName(number int, title string) string {
	prefix := fmt.Sprintf("PR #%d: ", number)
	room := MaxThreadNameLength - len([]rune(prefix))
	return prefix + Truncate(strings.TrimSpace(title), room)
}

// Truncate shortens s to at most max runes, ending in an ellipsis when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

// MergeReviewers returns the union of the given sets, first occurrence order, case-insensitive.
func MergeReviewers(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, login := range set {
			key := strings.ToLower(strings.TrimSpace(login))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(login))
		}
	}
	return out
}
