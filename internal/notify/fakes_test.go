package notify

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/format"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/usermapping"
	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

// fakeChat is an in-memory chat platform that records every call.
type fakeChat struct {
	messages map[string]*models.ChatMessage
	threads  map[string]string   // thread id -> name
	posts    map[string][]string // thread id -> messages
	locked   map[string]bool
	archived map[string]bool
	removed  map[string][]string // thread id -> removed user ids
	calls    []string
	errs     map[string]error
	nextID   int
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		messages: map[string]*models.ChatMessage{},
		threads:  map[string]string{},
		posts:    map[string][]string{},
		locked:   map[string]bool{},
		archived: map[string]bool{},
		removed:  map[string][]string{},
		errs:     map[string]error{},
		nextID:   100,
	}
}

func (c *fakeChat) record(call string) error {
	c.calls = append(c.calls, call)
	return c.errs[call]
}

func (c *fakeChat) id() string {
	c.nextID++
	return strconv.Itoa(c.nextID)
}

func (c *fakeChat) SendMessage(_ context.Context, channelID, content string) (*models.ChatMessage, error) {
	if err := c.record("SendMessage"); err != nil {
		return nil, err
	}
	msg := &models.ChatMessage{ID: c.id(), ChannelID: channelID, Content: content}
	c.messages[msg.ID] = msg
	return &models.ChatMessage{ID: msg.ID, ChannelID: channelID, Content: content}, nil
}

func (c *fakeChat) CreateThread(_ context.Context, _, messageID, name string) (string, error) {
	if err := c.record("CreateThread"); err != nil {
		return "", err
	}
	threadID := "t" + messageID
	c.threads[threadID] = name
	return threadID, nil
}

func (c *fakeChat) SendThreadMessage(_ context.Context, threadID, content string) error {
	if err := c.record("SendThreadMessage"); err != nil {
		return err
	}
	if c.archived[threadID] {
		return fmt.Errorf("thread %s is archived", threadID)
	}
	c.posts[threadID] = append(c.posts[threadID], content)
	return nil
}

func (c *fakeChat) GetMessage(_ context.Context, _, messageID string) (*models.ChatMessage, error) {
	if err := c.record("GetMessage"); err != nil {
		return nil, err
	}
	msg, ok := c.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", messageID)
	}
	cp := *msg
	cp.Reactions = append([]models.Reaction(nil), msg.Reactions...)
	return &cp, nil
}

func (c *fakeChat) EditMessage(_ context.Context, _, messageID, content string) error {
	if err := c.record("EditMessage"); err != nil {
		return err
	}
	c.messages[messageID].Content = content
	return nil
}

func (c *fakeChat) AddReaction(_ context.Context, _, messageID, emoji string) error {
	if err := c.record("AddReaction " + emoji); err != nil {
		return err
	}
	msg := c.messages[messageID]
	if !msg.HasOwnReaction(emoji) {
		msg.Reactions = append(msg.Reactions, models.Reaction{Emoji: emoji, Count: 1, Me: true})
	}
	return nil
}

func (c *fakeChat) RemoveReaction(_ context.Context, _, messageID, emoji string) error {
	if err := c.record("RemoveReaction " + emoji); err != nil {
		return err
	}
	msg := c.messages[messageID]
	kept := msg.Reactions[:0]
	for _, r := range msg.Reactions {
		if r.Emoji != emoji {
			kept = append(kept, r)
		}
	}
	msg.Reactions = kept
	return nil
}

func (c *fakeChat) LockThread(_ context.Context, threadID string, locked bool) error {
	if err := c.record(fmt.Sprintf("LockThread %t", locked)); err != nil {
		return err
	}
	c.locked[threadID] = locked
	return nil
}

func (c *fakeChat) ArchiveThread(_ context.Context, threadID string) error {
	if err := c.record("ArchiveThread"); err != nil {
		return err
	}
	c.archived[threadID] = true
	c.locked[threadID] = true
	return nil
}

func (c *fakeChat) RemoveThreadMember(_ context.Context, threadID, userID string) error {
	if err := c.record("RemoveThreadMember"); err != nil {
		return err
	}
	c.removed[threadID] = append(c.removed[threadID], userID)
	return nil
}

func (c *fakeChat) reactions(messageID string) []string {
	var out []string
	for _, r := range c.messages[messageID].Reactions {
		out = append(out, r.Emoji)
	}
	sort.Strings(out)
	return out
}

func (c *fakeChat) count(call string) int {
	n := 0
	for _, got := range c.calls {
		if got == call {
			n++
		}
	}
	return n
}

// fakeHost is an in-memory pull request host.
type fakeHost struct {
	comments  []models.Comment
	reviews   map[int64]*models.Review
	commits   map[string]string
	requested [][]string
	calls     []string
	errs      map[string]error
	now       func() time.Time
}

func newFakeHost(now func() time.Time) *fakeHost {
	return &fakeHost{
		reviews: map[int64]*models.Review{},
		commits: map[string]string{},
		errs:    map[string]error{},
		now:     now,
	}
}

func (h *fakeHost) record(call string) error {
	h.calls = append(h.calls, call)
	return h.errs[call]
}

func (h *fakeHost) ListComments(_ context.Context, _ int) ([]models.Comment, error) {
	if err := h.record("ListComments"); err != nil {
		return nil, err
	}
	return append([]models.Comment(nil), h.comments...), nil
}

func (h *fakeHost) CreateComment(_ context.Context, _ int, body string) error {
	if err := h.record("CreateComment"); err != nil {
		return err
	}
	h.comments = append(h.comments, models.Comment{
		ID:        int64(len(h.comments) + 1),
		Author:    "github-actions[bot]",
		Body:      body,
		CreatedAt: h.now(),
	})
	return nil
}

func (h *fakeHost) GetReview(_ context.Context, _ int, reviewID int64) (*models.Review, error) {
	if err := h.record("GetReview"); err != nil {
		return nil, err
	}
	review, ok := h.reviews[reviewID]
	if !ok {
		return nil, fmt.Errorf("review %d not found", reviewID)
	}
	return review, nil
}

func (h *fakeHost) RequestReviewers(_ context.Context, _ int, logins []string) error {
	if err := h.record("RequestReviewers"); err != nil {
		return err
	}
	h.requested = append(h.requested, logins)
	return nil
}

func (h *fakeHost) GetCommitMessage(_ context.Context, sha string) (string, error) {
	if err := h.record("GetCommitMessage"); err != nil {
		return "", err
	}
	msg, ok := h.commits[sha]
	if !ok {
		return "", fmt.Errorf("commit %s not found", sha)
	}
	return msg, nil
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	engine *Engine
	chat   *fakeChat
	host   *fakeHost
	users  *usermapping.Mapper
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	now := func() time.Time { return testNow }
	users := usermapping.New(map[string]string{"alice": "1001", "bob": "1002", "carol": "1003"})
	chat := newFakeChat()
	host := newFakeHost(now)
	engine := NewEngine(chat, host, Config{
		ChannelID: "555",
		Renderer:  format.NewRenderer(users),
		Users:     users,
		Logger:    zerolog.Nop(),
		Now:       now,
	})
	return &harness{t: t, engine: engine, chat: chat, host: host, users: users}
}

func samplePR() models.PullRequest {
	return models.PullRequest{
		Number:     42,
		Title:      "Add retry to uploader",
		URL:        "https://github.com/acme/widgets/pull/42",
		Body:       "Retries uploads on 5xx.",
		State:      "open",
		Author:     "carol",
		BaseBranch: "main",
		HeadBranch: "feature/retry",
	}
}

func (h *harness) handle(ev models.Event) *Outcome {
	h.t.Helper()
	out, err := h.engine.Handle(context.Background(), ev)
	if err != nil {
		h.t.Fatalf("Handle(%s) returned error: %v", ev.Kind, err)
	}
	return out
}

// open runs the opened handler and returns the parent message id and thread id.
func (h *harness) open(pr models.PullRequest) (string, string) {
	h.t.Helper()
	h.handle(models.Event{Kind: models.EventOpened, Sender: pr.Author, PullRequest: pr})
	for id := range h.chat.messages {
		return id, "t" + id
	}
	h.t.Fatalf("no parent message was posted")
	return "", ""
}

func (h *harness) parent(messageID string) string {
	return h.chat.messages[messageID].Content
}

func (h *harness) status(messageID string) format.Status {
	h.t.Helper()
	s, err := format.ExtractStatus(h.parent(messageID))
	if err != nil {
		h.t.Fatalf("parent status unreadable: %v", err)
	}
	return s
}

func review(state, author string) *models.Review {
	return &models.Review{ID: 9, Author: author, State: state, Body: "looks fine"}
}
