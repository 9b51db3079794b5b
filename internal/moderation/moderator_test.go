package moderation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/anticlanker/anticlanker/internal/keystore"
	"github.com/anticlanker/anticlanker/internal/model"
)

type fakeChecker struct {
	spam bool
	err  error
}

func (f fakeChecker) IsSpam(_ context.Context, _ string) (bool, error) {
	return f.spam, f.err
}

type fakeGroup struct {
	deleted   []string
	liked     []string
	posts     []string
	dms       []string
	removed   []string
	memberID  string
	lookupErr error
}

func (f *fakeGroup) DeleteMessage(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeGroup) LikeMessage(_ context.Context, id string) error {
	f.liked = append(f.liked, id)
	return nil
}

func (f *fakeGroup) PostBotMessage(_ context.Context, text string) error {
	f.posts = append(f.posts, text)
	return nil
}

func (f *fakeGroup) SendDM(_ context.Context, userID, text string) error {
	f.dms = append(f.dms, userID+": "+text)
	return nil
}

func (f *fakeGroup) MembershipID(_ context.Context, _ string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	return f.memberID, nil
}

func (f *fakeGroup) RemoveMember(_ context.Context, membershipID string) error {
	f.removed = append(f.removed, membershipID)
	return nil
}

func newTestStore(t *testing.T) *keystore.Store {
	t.Helper()
	store, err := keystore.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newModerator(t *testing.T, spam bool, group *fakeGroup, ignored []string) *Moderator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(fakeChecker{spam: spam}, group, newTestStore(t), logger, "bot-901", 1, ignored)
}

func message(userID, name, text string) *model.CallbackMessage {
	return &model.CallbackMessage{
		ID:         "msg-1",
		UserID:     userID,
		SenderType: "user",
		Name:       name,
		Text:       text,
	}
}

func TestIgnoresOwnAndSystemMessages(t *testing.T) {
	group := &fakeGroup{}
	m := newModerator(t, true, group, nil)

	cases := []*model.CallbackMessage{
		{ID: "a", UserID: "bot-901", Name: "bot", SenderType: "bot"},
		{ID: "b", UserID: "0", Name: "system"},
		{ID: "c", UserID: "5", Name: "sys", System: true},
		{ID: "d", UserID: "5", Name: "other bot", SenderType: "bot"},
	}
	for _, msg := range cases {
		status, err := m.HandleMessage(context.Background(), msg)
		if err != nil {
			t.Fatalf("HandleMessage(%s): %v", msg.ID, err)
		}
		if status != StatusIgnored {
			t.Errorf("message %s: got %q, want ignored", msg.ID, status)
		}
	}
	if len(group.deleted) != 0 {
		t.Errorf("no message should have been deleted, got %v", group.deleted)
	}
}

func TestExemptSenderGetsLiked(t *testing.T) {
	group := &fakeGroup{}
	m := newModerator(t, true, group, []string{"Alice Smith"})

	status, err := m.HandleMessage(context.Background(), message("7", "alice smith", "tickets for sale"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if status != StatusIgnored {
		t.Errorf("status: got %q, want ignored", status)
	}
	if len(group.liked) != 1 || len(group.deleted) != 0 {
		t.Errorf("expected one like and no deletions, got likes=%v deletions=%v", group.liked, group.deleted)
	}
}

func TestCleanMessagePassesThrough(t *testing.T) {
	group := &fakeGroup{}
	m := newModerator(t, false, group, nil)

	status, err := m.HandleMessage(context.Background(), message("7", "alice", "anyone up for a game?"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if status != StatusOK {
		t.Errorf("status: got %q, want ok", status)
	}
	if len(group.deleted) != 0 || len(group.posts) != 0 {
		t.Errorf("clean message triggered actions: %+v", group)
	}
}

func TestFirstStrikeWarns(t *testing.T) {
	group := &fakeGroup{memberID: "mem-7"}
	m := newModerator(t, true, group, nil)

	status, err := m.HandleMessage(context.Background(), message("7", "spammer", "buy tickets now"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if status != StatusWarned {
		t.Errorf("status: got %q, want warned", status)
	}
	if len(group.deleted) != 1 {
		t.Errorf("spam message not deleted: %v", group.deleted)
	}
	if len(group.posts) != 1 || !strings.Contains(group.posts[0], "warning") {
		t.Errorf("warning not posted: %v", group.posts)
	}
	if len(group.removed) != 0 {
		t.Errorf("member removed on first strike: %v", group.removed)
	}
}

func TestSecondStrikeRemoves(t *testing.T) {
	group := &fakeGroup{memberID: "mem-7"}
	m := newModerator(t, true, group, nil)

	msg := message("7", "spammer", "buy tickets now")
	if _, err := m.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("first strike: %v", err)
	}
	status, err := m.HandleMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("second strike: %v", err)
	}
	if status != StatusRemoved {
		t.Errorf("status: got %q, want removed", status)
	}
	if len(group.removed) != 1 || group.removed[0] != "mem-7" {
		t.Errorf("removal: %v", group.removed)
	}

	// Strikes reset after removal so a readmitted member starts clean.
	count, err := m.store.GetStrikes(context.Background(), "7")
	if err != nil {
		t.Fatalf("GetStrikes: %v", err)
	}
	if count != 0 {
		t.Errorf("strikes after removal: got %d, want 0", count)
	}
}

func TestRemovalFailureIsReported(t *testing.T) {
	group := &fakeGroup{lookupErr: errors.New("not in roster")}
	m := newModerator(t, true, group, nil)

	msg := message("7", "spammer", "buy tickets now")
	m.HandleMessage(context.Background(), msg) //nolint:errcheck
	status, err := m.HandleMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("status: got %q, want removal_failed", status)
	}
	found := false
	for _, p := range group.posts {
		if strings.Contains(p, "manually") {
			found = true
		}
	}
	if !found {
		t.Errorf("manual-removal notice not posted: %v", group.posts)
	}
}

func TestClassifierErrorPropagates(t *testing.T) {
	group := &fakeGroup{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New(fakeChecker{err: errors.New("inference host down")}, group, newTestStore(t), logger, "bot-901", 1, nil)

	if _, err := m.HandleMessage(context.Background(), message("7", "alice", "hello")); err == nil {
		t.Error("expected classifier error to propagate")
	}
	if len(group.deleted) != 0 {
		t.Errorf("message deleted despite classifier failure: %v", group.deleted)
	}
}
