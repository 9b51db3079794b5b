// Package moderation implements the strike flow: classify incoming group
// messages, delete spam, warn the sender, and remove repeat offenders.
package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anticlanker/anticlanker/internal/keystore"
	"github.com/anticlanker/anticlanker/internal/model"
)

// Webhook processing outcomes, reported back to GroupMe and logged.
const (
	StatusIgnored = "ignored"
	StatusOK      = "ok"
	StatusWarned  = "warned"
	StatusRemoved = "removed"
	StatusFailed  = "removal_failed"
)

// SpamChecker classifies a message body.
type SpamChecker interface {
	IsSpam(ctx context.Context, text string) (bool, error)
}

// GroupAPI is the slice of the GroupMe client the moderator needs.
type GroupAPI interface {
	DeleteMessage(ctx context.Context, messageID string) error
	LikeMessage(ctx context.Context, messageID string) error
	PostBotMessage(ctx context.Context, text string) error
	SendDM(ctx context.Context, userID, text string) error
	MembershipID(ctx context.Context, userID string) (string, error)
	RemoveMember(ctx context.Context, membershipID string) error
}

// Moderator applies the strike policy to group messages. Strikes persist in
// the keystore so a restart does not reset anyone's count.
type Moderator struct {
	checker     SpamChecker
	group       GroupAPI
	store       *keystore.Store
	logger      *slog.Logger
	botID       string
	warnStrikes int
	ignored     map[string]bool
}

// New builds a Moderator. ignored holds sender names (matched
// case-insensitively) whose messages are exempt and get a like instead.
func New(checker SpamChecker, group GroupAPI, store *keystore.Store, logger *slog.Logger, botID string, warnStrikes int, ignored []string) *Moderator {
	set := make(map[string]bool, len(ignored))
	for _, name := range ignored {
		set[strings.ToLower(strings.TrimSpace(name))] = true
	}
	if warnStrikes < 1 {
		warnStrikes = 1
	}
	return &Moderator{
		checker:     checker,
		group:       group,
		store:       store,
		logger:      logger,
		botID:       botID,
		warnStrikes: warnStrikes,
		ignored:     set,
	}
}

// HandleMessage runs one webhook payload through the strike flow and returns
// the outcome status.
func (m *Moderator) HandleMessage(ctx context.Context, msg *model.CallbackMessage) (string, error) {
	// The bot's own posts and system events must never be moderated, or the
	// warning messages would trigger an endless loop.
	if msg.System || msg.SenderType == "bot" || msg.UserID == "0" || msg.UserID == m.botID {
		return StatusIgnored, nil
	}

	if m.ignored[strings.ToLower(msg.Name)] {
		if err := m.group.LikeMessage(ctx, msg.ID); err != nil {
			m.logger.Warn("like failed for exempt sender", "message_id", msg.ID, "error", err)
		}
		return StatusIgnored, nil
	}

	spam, err := m.checker.IsSpam(ctx, msg.Text)
	if err != nil {
		return "", fmt.Errorf("classify message %s: %w", msg.ID, err)
	}
	if !spam {
		return StatusOK, nil
	}

	return m.reckon(ctx, msg)
}

// reckon deletes the offending message, records a strike, and either warns
// the sender or removes them from the group.
func (m *Moderator) reckon(ctx context.Context, msg *model.CallbackMessage) (string, error) {
	if err := m.group.DeleteMessage(ctx, msg.ID); err != nil {
		m.logger.Warn("delete spam message failed", "message_id", msg.ID, "error", err)
	}

	count, err := m.store.AddStrike(ctx, msg.UserID)
	if err != nil {
		return "", fmt.Errorf("record strike for %s: %w", msg.UserID, err)
	}
	m.logger.Info("spam detected",
		"sender", msg.Name, "user_id", msg.UserID, "strike", count, "message_id", msg.ID)

	if count <= m.warnStrikes {
		warning := fmt.Sprintf("@%s, warning: spam detected, issuing strike %d of %d.",
			msg.Name, count, m.warnStrikes)
		if err := m.group.PostBotMessage(ctx, warning); err != nil {
			m.logger.Warn("post warning failed", "user_id", msg.UserID, "error", err)
		}
		if err := m.group.SendDM(ctx, msg.UserID, warning); err != nil {
			m.logger.Warn("dm warning failed", "user_id", msg.UserID, "error", err)
		}
		return StatusWarned, nil
	}

	return m.remove(ctx, msg)
}

func (m *Moderator) remove(ctx context.Context, msg *model.CallbackMessage) (string, error) {
	membershipID, err := m.group.MembershipID(ctx, msg.UserID)
	if err != nil {
		m.logger.Error("membership lookup failed", "user_id", msg.UserID, "error", err)
		m.group.PostBotMessage(ctx, fmt.Sprintf("Failed to remove @%s, please remove manually.", msg.Name)) //nolint:errcheck
		return StatusFailed, nil
	}
	if err := m.group.RemoveMember(ctx, membershipID); err != nil {
		m.logger.Error("member removal failed", "user_id", msg.UserID, "error", err)
		m.group.PostBotMessage(ctx, fmt.Sprintf("Failed to remove @%s, please remove manually.", msg.Name)) //nolint:errcheck
		return StatusFailed, nil
	}

	if err := m.store.ClearStrikes(ctx, msg.UserID); err != nil {
		m.logger.Warn("clear strikes failed", "user_id", msg.UserID, "error", err)
	}
	m.group.PostBotMessage(ctx, fmt.Sprintf("@%s has been removed for repeated spam.", msg.Name)) //nolint:errcheck
	m.group.SendDM(ctx, msg.UserID, fmt.Sprintf("@%s, you have been removed from the group due to repeated spam violations.", msg.Name)) //nolint:errcheck

	m.logger.Info("member removed", "sender", msg.Name, "user_id", msg.UserID)
	return StatusRemoved, nil
}
