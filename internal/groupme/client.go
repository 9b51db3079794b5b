// Package groupme is a minimal client for the GroupMe v3 REST API, covering
// only the moderation surface the service needs: deleting messages, removing
// and banning members, liking messages, bot posts, and direct messages.
package groupme

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMemberNotFound is returned when a user id has no membership in the group.
var ErrMemberNotFound = errors.New("groupme: member not found")

// Member is one entry of the group roster.
type Member struct {
	ID       string   `json:"id"`
	UserID   string   `json:"user_id"`
	Nickname string   `json:"nickname"`
	Muted    bool     `json:"muted"`
	Roles    []string `json:"roles,omitempty"`
}

// Client talks to the GroupMe API for a single group. All calls authenticate
// with the access token passed as the token query parameter, which is how the
// v3 API expects it.
type Client struct {
	baseURL     string
	accessToken string
	botID       string
	groupID     string
	http        *http.Client
}

// NewClient builds a client scoped to one group. baseURL is normally
// https://api.groupme.com/v3 and is overridable for tests.
func NewClient(baseURL, accessToken, botID, groupID string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		botID:       botID,
		groupID:     groupID,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

// GroupID returns the group the client is scoped to.
func (c *Client) GroupID() string {
	return c.groupID
}

// MembershipID resolves a user id to the membership id needed by the removal
// and ban endpoints. Returns ErrMemberNotFound when the user is not in the
// group roster.
func (c *Client) MembershipID(ctx context.Context, userID string) (string, error) {
	var out struct {
		Response struct {
			Members []Member `json:"members"`
		} `json:"response"`
	}
	if err := c.get(ctx, "/groups/"+c.groupID, &out); err != nil {
		return "", err
	}
	for _, m := range out.Response.Members {
		if m.UserID == userID {
			return m.ID, nil
		}
	}
	return "", ErrMemberNotFound
}

// RemoveMember kicks a member out of the group. The member can rejoin unless
// also banned.
func (c *Client) RemoveMember(ctx context.Context, membershipID string) error {
	return c.post(ctx, fmt.Sprintf("/groups/%s/members/%s/remove", c.groupID, membershipID), nil, nil)
}

// BanMember destroys the membership so the user cannot rejoin.
func (c *Client) BanMember(ctx context.Context, membershipID string) error {
	return c.post(ctx, fmt.Sprintf("/groups/%s/memberships/%s/destroy", c.groupID, membershipID), nil, nil)
}

// DeleteMessage removes a message from the group conversation.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete,
		fmt.Sprintf("/conversations/%s/messages/%s", c.groupID, messageID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// LikeMessage hearts a message on behalf of the authenticated account.
func (c *Client) LikeMessage(ctx context.Context, messageID string) error {
	body := map[string]interface{}{
		"like_icon": map[string]string{"type": "unicode", "code": "❤️"},
	}
	return c.post(ctx, fmt.Sprintf("/messages/%s/%s/like", c.groupID, messageID), body, nil)
}

// PostBotMessage posts text into the group as the bot. The bots endpoint
// authenticates with the bot id, not the access token.
func (c *Client) PostBotMessage(ctx context.Context, text string) error {
	raw, err := json.Marshal(map[string]string{"bot_id": c.botID, "text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bots/post", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

// SendDM sends a direct message to a user. A bot disclosure line is appended
// so recipients know the message was automated.
func (c *Client) SendDM(ctx context.Context, userID, text string) error {
	body := map[string]interface{}{
		"direct_message": map[string]string{
			"source_guid":  uuid.NewString(),
			"recipient_id": userID,
			"text":         text + "\n[This action was performed automatically by a bot]",
		},
	}
	return c.post(ctx, "/direct_messages", body, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if c.accessToken != "" {
		u += "?token=" + url.QueryEscape(c.accessToken)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, reader)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("groupme: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("groupme: %s %s: unexpected status %d", req.Method, req.URL.Path, res.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, res.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("groupme: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
