package groupme

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	method string
	path   string
	token  string
	body   map[string]interface{}
}

func newFakeAPI(t *testing.T, rec *[]recordedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			token:  r.URL.Query().Get("token"),
		}
		if r.Body != nil {
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				req.body = body
			}
		}
		*rec = append(*rec, req)

		if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/groups/") {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"response": map[string]interface{}{
					"members": []Member{
						{ID: "mem-1", UserID: "111", Nickname: "alice"},
						{ID: "mem-2", UserID: "222", Nickname: "bob"},
					},
				},
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"response":{}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, rec *[]recordedRequest) *Client {
	t.Helper()
	srv := newFakeAPI(t, rec)
	return NewClient(srv.URL, "test-token", "bot-auth-1", "9000")
}

func TestMembershipID(t *testing.T) {
	var rec []recordedRequest
	c := newTestClient(t, &rec)

	id, err := c.MembershipID(context.Background(), "222")
	if err != nil {
		t.Fatalf("MembershipID: %v", err)
	}
	if id != "mem-2" {
		t.Errorf("membership id: got %q, want mem-2", id)
	}
	if rec[0].token != "test-token" {
		t.Errorf("token not sent: %+v", rec[0])
	}

	if _, err := c.MembershipID(context.Background(), "999"); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("unknown user: got %v, want ErrMemberNotFound", err)
	}
}

func TestRemoveAndBanMember(t *testing.T) {
	var rec []recordedRequest
	c := newTestClient(t, &rec)

	if err := c.RemoveMember(context.Background(), "mem-1"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if err := c.BanMember(context.Background(), "mem-1"); err != nil {
		t.Fatalf("BanMember: %v", err)
	}

	if rec[0].path != "/groups/9000/members/mem-1/remove" || rec[0].method != http.MethodPost {
		t.Errorf("remove request: %+v", rec[0])
	}
	if rec[1].path != "/groups/9000/memberships/mem-1/destroy" {
		t.Errorf("ban request: %+v", rec[1])
	}
}

func TestDeleteMessage(t *testing.T) {
	var rec []recordedRequest
	c := newTestClient(t, &rec)

	if err := c.DeleteMessage(context.Background(), "msg-42"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if rec[0].method != http.MethodDelete || rec[0].path != "/conversations/9000/messages/msg-42" {
		t.Errorf("delete request: %+v", rec[0])
	}
}

func TestLikeMessage(t *testing.T) {
	var rec []recordedRequest
	c := newTestClient(t, &rec)

	if err := c.LikeMessage(context.Background(), "msg-7"); err != nil {
		t.Fatalf("LikeMessage: %v", err)
	}
	if rec[0].path != "/messages/9000/msg-7/like" {
		t.Errorf("like request: %+v", rec[0])
	}
	if rec[0].body["like_icon"] == nil {
		t.Error("like icon missing from payload")
	}
}

func TestPostBotMessage(t *testing.T) {
	var rec []recordedRequest
	c := newTestClient(t, &rec)

	if err := c.PostBotMessage(context.Background(), "hello group"); err != nil {
		t.Fatalf("PostBotMessage: %v", err)
	}
	req := rec[0]
	if req.path != "/bots/post" {
		t.Errorf("bot post path: %q", req.path)
	}
	// Bot posts authenticate with the bot id, not the token.
	if req.token != "" {
		t.Errorf("bot post must not carry the access token, got %q", req.token)
	}
	if req.body["bot_id"] != "bot-auth-1" || req.body["text"] != "hello group" {
		t.Errorf("bot post body: %+v", req.body)
	}
}

func TestSendDMAppendsDisclosure(t *testing.T) {
	var rec []recordedRequest
	c := newTestClient(t, &rec)

	if err := c.SendDM(context.Background(), "111", "first warning"); err != nil {
		t.Fatalf("SendDM: %v", err)
	}
	dm, ok := rec[0].body["direct_message"].(map[string]interface{})
	if !ok {
		t.Fatalf("direct_message missing: %+v", rec[0].body)
	}
	text, _ := dm["text"].(string)
	if !strings.HasPrefix(text, "first warning") || !strings.Contains(text, "automatically by a bot") {
		t.Errorf("dm text: %q", text)
	}
	if guid, _ := dm["source_guid"].(string); guid == "" {
		t.Error("source_guid missing")
	}
	if dm["recipient_id"] != "111" {
		t.Errorf("recipient: %v", dm["recipient_id"])
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", "bot", "1")
	err := c.DeleteMessage(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status error, got %v", err)
	}
}
