package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"onionchat/internal/history"
	"onionchat/internal/models"
	"onionchat/internal/registry"
	"onionchat/internal/ws"
)

func newTestAPI() *API {
	return New(ws.NewHub(registry.New(), history.New(100), nil), nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
}

func TestLoginHandler(t *testing.T) {
	a := newTestAPI()

	var resp struct {
		Success  bool   `json:"success"`
		Username string `json:"username"`
		JoinedAt string `json:"joinedAt"`
		Error    string `json:"error"`
	}

	rec := postJSON(t, a.LoginHandler, map[string]string{"username": "alice"})
	decode(t, rec, &resp)
	if !resp.Success || resp.Username != "alice" || resp.JoinedAt == "" {
		t.Errorf("unexpected login response: %+v", resp)
	}

	// Duplicate name: error body, still HTTP 200.
	rec = postJSON(t, a.LoginHandler, map[string]string{"username": "alice"})
	decode(t, rec, &resp)
	if resp.Error != "Username already taken" {
		t.Errorf("expected taken error, got %+v", resp)
	}

	// Empty name.
	rec = postJSON(t, a.LoginHandler, map[string]string{"username": "  "})
	decode(t, rec, &resp)
	if resp.Error == "" {
		t.Errorf("expected validation error, got %+v", resp)
	}
}

func TestMessageHandler(t *testing.T) {
	a := newTestAPI()

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}

	rec := postJSON(t, a.MessageHandler, map[string]string{
		"username": "alice",
		"message":  `it's <b>bold</b>`,
	})
	decode(t, rec, &resp)
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}

	// Stored escaped.
	msgs := a.hub.History()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Text != "it&#039;s &lt;b&gt;bold&lt;/b&gt;" {
		t.Errorf("text not escaped: %q", msgs[0].Text)
	}

	// Empty message is rejected.
	rec = postJSON(t, a.MessageHandler, map[string]string{"username": "alice", "message": " "})
	decode(t, rec, &resp)
	if resp.Error == "" {
		t.Error("expected error for empty message")
	}
}

func TestUsersAndMessagesHandlers(t *testing.T) {
	a := newTestAPI()

	if _, err := a.hub.Register("alice"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := a.hub.Send("alice", "hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	rec := httptest.NewRecorder()
	a.UsersHandler(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	var users []models.User
	decode(t, rec, &users)
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("unexpected users: %+v", users)
	}

	rec = httptest.NewRecorder()
	a.MessagesHandler(rec, httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	var msgs []models.Message
	decode(t, rec, &msgs)
	if len(msgs) != 1 || msgs[0].Text != "hello" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}
