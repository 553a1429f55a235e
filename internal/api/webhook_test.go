package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecristovao/pagbot/internal/config"
	"github.com/ecristovao/pagbot/internal/conversation"
)

func newTestAPI() *API {
	api := &API{
		config: &config.Config{
			VerifyToken: "verify-me",
			JWTSecret:   "test-secret",
		},
		jwtSecret: []byte("test-secret"),
	}
	return api
}

func TestWebhookVerify(t *testing.T) {
	api := newTestAPI()

	req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	api.handleWebhookVerify(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "12345" {
		t.Errorf("body = %q, want challenge echoed", w.Body.String())
	}
}

func TestWebhookVerifyRejectsWrongToken(t *testing.T) {
	api := newTestAPI()

	req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	api.handleWebhookVerify(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestPayloadEvents(t *testing.T) {
	raw := `{
		"entry": [{"changes": [{"value": {"messages": [
			{"from": "5511999990001", "type": "text", "text": {"body": "pagar comanda 121"}},
			{"from": "5511999990001", "type": "interactive", "interactive": {"type": "button_reply", "button_reply": {"id": "confirm_yes", "title": "Sim"}}},
			{"from": "5511999990001", "type": "image", "image": {"id": "media-9"}},
			{"from": "5511999990001", "type": "contacts", "contacts": [
				{"name": {"formatted_name": "Maria"}, "phones": [{"phone": "+55 11 99999-0002", "wa_id": "5511999990002"}]}
			]},
			{"from": "5511999990001", "type": "audio"}
		]}}]}]
	}`

	var payload webhookPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	events := payload.events()
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4 (audio dropped)", len(events))
	}

	if events[0].Kind != conversation.KindText || events[0].Text != "pagar comanda 121" {
		t.Errorf("text event = %+v", events[0])
	}
	if events[1].Kind != conversation.KindButton || events[1].ReplyID != "confirm_yes" {
		t.Errorf("button event = %+v", events[1])
	}
	if events[2].Kind != conversation.KindMedia || events[2].MediaID != "media-9" {
		t.Errorf("media event = %+v", events[2])
	}
	if events[3].Kind != conversation.KindContacts {
		t.Fatalf("contacts event = %+v", events[3])
	}
	if got := events[3].Contacts[0]; got.Name != "Maria" || got.Phone != "5511999990002" {
		t.Errorf("contact = %+v, want wa_id preferred over display phone", got)
	}
}
