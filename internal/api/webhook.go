package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ecristovao/pagbot/internal/conversation"
)

// handleWebhookVerify answers Meta's subscription handshake.
func (a *API) handleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == a.config.VerifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

// handleWebhookReceive turns the Cloud API delivery into conversation events
// and applies them in order. Processing stays on the request goroutine: the
// engine's per-user lock plus in-order application is what keeps a guest's
// rapid messages from interleaving.
func (a *API) handleWebhookReceive(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	for _, ev := range payload.events() {
		if _, err := a.engine.HandleEvent(r.Context(), ev); err != nil {
			log.Printf("webhook: handle event from %s: %v", ev.UserID, err)
		}
	}

	// Meta expects 200 regardless; failures are retried by the platform.
	w.WriteHeader(http.StatusOK)
}

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image *struct {
		ID string `json:"id"`
	} `json:"image"`
	Document *struct {
		ID string `json:"id"`
	} `json:"document"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		NFMReply *struct {
			ResponseJSON string `json:"response_json"`
		} `json:"nfm_reply"`
	} `json:"interactive"`
	Contacts []struct {
		Name struct {
			FormattedName string `json:"formatted_name"`
		} `json:"name"`
		Phones []struct {
			Phone string `json:"phone"`
			WaID  string `json:"wa_id"`
		} `json:"phones"`
	} `json:"contacts"`
}

// events flattens the delivery into ordered conversation events, dropping
// message types the flow has no use for (audio, stickers, reactions).
func (p webhookPayload) events() []conversation.Event {
	var out []conversation.Event
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if ev, ok := msg.toEvent(); ok {
					out = append(out, ev)
				}
			}
		}
	}
	return out
}

func (m inboundMessage) toEvent() (conversation.Event, bool) {
	ev := conversation.Event{UserID: m.From}

	switch m.Type {
	case "text":
		if m.Text == nil {
			return ev, false
		}
		ev.Kind = conversation.KindText
		ev.Text = m.Text.Body

	case "image":
		if m.Image == nil {
			return ev, false
		}
		ev.Kind = conversation.KindMedia
		ev.MediaID = m.Image.ID

	case "document":
		if m.Document == nil {
			return ev, false
		}
		ev.Kind = conversation.KindMedia
		ev.MediaID = m.Document.ID

	case "interactive":
		if m.Interactive == nil {
			return ev, false
		}
		switch {
		case m.Interactive.ButtonReply != nil:
			ev.Kind = conversation.KindButton
			ev.ReplyID = m.Interactive.ButtonReply.ID
			ev.Text = m.Interactive.ButtonReply.Title
		case m.Interactive.NFMReply != nil:
			ev.Kind = conversation.KindFlow
			ev.Text = m.Interactive.NFMReply.ResponseJSON
		default:
			return ev, false
		}

	case "contacts":
		if len(m.Contacts) == 0 {
			return ev, false
		}
		ev.Kind = conversation.KindContacts
		for _, c := range m.Contacts {
			phone := ""
			for _, p := range c.Phones {
				if p.WaID != "" {
					phone = p.WaID
					break
				}
				if p.Phone != "" {
					phone = p.Phone
				}
			}
			ev.Contacts = append(ev.Contacts, conversation.Contact{
				Name:  c.Name.FormattedName,
				Phone: phone,
			})
		}

	default:
		return ev, false
	}

	return ev, true
}
