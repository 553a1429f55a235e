package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecristovao/pagbot/internal/conversation"
)

func TestSendButtonsCapsAndTruncates(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/123/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("auth = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("tok", "123")
	c.baseURL = srv.URL
	c.http = srv.Client()

	err := c.Send(context.Background(), "5511999990001", conversation.Directive{
		Type: conversation.DirectiveButtons,
		Text: "Escolha",
		Buttons: []conversation.Button{
			{ID: "a", Title: "Um título muito maior que vinte caracteres"},
			{ID: "b", Title: "Dois"},
			{ID: "c", Title: "Três"},
			{ID: "d", Title: "Quatro"},
		},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	interactive := got["interactive"].(map[string]any)
	action := interactive["action"].(map[string]any)
	buttons := action["buttons"].([]any)
	if len(buttons) != 3 {
		t.Fatalf("buttons = %d, want 3", len(buttons))
	}
	first := buttons[0].(map[string]any)["reply"].(map[string]any)
	title := first["title"].(string)
	if len([]rune(title)) != 20 {
		t.Errorf("title %q not truncated to 20 runes", title)
	}
}

func TestSendReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("tok", "123")
	c.baseURL = srv.URL
	c.http = srv.Client()

	if err := c.Send(context.Background(), "u", conversation.Directive{Type: conversation.DirectiveText, Text: "oi"}); err == nil {
		t.Error("expected error on 401, got nil")
	}
}

func TestDownloadMedia(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/media-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"url":       srv.URL + "/blob",
			"mime_type": "image/png",
		})
	})
	mux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("blob auth = %q", auth)
		}
		w.Write([]byte("imagebytes"))
	})

	c := NewClient("tok", "123")
	c.baseURL = srv.URL
	c.http = srv.Client()

	data, mime, err := c.DownloadMedia(context.Background(), "media-1")
	if err != nil {
		t.Fatalf("DownloadMedia: %v", err)
	}
	if string(data) != "imagebytes" || mime != "image/png" {
		t.Errorf("got (%q, %q)", data, mime)
	}
}
