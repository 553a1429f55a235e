// Package whatsapp sends outbound messages through the WhatsApp Cloud API
// and downloads inbound media (receipt images).
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ecristovao/pagbot/internal/conversation"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// The Cloud API caps interactive replies at 3 buttons of 20 characters.
const (
	maxButtons     = 3
	maxButtonTitle = 20
)

type Client struct {
	token   string
	phoneID string
	baseURL string
	http    *http.Client
}

func NewClient(token, phoneID string) *Client {
	return &Client{
		token:   token,
		phoneID: phoneID,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Send delivers one directive. No delivery confirmation is awaited beyond
// the API call itself.
func (c *Client) Send(ctx context.Context, userID string, d conversation.Directive) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                userID,
	}

	switch d.Type {
	case conversation.DirectiveText:
		payload["type"] = "text"
		payload["text"] = map[string]any{"body": d.Text}

	case conversation.DirectiveDocument:
		payload["type"] = "document"
		payload["document"] = map[string]any{
			"link":     d.DocumentURL,
			"filename": d.Filename,
		}

	case conversation.DirectiveButtons:
		payload["type"] = "interactive"
		payload["interactive"] = map[string]any{
			"type":   "button",
			"body":   map[string]any{"text": d.Text},
			"action": map[string]any{"buttons": buildButtons(d.Buttons)},
		}

	case conversation.DirectiveFlow:
		payload["type"] = "interactive"
		payload["interactive"] = map[string]any{
			"type": "flow",
			"body": map[string]any{"text": d.Text},
			"action": map[string]any{
				"name": "flow",
				"parameters": map[string]any{
					"flow_id":    d.FlowID,
					"flow_token": d.FlowToken,
				},
			},
		}

	default:
		return fmt.Errorf("whatsapp: unknown directive type %d", d.Type)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp: send: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

func buildButtons(buttons []conversation.Button) []map[string]any {
	if len(buttons) > maxButtons {
		buttons = buttons[:maxButtons]
	}
	out := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		out = append(out, map[string]any{
			"type": "reply",
			"reply": map[string]any{
				"id":    b.ID,
				"title": truncateTitle(b.Title),
			},
		})
	}
	return out
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxButtonTitle {
		return title
	}
	return string(runes[:maxButtonTitle])
}

// DownloadMedia resolves a media id to its content. The Cloud API returns a
// short-lived URL that must be fetched with the same bearer token.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, mediaID), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: media lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("whatsapp: media lookup: status %d", resp.StatusCode)
	}

	var meta struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, "", fmt.Errorf("whatsapp: media lookup: decode: %w", err)
	}

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", err
	}
	dlReq.Header.Set("Authorization", "Bearer "+c.token)

	dlResp, err := c.http.Do(dlReq)
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: media download: %w", err)
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("whatsapp: media download: status %d", dlResp.StatusCode)
	}

	data, err := io.ReadAll(dlResp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, meta.MimeType, nil
}
