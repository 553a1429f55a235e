// Package gateway mints card-payment links at the PSP. Authentication is
// OAuth2 client credentials; the token source refreshes itself.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/clientcredentials"
)

type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
}

type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(ctx context.Context, cfg Config) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	hc := cc.Client(ctx)
	hc.Timeout = 20 * time.Second
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type chargeRequest struct {
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference"`
	CustomerPhone string `json:"customer_phone"`
}

type chargeResponse struct {
	PaymentURL string `json:"payment_url"`
}

// CreateChargeLink asks the PSP for a hosted card-checkout URL covering the
// guest's open amount. Each call carries a fresh idempotency key: a retried
// request after a network error must not mint a second charge.
func (c *Client) CreateChargeLink(ctx context.Context, userID string, amount decimal.Decimal, orderID string) (string, error) {
	body, err := json.Marshal(chargeRequest{
		AmountCents:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:      "BRL",
		Reference:     orderID,
		CustomerPhone: userID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway: create charge: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gateway: create charge: status %d: %s", resp.StatusCode, detail)
	}

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gateway: decode charge response: %w", err)
	}
	if out.PaymentURL == "" {
		return "", fmt.Errorf("gateway: charge response missing payment_url")
	}
	return out.PaymentURL, nil
}
