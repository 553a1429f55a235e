// Package orders talks to the table/order service. The bot treats orders as
// read-mostly: it only ever fetches a snapshot.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecristovao/pagbot/internal/money"
)

var ErrOrderNotFound = errors.New("order not found")

type Item struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Snapshot of an order as the POS reports it.
type Snapshot struct {
	OrderID  string          `json:"order_id"`
	Message  string          `json:"message"`
	Items    []Item          `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Discount decimal.Decimal `json:"discount"`
}

// EffectiveTotal is what the guest actually owes: total minus discount.
func (s *Snapshot) EffectiveTotal() decimal.Decimal {
	return money.Round2(s.Total.Sub(s.Discount))
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch retrieves the order snapshot. Network and 5xx failures are
// returned as-is (retryable); a 404 is ErrOrderNotFound.
func (c *Client) Fetch(ctx context.Context, orderID string) (*Snapshot, error) {
	url := fmt.Sprintf("%s/orders/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrOrderNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("order lookup: unexpected status %d", resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("order lookup: decode: %w", err)
	}
	if snap.OrderID == "" {
		snap.OrderID = orderID
	}
	return &snap, nil
}
