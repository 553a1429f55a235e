// Package extract pulls structured payment fields out of a receipt image
// using a vision model. Receipts arrive as WhatsApp media ids; the fetcher
// resolves them to bytes.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ecristovao/pagbot/internal/money"
	"github.com/ecristovao/pagbot/internal/proof"
)

// MediaFetcher downloads inbound media by id. The WhatsApp client satisfies
// this.
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

const extractionPrompt = `Você receberá a imagem de um comprovante de transferência PIX.
Extraia os campos e responda SOMENTE com um objeto JSON neste formato:
{
  "payer_name": "nome de quem pagou",
  "beneficiary_name": "nome de quem recebeu",
  "beneficiary_document": "CPF ou CNPJ do recebedor, apenas dígitos, ou vazio",
  "amount": "valor numérico com ponto decimal, ex: 40.33",
  "transaction_id": "identificador da transação (E2E id ou similar)",
  "payment_datetime": "data e hora no formato RFC3339, ou vazio se ilegível"
}
Se a imagem não for um comprovante de pagamento, use valores vazios.`

type Client struct {
	ai    *openai.Client
	media MediaFetcher
	model string
}

func NewClient(apiKey string, media MediaFetcher) *Client {
	return &Client{
		ai:    openai.NewClient(apiKey),
		media: media,
		model: openai.GPT4o,
	}
}

// Extract downloads the receipt and asks the model for its fields. Every
// failure here is transient from the caller's point of view: the image may
// download on retry, and the model may produce valid JSON on retry.
func (c *Client) Extract(ctx context.Context, mediaID string) (proof.Record, error) {
	data, mime, err := c.media.DownloadMedia(ctx, mediaID)
	if err != nil {
		return proof.Record{}, fmt.Errorf("extract: download media %s: %w", mediaID, err)
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))

	resp, err := c.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: extractionPrompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		}},
	})
	if err != nil {
		return proof.Record{}, fmt.Errorf("extract: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return proof.Record{}, fmt.Errorf("extract: empty completion")
	}

	return parseRecord(resp.Choices[0].Message.Content)
}

type rawRecord struct {
	PayerName           string `json:"payer_name"`
	BeneficiaryName     string `json:"beneficiary_name"`
	BeneficiaryDocument string `json:"beneficiary_document"`
	Amount              string `json:"amount"`
	TransactionID       string `json:"transaction_id"`
	PaymentDateTime     string `json:"payment_datetime"`
}

func parseRecord(content string) (proof.Record, error) {
	var raw rawRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return proof.Record{}, fmt.Errorf("extract: parse response: %w", err)
	}

	// Models occasionally answer "R$ 40,33" despite the prompt.
	amount, ok := money.ParseAmount(raw.Amount)
	if !ok {
		return proof.Record{}, fmt.Errorf("extract: amount %q: no numeric value", raw.Amount)
	}
	if amount.Sign() <= 0 {
		return proof.Record{}, fmt.Errorf("extract: non-positive amount %q", raw.Amount)
	}
	if raw.TransactionID == "" {
		return proof.Record{}, fmt.Errorf("extract: missing transaction id")
	}

	rec := proof.Record{
		PayerName:           strings.TrimSpace(raw.PayerName),
		BeneficiaryName:     strings.TrimSpace(raw.BeneficiaryName),
		BeneficiaryDocument: strings.TrimSpace(raw.BeneficiaryDocument),
		Amount:              amount,
		TransactionID:       strings.TrimSpace(raw.TransactionID),
	}
	if raw.PaymentDateTime != "" {
		if ts, err := time.Parse(time.RFC3339, raw.PaymentDateTime); err == nil {
			rec.PaymentDateTime = ts
		}
	}
	return rec, nil
}
