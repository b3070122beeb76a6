package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxRateLimitRetries = 3

// Client инкапсулирует HTTP-взаимодействие с внешним платёжным шлюзом.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type chargeRequest struct {
	OrderNumber string `json:"order_number"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	CardToken   string `json:"card_token"`
}

type chargeResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// NewClient создаёт HTTP-клиент шлюза по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Charge отправляет запрос на списание. При ответе 429 запрос повторяется
// после паузы из заголовка Retry-After.
func (c *Client) Charge(ctx context.Context, ch Charge) (*Decision, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("payment gateway client not configured")
	}

	for attempt := 0; ; attempt++ {
		decision, retryAfter, err := c.charge(ctx, ch)
		if err != nil || retryAfter == 0 {
			return decision, err
		}
		if attempt >= maxRateLimitRetries {
			return nil, fmt.Errorf("payment gateway rate limit exceeded")
		}

		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) charge(ctx context.Context, ch Charge) (*Decision, time.Duration, error) {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(chargeRequest{
		OrderNumber: ch.OrderNumber,
		Amount:      ch.Amount.StringFixed(2),
		Currency:    ch.Currency,
		CardToken:   ch.CardToken,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/payments", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil && seconds > 0 {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, retryAfter, nil
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPaymentRequired {
		return nil, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode == http.StatusOK && result.Status == "APPROVED" {
		return &Decision{Approved: true, TransactionID: result.TransactionID}, 0, nil
	}

	reason := result.Reason
	if reason == "" {
		reason = "Pago rechazado por el procesador"
	}
	return &Decision{Reason: reason}, 0, nil
}
