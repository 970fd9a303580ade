// Package paymentprovider клиент платежного шлюза NOWPayments:
// создание счетов и проверка подписи IPN-уведомлений.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/golden-pips/internal/config"
	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
)

// APIError ответ шлюза с неуспешным статусом. Тело сохраняется для логов.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nowpayments: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Unwrap относит ошибку шлюза к внешним сбоям.
func (e *APIError) Unwrap() error {
	return apperr.ErrUpstream
}

// Client HTTP-клиент NOWPayments.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент NOWPayments.
func NewClient(cfg config.Payment) *Client {
	return &Client{
		apiKey:     cfg.PaymentAPIKey,
		apiURL:     strings.TrimRight(cfg.PaymentAPIURL, "/"),
		httpClient: &http.Client{Timeout: cfg.PaymentTimeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CreateInvoice создает счет и возвращает ссылку на оплату.
func (c *Client) CreateInvoice(ctx context.Context, reqParams InvoiceRequest) (*InvoiceResponse, error) {
	const op = "paymentprovider.CreateInvoice"
	req, err := c.newRequest(ctx, http.MethodPost, "/invoice", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: %w", op, &APIError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var invoice InvoiceResponse
	if err := json.Unmarshal(body, &invoice); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	if invoice.ID == "" || invoice.InvoiceURL == "" {
		return nil, fmt.Errorf("%s: %w", op, &APIError{StatusCode: resp.StatusCode, Body: string(body)})
	}
	return &invoice, nil
}
