// Package pushprovider клиент FCM (legacy HTTP API) для пакетной отправки
// push-уведомлений.
package pushprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/magabrotheeeer/golden-pips/internal/config"
	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
)

// MaxBatchSize предел получателей в одном запросе FCM.
const MaxBatchSize = 500

// Notification плоское уведомление FCM.
type Notification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Icon        string `json:"icon,omitempty"`
	Badge       string `json:"badge,omitempty"`
	ClickAction string `json:"click_action,omitempty"`
}

// Message запрос /fcm/send.
type Message struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    Notification      `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

// BatchResult число успешных и неуспешных доставок в пакете.
type BatchResult struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Client HTTP-клиент FCM.
type Client struct {
	cfg        config.Push
	httpClient *http.Client
}

// NewClient создает клиент FCM.
func NewClient(cfg config.Push) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.PushTimeout},
	}
}

// Decorate дополняет уведомление иконкой, бейджем и действием из конфига.
func (c *Client) Decorate(title, body string) Notification {
	return Notification{
		Title:       title,
		Body:        body,
		Icon:        c.cfg.PushIcon,
		Badge:       c.cfg.PushBadge,
		ClickAction: c.cfg.PushClickAction,
	}
}

// SendBatch отправляет одно уведомление не более чем MaxBatchSize получателям.
func (c *Client) SendBatch(ctx context.Context, tokens []string, n Notification, data map[string]string) (BatchResult, error) {
	const op = "pushprovider.SendBatch"
	if len(tokens) > MaxBatchSize {
		return BatchResult{}, fmt.Errorf("%s: %w: batch of %d exceeds %d", op, apperr.ErrValidation, len(tokens), MaxBatchSize)
	}

	payload, err := json.Marshal(Message{RegistrationIDs: tokens, Notification: n, Data: data})
	if err != nil {
		return BatchResult{}, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.PushAPIURL, bytes.NewReader(payload))
	if err != nil {
		return BatchResult{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "key="+c.cfg.PushServerKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return BatchResult{}, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return BatchResult{}, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return BatchResult{}, fmt.Errorf("%s: %w: status %d: %s", op, apperr.ErrUpstream, resp.StatusCode, body)
	}

	var result BatchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return BatchResult{}, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	return result, nil
}
