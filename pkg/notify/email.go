package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/hse-api/pkg/config"
)

// Email is one outgoing transactional message.
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender delivers an email.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// HTTPSender posts messages to a transactional email API at {base}/emails.
type HTTPSender struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

// NewHTTPSender builds a sender from configuration.
func NewHTTPSender(cfg config.NotificationsConfig, client *http.Client) *HTTPSender {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSender{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		client:  client,
	}
}

// Send posts msg; a non-2xx response is an error carrying the response body.
func (s *HTTPSender) Send(ctx context.Context, msg Email) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("send email: no recipients")
	}
	if msg.From == "" {
		msg.From = s.from
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("send email: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// Noop discards every message. Used when notifications are disabled.
type Noop struct{}

func (Noop) Send(context.Context, Email) error { return nil }
