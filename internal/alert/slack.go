// internal/alert/slack.go
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SlackChannel posts alerts to a chat-style incoming webhook
type SlackChannel struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
	enabled    bool
}

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackChannel creates the channel. An empty webhook URL disables
// it: Send becomes a no-op instead of failing every broadcast.
func NewSlackChannel(webhookURL string, timeout time.Duration, logger *zap.Logger) *SlackChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ch := &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		enabled:    webhookURL != "",
	}
	if !ch.enabled {
		logger.Warn("slack channel disabled: no webhook URL configured")
	}
	return ch
}

// Name returns the channel name
func (c *SlackChannel) Name() string { return "slack" }

// Enabled reports whether the channel will actually deliver
func (c *SlackChannel) Enabled() bool { return c.enabled }

// Send posts the alert to the webhook
func (c *SlackChannel) Send(ctx context.Context, a Alert) error {
	if !c.enabled {
		return nil
	}

	fields := make([]slackField, 0, len(a.Details)+1)
	fields = append(fields, slackField{Title: "Severity", Value: string(a.Severity), Short: true})
	for k, v := range a.Details {
		fields = append(fields, slackField{Title: k, Value: v, Short: true})
	}

	payload := slackPayload{
		Text: fmt.Sprintf("[%s] %s", a.Type, a.Message),
		Attachments: []slackAttachment{{
			Color:  severityColor(a.Severity),
			Fields: fields,
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("slack: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func severityColor(s Severity) string {
	switch s {
	case SeverityCritical:
		return "danger"
	case SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}
