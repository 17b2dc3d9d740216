// internal/alert/pagerduty.go
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

// DefaultPagerDutyURL is the Events API v2 enqueue endpoint
const DefaultPagerDutyURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutyChannel triggers incidents through a paging webhook. It
// pages only on critical alerts; that filter belongs to the channel,
// not the dispatcher.
type PagerDutyChannel struct {
	url        string
	routingKey string
	client     *http.Client
	logger     *zap.Logger
	enabled    bool
}

type pagerDutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	Payload     pagerDutyPayload `json:"payload"`
}

type pagerDutyPayload struct {
	Summary  string `json:"summary"`
	Severity string `json:"severity"`
	Source   string `json:"source"`
}

// NewPagerDutyChannel creates the channel. A missing routing key
// disables it rather than crashing the monitor.
func NewPagerDutyChannel(url, routingKey string, timeout time.Duration, logger *zap.Logger) *PagerDutyChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if url == "" {
		url = DefaultPagerDutyURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ch := &PagerDutyChannel{
		url:        url,
		routingKey: routingKey,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		enabled:    routingKey != "",
	}
	if !ch.enabled {
		logger.Warn("pagerduty channel disabled: no routing key configured")
	}
	return ch
}

// Name returns the channel name
func (c *PagerDutyChannel) Name() string { return "pagerduty" }

// Enabled reports whether the channel will actually deliver
func (c *PagerDutyChannel) Enabled() bool { return c.enabled }

// Send triggers an incident for critical alerts; everything below
// critical settles immediately without paging.
func (c *PagerDutyChannel) Send(ctx context.Context, a Alert) error {
	if !c.enabled || a.Severity != SeverityCritical {
		return nil
	}

	event := pagerDutyEvent{
		RoutingKey:  c.routingKey,
		EventAction: "trigger",
		Payload: pagerDutyPayload{
			Summary:  fmt.Sprintf("[%s] %s", a.Type, a.Message),
			Severity: string(a.Severity),
			Source:   "vigil",
		},
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("pagerduty: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pagerduty: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pagerduty: post event: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pagerduty: events API returned status %d", resp.StatusCode)
	}
	return nil
}
