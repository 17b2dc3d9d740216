// internal/logagg/sink.go
package logagg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Sink accepts a single JSON log document. Implementations must treat
// every failure as their own: callers fire and forget.
type Sink interface {
	Name() string
	Write(ctx context.Context, entry Entry) error
}

// HTTPSink posts each entry as a JSON document to a log-intake URL
type HTTPSink struct {
	name    string
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSink creates a rate-limited JSON-over-HTTP sink
func NewHTTPSink(name, url string, timeout time.Duration, ratePerSecond int) *HTTPSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 50
	}
	return &HTTPSink{
		name:    name,
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
	}
}

// Name returns the sink name
func (s *HTTPSink) Name() string { return s.name }

// Write posts one entry, honoring the outbound rate limit
func (s *HTTPSink) Write(ctx context.Context, entry Entry) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sink %s: rate wait: %w", s.name, err)
	}
	return postJSON(ctx, s.client, s.url, entry, s.name)
}

// IndexSink posts each entry into a document-index endpoint, the way
// bulk log stores accept documents under /<index>/_doc.
type IndexSink struct {
	name    string
	baseURL string
	index   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewIndexSink creates a document-index sink
func NewIndexSink(baseURL, index string, timeout time.Duration, ratePerSecond int) *IndexSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 50
	}
	return &IndexSink{
		name:    "index",
		baseURL: strings.TrimSuffix(baseURL, "/"),
		index:   index,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
	}
}

// Name returns the sink name
func (s *IndexSink) Name() string { return s.name }

// Write indexes one entry as a document
func (s *IndexSink) Write(ctx context.Context, entry Entry) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sink %s: rate wait: %w", s.name, err)
	}
	url := fmt.Sprintf("%s/%s/_doc", s.baseURL, s.index)
	return postJSON(ctx, s.client, url, entry, s.name)
}

func postJSON(ctx context.Context, client *http.Client, url string, entry Entry, sinkName string) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("sink %s: marshal entry: %w", sinkName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink %s: create request: %w", sinkName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sink %s: post: %w", sinkName, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sink %s: endpoint returned status %d", sinkName, resp.StatusCode)
	}
	return nil
}
