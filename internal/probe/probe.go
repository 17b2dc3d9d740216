// internal/probe/probe.go
package probe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Status classifies a single probe outcome
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
	StatusTimeout  Status = "timeout"
)

// Endpoint is a named probe target
type Endpoint struct {
	Name string
	URL  string
}

// Result is the outcome of one health check. A Result is always
// produced; transport failures are data, not errors.
type Result struct {
	Name         string
	Status       Status
	StatusCode   int
	ResponseTime time.Duration
	Timestamp    time.Time
}

// Healthy reports whether the probe succeeded
func (r Result) Healthy() bool {
	return r.Status == StatusHealthy
}

// Prober issues timeout-bounded GET health checks
type Prober struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewProber creates a prober with a per-check timeout
func NewProber(timeout time.Duration, logger *zap.Logger) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		// Timeout on the client as well; the per-check context is the
		// authoritative bound and aborts the in-flight request.
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Timeout returns the per-check timeout
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Check probes a single endpoint. It never returns an error: network
// failures map to StatusDown and deadline expiry to StatusTimeout.
func (p *Prober) Check(ctx context.Context, ep Endpoint) Result {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	result := Result{
		Name:      ep.Name,
		Timestamp: start,
	}

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, ep.URL, nil)
	if err != nil {
		result.Status = StatusDown
		result.ResponseTime = time.Since(start)
		p.logger.Warn("probe request construction failed",
			zap.String("endpoint", ep.Name), zap.Error(err))
		return result
	}

	resp, err := p.client.Do(req)
	result.ResponseTime = time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || checkCtx.Err() != nil {
			result.Status = StatusTimeout
		} else {
			result.Status = StatusDown
		}
		return result
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = StatusHealthy
	} else {
		result.Status = StatusDegraded
	}

	return result
}
