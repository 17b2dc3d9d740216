// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/vigil/internal/alert"
	"github.com/FairForge/vigil/internal/metrics"
	"github.com/FairForge/vigil/internal/probe"
)

// Prober abstracts the health check so tests can substitute outcomes
type Prober interface {
	Check(ctx context.Context, ep probe.Endpoint) probe.Result
}

// Broadcaster is the alert fan-out the scheduler feeds
type Broadcaster interface {
	Broadcast(ctx context.Context, a alert.Alert)
}

// Scheduler fires health checks on a fixed interval, fanning out all
// endpoint probes concurrently each tick.
type Scheduler struct {
	interval   time.Duration
	endpoints  []probe.Endpoint
	prober     Prober
	store      *metrics.Store
	dispatcher Broadcaster
	collectors *metrics.Collectors
	logger     *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a scheduler over a named endpoint map
func New(
	interval time.Duration,
	endpoints map[string]string,
	prober Prober,
	store *metrics.Store,
	dispatcher Broadcaster,
	collectors *metrics.Collectors,
	logger *zap.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	eps := make([]probe.Endpoint, 0, len(endpoints))
	for name, url := range endpoints {
		eps = append(eps, probe.Endpoint{Name: name, URL: url})
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].Name < eps[j].Name })

	return &Scheduler{
		interval:   interval,
		endpoints:  eps,
		prober:     prober,
		store:      store,
		dispatcher: dispatcher,
		collectors: collectors,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Endpoints returns the configured probe targets in name order
func (s *Scheduler) Endpoints() []probe.Endpoint {
	out := make([]probe.Endpoint, len(s.endpoints))
	copy(out, s.endpoints)
	return out
}

// Start runs the check loop until the context is canceled or Stop is
// called. An immediate first tick runs before the ticker cadence.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight tick to settle
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Tick probes every endpoint concurrently and waits for all results.
// Total latency is bounded by the slowest single probe timeout, not
// the sum across endpoints.
func (s *Scheduler) Tick(ctx context.Context) {
	var wg sync.WaitGroup
	results := make([]probe.Result, len(s.endpoints))

	for i, ep := range s.endpoints {
		wg.Add(1)
		go func(i int, ep probe.Endpoint) {
			defer wg.Done()
			results[i] = s.prober.Check(ctx, ep)
		}(i, ep)
	}
	wg.Wait()

	for _, result := range results {
		s.record(ctx, result)
	}
}

func (s *Scheduler) record(ctx context.Context, result probe.Result) {
	s.store.RecordProbe(result)

	if s.collectors != nil {
		s.collectors.ProbesTotal.WithLabelValues(result.Name, string(result.Status)).Inc()
		s.collectors.ProbeDuration.WithLabelValues(result.Name).Observe(result.ResponseTime.Seconds())
		up := 0.0
		if result.Healthy() {
			up = 1.0
		}
		s.collectors.EndpointUp.WithLabelValues(result.Name).Set(up)
	}

	if result.Healthy() {
		return
	}

	// Persistent failures re-alert every tick; there is no dedup here.
	a := alertForResult(result)
	s.store.RecordError("scheduler", fmt.Sprintf("endpoint %s %s", result.Name, result.Status))
	s.logger.Warn("endpoint check failed",
		zap.String("endpoint", result.Name),
		zap.String("status", string(result.Status)),
		zap.Int("status_code", result.StatusCode),
		zap.Duration("response_time", result.ResponseTime))
	s.dispatcher.Broadcast(ctx, a)
}

func alertForResult(result probe.Result) alert.Alert {
	details := map[string]string{
		"endpoint":         result.Name,
		"status":           string(result.Status),
		"response_time_ms": fmt.Sprintf("%d", result.ResponseTime.Milliseconds()),
	}
	if result.StatusCode != 0 {
		details["status_code"] = fmt.Sprintf("%d", result.StatusCode)
	}

	switch result.Status {
	case probe.StatusDown:
		return alert.New(alert.TypeEndpointDown, alert.SeverityCritical,
			fmt.Sprintf("endpoint %s is down", result.Name), details)
	case probe.StatusTimeout:
		return alert.New(alert.TypeEndpointTimeout, alert.SeverityWarning,
			fmt.Sprintf("endpoint %s timed out after %dms", result.Name, result.ResponseTime.Milliseconds()), details)
	default:
		return alert.New(alert.TypeEndpointDegraded, alert.SeverityWarning,
			fmt.Sprintf("endpoint %s degraded (HTTP %d)", result.Name, result.StatusCode), details)
	}
}
