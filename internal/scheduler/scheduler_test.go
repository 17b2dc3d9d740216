// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/vigil/internal/alert"
	"github.com/FairForge/vigil/internal/metrics"
	"github.com/FairForge/vigil/internal/probe"
)

// scriptedProber returns a fixed status per endpoint name
type scriptedProber struct {
	statuses map[string]probe.Status
	delay    time.Duration
	inflight atomic.Int64
	maxSeen  atomic.Int64
}

func (p *scriptedProber) Check(_ context.Context, ep probe.Endpoint) probe.Result {
	cur := p.inflight.Add(1)
	for {
		seen := p.maxSeen.Load()
		if cur <= seen || p.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.inflight.Add(-1)

	status, ok := p.statuses[ep.Name]
	if !ok {
		status = probe.StatusHealthy
	}
	result := probe.Result{
		Name:         ep.Name,
		Status:       status,
		ResponseTime: 5 * time.Millisecond,
		Timestamp:    time.Now(),
	}
	if status == probe.StatusHealthy {
		result.StatusCode = 200
	} else if status == probe.StatusDegraded {
		result.StatusCode = 503
	}
	return result
}

type captureBroadcaster struct {
	alerts []alert.Alert
	mu     sync.Mutex
}

func (b *captureBroadcaster) Broadcast(_ context.Context, a alert.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, a)
}

func (b *captureBroadcaster) all() []alert.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]alert.Alert, len(b.alerts))
	copy(out, b.alerts)
	return out
}

func newTestScheduler(endpoints map[string]string, prober Prober) (*Scheduler, *metrics.Store, *captureBroadcaster) {
	store := metrics.NewStore()
	b := &captureBroadcaster{}
	s := New(time.Minute, endpoints, prober, store, b, nil, nil)
	return s, store, b
}

func TestScheduler_Tick(t *testing.T) {
	t.Run("window length equals min(ticks, cap)", func(t *testing.T) {
		s, store, _ := newTestScheduler(
			map[string]string{"web": "http://web/health", "db": "http://db/health"},
			&scriptedProber{})

		for i := 0; i < 7; i++ {
			s.Tick(context.Background())
		}

		for _, name := range []string{"web", "db"} {
			m, ok := store.Endpoint(name)
			require.True(t, ok, name)
			assert.Len(t, m.Window, 7)
			assert.Equal(t, int64(7), m.UptimeCount)
		}
	})

	t.Run("probes run concurrently within a tick", func(t *testing.T) {
		prober := &scriptedProber{delay: 50 * time.Millisecond}
		s, _, _ := newTestScheduler(map[string]string{
			"a": "http://a", "b": "http://b", "c": "http://c", "d": "http://d",
		}, prober)

		start := time.Now()
		s.Tick(context.Background())
		elapsed := time.Since(start)

		// Sequential would take ~200ms
		assert.Less(t, elapsed, 150*time.Millisecond)
		assert.GreaterOrEqual(t, prober.maxSeen.Load(), int64(2))
	})

	t.Run("non-healthy results alert with mapped severity", func(t *testing.T) {
		s, _, b := newTestScheduler(
			map[string]string{
				"down-ep":     "http://down",
				"slow-ep":     "http://slow",
				"degraded-ep": "http://degraded",
				"ok-ep":       "http://ok",
			},
			&scriptedProber{statuses: map[string]probe.Status{
				"down-ep":     probe.StatusDown,
				"slow-ep":     probe.StatusTimeout,
				"degraded-ep": probe.StatusDegraded,
			}})

		s.Tick(context.Background())

		alerts := b.all()
		require.Len(t, alerts, 3)

		bySeverity := map[alert.Type]alert.Severity{}
		for _, a := range alerts {
			bySeverity[a.Type] = a.Severity
		}
		assert.Equal(t, alert.SeverityCritical, bySeverity[alert.TypeEndpointDown])
		assert.Equal(t, alert.SeverityWarning, bySeverity[alert.TypeEndpointTimeout])
		assert.Equal(t, alert.SeverityWarning, bySeverity[alert.TypeEndpointDegraded])
	})

	t.Run("persistent failures re-alert every tick", func(t *testing.T) {
		s, _, b := newTestScheduler(
			map[string]string{"down-ep": "http://down"},
			&scriptedProber{statuses: map[string]probe.Status{"down-ep": probe.StatusDown}})

		for i := 0; i < 4; i++ {
			s.Tick(context.Background())
		}
		assert.Len(t, b.all(), 4)
	})

	t.Run("healthy results never alert", func(t *testing.T) {
		s, _, b := newTestScheduler(map[string]string{"web": "http://web"}, &scriptedProber{})

		s.Tick(context.Background())
		assert.Empty(t, b.all())
	})
}

func TestScheduler_StartStop(t *testing.T) {
	store := metrics.NewStore()
	b := &captureBroadcaster{}
	s := New(20*time.Millisecond, map[string]string{"web": "http://web"}, &scriptedProber{}, store, b, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	time.Sleep(70 * time.Millisecond)
	s.Stop()

	m, ok := store.Endpoint("web")
	require.True(t, ok)
	ticksAtStop := m.TotalProbes
	assert.GreaterOrEqual(t, ticksAtStop, int64(2), "immediate tick plus ticker cadence")

	// No further ticks after Stop
	time.Sleep(50 * time.Millisecond)
	m, _ = store.Endpoint("web")
	assert.Equal(t, ticksAtStop, m.TotalProbes)

	// Stop is idempotent
	s.Stop()
}

func TestScheduler_Endpoints(t *testing.T) {
	s, _, _ := newTestScheduler(map[string]string{"b": "http://b", "a": "http://a"}, &scriptedProber{})

	eps := s.Endpoints()
	require.Len(t, eps, 2)
	assert.Equal(t, "a", eps[0].Name)
	assert.Equal(t, "b", eps[1].Name)
}
