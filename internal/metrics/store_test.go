// internal/metrics/store_test.go
package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/vigil/internal/probe"
)

func healthyResult(name string, rt time.Duration) probe.Result {
	return probe.Result{
		Name:         name,
		Status:       probe.StatusHealthy,
		StatusCode:   200,
		ResponseTime: rt,
		Timestamp:    time.Now(),
	}
}

func TestStore_RecordProbe(t *testing.T) {
	t.Run("window length is min(n, cap)", func(t *testing.T) {
		store := NewStore()

		for i := 0; i < 50; i++ {
			store.RecordProbe(healthyResult("web", time.Millisecond))
		}
		m, ok := store.Endpoint("web")
		require.True(t, ok)
		assert.Len(t, m.Window, 50)

		for i := 0; i < 100; i++ {
			store.RecordProbe(healthyResult("web", time.Millisecond))
		}
		m, _ = store.Endpoint("web")
		assert.Len(t, m.Window, ResponseWindowCap)
	})

	t.Run("window evicts oldest first", func(t *testing.T) {
		store := NewStore()

		for i := 0; i <= ResponseWindowCap; i++ {
			store.RecordProbe(healthyResult("web", time.Duration(i)*time.Millisecond))
		}

		m, _ := store.Endpoint("web")
		require.Len(t, m.Window, ResponseWindowCap)
		// Sample 0 evicted; window starts at 1ms
		assert.Equal(t, time.Millisecond, m.Window[0])
		assert.Equal(t, time.Duration(ResponseWindowCap)*time.Millisecond, m.Window[len(m.Window)-1])
	})

	t.Run("uptime increments only on healthy and is monotonic", func(t *testing.T) {
		store := NewStore()

		store.RecordProbe(healthyResult("web", time.Millisecond))
		store.RecordProbe(probe.Result{Name: "web", Status: probe.StatusDown})
		store.RecordProbe(probe.Result{Name: "web", Status: probe.StatusTimeout})
		store.RecordProbe(probe.Result{Name: "web", Status: probe.StatusDegraded, StatusCode: 503})
		store.RecordProbe(healthyResult("web", time.Millisecond))

		m, _ := store.Endpoint("web")
		assert.Equal(t, int64(2), m.UptimeCount)
		assert.Equal(t, int64(5), m.TotalProbes)
	})

	t.Run("endpoints are tracked independently", func(t *testing.T) {
		store := NewStore()

		store.RecordProbe(healthyResult("web", time.Millisecond))
		store.RecordProbe(probe.Result{Name: "db", Status: probe.StatusDown})

		web, _ := store.Endpoint("web")
		db, _ := store.Endpoint("db")
		assert.Equal(t, int64(1), web.UptimeCount)
		assert.Equal(t, int64(0), db.UptimeCount)
	})
}

func TestStore_AverageResponseTime(t *testing.T) {
	t.Run("zero when no samples", func(t *testing.T) {
		store := NewStore()
		assert.Equal(t, int64(0), store.AverageResponseTime("missing"))
	})

	t.Run("rounded mean of the window", func(t *testing.T) {
		store := NewStore()
		store.RecordProbe(healthyResult("web", 100*time.Millisecond))
		store.RecordProbe(healthyResult("web", 101*time.Millisecond))

		// (100+101)/2 = 100.5 rounds to 101
		assert.Equal(t, int64(101), store.AverageResponseTime("web"))
	})
}

func TestStore_SecurityRing(t *testing.T) {
	store := NewStore()

	for i := 0; i < SecurityEventCap+5; i++ {
		store.RecordSecurityEvent(SecurityEvent{
			Kind:    "auth_failure",
			Message: fmt.Sprintf("event-%d", i),
		})
	}

	recent := store.RecentSecurityEvents(SecurityEventCap + 100)
	require.Len(t, recent, SecurityEventCap)
	// Oldest five evicted
	assert.Equal(t, "event-5", recent[0].Message)
	assert.Equal(t, fmt.Sprintf("event-%d", SecurityEventCap+4), recent[len(recent)-1].Message)
}

func TestStore_ErrorRing(t *testing.T) {
	store := NewStore()

	for i := 0; i < ErrorEventCap+1; i++ {
		store.RecordError("scheduler", fmt.Sprintf("err-%d", i))
	}

	recent := store.RecentErrors(10)
	require.Len(t, recent, 10)
	assert.Equal(t, fmt.Sprintf("err-%d", ErrorEventCap), recent[len(recent)-1].Message)

	all := store.RecentErrors(ErrorEventCap * 2)
	assert.Len(t, all, ErrorEventCap)
	assert.Equal(t, "err-1", all[0].Message)
}

func TestStore_ReadsDoNotMutate(t *testing.T) {
	store := NewStore()
	store.RecordProbe(healthyResult("web", 10*time.Millisecond))

	first, _ := store.Endpoint("web")
	first.Window[0] = 999 * time.Millisecond // mutate the copy

	second, _ := store.Endpoint("web")
	assert.Equal(t, 10*time.Millisecond, second.Window[0])

	snapshotA := store.Endpoints()
	snapshotB := store.Endpoints()
	assert.Equal(t, snapshotA, snapshotB)
}
