// internal/monitor/snapshot.go
package monitor

import (
	"time"

	"github.com/FairForge/vigil/internal/metrics"
	"github.com/FairForge/vigil/internal/threshold"
)

// Snapshot is a pure, read-only projection of current monitor state
// for external consumers. Taking one never mutates any buffer, so two
// consecutive calls with no intervening tick are identical.
type Snapshot struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Endpoints   map[string]EndpointStatus `json:"endpoints"`
	RPO         threshold.RPOEvaluation   `json:"rpo"`
	RTO         threshold.RTOEstimate     `json:"rto"`
	Security    []metrics.SecurityEvent   `json:"recent_security_events"`
	Errors      []metrics.ErrorEvent      `json:"recent_errors"`
}

// EndpointStatus summarizes one endpoint's rolling state
type EndpointStatus struct {
	Status         string    `json:"status"`
	UptimeCount    int64     `json:"uptime_count"`
	TotalProbes    int64     `json:"total_probes"`
	AvailabilityPc float64   `json:"availability_percent"`
	AvgResponseMs  int64     `json:"avg_response_ms"`
	SampleCount    int       `json:"sample_count"`
	LastChecked    time.Time `json:"last_checked"`
}

// Snapshot projects the current state. RPO and RTO reflect the last
// computed evaluations; they are not recomputed here.
func (m *Monitor) Snapshot() Snapshot {
	endpoints := m.store.Endpoints()

	snap := Snapshot{
		GeneratedAt: time.Now().UTC(),
		Endpoints:   make(map[string]EndpointStatus, len(endpoints)),
		RPO:         m.rpo.Current(),
		RTO:         m.rto.Current(),
		Security:    m.store.RecentSecurityEvents(10),
		Errors:      m.store.RecentErrors(10),
	}

	for name, em := range endpoints {
		status := EndpointStatus{
			UptimeCount:   em.UptimeCount,
			TotalProbes:   em.TotalProbes,
			AvgResponseMs: m.store.AverageResponseTime(name),
			SampleCount:   len(em.Window),
			LastChecked:   em.LastChecked,
		}
		if len(em.Window) == 0 {
			status.Status = "unknown"
		} else {
			status.Status = string(em.LastStatus)
		}
		if em.TotalProbes > 0 {
			status.AvailabilityPc = float64(em.UptimeCount) / float64(em.TotalProbes) * 100
		}
		snap.Endpoints[name] = status
	}

	// Endpoints configured but never probed still appear, as unknown
	for name := range m.cfg.Endpoints {
		if _, ok := snap.Endpoints[name]; !ok {
			snap.Endpoints[name] = EndpointStatus{Status: "unknown"}
		}
	}

	return snap
}
