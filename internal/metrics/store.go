// internal/metrics/store.go
package metrics

import (
	"sync"
	"time"

	"github.com/FairForge/vigil/internal/probe"
)

// Buffer capacities. Every bounded collection evicts strictly FIFO and
// never exceeds its cap.
const (
	ResponseWindowCap = 100
	SecurityEventCap  = 1000
	ErrorEventCap     = 1000
)

// EndpointMetrics is the per-endpoint rolling state
type EndpointMetrics struct {
	UptimeCount int64 // increments only on healthy probes
	TotalProbes int64
	Window      []time.Duration // FIFO, cap ResponseWindowCap
	LastStatus  probe.Status
	LastChecked time.Time
}

// SecurityEvent is an entry in the bounded security-event ring
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
}

// ErrorEvent is an entry in the bounded error ring
type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
}

// Store holds rolling metrics for all endpoints plus security and
// error rings. All mutation is serialized behind one RWMutex.
type Store struct {
	endpoints map[string]*EndpointMetrics
	security  []SecurityEvent
	errors    []ErrorEvent
	mu        sync.RWMutex
}

// NewStore creates an empty metrics store
func NewStore() *Store {
	return &Store{
		endpoints: make(map[string]*EndpointMetrics),
	}
}

// RecordProbe folds a probe result into the endpoint's rolling state
func (s *Store) RecordProbe(result probe.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.endpoints[result.Name]
	if !ok {
		m = &EndpointMetrics{
			Window: make([]time.Duration, 0, ResponseWindowCap),
		}
		s.endpoints[result.Name] = m
	}

	m.TotalProbes++
	if result.Healthy() {
		m.UptimeCount++
	}
	m.LastStatus = result.Status
	m.LastChecked = result.Timestamp

	if len(m.Window) >= ResponseWindowCap {
		m.Window = m.Window[1:]
	}
	m.Window = append(m.Window, result.ResponseTime)
}

// RecordSecurityEvent appends to the security ring, evicting FIFO
func (s *Store) RecordSecurityEvent(event SecurityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if len(s.security) >= SecurityEventCap {
		s.security = s.security[1:]
	}
	s.security = append(s.security, event)
}

// RecordError appends to the error ring, evicting FIFO
func (s *Store) RecordError(source, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.errors) >= ErrorEventCap {
		s.errors = s.errors[1:]
	}
	s.errors = append(s.errors, ErrorEvent{
		Timestamp: time.Now().UTC(),
		Source:    source,
		Message:   message,
	})
}

// Endpoint returns a copy of one endpoint's metrics
func (s *Store) Endpoint(name string) (EndpointMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.endpoints[name]
	if !ok {
		return EndpointMetrics{}, false
	}
	return s.copyLocked(m), true
}

// Endpoints returns a copy of all endpoint metrics keyed by name
func (s *Store) Endpoints() map[string]EndpointMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]EndpointMetrics, len(s.endpoints))
	for name, m := range s.endpoints {
		result[name] = s.copyLocked(m)
	}
	return result
}

func (s *Store) copyLocked(m *EndpointMetrics) EndpointMetrics {
	window := make([]time.Duration, len(m.Window))
	copy(window, m.Window)
	return EndpointMetrics{
		UptimeCount: m.UptimeCount,
		TotalProbes: m.TotalProbes,
		Window:      window,
		LastStatus:  m.LastStatus,
		LastChecked: m.LastChecked,
	}
}

// AverageResponseTime returns the rounded mean of the endpoint's
// window, in milliseconds. Zero when no samples exist.
func (s *Store) AverageResponseTime(name string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.endpoints[name]
	if !ok || len(m.Window) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range m.Window {
		total += d
	}
	mean := float64(total.Milliseconds()) / float64(len(m.Window))
	return int64(mean + 0.5)
}

// RecentSecurityEvents returns up to n most recent events, newest last
func (s *Store) RecentSecurityEvents(n int) []SecurityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.security) - n
	if start < 0 {
		start = 0
	}
	out := make([]SecurityEvent, len(s.security)-start)
	copy(out, s.security[start:])
	return out
}

// RecentErrors returns up to n most recent errors, newest last
func (s *Store) RecentErrors(n int) []ErrorEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.errors) - n
	if start < 0 {
		start = 0
	}
	out := make([]ErrorEvent, len(s.errors)-start)
	copy(out, s.errors[start:])
	return out
}
