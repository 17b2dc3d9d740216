// internal/logagg/aggregator.go
package logagg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/FairForge/vigil/internal/metrics"
)

// BufferCap bounds the in-memory log ring; eviction is strictly FIFO
const BufferCap = 10000

// Log levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Export formats
const (
	FormatJSON   = "json"
	FormatJSONGz = "json.gz"
)

// Entry is a single aggregated log event
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Filter selects entries by exact field match; zero values match all
type Filter struct {
	Level    string
	Message  string
	Metadata map[string]string
}

func (f Filter) matches(e Entry) bool {
	if f.Level != "" && e.Level != f.Level {
		return false
	}
	if f.Message != "" && e.Message != f.Message {
		return false
	}
	for k, v := range f.Metadata {
		if e.Metadata[k] != v {
			return false
		}
	}
	return true
}

// Aggregator keeps a bounded FIFO of log entries and forwards each
// entry best-effort to the configured sinks. Forwarding is
// asynchronous: Log returns once the local append succeeds, and sink
// failures never reach the caller.
type Aggregator struct {
	entries    []Entry
	sinks      []Sink
	forwardCh  chan Entry
	dropped    int64
	logger     *zap.Logger
	collectors *metrics.Collectors
	mu         sync.RWMutex

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAggregator creates an aggregator over an ordered sink list
func NewAggregator(sinks []Sink, collectors *metrics.Collectors, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		entries:    make([]Entry, 0, 1024),
		sinks:      sinks,
		forwardCh:  make(chan Entry, 1024),
		logger:     logger,
		collectors: collectors,
		stopCh:     make(chan struct{}),
	}
}

// Log appends a timestamped entry to the local buffer and queues it
// for forwarding. It never blocks on sink state: when the forward
// queue is saturated the entry is kept locally and the forward is
// dropped and counted.
func (a *Aggregator) Log(level, message string, metadata map[string]string) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Metadata:  metadata,
	}

	a.mu.Lock()
	if len(a.entries) >= BufferCap {
		a.entries = a.entries[1:]
	}
	a.entries = append(a.entries, entry)
	depth := len(a.entries)
	a.mu.Unlock()

	if a.collectors != nil {
		a.collectors.LogBufferDepth.Set(float64(depth))
	}

	if len(a.sinks) == 0 {
		return
	}
	select {
	case a.forwardCh <- entry:
	default:
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
	}
}

// Start launches the forwarding worker
func (a *Aggregator) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case <-a.stopCh:
				return
			case entry := <-a.forwardCh:
				a.forward(ctx, entry)
			}
		}
	}()
}

// Stop halts the forwarding worker; buffered entries remain queryable
func (a *Aggregator) Stop() {
	a.once.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}

// forward writes one entry to every sink, swallowing failures
func (a *Aggregator) forward(ctx context.Context, entry Entry) {
	for _, sink := range a.sinks {
		if err := sink.Write(ctx, entry); err != nil {
			a.logger.Warn("log forward failed",
				zap.String("sink", sink.Name()), zap.Error(err))
			if a.collectors != nil {
				a.collectors.ForwardFailsTotal.WithLabelValues(sink.Name()).Inc()
			}
		}
	}
}

// Len returns the number of buffered entries
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// Dropped returns how many forwards were shed under queue saturation
func (a *Aggregator) Dropped() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dropped
}

// Query returns all entries matching the filter, oldest first
func (a *Aggregator) Query(f Filter) []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []Entry
	for _, e := range a.entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns up to n most recent entries, newest last
func (a *Aggregator) Recent(n int) []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	start := len(a.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(a.entries)-start)
	copy(out, a.entries[start:])
	return out
}

// ByLevel returns all entries at the given level, oldest first
func (a *Aggregator) ByLevel(level string) []Entry {
	return a.Query(Filter{Level: level})
}

// Export serializes the whole buffer. FormatJSON returns a JSON
// array; FormatJSONGz returns the same array gzip-compressed.
func (a *Aggregator) Export(format string) ([]byte, error) {
	a.mu.RLock()
	entries := make([]Entry, len(a.entries))
	copy(entries, a.entries)
	a.mu.RUnlock()

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("logagg: marshal export: %w", err)
	}

	switch format {
	case FormatJSON, "":
		return data, nil
	case FormatJSONGz:
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return nil, fmt.Errorf("logagg: compress export: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("logagg: finish export: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("logagg: unsupported export format %q", format)
	}
}
