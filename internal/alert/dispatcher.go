// internal/alert/dispatcher.go
package alert

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/FairForge/vigil/internal/metrics"
)

// HistoryCap bounds the dispatcher's recent-alert window
const HistoryCap = 100

// Channel is a named, independent alert-delivery integration. Send
// must settle for every alert; filtering by severity is the channel's
// own responsibility.
type Channel interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

// Dispatcher broadcasts alerts to all registered channels. One failing
// or panicking channel never delays or breaks delivery to the others.
type Dispatcher struct {
	channels   []Channel
	history    []Alert
	logger     *zap.Logger
	collectors *metrics.Collectors
	mu         sync.RWMutex
}

// NewDispatcher creates a dispatcher with an ordered channel list
func NewDispatcher(channels []Channel, logger *zap.Logger, collectors *metrics.Collectors) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		channels:   channels,
		history:    make([]Alert, 0, HistoryCap),
		logger:     logger,
		collectors: collectors,
	}
}

// Register appends a channel
func (d *Dispatcher) Register(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = append(d.channels, ch)
}

// Channels returns the registered channel names in order
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.Name()
	}
	return names
}

// Broadcast delivers an alert to every channel concurrently and waits
// for all of them to settle. Failures are logged and counted; none
// escape this method.
func (d *Dispatcher) Broadcast(ctx context.Context, a Alert) {
	d.mu.Lock()
	if len(d.history) >= HistoryCap {
		d.history = d.history[1:]
	}
	d.history = append(d.history, a)
	channels := make([]Channel, len(d.channels))
	copy(channels, d.channels)
	d.mu.Unlock()

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("alert channel panicked",
						zap.String("channel", ch.Name()),
						zap.Any("panic", r))
					d.countDelivery(ch.Name(), "panic")
				}
			}()

			if err := ch.Send(ctx, a); err != nil {
				d.logger.Warn("alert delivery failed",
					zap.String("channel", ch.Name()),
					zap.String("alert_id", a.ID),
					zap.Error(err))
				d.countDelivery(ch.Name(), "failure")
				return
			}
			d.countDelivery(ch.Name(), "success")
		}(ch)
	}
	wg.Wait()
}

func (d *Dispatcher) countDelivery(channel, outcome string) {
	if d.collectors != nil {
		d.collectors.AlertsSentTotal.WithLabelValues(channel, outcome).Inc()
	}
}

// History returns up to n most recent alerts, newest last
func (d *Dispatcher) History(n int) []Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := len(d.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]Alert, len(d.history)-start)
	copy(out, d.history[start:])
	return out
}
