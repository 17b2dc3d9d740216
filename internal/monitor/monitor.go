// internal/monitor/monitor.go
package monitor

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/FairForge/vigil/internal/alert"
	"github.com/FairForge/vigil/internal/config"
	"github.com/FairForge/vigil/internal/logagg"
	"github.com/FairForge/vigil/internal/metrics"
	"github.com/FairForge/vigil/internal/probe"
	"github.com/FairForge/vigil/internal/scheduler"
	"github.com/FairForge/vigil/internal/threshold"
)

// Monitor owns the full monitoring pipeline: probe scheduling,
// rolling metrics, RPO/RTO evaluation, alert dispatch, and log
// aggregation. It is an explicit instance with its own lifecycle; no
// package-level shared state.
type Monitor struct {
	cfg        *config.Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	collectors *metrics.Collectors

	store      *metrics.Store
	prober     *probe.Prober
	scheduler  *scheduler.Scheduler
	rpo        *threshold.RPOEvaluator
	rto        *threshold.RTOEvaluator
	dispatcher *alert.Dispatcher
	aggregator *logagg.Aggregator

	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

// New wires a monitor from validated configuration
func New(cfg *config.Config, logger *zap.Logger) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(registry)
	store := metrics.NewStore()

	channels := []alert.Channel{
		alert.NewLogChannel(logger.Named("alerts")),
		alert.NewSlackChannel(cfg.Alerts.SlackWebhookURL, cfg.Alerts.Timeout, logger),
		alert.NewPagerDutyChannel(cfg.Alerts.PagerDutyURL, cfg.Alerts.PagerDutyRoutingKey, cfg.Alerts.Timeout, logger),
	}
	dispatcher := alert.NewDispatcher(channels, logger, collectors)

	var sinks []logagg.Sink
	if cfg.Logs.IntakeURL != "" {
		sinks = append(sinks, logagg.NewHTTPSink("intake", cfg.Logs.IntakeURL,
			cfg.Logs.ForwardTimeout, cfg.Logs.RatePerSecond))
	}
	if cfg.Logs.IndexURL != "" {
		sinks = append(sinks, logagg.NewIndexSink(cfg.Logs.IndexURL, cfg.Logs.IndexName,
			cfg.Logs.ForwardTimeout, cfg.Logs.RatePerSecond))
	}
	aggregator := logagg.NewAggregator(sinks, collectors, logger)

	prober := probe.NewProber(cfg.Scheduler.ProbeTimeout, logger)
	sched := scheduler.New(cfg.Scheduler.Interval, cfg.Endpoints, prober,
		store, dispatcher, collectors, logger)

	rpo := threshold.NewRPOEvaluator(cfg.RPO, dispatcher, collectors, logger)
	rto := threshold.NewRTOEvaluator(cfg.RTO, dispatcher, collectors, logger)

	return &Monitor{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		collectors: collectors,
		store:      store,
		prober:     prober,
		scheduler:  sched,
		rpo:        rpo,
		rto:        rto,
		dispatcher: dispatcher,
		aggregator: aggregator,
	}, nil
}

// Start launches all background loops. Idempotent: a second call is a
// no-op until Stop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.aggregator.Start(runCtx)
	m.scheduler.Start(runCtx)
	m.rpo.Start(runCtx)
	m.rto.Start(runCtx)
	m.started = true

	m.aggregator.Log(logagg.LevelInfo, "monitor started", map[string]string{
		"endpoints": strconv.Itoa(len(m.cfg.Endpoints)),
	})
	m.logger.Info("monitor started",
		zap.Int("endpoints", len(m.cfg.Endpoints)),
		zap.Duration("check_interval", m.cfg.Scheduler.Interval))
}

// Stop cancels all timers and waits for background work to settle
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}

	m.cancel()
	m.scheduler.Stop()
	m.rpo.Stop()
	m.rto.Stop()
	m.aggregator.Stop()
	m.started = false

	m.logger.Info("monitor stopped")
}

// RecordBackup feeds a backup completion into the RPO evaluator
func (m *Monitor) RecordBackup(ctx context.Context, completedAt time.Time) {
	m.rpo.RecordBackup(ctx, completedAt)
	m.aggregator.Log(logagg.LevelInfo, "backup completion recorded", map[string]string{
		"completed_at": completedAt.UTC().Format(time.RFC3339),
	})
}

// Store exposes the rolling metrics store
func (m *Monitor) Store() *metrics.Store { return m.store }

// Dispatcher exposes the alert dispatcher
func (m *Monitor) Dispatcher() *alert.Dispatcher { return m.dispatcher }

// Aggregator exposes the log aggregator
func (m *Monitor) Aggregator() *logagg.Aggregator { return m.aggregator }

// Registry exposes the Prometheus registry for the /metrics handler
func (m *Monitor) Registry() *prometheus.Registry { return m.registry }
