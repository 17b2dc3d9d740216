// internal/threshold/rto.go
package threshold

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/vigil/internal/alert"
	"github.com/FairForge/vigil/internal/config"
	"github.com/FairForge/vigil/internal/metrics"
)

// Named recovery phases of the restore runbook
const (
	PhaseBackupDownload = "backup_download"
	PhaseRestore        = "restore"
	PhaseStartup        = "startup"
	PhaseVerification   = "verification"
	PhaseBuffer         = "buffer"
)

// DefaultPhaseHours is the built-in restore estimate used when the
// config supplies no phase map.
func DefaultPhaseHours() map[string]float64 {
	return map[string]float64{
		PhaseBackupDownload: 0.5,
		PhaseRestore:        1.0,
		PhaseStartup:        0.25,
		PhaseVerification:   0.5,
		PhaseBuffer:         0.25,
	}
}

// RTOEstimate is the outcome of one RTO evaluation. The estimate is
// not live-measured; it is the deterministic sum of the phase map.
type RTOEstimate struct {
	Status         Status             `json:"status"`
	EstimatedHours float64            `json:"estimated_hours"`
	TargetHours    float64            `json:"target_hours"`
	Breakdown      map[string]float64 `json:"breakdown"`
	EvaluatedAt    time.Time          `json:"evaluated_at"`
}

// RTOEvaluator classifies the estimated restore time against the
// configured target and critical threshold.
type RTOEvaluator struct {
	cfg        config.RTOConfig
	phases     map[string]float64
	dispatcher Broadcaster
	collectors *metrics.Collectors
	logger     *zap.Logger

	lastEval RTOEstimate
	mu       sync.RWMutex

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRTOEvaluator creates an evaluator; config must already be validated
func NewRTOEvaluator(cfg config.RTOConfig, dispatcher Broadcaster, collectors *metrics.Collectors, logger *zap.Logger) *RTOEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	phases := cfg.PhaseHours
	if len(phases) == 0 {
		phases = DefaultPhaseHours()
	}
	return &RTOEvaluator{
		cfg:        cfg,
		phases:     phases,
		dispatcher: dispatcher,
		collectors: collectors,
		logger:     logger,
		lastEval:   RTOEstimate{Status: StatusUnknown, TargetHours: cfg.TargetHours},
		stopCh:     make(chan struct{}),
	}
}

// SetPhaseHours replaces one phase estimate; the periodic evaluation
// picks up the change on its next tick.
func (e *RTOEvaluator) SetPhaseHours(phase string, hours float64) error {
	if hours < 0 {
		return fmt.Errorf("rto: phase %q estimate must be non-negative", phase)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phases[phase] = hours
	return nil
}

// Evaluate sums the phase estimates, classifies the total, and
// broadcasts on any non-ok result.
func (e *RTOEvaluator) Evaluate(ctx context.Context) RTOEstimate {
	e.mu.Lock()
	breakdown := make(map[string]float64, len(e.phases))
	var total float64
	for phase, hours := range e.phases {
		breakdown[phase] = hours
		total += hours
	}

	eval := RTOEstimate{
		EstimatedHours: total,
		TargetHours:    e.cfg.TargetHours,
		Breakdown:      breakdown,
		EvaluatedAt:    time.Now(),
	}
	switch {
	case total >= e.cfg.TargetHours:
		eval.Status = StatusCritical
	case total >= e.cfg.CriticalThresholdHours:
		eval.Status = StatusWarning
	default:
		eval.Status = StatusOK
	}
	e.lastEval = eval
	e.mu.Unlock()

	if e.collectors != nil {
		e.collectors.RTOEstimateHours.Set(eval.EstimatedHours)
		e.collectors.RTOStatus.Set(eval.Status.GaugeValue())
	}

	if eval.Status == StatusOK {
		return eval
	}

	severity := alert.SeverityWarning
	if eval.Status == StatusCritical {
		severity = alert.SeverityCritical
	}
	e.dispatcher.Broadcast(ctx, alert.New(alert.TypeRTOBreach, severity,
		fmt.Sprintf("estimated restore time %.2fh against RTO target %.2fh",
			eval.EstimatedHours, eval.TargetHours),
		map[string]string{
			"estimated_hours": fmt.Sprintf("%.2f", eval.EstimatedHours),
			"target_hours":    fmt.Sprintf("%.2f", eval.TargetHours),
			"status":          string(eval.Status),
		}))

	return eval
}

// Current returns the last computed estimate without recomputing
func (e *RTOEvaluator) Current() RTOEstimate {
	e.mu.RLock()
	defer e.mu.RUnlock()

	breakdown := make(map[string]float64, len(e.lastEval.Breakdown))
	for k, v := range e.lastEval.Breakdown {
		breakdown[k] = v
	}
	eval := e.lastEval
	eval.Breakdown = breakdown
	return eval
}

// Start runs periodic evaluation until ctx cancel or Stop. An initial
// evaluation runs immediately so Current never stays unknown for the
// first interval.
func (e *RTOEvaluator) Start(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.cfg.Interval)
		defer ticker.Stop()

		e.Evaluate(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stopCh:
				return
			case <-ticker.C:
				e.Evaluate(ctx)
			}
		}
	}()
}

// Stop halts the evaluation loop
func (e *RTOEvaluator) Stop() {
	e.once.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}
