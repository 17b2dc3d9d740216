// internal/threshold/rpo.go
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

// RPOEvaluation is the outcome of one RPO check
type RPOEvaluation struct {
	Status      Status        `json:"status"`
	BackupAge   time.Duration `json:"backup_age"`
	Target      time.Duration `json:"target"`
	LastBackup  time.Time     `json:"last_backup"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// Broadcaster is the alert fan-out evaluators feed
type Broadcaster interface {
	Broadcast(ctx context.Context, a alert.Alert)
}

// RPOEvaluator classifies backup recency against configured
// thresholds. It holds at most one backup record: each completion
// overwrites the previous one, and absence means StatusUnknown.
type RPOEvaluator struct {
	cfg        config.RPOConfig
	dispatcher Broadcaster
	collectors *metrics.Collectors
	logger     *zap.Logger

	lastBackup time.Time
	lastEval   RPOEvaluation
	mu         sync.RWMutex

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRPOEvaluator creates an evaluator; config must already be validated
func NewRPOEvaluator(cfg config.RPOConfig, dispatcher Broadcaster, collectors *metrics.Collectors, logger *zap.Logger) *RPOEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPOEvaluator{
		cfg:        cfg,
		dispatcher: dispatcher,
		collectors: collectors,
		logger:     logger,
		lastEval:   RPOEvaluation{Status: StatusUnknown, Target: cfg.Target},
		stopCh:     make(chan struct{}),
	}
}

// RecordBackup records a backup completion and re-evaluates immediately
func (e *RPOEvaluator) RecordBackup(ctx context.Context, completedAt time.Time) {
	e.mu.Lock()
	e.lastBackup = completedAt
	e.mu.Unlock()

	e.logger.Info("backup completion recorded", zap.Time("completed_at", completedAt))
	e.Evaluate(ctx, time.Now())
}

// LastBackup returns the recorded backup completion, zero when none
func (e *RPOEvaluator) LastBackup() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastBackup
}

// Classify applies the three-tier rule to a backup age. The ratios
// are strictly below 1, so the critical band already covers every age
// at or beyond the target itself.
func (e *RPOEvaluator) Classify(age time.Duration) Status {
	switch {
	case age >= time.Duration(float64(e.cfg.Target)*e.cfg.CriticalRatio):
		return StatusCritical
	case age >= time.Duration(float64(e.cfg.Target)*e.cfg.WarningRatio):
		return StatusWarning
	default:
		return StatusOK
	}
}

// Evaluate computes the current RPO status and broadcasts an alert on
// any non-ok result.
func (e *RPOEvaluator) Evaluate(ctx context.Context, now time.Time) RPOEvaluation {
	e.mu.Lock()
	eval := RPOEvaluation{
		Status:      StatusUnknown,
		Target:      e.cfg.Target,
		LastBackup:  e.lastBackup,
		EvaluatedAt: now,
	}
	if !e.lastBackup.IsZero() {
		eval.BackupAge = now.Sub(e.lastBackup)
		eval.Status = e.Classify(eval.BackupAge)
	}
	e.lastEval = eval
	e.mu.Unlock()

	if e.collectors != nil {
		e.collectors.RPOAgeHours.Set(eval.BackupAge.Hours())
		e.collectors.RPOStatus.Set(eval.Status.GaugeValue())
	}

	switch eval.Status {
	case StatusOK, StatusUnknown:
		return eval
	}

	severity := alert.SeverityWarning
	if eval.Status == StatusCritical {
		severity = alert.SeverityCritical
	}
	e.dispatcher.Broadcast(ctx, alert.New(alert.TypeRPOBreach, severity,
		fmt.Sprintf("backup age %.1fh against RPO target %.1fh",
			eval.BackupAge.Hours(), eval.Target.Hours()),
		map[string]string{
			"backup_age_hours": fmt.Sprintf("%.2f", eval.BackupAge.Hours()),
			"target_hours":     fmt.Sprintf("%.2f", eval.Target.Hours()),
			"status":           string(eval.Status),
		}))

	return eval
}

// Current returns the last computed evaluation without recomputing
func (e *RPOEvaluator) Current() RPOEvaluation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastEval
}

// Start runs periodic evaluation until ctx cancel or Stop
func (e *RPOEvaluator) Start(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stopCh:
				return
			case <-ticker.C:
				e.Evaluate(ctx, time.Now())
			}
		}
	}()
}

// Stop halts the evaluation loop
func (e *RPOEvaluator) Stop() {
	e.once.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}
