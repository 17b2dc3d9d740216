// internal/threshold/rto_test.go
package threshold

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/vigil/internal/alert"
	"github.com/FairForge/vigil/internal/config"
)

func rtoConfig() config.RTOConfig {
	return config.RTOConfig{
		TargetHours:            4,
		CriticalThresholdHours: 3.5,
		Interval:               time.Hour,
	}
}

func TestRTOEvaluator_Evaluate(t *testing.T) {
	t.Run("breakdown summing under thresholds is ok", func(t *testing.T) {
		cfg := rtoConfig()
		cfg.PhaseHours = map[string]float64{
			PhaseBackupDownload: 0.5,
			PhaseRestore:        1.0,
			PhaseStartup:        0.25,
			PhaseVerification:   0.5,
			PhaseBuffer:         0.25,
		} // 2.5h total
		b := &recordingBroadcaster{}
		e := NewRTOEvaluator(cfg, b, nil, nil)

		eval := e.Evaluate(context.Background())
		assert.Equal(t, StatusOK, eval.Status)
		assert.InDelta(t, 2.5, eval.EstimatedHours, 1e-9)
		assert.Len(t, eval.Breakdown, 5)
		assert.Empty(t, b.all())
	})

	t.Run("total at critical threshold is warning", func(t *testing.T) {
		cfg := rtoConfig()
		cfg.PhaseHours = map[string]float64{PhaseRestore: 3.5}
		b := &recordingBroadcaster{}
		e := NewRTOEvaluator(cfg, b, nil, nil)

		eval := e.Evaluate(context.Background())
		assert.Equal(t, StatusWarning, eval.Status)

		alerts := b.all()
		require.Len(t, alerts, 1)
		assert.Equal(t, alert.TypeRTOBreach, alerts[0].Type)
		assert.Equal(t, alert.SeverityWarning, alerts[0].Severity)
	})

	t.Run("total at target is critical", func(t *testing.T) {
		cfg := rtoConfig()
		cfg.PhaseHours = map[string]float64{PhaseRestore: 4.5}
		b := &recordingBroadcaster{}
		e := NewRTOEvaluator(cfg, b, nil, nil)

		eval := e.Evaluate(context.Background())
		assert.Equal(t, StatusCritical, eval.Status)

		alerts := b.all()
		require.Len(t, alerts, 1)
		assert.Equal(t, alert.SeverityCritical, alerts[0].Severity)
	})

	t.Run("estimate is deterministic across evaluations", func(t *testing.T) {
		e := NewRTOEvaluator(rtoConfig(), &recordingBroadcaster{}, nil, nil)

		a := e.Evaluate(context.Background())
		b := e.Evaluate(context.Background())
		assert.Equal(t, a.EstimatedHours, b.EstimatedHours)
		assert.Equal(t, a.Breakdown, b.Breakdown)
	})
}

func TestRTOEvaluator_SetPhaseHours(t *testing.T) {
	b := &recordingBroadcaster{}
	e := NewRTOEvaluator(rtoConfig(), b, nil, nil)

	before := e.Evaluate(context.Background()).EstimatedHours

	require.NoError(t, e.SetPhaseHours(PhaseRestore, 2.0))
	after := e.Evaluate(context.Background()).EstimatedHours
	assert.Greater(t, after, before)

	assert.Error(t, e.SetPhaseHours(PhaseRestore, -1))
}

func TestRTOEvaluator_DefaultPhases(t *testing.T) {
	e := NewRTOEvaluator(rtoConfig(), &recordingBroadcaster{}, nil, nil)

	eval := e.Evaluate(context.Background())
	assert.Equal(t, StatusOK, eval.Status)
	// Built-in estimate: 0.5 + 1.0 + 0.25 + 0.5 + 0.25
	assert.InDelta(t, 2.5, eval.EstimatedHours, 1e-9)
}

func TestRTOEvaluator_CurrentCopiesBreakdown(t *testing.T) {
	e := NewRTOEvaluator(rtoConfig(), &recordingBroadcaster{}, nil, nil)
	e.Evaluate(context.Background())

	snap := e.Current()
	snap.Breakdown[PhaseRestore] = 99

	assert.InDelta(t, 1.0, e.Current().Breakdown[PhaseRestore], 1e-9)
}
