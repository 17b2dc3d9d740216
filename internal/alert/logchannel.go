// internal/alert/logchannel.go
package alert

import (
	"context"

	"go.uber.org/zap"
)

// LogChannel writes every alert through the structured logger. It is
// always enabled so alerts remain observable even with no external
// channel configured.
type LogChannel struct {
	logger *zap.Logger
}

// NewLogChannel creates the channel
func NewLogChannel(logger *zap.Logger) *LogChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChannel{logger: logger}
}

// Name returns the channel name
func (c *LogChannel) Name() string { return "log" }

// Send logs the alert at a level matching its severity
func (c *LogChannel) Send(_ context.Context, a Alert) error {
	fields := []zap.Field{
		zap.String("alert_id", a.ID),
		zap.String("type", string(a.Type)),
		zap.String("severity", string(a.Severity)),
		zap.Time("fired_at", a.Timestamp),
	}
	for k, v := range a.Details {
		fields = append(fields, zap.String(k, v))
	}

	switch a.Severity {
	case SeverityCritical:
		c.logger.Error(a.Message, fields...)
	case SeverityWarning:
		c.logger.Warn(a.Message, fields...)
	default:
		c.logger.Info(a.Message, fields...)
	}
	return nil
}
