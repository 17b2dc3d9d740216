// internal/alert/alert.go
package alert

import (
	"time"

	"github.com/google/uuid"
)

// Type categorizes what triggered an alert
type Type string

const (
	TypeEndpointDown     Type = "endpoint_down"
	TypeEndpointDegraded Type = "endpoint_degraded"
	TypeEndpointTimeout  Type = "endpoint_timeout"
	TypeRPOBreach        Type = "rpo_breach"
	TypeRTOBreach        Type = "rto_breach"
)

// Severity represents alert severity levels
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an ephemeral notification, constructed and immediately
// broadcast. The core keeps only a small recent-history window.
type Alert struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// New constructs an alert stamped with a fresh ID and the current time
func New(alertType Type, severity Severity, message string, details map[string]string) Alert {
	return Alert{
		ID:        uuid.New().String(),
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}
}
