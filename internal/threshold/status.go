// internal/threshold/status.go
package threshold

// Status is a disaster-recovery posture classification. Every
// evaluation recomputes it from scratch; there is no hysteresis.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// GaugeValue maps a status onto the numeric scale exposed to Prometheus
func (s Status) GaugeValue() float64 {
	switch s {
	case StatusOK:
		return 1
	case StatusWarning:
		return 2
	case StatusCritical:
		return 3
	default:
		return 0
	}
}
