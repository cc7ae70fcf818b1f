package analytics

import (
	"fmt"

	"github.com/mizuho-ai/kanshi/internal/model"
)

// Alert thresholds for a healthy pipeline.
const (
	MinHealthySuccessRate = 95.0   // percent
	MaxHealthyAvgLatency  = 5000.0 // milliseconds
)

// Alert severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is a threshold violation surfaced on the dashboard.
type Alert struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// EvaluateAlerts checks a summary against the health thresholds.
// The result is empty, never nil, when all systems are nominal.
func EvaluateAlerts(s model.MetricsSummary) []Alert {
	alerts := []Alert{}
	if s.TotalExecutions == 0 {
		alerts = append(alerts, Alert{
			Severity: SeverityCritical,
			Code:     "no_executions",
			Message:  "no pipeline executions in the selected window",
		})
		return alerts
	}
	if s.SuccessRate < MinHealthySuccessRate {
		alerts = append(alerts, Alert{
			Severity: SeverityWarning,
			Code:     "low_success_rate",
			Message:  fmt.Sprintf("success rate %.1f%% is below %.0f%%", s.SuccessRate, MinHealthySuccessRate),
		})
	}
	if s.AvgExecutionTime > MaxHealthyAvgLatency {
		alerts = append(alerts, Alert{
			Severity: SeverityWarning,
			Code:     "high_latency",
			Message:  fmt.Sprintf("average execution time %.0fms exceeds %.0fms", s.AvgExecutionTime, MaxHealthyAvgLatency),
		})
	}
	return alerts
}
