package domain

import "time"

// AlertType classifies health alerts emitted by the engine.
type AlertType string

const (
	AlertAsymmetry    AlertType = "ASYMMETRY"
	AlertImpact       AlertType = "IMPACT"
	AlertIrregularity AlertType = "IRREGULARITY"
	AlertHRV          AlertType = "HRV_CRITICAL"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is an immutable, append-only health event. Leg is empty for
// whole-animal conditions such as HRV alerts; for asymmetry it names the
// affected pair ("front", "hind", "diagonal").
type Alert struct {
	ID             string    `json:"alert_id"`
	HorseID        string    `json:"horse_id"`
	Timestamp      time.Time `json:"ts"`
	Type           AlertType `json:"alert_type"`
	Severity       Severity  `json:"severity"`
	Leg            string    `json:"affected_leg,omitempty"`
	Value          float64   `json:"metric_value"`
	Threshold      float64   `json:"threshold"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation"`
}
