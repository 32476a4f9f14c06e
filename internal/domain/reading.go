package domain

import (
	"math"
	"time"
)

// LegLabel identifies one of the four legs of a monitored horse.
type LegLabel string

const (
	FrontLeft  LegLabel = "FL"
	FrontRight LegLabel = "FR"
	BackLeft   LegLabel = "BL"
	BackRight  LegLabel = "BR"
)

// Legs lists the four leg labels in canonical order.
var Legs = [4]LegLabel{FrontLeft, FrontRight, BackLeft, BackRight}

// SensorReading is the canonical unit of raw telemetry delivered by the
// transport. Accelerations are in g, gyro rates in °/s. RRIntervalMS is
// carried on the same envelope when the message also reports a detected
// heartbeat; zero means no beat in this message.
type SensorReading struct {
	HorseID      string    `json:"horse_id"`
	SensorID     string    `json:"sensor_id"`
	Timestamp    time.Time `json:"ts"`
	Seq          uint64    `json:"seq"`
	AccelX       float64   `json:"accel_x"`
	AccelY       float64   `json:"accel_y"`
	AccelZ       float64   `json:"accel_z"`
	GyroX        float64   `json:"gyro_x"`
	GyroY        float64   `json:"gyro_y"`
	GyroZ        float64   `json:"gyro_z"`
	RRIntervalMS float64   `json:"hr_rr_interval,omitempty"`
}

// Valid reports whether the reading can enter the pipeline. Non-finite
// values and zero timestamps mark a malformed sample that must be dropped
// and counted, never propagated.
func (r *SensorReading) Valid() bool {
	if r == nil || r.Timestamp.IsZero() || r.SensorID == "" {
		return false
	}
	for _, v := range [7]float64{r.AccelX, r.AccelY, r.AccelZ, r.GyroX, r.GyroY, r.GyroZ, r.RRIntervalMS} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// HeartSample is one detected cardiac beat expressed as the R-R interval
// since the previous beat.
type HeartSample struct {
	Timestamp    time.Time `json:"ts"`
	RRIntervalMS float64   `json:"rr_interval_ms"`
}

// LegAssignment maps anonymous sensor identities to physical legs. Valid for
// the lifetime of a session once calibration completes.
type LegAssignment struct {
	Legs       map[string]LegLabel `json:"legs"`
	Confidence float64             `json:"confidence"`
	AssignedAt time.Time           `json:"assigned_at"`
}

// SensorFor returns the sensor carrying the given leg label, if assigned.
func (a *LegAssignment) SensorFor(leg LegLabel) (string, bool) {
	if a == nil {
		return "", false
	}
	for sensor, l := range a.Legs {
		if l == leg {
			return sensor, true
		}
	}
	return "", false
}

// Complete reports whether all four legs have a sensor assigned.
func (a *LegAssignment) Complete() bool {
	if a == nil || len(a.Legs) != 4 {
		return false
	}
	seen := make(map[LegLabel]bool, 4)
	for _, l := range a.Legs {
		seen[l] = true
	}
	return len(seen) == 4
}
