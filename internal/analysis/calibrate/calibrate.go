// Package calibrate maps anonymous sensors to physical legs during an
// initial walking phase. It is an explicit state machine so termination and
// failure reporting stay unambiguous.
package calibrate

import (
	"errors"
	"math"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/gait"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/window"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

// ErrCalibrationFailed is surfaced once the retry budget is exhausted
// without reaching the confidence threshold.
var ErrCalibrationFailed = errors.New("calibrate: confidence never reached threshold")

// State of the calibration machine.
type State string

const (
	StateUncalibrated  State = "uncalibrated"
	StateConverging    State = "converging"
	StateCalibrated    State = "calibrated"
	StateRecalibrating State = "recalibrating"
	StateFailed        State = "failed"
)

// Config holds the gates and thresholds of the classifier.
type Config struct {
	SampleRateHz float64 `yaml:"sample_rate_hz"`

	// EnergyThreshold gates sensors by windowed kinetic-energy integral
	// (g²·s); sensors below it are treated as stationary.
	EnergyThreshold float64 `yaml:"energy_threshold"`

	// Vertical/horizontal std-dev ratio bounds. Above FrontRatioMin the
	// sensor classifies front, below HindRatioMax hind; between them the
	// window is deferred.
	FrontRatioMin float64 `yaml:"front_ratio_min"`
	HindRatioMax  float64 `yaml:"hind_ratio_max"`

	MinConfidence float64 `yaml:"min_confidence"`
	MaxWindows    int     `yaml:"max_windows"`
}

func (c *Config) ApplyDefaults() {
	if c.SampleRateHz <= 0 {
		c.SampleRateHz = 100
	}
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = 0.5
	}
	if c.FrontRatioMin <= 0 {
		c.FrontRatioMin = 1.15
	}
	if c.HindRatioMax <= 0 {
		c.HindRatioMax = 0.85
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.75
	}
	if c.MaxWindows <= 0 {
		c.MaxWindows = 15
	}
}

// Calibrator consumes closed short windows until an assignment is accepted
// or the retry budget runs out.
type Calibrator struct {
	cfg        Config
	state      State
	seen       int
	assignment *domain.LegAssignment
}

func New(cfg Config) *Calibrator {
	cfg.ApplyDefaults()
	return &Calibrator{cfg: cfg, state: StateUncalibrated}
}

func (c *Calibrator) State() State { return c.state }

// Calibrated reports whether a current assignment is valid.
func (c *Calibrator) Calibrated() bool { return c.state == StateCalibrated }

// Assignment returns the assignment in effect: the accepted one while
// calibrated, the previous one while a recalibration is converging, nil
// otherwise.
func (c *Calibrator) Assignment() *domain.LegAssignment {
	if c.state != StateCalibrated && c.state != StateRecalibrating {
		return nil
	}
	return c.assignment
}

// Recalibrate re-opens the machine after confidence decay. The previous
// assignment stays in effect until a new one is accepted.
func (c *Calibrator) Recalibrate() {
	if c.state == StateCalibrated {
		c.state = StateRecalibrating
		c.seen = 0
	}
}

type sensorTraits struct {
	id     string
	vert   []float64
	lat    []float64
	ratio  float64
	freqHz float64
}

// Observe processes one closed window. It returns ErrCalibrationFailed
// exactly once, when the budget is exhausted; deferred windows return nil.
func (c *Calibrator) Observe(w *window.Window) error {
	if c.state == StateCalibrated || c.state == StateFailed {
		return nil
	}
	if c.state == StateUncalibrated {
		c.state = StateConverging
	}
	c.seen++

	if traits := c.activeTraits(w); len(traits) == 4 {
		if a, conf := c.classify(traits, w.End); a != nil && conf >= c.cfg.MinConfidence {
			a.Confidence = conf
			c.assignment = a
			c.state = StateCalibrated
			return nil
		}
	}
	// Fewer than four moving sensors leaves the window inconclusive;
	// that is reported through State, never as a partial assignment.

	if c.seen >= c.cfg.MaxWindows {
		c.state = StateFailed
		return ErrCalibrationFailed
	}
	return nil
}

// activeTraits extracts per-sensor series and applies the motion gate.
func (c *Calibrator) activeTraits(w *window.Window) []sensorTraits {
	out := make([]sensorTraits, 0, len(w.BySensor))
	for id, readings := range w.BySensor {
		var energy float64
		vert := make([]float64, len(readings))
		lat := make([]float64, len(readings))
		fwd := make([]float64, len(readings))
		for i, r := range readings {
			vert[i] = r.AccelZ
			lat[i] = r.AccelX
			fwd[i] = r.AccelY
			energy += (r.AccelX*r.AccelX + r.AccelY*r.AccelY + r.AccelZ*r.AccelZ) / c.cfg.SampleRateHz
		}
		if energy < c.cfg.EnergyThreshold {
			continue
		}

		_, vstd := meanStd(vert)
		_, lstd := meanStd(lat)
		_, fstd := meanStd(fwd)
		hstd := math.Hypot(lstd, fstd)
		if hstd == 0 {
			continue
		}

		out = append(out, sensorTraits{
			id:     id,
			vert:   vert,
			lat:    lat,
			ratio:  vstd / hstd,
			freqHz: gait.DominantFrequency(vert, c.cfg.SampleRateHz),
		})
	}
	return out
}

// classify splits the four active sensors into front/hind pairs by axis
// ratio, then left/right by lateral cross-correlation against the front
// anchor. Indeterminate ratios defer the window (nil assignment).
func (c *Calibrator) classify(traits []sensorTraits, at time.Time) (*domain.LegAssignment, float64) {
	var fronts, hinds []sensorTraits
	var fhMargin float64
	for _, tr := range traits {
		switch {
		case tr.ratio >= c.cfg.FrontRatioMin:
			fronts = append(fronts, tr)
			fhMargin += clamp01((tr.ratio - c.cfg.FrontRatioMin) / c.cfg.FrontRatioMin)
		case tr.ratio <= c.cfg.HindRatioMax:
			hinds = append(hinds, tr)
			fhMargin += clamp01((c.cfg.HindRatioMax - tr.ratio) / c.cfg.HindRatioMax)
		default:
			return nil, 0 // indeterminate band, defer to the next window
		}
	}
	if len(fronts) != 2 || len(hinds) != 2 {
		return nil, 0
	}
	fhMargin /= 4

	// The front sensor with the stronger vertical dominance anchors the
	// reference phase and takes the left label; its pair partner is right
	// when anti-correlated. Hinds follow the anchor's lateral phase.
	anchor, other := fronts[0], fronts[1]
	if other.ratio > anchor.ratio {
		anchor, other = other, anchor
	}
	frontCorr := normCorr(anchor.lat, other.lat)

	h0corr := normCorr(anchor.lat, hinds[0].lat)
	h1corr := normCorr(anchor.lat, hinds[1].lat)
	backLeft, backRight := hinds[0], hinds[1]
	if h1corr > h0corr {
		backLeft, backRight = hinds[1], hinds[0]
	}
	lrStrength := (clamp01(math.Abs(frontCorr)) + clamp01(math.Abs(h0corr-h1corr)/2)) / 2

	// Frequency-domain agreement across all four sensors.
	minF, maxF, sumF := math.MaxFloat64, 0.0, 0.0
	for _, tr := range traits {
		minF = math.Min(minF, tr.freqHz)
		maxF = math.Max(maxF, tr.freqHz)
		sumF += tr.freqHz
	}
	freqAgreement := 0.0
	if mean := sumF / 4; mean > 0 {
		freqAgreement = clamp01(1 - (maxF-minF)/mean)
	}

	// Diagonal-pattern consistency from vertical phase relationships.
	diag := (toUnit(normCorr(anchor.vert, backRight.vert)) + toUnit(normCorr(other.vert, backLeft.vert))) / 2

	confidence := 0.40*freqAgreement + 0.30*fhMargin + 0.20*lrStrength + 0.10*diag

	return &domain.LegAssignment{
		Legs: map[string]domain.LegLabel{
			anchor.id:    domain.FrontLeft,
			other.id:     domain.FrontRight,
			backLeft.id:  domain.BackLeft,
			backRight.id: domain.BackRight,
		},
		AssignedAt: at,
	}, confidence
}

// normCorr is the zero-lag normalized cross-correlation of two series.
func normCorr(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	ma, _ := meanStd(a[:n])
	mb, _ := meanStd(b[:n])
	var num, da, db float64
	for i := 0; i < n; i++ {
		x := a[i] - ma
		y := b[i] - mb
		num += x * y
		da += x * x
		db += y * y
	}
	if da == 0 || db == 0 {
		return 0
	}
	return num / math.Sqrt(da*db)
}

func meanStd(series []float64) (mean, std float64) {
	n := float64(len(series))
	if n == 0 {
		return 0, 0
	}
	for _, v := range series {
		mean += v
	}
	mean /= n
	var ss float64
	for _, v := range series {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

// toUnit maps a correlation in [-1,1] onto [0,1].
func toUnit(corr float64) float64 { return clamp01((corr + 1) / 2) }
