// Package hrv computes heart-rate-variability statistics and stress grades
// from R-R interval windows.
package hrv

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

// ErrInsufficientSamples marks a window with too few valid intervals after
// filtering to produce a statistically meaningful result.
var ErrInsufficientSamples = errors.New("hrv: insufficient valid R-R intervals")

// Config holds the physiological filter bounds and the grading thresholds.
type Config struct {
	MinIntervalMS   float64 `yaml:"min_interval_ms"`
	MaxIntervalMS   float64 `yaml:"max_interval_ms"`
	MedianDeviation float64 `yaml:"median_deviation"` // fraction of the window median
	MinValidSamples int     `yaml:"min_valid_samples"`

	SDNNGood     float64 `yaml:"sdnn_good"`
	SDNNWarning  float64 `yaml:"sdnn_warning"`
	RMSSDGood    float64 `yaml:"rmssd_good"`
	RMSSDWarning float64 `yaml:"rmssd_warning"`
	PNN50Good    float64 `yaml:"pnn50_good"`
	PNN50Warning float64 `yaml:"pnn50_warning"`
}

func (c *Config) ApplyDefaults() {
	if c.MinIntervalMS <= 0 {
		c.MinIntervalMS = 300
	}
	if c.MaxIntervalMS <= 0 {
		c.MaxIntervalMS = 2000
	}
	if c.MedianDeviation <= 0 {
		c.MedianDeviation = 0.20
	}
	if c.MinValidSamples <= 0 {
		c.MinValidSamples = 5
	}
	if c.SDNNGood <= 0 {
		c.SDNNGood = 50
	}
	if c.SDNNWarning <= 0 {
		c.SDNNWarning = 30
	}
	if c.RMSSDGood <= 0 {
		c.RMSSDGood = 40
	}
	if c.RMSSDWarning <= 0 {
		c.RMSSDWarning = 20
	}
	if c.PNN50Good <= 0 {
		c.PNN50Good = 3
	}
	if c.PNN50Warning <= 0 {
		c.PNN50Warning = 1
	}
}

// Analyzer filters R-R series and grades the resulting statistics.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	cfg.ApplyDefaults()
	return &Analyzer{cfg: cfg}
}

// Filter removes artifacts: intervals outside the physiological bounds and
// intervals deviating from the window median by more than the configured
// fraction. The median pass repeats until the survivor set is stable, since
// removing outliers shifts the median; without the repeat a second Filter
// call could trim further. Filtering an already-filtered series changes
// nothing.
func (a *Analyzer) Filter(rr []float64) []float64 {
	out := make([]float64, 0, len(rr))
	for _, v := range rr {
		if v >= a.cfg.MinIntervalMS && v <= a.cfg.MaxIntervalMS {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}

	// Each pass either keeps every survivor or strictly shrinks the set,
	// so the loop terminates in at most len(out) passes.
	for {
		med := median(out)
		limit := a.cfg.MedianDeviation * med

		kept := out[:0]
		for _, v := range out {
			if math.Abs(v-med) <= limit {
				kept = append(kept, v)
			}
		}
		if len(kept) == len(out) {
			return kept
		}
		out = kept
	}
}

// SDNN is the population standard deviation of the intervals.
func SDNN(rr []float64) float64 {
	if len(rr) < 2 {
		return 0
	}
	var mean float64
	for _, v := range rr {
		mean += v
	}
	mean /= float64(len(rr))
	var ss float64
	for _, v := range rr {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(rr)))
}

// RMSSD is the root mean square of successive interval differences.
func RMSSD(rr []float64) float64 {
	if len(rr) < 2 {
		return 0
	}
	var ss float64
	for i := 1; i < len(rr); i++ {
		d := rr[i] - rr[i-1]
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(rr)-1))
}

// PNN50 is the percentage of successive differences exceeding 50 ms.
func PNN50(rr []float64) float64 {
	if len(rr) < 2 {
		return 0
	}
	var count int
	for i := 1; i < len(rr); i++ {
		if math.Abs(rr[i]-rr[i-1]) > 50 {
			count++
		}
	}
	return float64(count) / float64(len(rr)-1) * 100
}

// Grade bands each metric and derives the overall stress level: two or more
// alert-band metrics are critical, one alert or two warnings high, one
// warning moderate, otherwise low.
func (a *Analyzer) Grade(sdnn, rmssd, pnn50 float64) domain.StressAssessment {
	s := domain.StressAssessment{
		SDNN:      sdnn,
		RMSSD:     rmssd,
		PNN50:     pnn50,
		SDNNBand:  band(sdnn, a.cfg.SDNNGood, a.cfg.SDNNWarning),
		RMSSDBand: band(rmssd, a.cfg.RMSSDGood, a.cfg.RMSSDWarning),
		PNN50Band: band(pnn50, a.cfg.PNN50Good, a.cfg.PNN50Warning),
	}

	var alerts, warnings int
	for _, b := range [3]domain.Band{s.SDNNBand, s.RMSSDBand, s.PNN50Band} {
		switch b {
		case domain.BandAlert:
			alerts++
		case domain.BandWarning:
			warnings++
		}
	}

	switch {
	case alerts >= 2:
		s.Level, s.StressScore = domain.StressCritical, 90
	case alerts == 1 || warnings >= 2:
		s.Level, s.StressScore = domain.StressHigh, 70
	case warnings == 1:
		s.Level, s.StressScore = domain.StressModerate, 50
	default:
		s.Level, s.StressScore = domain.StressLow, 20
	}
	return s
}

// Analyze runs the full filter → statistics → grading chain for one window.
func (a *Analyzer) Analyze(rr []float64) (domain.StressAssessment, int, error) {
	filtered := a.Filter(rr)
	dropped := len(rr) - len(filtered)
	if len(filtered) < a.cfg.MinValidSamples {
		return domain.StressAssessment{}, dropped, ErrInsufficientSamples
	}
	return a.Grade(SDNN(filtered), RMSSD(filtered), PNN50(filtered)), dropped, nil
}

// EmotionalState maps a stress score to the report label.
func EmotionalState(score int) string {
	switch {
	case score < 30:
		return "Calm & Content"
	case score < 60:
		return "Moderate Arousal"
	case score < 80:
		return "Stressed"
	default:
		return "Critical Distress"
	}
}

func band(v, good, warning float64) domain.Band {
	switch {
	case v > good:
		return domain.BandGood
	case v >= warning:
		return domain.BandWarning
	default:
		return domain.BandAlert
	}
}

func median(vals []float64) float64 {
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// LocalScorer exposes the analyzer behind the StressScorer port as the
// fallback for remote inference.
type LocalScorer struct {
	an *Analyzer
}

func NewLocalScorer(cfg Config) *LocalScorer {
	return &LocalScorer{an: NewAnalyzer(cfg)}
}

func (s *LocalScorer) Name() string { return "local-formula" }

// ScoreStress grades an already-filtered series.
func (s *LocalScorer) ScoreStress(_ context.Context, rr []float64) (domain.StressAssessment, error) {
	if len(rr) < s.an.cfg.MinValidSamples {
		return domain.StressAssessment{}, ErrInsufficientSamples
	}
	return s.an.Grade(SDNN(rr), RMSSD(rr), PNN50(rr)), nil
}
