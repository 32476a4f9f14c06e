// Package gait computes stride features and front/hind/diagonal symmetry
// scores from leg-labeled windows of vertical acceleration.
package gait

import (
	"context"
	"math"
	"sort"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

// Config carries the tunable constants of the analyzer. Zero values are
// replaced by the published defaults.
type Config struct {
	SampleRateHz   float64 `yaml:"sample_rate_hz"`
	BaselineAccelG float64 `yaml:"baseline_accel_g"`

	KFront float64 `yaml:"k_front"`
	KHind  float64 `yaml:"k_hind"`
	KDiag  float64 `yaml:"k_diag"`

	WFront float64 `yaml:"w_front"`
	WHind  float64 `yaml:"w_hind"`
	WDiag  float64 `yaml:"w_diag"`
}

func (c *Config) ApplyDefaults() {
	if c.SampleRateHz <= 0 {
		c.SampleRateHz = 100
	}
	if c.BaselineAccelG <= 0 {
		c.BaselineAccelG = 1.2
	}
	if c.KFront <= 0 {
		c.KFront = 1.0
	}
	if c.KHind <= 0 {
		c.KHind = 1.0
	}
	if c.KDiag <= 0 {
		c.KDiag = 1.0
	}
	if c.WFront <= 0 {
		c.WFront = 0.35
	}
	if c.WHind <= 0 {
		c.WHind = 0.35
	}
	if c.WDiag <= 0 {
		c.WDiag = 0.30
	}
}

// Features are the stride characteristics extracted from one gait window.
type Features struct {
	Amplitudes map[domain.LegLabel]float64 // normalized, % of baseline
	PeakAccelG map[domain.LegLabel]float64 // 95th percentile |a_z|, in g
	StrideStd  map[domain.LegLabel]float64 // stride-interval std dev, seconds
	StrideFreq float64
	Gait       domain.GaitClass
	Partial    bool
}

// Analyzer extracts features from vertical-acceleration series.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	cfg.ApplyDefaults()
	return &Analyzer{cfg: cfg}
}

// Extract computes per-leg amplitudes, the dominant stride frequency, the
// gait class, and stride-interval spread. Legs absent from vert mark the
// result partial.
func (a *Analyzer) Extract(vert map[domain.LegLabel][]float64) Features {
	f := Features{
		Amplitudes: make(map[domain.LegLabel]float64, 4),
		PeakAccelG: make(map[domain.LegLabel]float64, 4),
		StrideStd:  make(map[domain.LegLabel]float64, 4),
	}

	for _, leg := range domain.Legs {
		series, ok := vert[leg]
		if !ok || len(series) == 0 {
			f.Partial = true
			continue
		}
		peak := percentileAbs(series, 0.95)
		f.PeakAccelG[leg] = peak
		f.Amplitudes[leg] = peak / a.cfg.BaselineAccelG * 100
		f.StrideStd[leg] = strideIntervalStd(series, a.cfg.SampleRateHz)
	}

	// Front-left is the reference leg for stride frequency; fall back to
	// any present leg when FL is missing.
	ref := vert[domain.FrontLeft]
	if len(ref) == 0 {
		for _, leg := range domain.Legs {
			if len(vert[leg]) > 0 {
				ref = vert[leg]
				break
			}
		}
	}
	if len(ref) >= 2 {
		f.StrideFreq = DominantFrequency(ref, a.cfg.SampleRateHz)
		f.Gait = ClassifyGait(f.StrideFreq)
	} else {
		f.Gait = domain.GaitUnknown
	}

	return f
}

// DominantFrequency returns the strongest non-DC spectral component of the
// series. The window is short enough (a few hundred samples) that a direct
// magnitude scan over the positive bins is preferable to an FFT dependency.
func DominantFrequency(series []float64, rateHz float64) float64 {
	n := len(series)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	mags := make([]float64, n/2+1)
	best := 0
	for k := 1; k <= n/2; k++ {
		var re, im float64
		w := 2 * math.Pi * float64(k) / float64(n)
		for i, v := range series {
			re += (v - mean) * math.Cos(w*float64(i))
			im -= (v - mean) * math.Sin(w*float64(i))
		}
		mags[k] = math.Sqrt(re*re + im*im)
		if mags[k] > mags[best] {
			best = k
		}
	}
	if best == 0 {
		return 0
	}

	// Parabolic interpolation between neighboring bins recovers frequencies
	// that fall between the coarse bins of a 2 s window.
	peak := float64(best)
	if best > 1 && best < n/2 {
		a, b, c := mags[best-1], mags[best], mags[best+1]
		if denom := a - 2*b + c; denom != 0 {
			delta := 0.5 * (a - c) / denom
			if delta > -0.5 && delta < 0.5 {
				peak += delta
			}
		}
	}

	return peak * rateHz / float64(n)
}

// ClassifyGait maps stride frequency to a gait class.
func ClassifyGait(freqHz float64) domain.GaitClass {
	switch {
	case freqHz < 0.3:
		return domain.GaitStand
	case freqHz < 1.0:
		return domain.GaitWalk
	case freqHz < 1.8:
		return domain.GaitTrot
	case freqHz < 2.5:
		return domain.GaitCanter
	default:
		return domain.GaitGallop
	}
}

// percentileAbs returns the p-quantile of |series|, p in [0,1].
func percentileAbs(series []float64, p float64) float64 {
	abs := make([]float64, len(series))
	for i, v := range series {
		abs[i] = math.Abs(v)
	}
	sort.Float64s(abs)
	idx := p * float64(len(abs)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return abs[lo]
	}
	frac := idx - float64(lo)
	return abs[lo]*(1-frac) + abs[hi]*frac
}

// strideIntervalStd detects footfall peaks and returns the standard
// deviation of the intervals between them, in seconds. Fewer than three
// peaks yield zero spread.
func strideIntervalStd(series []float64, rateHz float64) float64 {
	if len(series) < 3 {
		return 0
	}

	mean, sd := meanStd(series)
	threshold := mean + 0.5*sd

	// Refractory gap keeps noise riding on one footfall from double
	// counting; a quarter of the window's plausible fastest stride.
	minGap := int(rateHz * 0.1)
	if minGap < 1 {
		minGap = 1
	}

	var peaks []int
	last := -minGap - 1
	for i := 1; i < len(series)-1; i++ {
		if series[i] < threshold {
			continue
		}
		if series[i] >= series[i-1] && series[i] > series[i+1] && i-last > minGap {
			peaks = append(peaks, i)
			last = i
		}
	}

	if len(peaks) < 3 {
		return 0
	}
	intervals := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		intervals[i-1] = float64(peaks[i]-peaks[i-1]) / rateHz
	}
	_, istd := meanStd(intervals)
	return istd
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

// LocalScorer computes symmetry scores with the reference formulas. It is
// the fallback implementation behind the SymmetryScorer port.
type LocalScorer struct {
	cfg Config
}

func NewLocalScorer(cfg Config) *LocalScorer {
	cfg.ApplyDefaults()
	return &LocalScorer{cfg: cfg}
}

func (s *LocalScorer) Name() string { return "local-formula" }

// ScoreSymmetry expects all four legs present; callers gate partial windows
// before scoring.
func (s *LocalScorer) ScoreSymmetry(_ context.Context, amps map[domain.LegLabel]float64) (domain.SymmetryScores, error) {
	fl := amps[domain.FrontLeft]
	fr := amps[domain.FrontRight]
	bl := amps[domain.BackLeft]
	br := amps[domain.BackRight]

	front := 100 - math.Abs(fl-fr)*s.cfg.KFront
	hind := 100 - math.Abs(bl-br)*s.cfg.KHind
	diag := 100 - (math.Abs(fl-br)+math.Abs(fr-bl))/2*s.cfg.KDiag
	total := s.cfg.WFront*front + s.cfg.WHind*hind + s.cfg.WDiag*diag

	return domain.SymmetryScores{
		Front:    clamp(front),
		Hind:     clamp(hind),
		Diagonal: clamp(diag),
		Total:    clamp(total),
	}, nil
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
