// Package score maintains per-horse adaptive baselines and derives the
// slow-moving wellness indicators from them: a per-leg health score and
// the horse/handler bond score.
package score

import (
	"math"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/gait"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

// Config tunes baseline adaptation and the deduction weights of the leg
// health score. Zero values fall back to defaults.
type Config struct {
	// Alpha is the EWMA smoothing factor applied to baseline updates.
	Alpha float64

	// WarmupWindows is how many windows feed a baseline before it is
	// considered settled and deductions apply.
	WarmupWindows int

	VarWeight  float64 // per unit sigma/sigma_base
	VarCap     float64
	FreqWeight float64 // per unit relative frequency error
	FreqCap    float64
	DevWeight  float64 // per unit relative amplitude deviation
	DevCap     float64

	// Bond dynamics.
	BondBase     float64
	BondHRVGain  float64 // score points per ms of SDNN above the reference
	BondDecay    float64 // score points per second of sustained stress
	SDNNRefMS    float64
	BondRecovery float64 // points regained per calm window
}

func (c *Config) ApplyDefaults() {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		c.Alpha = 0.1
	}
	if c.WarmupWindows <= 0 {
		c.WarmupWindows = 5
	}
	if c.VarWeight <= 0 {
		c.VarWeight = 20
	}
	if c.VarCap <= 0 {
		c.VarCap = 40
	}
	if c.FreqWeight <= 0 {
		c.FreqWeight = 15
	}
	if c.FreqCap <= 0 {
		c.FreqCap = 30
	}
	if c.DevWeight <= 0 {
		c.DevWeight = 10
	}
	if c.DevCap <= 0 {
		c.DevCap = 30
	}
	if c.BondBase <= 0 {
		c.BondBase = 75
	}
	if c.BondHRVGain <= 0 {
		c.BondHRVGain = 0.5
	}
	if c.BondDecay <= 0 {
		c.BondDecay = 0.05
	}
	if c.SDNNRefMS <= 0 {
		c.SDNNRefMS = 50
	}
	if c.BondRecovery <= 0 {
		c.BondRecovery = 0.5
	}
}

// legBaseline is the settled reference a leg is judged against.
type legBaseline struct {
	amplitude float64
	strideStd float64
	windows   int
}

// Tracker accumulates one horse's baselines and produces leg health and
// bond scores from fresh window features. It is not safe for concurrent
// use; the owning session serializes calls.
type Tracker struct {
	cfg Config

	legs         map[domain.LegLabel]*legBaseline
	baseFreq     float64
	freqWindows  int
	bond         domain.BondState
	calmStreak   int
}

func NewTracker(cfg Config) *Tracker {
	cfg.ApplyDefaults()
	return &Tracker{
		cfg:  cfg,
		legs: make(map[domain.LegLabel]*legBaseline, len(domain.Legs)),
		bond: domain.BondState{Score: cfg.BondBase},
	}
}

// Warm reports whether enough windows have fed the baselines for
// deductions to be meaningful.
func (t *Tracker) Warm() bool {
	return t.freqWindows >= t.cfg.WarmupWindows
}

// Bond returns the current bond state.
func (t *Tracker) Bond() domain.BondState { return t.bond }

// ObserveGait folds one window's gait features into the baselines and,
// once the baselines are warm, returns the per-leg health scores for
// the window. During warmup it returns nil.
func (t *Tracker) ObserveGait(f gait.Features, at time.Time) []domain.LegHealth {
	if f.Partial {
		return nil
	}

	warm := t.Warm()
	var out []domain.LegHealth
	if warm {
		out = make([]domain.LegHealth, 0, len(domain.Legs))
		for _, leg := range domain.Legs {
			b, ok := t.legs[leg]
			if !ok || b.windows == 0 {
				continue
			}
			out = append(out, t.health(leg, b, f, at))
		}
	}

	// Update after scoring so a window is never judged against itself.
	for _, leg := range domain.Legs {
		amp, ok := f.Amplitudes[leg]
		if !ok {
			continue
		}
		b := t.legs[leg]
		if b == nil {
			b = &legBaseline{}
			t.legs[leg] = b
		}
		if b.windows == 0 {
			b.amplitude = amp
			b.strideStd = f.StrideStd[leg]
		} else {
			b.amplitude = ewma(b.amplitude, amp, t.cfg.Alpha)
			b.strideStd = ewma(b.strideStd, f.StrideStd[leg], t.cfg.Alpha)
		}
		b.windows++
	}
	if f.StrideFreq > 0 {
		if t.freqWindows == 0 {
			t.baseFreq = f.StrideFreq
		} else {
			t.baseFreq = ewma(t.baseFreq, f.StrideFreq, t.cfg.Alpha)
		}
		t.freqWindows++
	}
	return out
}

func (t *Tracker) health(leg domain.LegLabel, b *legBaseline, f gait.Features, at time.Time) domain.LegHealth {
	h := domain.LegHealth{Leg: leg, Score: 100, Timestamp: at}

	if std, ok := f.StrideStd[leg]; ok && b.strideStd > 1e-9 && std > b.strideStd {
		h.DeductionVariability = math.Min(t.cfg.VarWeight*(std/b.strideStd-1), t.cfg.VarCap)
	}
	if t.baseFreq > 1e-9 && f.StrideFreq > 0 {
		rel := math.Abs(f.StrideFreq-t.baseFreq) / t.baseFreq
		h.DeductionFrequency = math.Min(t.cfg.FreqWeight*rel, t.cfg.FreqCap)
	}
	if amp, ok := f.Amplitudes[leg]; ok && b.amplitude > 1e-9 {
		rel := math.Abs(amp-b.amplitude) / b.amplitude
		h.DeductionDeviation = math.Min(t.cfg.DevWeight*rel, t.cfg.DevCap)
	}

	h.Score = clamp(100-h.DeductionVariability-h.DeductionFrequency-h.DeductionDeviation, 0, 100)
	return h
}

// ObserveStress advances the bond score from one HRV window. Stressed
// reports whether the window carried any alert-band metric or an active
// asymmetry alert; the stress clock starts on the first stressed window
// and clears after one fully calm window.
func (t *Tracker) ObserveStress(sa domain.StressAssessment, asymmetryActive bool, at time.Time) domain.BondState {
	stressed := sa.AnyAlertBand() || asymmetryActive

	if stressed {
		t.calmStreak = 0
		if t.bond.StressOnset.IsZero() {
			t.bond.StressOnset = at
		}
	} else {
		t.calmStreak++
		if !t.bond.StressOnset.IsZero() && t.calmStreak >= 1 {
			t.bond.StressOnset = time.Time{}
		}
	}

	score := t.cfg.BondBase + t.cfg.BondHRVGain*(sa.SDNN-t.cfg.SDNNRefMS)
	if !t.bond.StressOnset.IsZero() {
		score -= t.cfg.BondDecay * at.Sub(t.bond.StressOnset).Seconds()
	} else if !t.bond.UpdatedAt.IsZero() {
		// Drift back toward the instantaneous score instead of jumping.
		score = math.Min(score, t.bond.Score+t.cfg.BondRecovery)
	}

	t.bond.Score = clamp(score, 0, 100)
	t.bond.UpdatedAt = at
	return t.bond
}

func ewma(prev, v, alpha float64) float64 {
	return alpha*v + (1-alpha)*prev
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
