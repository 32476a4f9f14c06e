// Package alert turns per-window analysis results into debounced,
// idempotent health alerts.
package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/gait"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

// hrvAlertScore is the lowest stress score an assessment with an
// alert-band metric can carry; it doubles as the HRV alert threshold.
const hrvAlertScore = 70

// Config tunes the trigger thresholds. Zero values fall back to defaults.
type Config struct {
	// AsymmetryThreshold is the pair score below which a window counts
	// toward the asymmetry debounce.
	AsymmetryThreshold float64

	// AsymmetryCritical is the pair score below which an asymmetry alert
	// escalates from warning to critical.
	AsymmetryCritical float64

	// DebounceWindows is how many consecutive sub-threshold windows are
	// required before an asymmetry alert fires.
	DebounceWindows int

	// ImpactFactor fires an impact alert when a window's peak
	// acceleration exceeds this multiple of the baseline peak.
	ImpactFactor float64

	// IrregularityFactor fires an irregularity alert when stride timing
	// spread exceeds this multiple of its baseline.
	IrregularityFactor float64

	// BaselineAlpha smooths the internal peak and stride baselines.
	BaselineAlpha float64

	// BaselineWarmup is how many windows feed the baselines before the
	// impact and irregularity triggers arm.
	BaselineWarmup int
}

func (c *Config) ApplyDefaults() {
	if c.AsymmetryThreshold <= 0 {
		c.AsymmetryThreshold = 60
	}
	if c.AsymmetryCritical <= 0 {
		c.AsymmetryCritical = 50
	}
	if c.DebounceWindows <= 0 {
		c.DebounceWindows = 3
	}
	if c.ImpactFactor <= 0 {
		c.ImpactFactor = 2.5
	}
	if c.IrregularityFactor <= 0 {
		c.IrregularityFactor = 1.5
	}
	if c.BaselineAlpha <= 0 || c.BaselineAlpha >= 1 {
		c.BaselineAlpha = 0.1
	}
	if c.BaselineWarmup <= 0 {
		c.BaselineWarmup = 5
	}
}

// pairState walks normal -> pending -> active as consecutive windows
// stay below the asymmetry threshold.
type pairState struct {
	below  int
	active bool
}

// legBaseline is the reference a leg's spikes and timing spread are
// judged against.
type legBaseline struct {
	peak      float64
	strideStd float64
	windows   int
	irregular bool
}

// Engine evaluates one horse's results. It is not safe for concurrent
// use; the owning session serializes calls.
type Engine struct {
	cfg Config

	pairs     map[string]*pairState
	legs      map[domain.LegLabel]*legBaseline
	hrvActive bool
}

func NewEngine(cfg Config) *Engine {
	cfg.ApplyDefaults()
	return &Engine{
		cfg: cfg,
		pairs: map[string]*pairState{
			"front":    {},
			"hind":     {},
			"diagonal": {},
		},
		legs: make(map[domain.LegLabel]*legBaseline, len(domain.Legs)),
	}
}

// AsymmetryActive reports whether any leg pair currently has an open
// asymmetry alert.
func (e *Engine) AsymmetryActive() bool {
	for _, p := range e.pairs {
		if p.active {
			return true
		}
	}
	return false
}

// EvalGait inspects one completed window. Partial windows bypass the
// asymmetry debounce entirely: they neither advance nor reset it.
func (e *Engine) EvalGait(res *domain.SymmetryResult, f gait.Features) []domain.Alert {
	var out []domain.Alert

	if !res.Partial && res.Gait != domain.GaitStand {
		out = append(out, e.evalPair(res, "front", res.Scores.Front)...)
		out = append(out, e.evalPair(res, "hind", res.Scores.Hind)...)
		out = append(out, e.evalPair(res, "diagonal", res.Scores.Diagonal)...)
	}

	for _, leg := range domain.Legs {
		peak, ok := f.PeakAccelG[leg]
		if !ok {
			continue
		}
		b := e.legs[leg]
		if b != nil && b.windows >= e.cfg.BaselineWarmup {
			out = append(out, e.evalImpact(res, leg, peak, b)...)
			out = append(out, e.evalIrregularity(res, leg, f, b)...)
		}

		// Moving windows feed the baselines; a standing horse carries
		// no stride signal worth learning from.
		if f.Partial || f.Gait == domain.GaitStand {
			continue
		}
		if b == nil {
			b = &legBaseline{}
			e.legs[leg] = b
		}
		if b.windows == 0 {
			b.peak = peak
			b.strideStd = f.StrideStd[leg]
		} else {
			b.peak = ewma(b.peak, peak, e.cfg.BaselineAlpha)
			b.strideStd = ewma(b.strideStd, f.StrideStd[leg], e.cfg.BaselineAlpha)
		}
		b.windows++
	}
	return out
}

func (e *Engine) evalPair(res *domain.SymmetryResult, pair string, score float64) []domain.Alert {
	p := e.pairs[pair]
	if score >= e.cfg.AsymmetryThreshold {
		p.below = 0
		p.active = false
		return nil
	}

	p.below++
	if p.below < e.cfg.DebounceWindows || p.active {
		return nil
	}
	p.active = true

	sev := domain.SeverityWarning
	if score < e.cfg.AsymmetryCritical {
		sev = domain.SeverityCritical
	}
	return []domain.Alert{{
		ID:        uuid.NewString(),
		HorseID:   res.HorseID,
		Timestamp: res.Timestamp,
		Type:      domain.AlertAsymmetry,
		Severity:  sev,
		Leg:       pair,
		Value:     score,
		Threshold: e.cfg.AsymmetryThreshold,
		Message: fmt.Sprintf("Sustained %s-pair load asymmetry at %s (score %.1f)",
			pair, res.Gait, score),
		Recommendation: "Halt work and perform a trot-up inspection of the affected pair.",
	}}
}

func (e *Engine) evalImpact(res *domain.SymmetryResult, leg domain.LegLabel, peak float64, b *legBaseline) []domain.Alert {
	threshold := e.cfg.ImpactFactor * b.peak
	if b.peak <= 1e-9 || peak <= threshold {
		return nil
	}
	// Stateless: every spike window reports. A fall or kick is worth
	// repeating.
	return []domain.Alert{{
		ID:        uuid.NewString(),
		HorseID:   res.HorseID,
		Timestamp: res.Timestamp,
		Type:      domain.AlertImpact,
		Severity:  domain.SeverityCritical,
		Leg:       string(leg),
		Value:     peak,
		Threshold: threshold,
		Message: fmt.Sprintf("Impact spike of %.1f g on %s against a %.1f g baseline",
			peak, leg, b.peak),
		Recommendation: "Check the horse immediately for injury or a fall.",
	}}
}

func (e *Engine) evalIrregularity(res *domain.SymmetryResult, leg domain.LegLabel, f gait.Features, b *legBaseline) []domain.Alert {
	if f.Partial || f.Gait == domain.GaitStand || b.strideStd <= 1e-9 {
		return nil
	}
	std := f.StrideStd[leg]
	threshold := e.cfg.IrregularityFactor * b.strideStd
	if std <= threshold {
		b.irregular = false
		return nil
	}
	if b.irregular {
		return nil
	}
	b.irregular = true
	return []domain.Alert{{
		ID:        uuid.NewString(),
		HorseID:   res.HorseID,
		Timestamp: res.Timestamp,
		Type:      domain.AlertIrregularity,
		Severity:  domain.SeverityWarning,
		Leg:       string(leg),
		Value:     std,
		Threshold: threshold,
		Message: fmt.Sprintf("Stride timing spread %.2f s on %s exceeds %.2f s baseline band",
			std, leg, b.strideStd),
		Recommendation: "Review footing and watch for intermittent lameness.",
	}}
}

// EvalHRV fires once when any HRV metric enters its alert band and re-arms
// after every metric drops back out. Severity tracks the graded level:
// critical stress raises a critical alert, anything below a warning.
func (e *Engine) EvalHRV(horseID string, sa domain.StressAssessment, at time.Time) []domain.Alert {
	if !sa.AnyAlertBand() {
		e.hrvActive = false
		return nil
	}
	if e.hrvActive {
		return nil
	}
	e.hrvActive = true

	sev := domain.SeverityWarning
	if sa.Level == domain.StressCritical {
		sev = domain.SeverityCritical
	}
	return []domain.Alert{{
		ID:        uuid.NewString(),
		HorseID:   horseID,
		Timestamp: at,
		Type:      domain.AlertHRV,
		Severity:  sev,
		Value:     float64(sa.StressScore),
		Threshold: hrvAlertScore,
		Message: fmt.Sprintf("Autonomic stress %s: SDNN %.0f ms, RMSSD %.0f ms, pNN50 %.1f%%",
			sa.Level, sa.SDNN, sa.RMSSD, sa.PNN50),
		Recommendation: "Remove stressors, move to a calm environment and monitor recovery.",
	}}
}

func ewma(prev, v, alpha float64) float64 {
	return alpha*v + (1-alpha)*prev
}
