// Package session owns the per-horse analysis state: windowing buffers,
// the leg calibrator, baselines, the alert engine and bounded result
// histories. A Manager creates sessions lazily as horses appear on the
// ingest stream.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/alert"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/calibrate"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/gait"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/hrv"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/score"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/window"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// Config tunes a session. Zero values fall back to defaults.
type Config struct {
	// GaitWindow is the span of one motion analysis window.
	GaitWindow time.Duration

	// HRVWindow is the span of one R-R interval window.
	HRVWindow time.Duration

	// GaitHistory bounds how far back symmetry results are retained.
	GaitHistory time.Duration

	// HRVHistoryLen bounds the number of retained HRV results.
	HRVHistoryLen int

	// AlertHistoryLen bounds the number of retained alerts.
	AlertHistoryLen int

	Gait      gait.Config
	HRV       hrv.Config
	Calibrate calibrate.Config
	Score     score.Config
	Alert     alert.Config
}

func (c *Config) ApplyDefaults() {
	if c.GaitWindow <= 0 {
		c.GaitWindow = 2 * time.Second
	}
	if c.HRVWindow <= 0 {
		c.HRVWindow = time.Minute
	}
	if c.GaitHistory <= 0 {
		c.GaitHistory = 10 * time.Minute
	}
	if c.HRVHistoryLen <= 0 {
		c.HRVHistoryLen = 30
	}
	if c.AlertHistoryLen <= 0 {
		c.AlertHistoryLen = 100
	}
	c.Gait.ApplyDefaults()
	c.HRV.ApplyDefaults()
	c.Calibrate.ApplyDefaults()
	c.Score.ApplyDefaults()
	c.Alert.ApplyDefaults()
}

// Output is what one ingested reading produced. All fields are nil when
// the reading only accumulated into an open window.
type Output struct {
	Symmetry *domain.SymmetryResult
	Health   []domain.LegHealth
	HRV      *domain.HRVResult
	Bond     *domain.BondState
	Alerts   []domain.Alert
}

// Empty reports whether the reading produced no results.
func (o *Output) Empty() bool {
	return o == nil || (o.Symmetry == nil && o.HRV == nil && len(o.Alerts) == 0)
}

// Session is the full analysis state of one horse. All exported methods
// are safe for concurrent use.
type Session struct {
	horseID string
	cfg     Config

	mu      sync.RWMutex
	imu     *window.Buffer
	rr      *window.RRBuffer
	cal     *calibrate.Calibrator
	gaitAn  *gait.Analyzer
	hrvAn   *hrv.Analyzer
	tracker *score.Tracker
	engine  *alert.Engine

	symScorer    ports.SymmetryScorer
	stressScorer ports.StressScorer
	obs          ports.Observability

	symHist    []*domain.SymmetryResult
	hrvHist    []*domain.HRVResult
	health     map[domain.LegLabel]domain.LegHealth
	alertHist  []domain.Alert
	startedAt  time.Time
	lastSeenAt time.Time
}

func New(horseID string, cfg Config, sym ports.SymmetryScorer, stress ports.StressScorer, obs ports.Observability) *Session {
	cfg.ApplyDefaults()
	return &Session{
		horseID:      horseID,
		cfg:          cfg,
		imu:          window.NewBuffer(cfg.GaitWindow),
		rr:           window.NewRRBuffer(cfg.HRVWindow),
		cal:          calibrate.New(cfg.Calibrate),
		gaitAn:       gait.NewAnalyzer(cfg.Gait),
		hrvAn:        hrv.NewAnalyzer(cfg.HRV),
		tracker:      score.NewTracker(cfg.Score),
		engine:       alert.NewEngine(cfg.Alert),
		symScorer:    sym,
		stressScorer: stress,
		obs:          obs,
		health:       make(map[domain.LegLabel]domain.LegHealth, len(domain.Legs)),
		startedAt:    time.Now(),
	}
}

// HorseID returns the horse this session belongs to.
func (s *Session) HorseID() string { return s.horseID }

// Ingest routes one validated reading into the session. A reading that
// closes a window returns the window's results; otherwise the returned
// output is empty.
func (s *Session) Ingest(ctx context.Context, r *domain.SensorReading) (*Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeenAt = r.Timestamp
	out := &Output{}

	// A reading can carry both motion and a beat interval; feed both
	// window buffers so a piggybacked R-R value never costs a motion
	// sample.
	if r.RRIntervalMS > 0 {
		if w, closed := s.rr.Add(domain.HeartSample{Timestamp: r.Timestamp, RRIntervalMS: r.RRIntervalMS}); closed {
			s.analyzeHRV(ctx, w, out)
		}
	}

	w, closed := s.imu.Add(r)
	if !closed {
		return out, nil
	}

	if !s.cal.Calibrated() {
		if err := s.cal.Observe(w); err != nil {
			s.obs.LogError("leg calibration failed", err,
				ports.Field{Key: "horse_id", Value: s.horseID})
			return out, err
		}
		if s.cal.Calibrated() {
			a := s.cal.Assignment()
			s.obs.LogInfo("leg calibration complete",
				ports.Field{Key: "horse_id", Value: s.horseID},
				ports.Field{Key: "confidence", Value: a.Confidence})
		}
		// While recalibrating, the prior assignment stays in effect and
		// gait analysis continues alongside the new observations.
		if s.cal.Assignment() == nil {
			return out, nil
		}
	}

	s.analyzeGait(ctx, w, out)
	return out, nil
}

// Flush closes any open windows and analyzes them. Intended for session
// shutdown.
func (s *Session) Flush(ctx context.Context) *Output {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &Output{}
	if w := s.imu.Flush(); w != nil && s.cal.Assignment() != nil {
		s.analyzeGait(ctx, w, out)
	}
	if w := s.rr.Flush(); w != nil {
		s.analyzeHRV(ctx, w, out)
	}
	return out
}

func (s *Session) analyzeGait(ctx context.Context, w *window.Window, out *Output) {
	assignment := s.cal.Assignment()
	vert := make(map[domain.LegLabel][]float64, len(domain.Legs))
	for _, leg := range domain.Legs {
		sensor, ok := assignment.SensorFor(leg)
		if !ok {
			continue
		}
		readings := w.BySensor[sensor]
		if len(readings) == 0 {
			continue
		}
		series := make([]float64, len(readings))
		for i, r := range readings {
			series[i] = r.AccelZ
		}
		vert[leg] = series
	}

	f := s.gaitAn.Extract(vert)
	res := &domain.SymmetryResult{
		HorseID:      s.horseID,
		Timestamp:    w.End,
		Gait:         f.Gait,
		StrideFreqHz: f.StrideFreq,
		Amplitudes:   f.Amplitudes,
		Partial:      f.Partial,
		Scorer:       s.symScorer.Name(),
	}

	// Pair scores need all four legs; a partial window is published
	// flagged, without scores, so a missing sensor cannot read as a
	// zero-amplitude leg.
	if !f.Partial {
		scores, err := s.symScorer.ScoreSymmetry(ctx, f.Amplitudes)
		if err != nil {
			s.obs.LogError("symmetry scoring failed", err,
				ports.Field{Key: "horse_id", Value: s.horseID},
				ports.Field{Key: "scorer", Value: s.symScorer.Name()})
			return
		}
		res.Scores = scores
	}

	out.Symmetry = res
	out.Health = s.tracker.ObserveGait(f, w.End)
	for i := range out.Health {
		out.Health[i].HorseID = s.horseID
	}
	out.Alerts = append(out.Alerts, s.engine.EvalGait(res, f)...)

	s.symHist = append(s.symHist, res)
	s.trimSymHist(w.End)
	for _, h := range out.Health {
		s.health[h.Leg] = h
	}
	s.recordAlerts(out.Alerts)
}

func (s *Session) analyzeHRV(ctx context.Context, w *window.RRWindow, out *Output) {
	raw := make([]float64, len(w.Samples))
	for i, sample := range w.Samples {
		raw[i] = sample.RRIntervalMS
	}
	filtered := s.hrvAn.Filter(raw)
	dropped := len(raw) - len(filtered)

	if len(filtered) < s.cfg.HRV.MinValidSamples {
		s.obs.LogInfo("hrv window skipped, too few valid intervals",
			ports.Field{Key: "horse_id", Value: s.horseID},
			ports.Field{Key: "valid", Value: len(filtered)},
			ports.Field{Key: "dropped", Value: dropped})
		return
	}

	sa, err := s.stressScorer.ScoreStress(ctx, filtered)
	if err != nil {
		s.obs.LogError("stress scoring failed", err,
			ports.Field{Key: "horse_id", Value: s.horseID},
			ports.Field{Key: "scorer", Value: s.stressScorer.Name()})
		return
	}

	res := &domain.HRVResult{
		HorseID:        s.horseID,
		Timestamp:      w.End,
		Stress:         sa,
		EmotionalState: hrv.EmotionalState(sa.StressScore),
		SamplesUsed:    len(filtered),
		SamplesDropped: dropped,
		Scorer:         s.stressScorer.Name(),
	}
	out.HRV = res

	out.Alerts = append(out.Alerts, s.engine.EvalHRV(s.horseID, sa, w.End)...)
	bond := s.tracker.ObserveStress(sa, s.engine.AsymmetryActive(), w.End)
	out.Bond = &bond

	s.hrvHist = append(s.hrvHist, res)
	if len(s.hrvHist) > s.cfg.HRVHistoryLen {
		s.hrvHist = s.hrvHist[len(s.hrvHist)-s.cfg.HRVHistoryLen:]
	}
	s.recordAlerts(out.Alerts)
}

func (s *Session) trimSymHist(now time.Time) {
	cutoff := now.Add(-s.cfg.GaitHistory)
	i := 0
	for i < len(s.symHist) && s.symHist[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.symHist = append(s.symHist[:0], s.symHist[i:]...)
	}
}

func (s *Session) recordAlerts(alerts []domain.Alert) {
	if len(alerts) == 0 {
		return
	}
	s.alertHist = append(s.alertHist, alerts...)
	if len(s.alertHist) > s.cfg.AlertHistoryLen {
		s.alertHist = s.alertHist[len(s.alertHist)-s.cfg.AlertHistoryLen:]
	}
}

// CalibrationState reports the calibrator's current state.
func (s *Session) CalibrationState() calibrate.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cal.State()
}

// Assignment returns the current leg assignment, or nil before
// calibration completes.
func (s *Session) Assignment() *domain.LegAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cal.Assignment()
}

// Recalibrate discards the current leg assignment and reopens the
// calibration state machine, keeping learned baselines.
func (s *Session) Recalibrate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cal.Recalibrate()
	s.obs.LogInfo("recalibration requested",
		ports.Field{Key: "horse_id", Value: s.horseID})
}

// LatestSymmetry returns the most recent symmetry result, or nil.
func (s *Session) LatestSymmetry() *domain.SymmetryResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.symHist) == 0 {
		return nil
	}
	return s.symHist[len(s.symHist)-1]
}

// SymmetryHistory returns results at or after since, oldest first.
func (s *Session) SymmetryHistory(since time.Time) []*domain.SymmetryResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.SymmetryResult, 0, len(s.symHist))
	for _, r := range s.symHist {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

// HRVHistory returns the retained HRV results, oldest first.
func (s *Session) HRVHistory() []*domain.HRVResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.HRVResult, len(s.hrvHist))
	copy(out, s.hrvHist)
	return out
}

// LegHealthSnapshot returns the latest health score per leg.
func (s *Session) LegHealthSnapshot() []domain.LegHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LegHealth, 0, len(s.health))
	for _, leg := range domain.Legs {
		if h, ok := s.health[leg]; ok {
			out = append(out, h)
		}
	}
	return out
}

// Bond returns the current bond state.
func (s *Session) Bond() domain.BondState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Bond()
}

// Alerts returns the retained alert history, oldest first.
func (s *Session) Alerts() []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Alert, len(s.alertHist))
	copy(out, s.alertHist)
	return out
}

// LateReadings reports how many readings arrived behind their window.
func (s *Session) LateReadings() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.imu.LateCount() + s.rr.LateCount()
}
