package session

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/calibrate"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/gait"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/hrv"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// recordObs is a hand-rolled observability double counting drops.
type recordObs struct {
	mu    sync.Mutex
	drops map[string]int
}

func newRecordObs() *recordObs { return &recordObs{drops: make(map[string]int)} }

func (o *recordObs) LogInfo(string, ...ports.Field)            {}
func (o *recordObs) LogError(string, error, ...ports.Field)    {}
func (o *recordObs) LogCritical(string, error, ...ports.Field) {}
func (o *recordObs) IncCounter(string, float64)                {}
func (o *recordObs) ObserveLatency(string, float64)            {}
func (o *recordObs) SetGauge(string, float64)                  {}

func (o *recordObs) RecordDrop(_ *domain.SensorReading, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.drops[reason]++
}

func (o *recordObs) dropped(reason string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.drops[reason]
}

type sensorSpec struct {
	vertAmp float64
	latAmp  float64
	fwdAmp  float64
	phase   float64
	latSign float64
}

// trotSpecs produce a window that both calibrates and scores: fronts
// vertically dominant, hinds laterally dominant, diagonals in phase.
func trotSpecs() map[string]sensorSpec {
	return map[string]sensorSpec{
		"imu-1": {vertAmp: 1.6, latAmp: 0.4, fwdAmp: 0.1, phase: 0, latSign: +1},
		"imu-2": {vertAmp: 1.5, latAmp: 0.4, fwdAmp: 0.1, phase: math.Pi, latSign: +1},
		"imu-3": {vertAmp: 0.6, latAmp: 1.2, fwdAmp: 0.8, phase: math.Pi, latSign: -1},
		"imu-4": {vertAmp: 0.6, latAmp: 1.2, fwdAmp: 0.8, phase: 0, latSign: -1},
	}
}

// feedMotion pushes seconds worth of 100 Hz readings for all sensors and
// returns every output a window close produced.
func feedMotion(t *testing.T, s *Session, start time.Time, seconds float64) []*Output {
	t.Helper()
	return feedMotionExcept(t, s, start, seconds, "")
}

// feedMotionExcept is feedMotion with one sensor silenced, emulating a
// dropped or dead unit.
func feedMotionExcept(t *testing.T, s *Session, start time.Time, seconds float64, skip string) []*Output {
	t.Helper()
	ctx := context.Background()
	specs := trotSpecs()
	var outs []*Output
	n := int(seconds * 100)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * 10 * time.Millisecond)
		for id, spec := range specs {
			if id == skip {
				continue
			}
			phi := 2*math.Pi*0.8*float64(i)/100 + spec.phase
			out, err := s.Ingest(ctx, &domain.SensorReading{
				HorseID:   "thunder",
				SensorID:  id,
				Timestamp: ts,
				AccelX:    spec.latSign * spec.latAmp * math.Cos(phi),
				AccelY:    spec.fwdAmp * math.Sin(2*phi),
				AccelZ:    spec.vertAmp * math.Sin(phi),
			})
			if err != nil {
				t.Fatalf("ingest at %s: %v", ts, err)
			}
			if !out.Empty() {
				outs = append(outs, out)
			}
		}
	}
	return outs
}

func newTestSession() (*Session, *recordObs) {
	obs := newRecordObs()
	cfg := Config{GaitWindow: 2 * time.Second, HRVWindow: 10 * time.Second}
	s := New("thunder", cfg, gait.NewLocalScorer(gait.Config{}), hrv.NewLocalScorer(hrv.Config{}), obs)
	return s, obs
}

func TestSessionCalibratesThenScores(t *testing.T) {
	s, _ := newTestSession()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	outs := feedMotion(t, s, start, 6.2)

	if s.CalibrationState() != calibrate.StateCalibrated {
		t.Fatalf("expected calibrated session, got %s", s.CalibrationState())
	}
	a := s.Assignment()
	if a == nil || !a.Complete() {
		t.Fatalf("expected complete leg assignment, got %+v", a)
	}
	want := map[string]domain.LegLabel{
		"imu-1": domain.FrontLeft, "imu-2": domain.FrontRight,
		"imu-3": domain.BackLeft, "imu-4": domain.BackRight,
	}
	for sensor, leg := range want {
		if a.Legs[sensor] != leg {
			t.Fatalf("sensor %s assigned %s, want %s", sensor, a.Legs[sensor], leg)
		}
	}

	if len(outs) == 0 {
		t.Fatal("expected at least one scored window after calibration")
	}
	res := outs[len(outs)-1].Symmetry
	if res == nil {
		t.Fatal("expected a symmetry result")
	}
	if res.Gait != domain.GaitWalk {
		t.Fatalf("0.8 Hz stride should classify walk, got %s", res.Gait)
	}
	if res.Scores.Total <= 0 || res.Scores.Total > 100 {
		t.Fatalf("total symmetry out of range: %.1f", res.Scores.Total)
	}
	if res.Scorer != "local-formula" {
		t.Fatalf("unexpected scorer %q", res.Scorer)
	}
	if got := s.LatestSymmetry(); got != res {
		t.Fatal("latest symmetry should be the last emitted result")
	}

	health := outs[len(outs)-1].Health
	if len(health) == 0 {
		t.Fatal("scored window should carry leg health")
	}
	for _, h := range health {
		if h.HorseID != "thunder" {
			t.Fatalf("leg health for %s missing horse attribution: %+v", h.Leg, h)
		}
	}
}

func TestSessionPartialWindowIsNotScored(t *testing.T) {
	s, _ := newTestSession()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	feedMotion(t, s, start, 6.2)

	if s.CalibrationState() != calibrate.StateCalibrated {
		t.Fatalf("precondition: expected calibrated, got %s", s.CalibrationState())
	}

	// One sensor goes dark. The windows it is absent from must surface
	// flagged and unscored, not as a zero-amplitude front leg.
	outs := feedMotionExcept(t, s, start.Add(10*time.Second), 4.2, "imu-2")

	var partial *domain.SymmetryResult
	for _, out := range outs {
		if out.Symmetry != nil && out.Symmetry.Partial {
			partial = out.Symmetry
		}
	}
	if partial == nil {
		t.Fatal("expected a partial symmetry result with a silenced sensor")
	}
	if partial.Scores != (domain.SymmetryScores{}) {
		t.Fatalf("partial window must not carry pair scores, got %+v", partial.Scores)
	}
	if _, ok := partial.Amplitudes[domain.FrontRight]; ok {
		t.Fatal("silenced leg must not appear in amplitudes")
	}
}

func TestSessionPiggybackedRRKeepsMotionStream(t *testing.T) {
	s, _ := newTestSession()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	specs := trotSpecs()

	// imu-1 reports an R-R interval on every message. Those readings must
	// still count toward the motion window or the sensor starves
	// calibration.
	var sawSymmetry, sawHRV bool
	for i := 0; i < 1220; i++ {
		ts := start.Add(time.Duration(i) * 10 * time.Millisecond)
		for id, spec := range specs {
			phi := 2*math.Pi*0.8*float64(i)/100 + spec.phase
			r := &domain.SensorReading{
				HorseID:   "thunder",
				SensorID:  id,
				Timestamp: ts,
				AccelX:    spec.latSign * spec.latAmp * math.Cos(phi),
				AccelY:    spec.fwdAmp * math.Sin(2*phi),
				AccelZ:    spec.vertAmp * math.Sin(phi),
			}
			if id == "imu-1" {
				r.RRIntervalMS = 600 + 60*math.Sin(phi)
			}
			out, err := s.Ingest(ctx, r)
			if err != nil {
				t.Fatalf("ingest at %s: %v", ts, err)
			}
			if out.Symmetry != nil {
				sawSymmetry = true
			}
			if out.HRV != nil {
				sawHRV = true
			}
		}
	}

	if s.CalibrationState() != calibrate.StateCalibrated {
		t.Fatalf("piggybacked R-R must not starve calibration, got %s", s.CalibrationState())
	}
	if !sawSymmetry {
		t.Fatal("expected symmetry windows despite piggybacked R-R data")
	}
	if !sawHRV {
		t.Fatal("expected an HRV window from the piggybacked intervals")
	}
}

func TestSessionHRVWindowProducesStressAndBond(t *testing.T) {
	s, _ := newTestSession()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var hrvOut *Output
	ts := start
	for i := 0; i < 40; i++ {
		rr := 600.0
		if i%2 == 1 {
			rr = 660
		}
		ts = ts.Add(time.Duration(rr) * time.Millisecond)
		out, err := s.Ingest(ctx, &domain.SensorReading{
			HorseID: "thunder", SensorID: "hrm-1", Timestamp: ts, RRIntervalMS: rr,
		})
		if err != nil {
			t.Fatalf("ingest rr: %v", err)
		}
		if out.HRV != nil {
			hrvOut = out
		}
	}

	if hrvOut == nil {
		t.Fatal("25 s of R-R data should close a 10 s window")
	}
	if hrvOut.HRV.SamplesUsed == 0 || hrvOut.HRV.Scorer != "local-formula" {
		t.Fatalf("unexpected hrv result: %+v", hrvOut.HRV)
	}
	if hrvOut.Bond == nil {
		t.Fatal("hrv window must update the bond score")
	}
	if hrvOut.Bond.Score < 0 || hrvOut.Bond.Score > 100 {
		t.Fatalf("bond out of range: %.1f", hrvOut.Bond.Score)
	}
	if len(s.HRVHistory()) == 0 {
		t.Fatal("hrv history should retain the result")
	}
}

func TestSessionFlushClosesOpenWindows(t *testing.T) {
	s, _ := newTestSession()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Calibrate first, then leave a partially filled window behind.
	feedMotion(t, s, start, 4.2)
	out := s.Flush(ctx)
	if out.Symmetry == nil {
		t.Fatal("flush should analyze the open gait window")
	}
}

func TestSessionRecalibrateReopens(t *testing.T) {
	s, _ := newTestSession()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	feedMotion(t, s, start, 4.2)

	if s.CalibrationState() != calibrate.StateCalibrated {
		t.Fatalf("precondition: expected calibrated, got %s", s.CalibrationState())
	}
	s.Recalibrate()
	if s.CalibrationState() != calibrate.StateRecalibrating {
		t.Fatalf("expected recalibrating, got %s", s.CalibrationState())
	}
	// The previous assignment stays in effect meanwhile.
	if s.Assignment() == nil {
		t.Fatal("assignment must survive recalibration")
	}

	// Gait analysis keeps running on the prior assignment while the
	// calibrator converges again.
	outs := feedMotion(t, s, start.Add(5*time.Second), 2.2)
	var scored bool
	for _, out := range outs {
		if out.Symmetry != nil {
			scored = true
		}
	}
	if !scored {
		t.Fatal("expected symmetry results during recalibration")
	}
}

func TestManagerCreatesSessionsLazily(t *testing.T) {
	obs := newRecordObs()
	m := NewManager(Config{}, gait.NewLocalScorer(gait.Config{}), hrv.NewLocalScorer(hrv.Config{}), obs)
	ctx := context.Background()

	if ids := m.HorseIDs(); len(ids) != 0 {
		t.Fatalf("fresh manager should have no sessions, got %v", ids)
	}

	ts := time.Now()
	for _, horse := range []string{"breeze", "thunder", "breeze"} {
		if _, err := m.Ingest(ctx, &domain.SensorReading{
			HorseID: horse, SensorID: "imu-1", Timestamp: ts, AccelZ: 1,
		}); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	ids := m.HorseIDs()
	if len(ids) != 2 || ids[0] != "breeze" || ids[1] != "thunder" {
		t.Fatalf("expected sessions for breeze and thunder, got %v", ids)
	}
	if _, ok := m.Lookup("thunder"); !ok {
		t.Fatal("lookup should find the thunder session")
	}
	if _, ok := m.Lookup("ghost"); ok {
		t.Fatal("lookup must not create sessions")
	}
}

func TestManagerDropsMalformedReadings(t *testing.T) {
	obs := newRecordObs()
	m := NewManager(Config{}, gait.NewLocalScorer(gait.Config{}), hrv.NewLocalScorer(hrv.Config{}), obs)
	ctx := context.Background()

	out, err := m.Ingest(ctx, &domain.SensorReading{
		HorseID: "thunder", SensorID: "imu-1", Timestamp: time.Now(), AccelZ: math.NaN(),
	})
	if err != nil || out != nil {
		t.Fatalf("malformed reading should be dropped silently, got %v, %v", out, err)
	}
	if obs.dropped("malformed") != 1 {
		t.Fatalf("expected one malformed drop, got %d", obs.dropped("malformed"))
	}

	if _, err := m.Ingest(ctx, &domain.SensorReading{
		SensorID: "imu-1", Timestamp: time.Now(), AccelZ: 1,
	}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if obs.dropped("missing horse id") != 1 {
		t.Fatal("expected a missing-horse-id drop")
	}
	if len(m.HorseIDs()) != 0 {
		t.Fatal("dropped readings must not open sessions")
	}
}
