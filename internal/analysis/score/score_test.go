package score

import (
	"testing"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/gait"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

func steadyFeatures(amp float64) gait.Features {
	f := gait.Features{
		Amplitudes: make(map[domain.LegLabel]float64, 4),
		PeakAccelG: make(map[domain.LegLabel]float64, 4),
		StrideStd:  make(map[domain.LegLabel]float64, 4),
		StrideFreq: 0.8,
		Gait:       domain.GaitWalk,
	}
	for _, leg := range domain.Legs {
		f.Amplitudes[leg] = amp
		f.PeakAccelG[leg] = 1.4
		f.StrideStd[leg] = 0.04
	}
	return f
}

func TestHealthyLegsScoreNearHundred(t *testing.T) {
	tr := NewTracker(Config{WarmupWindows: 3})
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var last []domain.LegHealth
	for i := 0; i < 6; i++ {
		last = tr.ObserveGait(steadyFeatures(98), at.Add(time.Duration(i)*2*time.Second))
	}
	if len(last) != 4 {
		t.Fatalf("expected 4 leg scores after warmup, got %d", len(last))
	}
	for _, h := range last {
		if h.Score < 99 {
			t.Fatalf("steady gait should keep %s near 100, got %.1f", h.Leg, h.Score)
		}
	}
}

func TestWarmupWithholdsScores(t *testing.T) {
	tr := NewTracker(Config{WarmupWindows: 4})
	at := time.Now()
	for i := 0; i < 3; i++ {
		if got := tr.ObserveGait(steadyFeatures(98), at); got != nil {
			t.Fatalf("window %d: warmup must not emit scores, got %v", i, got)
		}
	}
}

func TestPartialWindowSkipsBaseline(t *testing.T) {
	tr := NewTracker(Config{WarmupWindows: 2})
	at := time.Now()
	f := steadyFeatures(98)
	f.Partial = true
	for i := 0; i < 10; i++ {
		if got := tr.ObserveGait(f, at); got != nil {
			t.Fatal("partial windows must not produce scores")
		}
	}
	if tr.Warm() {
		t.Fatal("partial windows must not advance warmup")
	}
}

func TestDeductionsCapAndClamp(t *testing.T) {
	tr := NewTracker(Config{WarmupWindows: 2})
	at := time.Now()
	for i := 0; i < 4; i++ {
		tr.ObserveGait(steadyFeatures(98), at)
	}

	bad := steadyFeatures(98)
	bad.Amplitudes[domain.FrontLeft] = 10 // collapsed loading
	bad.StrideStd[domain.FrontLeft] = 2.0
	bad.StrideFreq = 2.4

	scores := tr.ObserveGait(bad, at)
	if len(scores) != 4 {
		t.Fatalf("expected 4 scores, got %d", len(scores))
	}
	var fl domain.LegHealth
	for _, h := range scores {
		if h.Leg == domain.FrontLeft {
			fl = h
		}
		if h.Score < 0 || h.Score > 100 {
			t.Fatalf("%s score out of range: %.1f", h.Leg, h.Score)
		}
	}
	if fl.DeductionVariability != 40 {
		t.Fatalf("variability deduction should hit its cap, got %.1f", fl.DeductionVariability)
	}
	if fl.DeductionFrequency != 30 {
		t.Fatalf("frequency deduction should hit its cap, got %.1f", fl.DeductionFrequency)
	}
	if fl.DeductionDeviation <= 0 || fl.DeductionDeviation > 30 {
		t.Fatalf("deviation deduction outside (0,30]: %.1f", fl.DeductionDeviation)
	}
	if fl.Score != 100-fl.DeductionVariability-fl.DeductionFrequency-fl.DeductionDeviation {
		t.Fatalf("score must equal 100 minus deductions, got %.1f", fl.Score)
	}
}

func TestLowerStrideVarianceDeductsNothing(t *testing.T) {
	tr := NewTracker(Config{WarmupWindows: 2})
	at := time.Now()
	for i := 0; i < 3; i++ {
		tr.ObserveGait(steadyFeatures(98), at)
	}
	calm := steadyFeatures(98)
	for _, leg := range domain.Legs {
		calm.StrideStd[leg] = 0.01
	}
	for _, h := range tr.ObserveGait(calm, at) {
		if h.DeductionVariability != 0 {
			t.Fatalf("steadier stride must not be penalised, got %.2f", h.DeductionVariability)
		}
	}
}

func calmAssessment(sdnn float64) domain.StressAssessment {
	return domain.StressAssessment{
		SDNN: sdnn, RMSSD: 55, PNN50: 8,
		SDNNBand: domain.BandGood, RMSSDBand: domain.BandGood, PNN50Band: domain.BandGood,
		Level: domain.StressLow, StressScore: 20,
	}
}

func stressedAssessment() domain.StressAssessment {
	return domain.StressAssessment{
		SDNN: 22, RMSSD: 15, PNN50: 0.4,
		SDNNBand: domain.BandAlert, RMSSDBand: domain.BandAlert, PNN50Band: domain.BandAlert,
		Level: domain.StressCritical, StressScore: 90,
	}
}

func TestBondStaysAtBaseWhenCalm(t *testing.T) {
	tr := NewTracker(Config{})
	at := time.Now()
	b := tr.ObserveStress(calmAssessment(50), false, at)
	if b.Score != 75 {
		t.Fatalf("SDNN at reference should hold the base bond, got %.1f", b.Score)
	}
	if b.StressActive() {
		t.Fatal("calm window should not open a stress episode")
	}
}

func TestBondDecaysUnderSustainedStress(t *testing.T) {
	tr := NewTracker(Config{})
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	prev := tr.ObserveStress(stressedAssessment(), false, at)
	if !prev.StressActive() {
		t.Fatal("alert-band window must open a stress episode")
	}
	for i := 1; i <= 20; i++ {
		b := tr.ObserveStress(stressedAssessment(), false, at.Add(time.Duration(i)*10*time.Second))
		if b.Score > prev.Score {
			t.Fatalf("bond rose from %.2f to %.2f under sustained stress", prev.Score, b.Score)
		}
		if b.Score < 0 || b.Score > 100 {
			t.Fatalf("bond out of range: %.2f", b.Score)
		}
		prev = b
	}
}

func TestAsymmetryAlertOpensStressEpisode(t *testing.T) {
	tr := NewTracker(Config{})
	b := tr.ObserveStress(calmAssessment(50), true, time.Now())
	if !b.StressActive() {
		t.Fatal("active asymmetry alert must open a stress episode")
	}
}

func TestCalmWindowClosesEpisodeAndRecoversSlowly(t *testing.T) {
	tr := NewTracker(Config{})
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		tr.ObserveStress(stressedAssessment(), false, at.Add(time.Duration(i)*10*time.Second))
	}
	low := tr.Bond().Score

	b := tr.ObserveStress(calmAssessment(60), false, at.Add(310*time.Second))
	if b.StressActive() {
		t.Fatal("one fully calm window should close the episode")
	}
	b2 := tr.ObserveStress(calmAssessment(60), false, at.Add(320*time.Second))
	if b2.Score <= low {
		t.Fatalf("bond should recover after stress clears: %.2f -> %.2f", low, b2.Score)
	}
	if b2.Score > b.Score+1 {
		t.Fatalf("recovery should be gradual, jumped %.2f -> %.2f", b.Score, b2.Score)
	}
}
