package gait

import (
	"context"
	"math"
	"testing"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

func sine(freqHz, amp, rateHz float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / rateHz
		out[i] = amp * math.Sin(2*math.Pi*freqHz*t)
	}
	return out
}

func TestScoreSymmetryBounds(t *testing.T) {
	s := NewLocalScorer(Config{})

	quadruples := []map[domain.LegLabel]float64{
		{domain.FrontLeft: 0, domain.FrontRight: 0, domain.BackLeft: 0, domain.BackRight: 0},
		{domain.FrontLeft: 100, domain.FrontRight: 0, domain.BackLeft: 100, domain.BackRight: 0},
		{domain.FrontLeft: 250, domain.FrontRight: 10, domain.BackLeft: 0, domain.BackRight: 300},
		{domain.FrontLeft: 98.5, domain.FrontRight: 100.2, domain.BackLeft: 97.8, domain.BackRight: 99.1},
	}

	for _, amps := range quadruples {
		scores, err := s.ScoreSymmetry(context.Background(), amps)
		if err != nil {
			t.Fatalf("score: %v", err)
		}
		for name, v := range map[string]float64{
			"front": scores.Front, "hind": scores.Hind,
			"diagonal": scores.Diagonal, "total": scores.Total,
		} {
			if v < 0 || v > 100 {
				t.Fatalf("S_%s = %f out of [0,100] for %v", name, v, amps)
			}
		}
	}
}

func TestScoreSymmetryIdenticalAmplitudes(t *testing.T) {
	s := NewLocalScorer(Config{})
	amps := map[domain.LegLabel]float64{
		domain.FrontLeft: 97.3, domain.FrontRight: 97.3,
		domain.BackLeft: 97.3, domain.BackRight: 97.3,
	}
	scores, err := s.ScoreSymmetry(context.Background(), amps)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scores.Total != 100 {
		t.Fatalf("identical amplitudes must give S_total = 100, got %f", scores.Total)
	}
}

func TestScoreSymmetryScenarioA(t *testing.T) {
	s := NewLocalScorer(Config{})
	amps := map[domain.LegLabel]float64{
		domain.FrontLeft: 98.5, domain.FrontRight: 100.2,
		domain.BackLeft: 97.8, domain.BackRight: 99.1,
	}
	scores, err := s.ScoreSymmetry(context.Background(), amps)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(scores.Total-98.5) > 0.2 {
		t.Fatalf("expected S_total near 98.5, got %f", scores.Total)
	}
}

func TestDominantFrequencyWalkSine(t *testing.T) {
	series := sine(0.8, 1.2, 100, 200) // 2 s window at 100 Hz
	freq := DominantFrequency(series, 100)
	if math.Abs(freq-0.8) > 0.3 {
		t.Fatalf("expected dominant frequency near 0.8 Hz, got %f", freq)
	}
	if g := ClassifyGait(freq); g != domain.GaitWalk {
		t.Fatalf("expected walk, got %s", g)
	}
}

func TestClassifyGaitBands(t *testing.T) {
	cases := []struct {
		freq float64
		want domain.GaitClass
	}{
		{0.1, domain.GaitStand},
		{0.5, domain.GaitWalk},
		{1.4, domain.GaitTrot},
		{2.0, domain.GaitCanter},
		{3.0, domain.GaitGallop},
	}
	for _, c := range cases {
		if got := ClassifyGait(c.freq); got != c.want {
			t.Fatalf("ClassifyGait(%f) = %s, want %s", c.freq, got, c.want)
		}
	}
}

func TestExtractMarksPartialWindows(t *testing.T) {
	a := NewAnalyzer(Config{})
	vert := map[domain.LegLabel][]float64{
		domain.FrontLeft:  sine(0.8, 1.2, 100, 200),
		domain.FrontRight: sine(0.8, 1.2, 100, 200),
		domain.BackLeft:   sine(0.8, 1.1, 100, 200),
		// BR missing
	}
	f := a.Extract(vert)
	if !f.Partial {
		t.Fatalf("missing leg must mark features partial")
	}
	if _, ok := f.Amplitudes[domain.BackRight]; ok {
		t.Fatalf("absent leg must not get a fabricated amplitude")
	}
}

func TestExtractFullWindow(t *testing.T) {
	a := NewAnalyzer(Config{})
	vert := make(map[domain.LegLabel][]float64, 4)
	for _, leg := range domain.Legs {
		vert[leg] = sine(0.8, 1.2, 100, 200)
	}
	f := a.Extract(vert)
	if f.Partial {
		t.Fatalf("full window must not be partial")
	}
	if f.Gait != domain.GaitWalk {
		t.Fatalf("expected walk at 0.8 Hz, got %s", f.Gait)
	}
	// Peak of a 1.2 g sine sits near 1.2 g, i.e. near 100% of baseline.
	if math.Abs(f.Amplitudes[domain.FrontLeft]-100) > 5 {
		t.Fatalf("expected amplitude near 100%%, got %f", f.Amplitudes[domain.FrontLeft])
	}
}
