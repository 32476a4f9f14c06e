package ports

import (
	"context"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

// SymmetryScorer produces pairwise symmetry scores from per-leg amplitudes.
// Implementations may be the local formulas or a remote inference service;
// both satisfy the same output contract.
type SymmetryScorer interface {
	ScoreSymmetry(ctx context.Context, amplitudes map[domain.LegLabel]float64) (domain.SymmetryScores, error)
	Name() string
}

// StressScorer grades a filtered R-R interval series.
type StressScorer interface {
	ScoreStress(ctx context.Context, rrIntervalsMS []float64) (domain.StressAssessment, error)
	Name() string
}
