package domain

import "time"

// GaitClass is the categorical movement type inferred from stride frequency.
type GaitClass string

const (
	GaitStand   GaitClass = "stand"
	GaitWalk    GaitClass = "walk"
	GaitTrot    GaitClass = "trot"
	GaitCanter  GaitClass = "canter"
	GaitGallop  GaitClass = "gallop"
	GaitUnknown GaitClass = "unknown"
)

// SymmetryScores groups the four pairwise scores on a 0-100 scale.
type SymmetryScores struct {
	Front    float64 `json:"symmetry_front"`
	Hind     float64 `json:"symmetry_hind"`
	Diagonal float64 `json:"symmetry_diagonal"`
	Total    float64 `json:"symmetry_total"`
}

// SymmetryResult is the outcome of analyzing one closed gait window.
// Partial marks a window where at least one leg reported no data; such
// results are published but excluded from asymmetry debouncing.
type SymmetryResult struct {
	HorseID      string               `json:"horse_id"`
	Timestamp    time.Time            `json:"ts"`
	Scores       SymmetryScores       `json:"scores"`
	Gait         GaitClass            `json:"gait_type"`
	StrideFreqHz float64              `json:"stride_frequency_hz"`
	Amplitudes   map[LegLabel]float64 `json:"amplitudes"`
	Partial      bool                 `json:"partial"`
	Scorer       string               `json:"scorer"`
}

// Band grades a single HRV metric against its thresholds.
type Band string

const (
	BandGood    Band = "good"
	BandWarning Band = "warning"
	BandAlert   Band = "alert"
)

// StressLevel is the overall stress grade derived from the per-metric bands.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
	StressCritical StressLevel = "critical"
)

// StressAssessment is the scored portion of an HRV window, produced either
// by the local formulas or by the remote inference service.
type StressAssessment struct {
	SDNN        float64     `json:"sdnn"`
	RMSSD       float64     `json:"rmssd"`
	PNN50       float64     `json:"pnn50"`
	SDNNBand    Band        `json:"sdnn_band"`
	RMSSDBand   Band        `json:"rmssd_band"`
	PNN50Band   Band        `json:"pnn50_band"`
	Level       StressLevel `json:"stress_level"`
	StressScore int         `json:"stress_score"`
}

// AnyAlertBand reports whether any of the three metrics fell into the
// alert band.
func (s StressAssessment) AnyAlertBand() bool {
	return s.SDNNBand == BandAlert || s.RMSSDBand == BandAlert || s.PNN50Band == BandAlert
}

// HRVResult is the outcome of analyzing one closed R-R window.
type HRVResult struct {
	HorseID        string           `json:"horse_id"`
	Timestamp      time.Time        `json:"ts"`
	Stress         StressAssessment `json:"stress"`
	EmotionalState string           `json:"emotional_state"`
	SamplesUsed    int              `json:"samples_used"`
	SamplesDropped int              `json:"samples_dropped"`
	Scorer         string           `json:"scorer"`
}

// LegHealth is the per-leg composite score recomputed every gait window.
type LegHealth struct {
	HorseID              string    `json:"horse_id"`
	Leg                  LegLabel  `json:"leg"`
	Score                float64   `json:"score"`
	DeductionVariability float64   `json:"deduction_variability"`
	DeductionFrequency   float64   `json:"deduction_frequency"`
	DeductionDeviation   float64   `json:"deduction_deviation"`
	Timestamp            time.Time `json:"ts"`
}

// BondState tracks partnership quality over a session. StressOnset is the
// zero time while no stress episode is active.
type BondState struct {
	Score       float64   `json:"score"`
	StressOnset time.Time `json:"stress_onset,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StressActive reports whether a stress episode is currently open.
func (b *BondState) StressActive() bool {
	return b != nil && !b.StressOnset.IsZero()
}
