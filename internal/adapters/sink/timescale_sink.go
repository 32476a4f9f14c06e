package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// TimescaleSink persists analysis results into TimescaleDB hypertables.
// All writes are idempotent via ON CONFLICT DO NOTHING so replays after a
// crash never duplicate rows.
type TimescaleSink struct {
	db *sql.DB
}

func NewTimescaleSink(db *sql.DB) *TimescaleSink {
	return &TimescaleSink{db: db}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) WriteSymmetry(ctx context.Context, res *domain.SymmetryResult) error {
	if res == nil {
		return nil
	}
	amps, err := json.Marshal(res.Amplitudes)
	if err != nil {
		return fmt.Errorf("marshal amplitudes: %w", err)
	}
	_, err = t.db.ExecContext(ctx,
		`INSERT INTO gait_results (horse_id, ts, gait_type, stride_frequency_hz, symmetry_front, symmetry_hind, symmetry_diagonal, symmetry_total, amplitudes, partial, scorer)`+
			` VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`+
			` ON CONFLICT (horse_id, ts) DO NOTHING`,
		res.HorseID, res.Timestamp, string(res.Gait), res.StrideFreqHz,
		res.Scores.Front, res.Scores.Hind, res.Scores.Diagonal, res.Scores.Total,
		amps, res.Partial, res.Scorer)
	return err
}

func (t *TimescaleSink) WriteHRV(ctx context.Context, res *domain.HRVResult) error {
	if res == nil {
		return nil
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO hrv_results (horse_id, ts, sdnn, rmssd, pnn50, stress_level, stress_score, emotional_state, samples_used, samples_dropped, scorer)`+
			` VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`+
			` ON CONFLICT (horse_id, ts) DO NOTHING`,
		res.HorseID, res.Timestamp, res.Stress.SDNN, res.Stress.RMSSD, res.Stress.PNN50,
		string(res.Stress.Level), res.Stress.StressScore, res.EmotionalState,
		res.SamplesUsed, res.SamplesDropped, res.Scorer)
	return err
}

func (t *TimescaleSink) WriteLegHealth(ctx context.Context, health []domain.LegHealth) error {
	if len(health) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO leg_health (horse_id, leg, ts, score, deduction_variability, deduction_frequency, deduction_deviation) VALUES ")

	args := make([]any, 0, len(health)*7)
	for i, h := range health {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6, len(args)+7))
		args = append(args,
			h.HorseID,
			string(h.Leg),
			h.Timestamp,
			h.Score,
			h.DeductionVariability,
			h.DeductionFrequency,
			h.DeductionDeviation,
		)
	}

	b.WriteString(" ON CONFLICT (horse_id, leg, ts) DO NOTHING")

	_, err := t.db.ExecContext(ctx, b.String(), args...)
	return err
}

// Publish appends one alert row. Alerts are append-only; the unique id
// makes redelivery harmless.
func (t *TimescaleSink) Publish(ctx context.Context, alert *domain.Alert) error {
	if alert == nil {
		return nil
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO alerts (alert_id, horse_id, ts, alert_type, severity, affected_leg, metric_value, threshold, message, recommendation)`+
			` VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`+
			` ON CONFLICT (alert_id) DO NOTHING`,
		alert.ID, alert.HorseID, alert.Timestamp, string(alert.Type), string(alert.Severity),
		alert.Leg, alert.Value, alert.Threshold, alert.Message, alert.Recommendation)
	return err
}

var (
	_ ports.ResultSink = (*TimescaleSink)(nil)
	_ ports.AlertSink  = (*TimescaleSink)(nil)
)
