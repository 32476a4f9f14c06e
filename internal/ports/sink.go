package ports

import (
	"context"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

// ResultSink consumes analysis results for any downstream system
// (time-series store, message topic, ...). A nil-safe no-op sink is valid.
type ResultSink interface {
	WriteSymmetry(ctx context.Context, res *domain.SymmetryResult) error
	WriteHRV(ctx context.Context, res *domain.HRVResult) error
	WriteLegHealth(ctx context.Context, health []domain.LegHealth) error
	Name() string
}

// AlertSink consumes the append-only alert stream. Delivery to notification
// channels happens here, never inside the alert engine.
type AlertSink interface {
	Publish(ctx context.Context, alert *domain.Alert) error
	Name() string
}
