package ws

import (
	"context"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// Event names used on the wire.
const (
	EventSymmetry  = "symmetry"
	EventHRV       = "hrv"
	EventLegHealth = "leg_health"
	EventAlert     = "alert"
)

// Sink pushes every written result and alert to the hub's clients.
type Sink struct {
	hub *Hub
}

func NewSink(hub *Hub) *Sink { return &Sink{hub: hub} }

func (s *Sink) Name() string { return "websocket" }

func (s *Sink) WriteSymmetry(ctx context.Context, res *domain.SymmetryResult) error {
	if res != nil {
		s.hub.Broadcast(EventSymmetry, res)
	}
	return nil
}

func (s *Sink) WriteHRV(ctx context.Context, res *domain.HRVResult) error {
	if res != nil {
		s.hub.Broadcast(EventHRV, res)
	}
	return nil
}

func (s *Sink) WriteLegHealth(ctx context.Context, health []domain.LegHealth) error {
	if len(health) > 0 {
		s.hub.Broadcast(EventLegHealth, health)
	}
	return nil
}

func (s *Sink) Publish(ctx context.Context, alert *domain.Alert) error {
	if alert != nil {
		s.hub.Broadcast(EventAlert, alert)
	}
	return nil
}

var (
	_ ports.ResultSink = (*Sink)(nil)
	_ ports.AlertSink  = (*Sink)(nil)
)
