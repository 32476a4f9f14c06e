package kafkabus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

type fakeReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) Close() error { return nil }

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)                {}
func (nopObs) LogError(string, error, ...ports.Field)        {}
func (nopObs) LogCritical(string, error, ...ports.Field)     {}
func (nopObs) IncCounter(string, float64)                    {}
func (nopObs) ObserveLatency(string, float64)                {}
func (nopObs) SetGauge(string, float64)                      {}
func (nopObs) RecordDrop(*domain.SensorReading, string)      {}

func TestCollectorDecodesAndForwards(t *testing.T) {
	reading := domain.SensorReading{
		HorseID: "thunder", SensorID: "imu-1",
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), AccelZ: 1.2,
	}
	payload, _ := json.Marshal(reading)

	c := NewCollector(CollectorConfig{Topic: "equine-telemetry"}, nopObs{})
	c.reader = &fakeReader{msgs: []kafka.Message{
		{Value: payload},
		{Value: []byte("not json")},
	}}

	out := make(chan *domain.SensorReading, 4)
	if err := c.Start(out); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	select {
	case got := <-out:
		if got.HorseID != "thunder" || got.AccelZ != 1.2 {
			t.Fatalf("unexpected reading: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded reading")
	}

	select {
	case got := <-out:
		t.Fatalf("undecodable message must be dropped, got %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCollectorStartIsGuarded(t *testing.T) {
	c := NewCollector(CollectorConfig{}, nopObs{})
	c.reader = &fakeReader{}
	out := make(chan *domain.SensorReading)
	if err := c.Start(out); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(out); err == nil {
		t.Fatal("second start must fail")
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second stop should be a no-op, got %v", err)
	}
}

func TestPublisherRoutesStreamsByTopic(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(PublisherConfig{
		GaitTopic:   "gait-analysis",
		HRVTopic:    "hrv-metrics",
		AlertsTopic: "alerts",
	}, w)
	ctx := context.Background()

	if err := p.WriteSymmetry(ctx, &domain.SymmetryResult{HorseID: "thunder"}); err != nil {
		t.Fatalf("write symmetry: %v", err)
	}
	if err := p.WriteHRV(ctx, &domain.HRVResult{HorseID: "thunder"}); err != nil {
		t.Fatalf("write hrv: %v", err)
	}
	if err := p.Publish(ctx, &domain.Alert{ID: "a-1", HorseID: "breeze"}); err != nil {
		t.Fatalf("publish alert: %v", err)
	}
	// HealthTopic unset: silently skipped.
	if err := p.WriteLegHealth(ctx, []domain.LegHealth{{Leg: domain.FrontLeft}}); err != nil {
		t.Fatalf("write leg health: %v", err)
	}

	if len(w.msgs) != 3 {
		t.Fatalf("expected 3 published messages, got %d", len(w.msgs))
	}
	if w.msgs[0].Topic != "gait-analysis" || string(w.msgs[0].Key) != "thunder" {
		t.Fatalf("unexpected gait message: %+v", w.msgs[0])
	}
	if w.msgs[2].Topic != "alerts" || string(w.msgs[2].Key) != "breeze" {
		t.Fatalf("unexpected alert message: %+v", w.msgs[2])
	}

	var alert domain.Alert
	if err := json.Unmarshal(w.msgs[2].Value, &alert); err != nil || alert.ID != "a-1" {
		t.Fatalf("alert payload roundtrip failed: %v %+v", err, alert)
	}
}

func TestPublisherKeysLegHealthByHorse(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(PublisherConfig{HealthTopic: "leg-health"}, w)
	ctx := context.Background()

	// Two horses reporting the same leg must land on different keys so
	// each horse's stream keeps partition order.
	batches := [][]domain.LegHealth{
		{{HorseID: "thunder", Leg: domain.FrontLeft, Score: 94}},
		{{HorseID: "breeze", Leg: domain.FrontLeft, Score: 88}},
	}
	for _, h := range batches {
		if err := p.WriteLegHealth(ctx, h); err != nil {
			t.Fatalf("write leg health: %v", err)
		}
	}

	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 published messages, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "thunder" || string(w.msgs[1].Key) != "breeze" {
		t.Fatalf("leg health must be keyed by horse, got %q and %q", w.msgs[0].Key, w.msgs[1].Key)
	}
}
