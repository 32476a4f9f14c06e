package kafkabus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// PublisherConfig names the downstream topics. Empty topics disable their
// stream.
type PublisherConfig struct {
	Brokers      []string
	GaitTopic    string
	HRVTopic     string
	HealthTopic  string
	AlertsTopic  string
	RequiredAcks int
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher fans analysis results out to per-stream Kafka topics, keyed
// by horse so one horse's results stay ordered within a partition.
type Publisher struct {
	cfg    PublisherConfig
	writer messageWriter
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	return &Publisher{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		},
	}
}

// NewPublisherWithWriter injects a writer; used by tests.
func NewPublisherWithWriter(cfg PublisherConfig, w messageWriter) *Publisher {
	return &Publisher{cfg: cfg, writer: w}
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) publish(ctx context.Context, topic, key string, v any) error {
	if topic == "" {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
	})
}

func (p *Publisher) WriteSymmetry(ctx context.Context, res *domain.SymmetryResult) error {
	if res == nil {
		return nil
	}
	return p.publish(ctx, p.cfg.GaitTopic, res.HorseID, res)
}

func (p *Publisher) WriteHRV(ctx context.Context, res *domain.HRVResult) error {
	if res == nil {
		return nil
	}
	return p.publish(ctx, p.cfg.HRVTopic, res.HorseID, res)
}

func (p *Publisher) WriteLegHealth(ctx context.Context, health []domain.LegHealth) error {
	if len(health) == 0 {
		return nil
	}
	return p.publish(ctx, p.cfg.HealthTopic, health[0].HorseID, health)
}

func (p *Publisher) Publish(ctx context.Context, alert *domain.Alert) error {
	if alert == nil {
		return nil
	}
	return p.publish(ctx, p.cfg.AlertsTopic, alert.HorseID, alert)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error { return p.writer.Close() }

var (
	_ ports.ResultSink = (*Publisher)(nil)
	_ ports.AlertSink  = (*Publisher)(nil)
)
