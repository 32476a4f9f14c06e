// Package kafkabus connects the pipeline to Kafka: a collector consuming
// the raw telemetry topic and publishers for results and alerts.
package kafkabus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// CollectorConfig groups the Kafka consumption settings for raw telemetry.
type CollectorConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Collector consumes sensor readings from the telemetry topic and feeds
// them to the pipeline channel. One JSON SensorReading per message.
type Collector struct {
	cfg    CollectorConfig
	obs    ports.Observability
	reader messageReader

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewCollector(cfg CollectorConfig, obs ports.Observability) *Collector {
	return &Collector{cfg: cfg, obs: obs}
}

// newReader is split out so tests can inject a fake.
func (c *Collector) newReader() messageReader {
	if c.reader != nil {
		return c.reader
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		GroupID:     c.cfg.GroupID,
		GroupTopics: []string{c.cfg.Topic},
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
}

func (c *Collector) Start(out chan<- *domain.SensorReading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("kafka collector already started")
	}
	if len(c.cfg.Brokers) == 0 && c.reader == nil {
		return errors.New("no kafka brokers configured")
	}

	reader := c.newReader()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.started = true

	go func() {
		defer close(c.done)
		defer reader.Close()
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.obs.LogError("kafka read failed", err,
					ports.Field{Key: "topic", Value: c.cfg.Topic})
				return
			}
			var r domain.SensorReading
			if err := json.Unmarshal(msg.Value, &r); err != nil {
				c.obs.RecordDrop(nil, "undecodable")
				continue
			}
			select {
			case out <- &r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (c *Collector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.cancel()
	<-c.done
	c.started = false
	return nil
}

var _ ports.Collector = (*Collector)(nil)
