// Package mqttcollector consumes sensor telemetry from an MQTT broker.
// Pasture and barn deployments publish over MQTT where no Kafka cluster
// is reachable from the gateway.
package mqttcollector

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// Config for the MQTT subscription. Topic usually carries a wildcard,
// e.g. "equinesync/+/telemetry" with one level per horse.
type Config struct {
	BrokerURL      string
	ClientID       string
	Topic          string
	QoS            byte
	ConnectTimeout time.Duration
}

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "equinesync-ingest"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// Collector subscribes to the telemetry topic and forwards decoded
// readings. One JSON SensorReading per message.
type Collector struct {
	cfg Config
	obs ports.Observability

	mu      sync.Mutex
	client  mqtt.Client
	started bool
}

func New(cfg Config, obs ports.Observability) *Collector {
	cfg.ApplyDefaults()
	return &Collector{cfg: cfg, obs: obs}
}

// NewWithClient injects a connected client; used by tests.
func NewWithClient(cfg Config, obs ports.Observability, client mqtt.Client) *Collector {
	cfg.ApplyDefaults()
	return &Collector{cfg: cfg, obs: obs, client: client}
}

func (c *Collector) Start(out chan<- *domain.SensorReading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("mqtt collector already started")
	}

	if c.client == nil {
		if c.cfg.BrokerURL == "" {
			return errors.New("no mqtt broker configured")
		}
		opts := mqtt.NewClientOptions().
			AddBroker(c.cfg.BrokerURL).
			SetClientID(c.cfg.ClientID).
			SetConnectTimeout(c.cfg.ConnectTimeout).
			SetAutoReconnect(true)
		c.client = mqtt.NewClient(opts)
		token := c.client.Connect()
		if !token.WaitTimeout(c.cfg.ConnectTimeout) {
			return fmt.Errorf("mqtt connect to %s timed out", c.cfg.BrokerURL)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var r domain.SensorReading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			c.obs.RecordDrop(nil, "undecodable")
			return
		}
		out <- &r
	}
	token := c.client.Subscribe(c.cfg.Topic, c.cfg.QoS, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", c.cfg.Topic, err)
	}

	c.started = true
	c.obs.LogInfo("mqtt collector subscribed",
		ports.Field{Key: "topic", Value: c.cfg.Topic})
	return nil
}

func (c *Collector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	token := c.client.Unsubscribe(c.cfg.Topic)
	token.Wait()
	c.client.Disconnect(250)
	c.started = false
	return token.Error()
}

var _ ports.Collector = (*Collector)(nil)
