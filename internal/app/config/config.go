// Package config loads and validates the edge node configuration from a
// YAML file. Analysis thresholds may be hot-reloaded through Watch.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/session"
)

type Config struct {
	Kafka     KafkaConfig     `yaml:"kafka"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	API       APIConfig       `yaml:"api"`
	WAL       WALConfig       `yaml:"wal"`
	Policy    ports.Policy    `yaml:"policy"`
	Inference InferenceConfig `yaml:"inference"`
	Slack     SlackConfig     `yaml:"slack"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

// KafkaConfig covers both the telemetry source and the result topics.
// Empty Brokers disables the Kafka transport entirely.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	GroupID     string   `yaml:"group_id"`
	GaitTopic   string   `yaml:"gait_topic"`
	HRVTopic    string   `yaml:"hrv_topic"`
	HealthTopic string   `yaml:"health_topic"`
	AlertsTopic string   `yaml:"alerts_topic"`
}

// MQTTConfig covers the broker used by pasture-range sensor gateways.
// Empty BrokerURL disables the MQTT transport.
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	Topic     string `yaml:"topic"`
	QoS       byte   `yaml:"qos"`
}

type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

type WALConfig struct {
	Dir string `yaml:"dir"`
}

// Duration accepts Go duration strings ("2s", "500ms") in YAML, which
// plain time.Duration fields do not.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type InferenceConfig struct {
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

// AnalysisConfig carries the windowing and alerting knobs that stable
// operators tune per deployment. All fields have working defaults.
type AnalysisConfig struct {
	GaitWindow      Duration         `yaml:"gait_window"`
	HRVWindow       Duration         `yaml:"hrv_window"`
	GaitHistory     Duration         `yaml:"gait_history"`
	HRVHistoryLen   int              `yaml:"hrv_history_len"`
	AlertHistoryLen int              `yaml:"alert_history_len"`
	Thresholds      ThresholdsConfig `yaml:"thresholds"`
}

// ThresholdsConfig is the hot-reloadable subset of the alert engine
// configuration.
type ThresholdsConfig struct {
	AsymmetryWarning   float64 `yaml:"asymmetry_warning"`
	AsymmetryCritical  float64 `yaml:"asymmetry_critical"`
	DebounceWindows    int     `yaml:"debounce_windows"`
	ImpactFactor       float64 `yaml:"impact_factor"`
	IrregularityFactor float64 `yaml:"irregularity_factor"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 10 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/wal"
	}
	if len(c.Kafka.Brokers) > 0 {
		if c.Kafka.Topic == "" {
			c.Kafka.Topic = "equine-telemetry"
		}
		if c.Kafka.GroupID == "" {
			c.Kafka.GroupID = "equinesync-edge"
		}
	}
	if c.MQTT.BrokerURL != "" {
		if c.MQTT.ClientID == "" {
			c.MQTT.ClientID = "equinesync-ingest"
		}
		if c.MQTT.Topic == "" {
			c.MQTT.Topic = "equinesync/+/telemetry"
		}
	}
	if c.Inference.Timeout == 0 {
		c.Inference.Timeout = Duration(2 * time.Second)
	}
}

func (c *Config) validate() error {
	if len(c.Kafka.Brokers) == 0 && c.MQTT.BrokerURL == "" {
		return fmt.Errorf("at least one telemetry source is required (kafka.brokers or mqtt.broker_url)")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	if t := c.Analysis.Thresholds; t.AsymmetryWarning != 0 && t.AsymmetryCritical > t.AsymmetryWarning {
		return fmt.Errorf("analysis.thresholds: asymmetry_critical must not exceed asymmetry_warning")
	}
	return nil
}

// SessionConfig maps the YAML analysis block onto the session tuning
// struct. Unset values keep the session defaults.
func (c *Config) SessionConfig() session.Config {
	sc := session.Config{
		GaitWindow:      c.Analysis.GaitWindow.Std(),
		HRVWindow:       c.Analysis.HRVWindow.Std(),
		GaitHistory:     c.Analysis.GaitHistory.Std(),
		HRVHistoryLen:   c.Analysis.HRVHistoryLen,
		AlertHistoryLen: c.Analysis.AlertHistoryLen,
	}
	t := c.Analysis.Thresholds
	sc.Alert.AsymmetryThreshold = t.AsymmetryWarning
	sc.Alert.AsymmetryCritical = t.AsymmetryCritical
	sc.Alert.DebounceWindows = t.DebounceWindows
	sc.Alert.ImpactFactor = t.ImpactFactor
	sc.Alert.IrregularityFactor = t.IrregularityFactor
	return sc
}
