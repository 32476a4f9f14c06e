package equinesync

import (
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/app/config"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects
// can construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls WAL/queue thresholds.
	Policy = ports.Policy
	// KafkaConfig covers the telemetry source and result topics.
	KafkaConfig = config.KafkaConfig
	// MQTTConfig covers the pasture gateway broker.
	MQTTConfig = config.MQTTConfig
	// TimescaleConfig configures the persistence sink.
	TimescaleConfig = config.TimescaleConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// APIConfig configures the REST API server.
	APIConfig = config.APIConfig
	// WALConfig configures on-disk durability.
	WALConfig = config.WALConfig
	// InferenceConfig locates the optional remote model service.
	InferenceConfig = config.InferenceConfig
	// SlackConfig configures webhook alert delivery.
	SlackConfig = config.SlackConfig
	// AnalysisConfig carries windowing and alert thresholds.
	AnalysisConfig = config.AnalysisConfig
	// ThresholdsConfig is the hot-reloadable alerting subset.
	ThresholdsConfig = config.ThresholdsConfig
	// Duration is a YAML-parseable wrapper over time.Duration.
	Duration = config.Duration
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
