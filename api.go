// Package equinesync re-exports the public monitoring API so consumers
// can import the module root directly.
package equinesync

import (
	base "github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/pkg/equinesync"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrWALFull           = base.ErrWALFull
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import the module root directly.
type (
	Config                  = base.Config
	Policy                  = base.Policy
	KafkaConfig             = base.KafkaConfig
	MQTTConfig              = base.MQTTConfig
	TimescaleConfig         = base.TimescaleConfig
	MetricsConfig           = base.MetricsConfig
	APIConfig               = base.APIConfig
	WALConfig               = base.WALConfig
	InferenceConfig         = base.InferenceConfig
	SlackConfig             = base.SlackConfig
	AnalysisConfig          = base.AnalysisConfig
	ThresholdsConfig        = base.ThresholdsConfig
	Duration                = base.Duration
	Flow                    = base.Flow
	FlowOption              = base.FlowOption
	StreamInOption          = base.StreamInOption
	StreamOutOption         = base.StreamOutOption
	MonitorRuntime          = base.MonitorRuntime
	MonitorRuntimeOption    = base.MonitorRuntimeOption
	Reading                 = base.Reading
	Output                  = base.Output
	SymmetryResult          = base.SymmetryResult
	SymmetryScores          = base.SymmetryScores
	HRVResult               = base.HRVResult
	StressAssessment        = base.StressAssessment
	LegHealth               = base.LegHealth
	BondState               = base.BondState
	Alert                   = base.Alert
	AlertFunc               = base.AlertFunc
	OutputFunc              = base.OutputFunc
	LegLabel                = base.LegLabel
	LegAssignment           = base.LegAssignment
	Collector               = base.Collector
	ResultSink              = base.ResultSink
	AlertSink               = base.AlertSink
	SymmetryScorer          = base.SymmetryScorer
	StressScorer            = base.StressScorer
	ReadingQueue            = base.ReadingQueue
	QueuedReading           = base.QueuedReading
	WAL                     = base.WAL
	WALEntryID              = base.WALEntryID
	WALStats                = base.WALStats
	Observability           = base.Observability
	Field                   = base.Field
	ExternalPublisher       = base.ExternalPublisher
	ExternalPublisherConfig = base.ExternalPublisherConfig
)

// Leg labels in canonical order.
const (
	FrontLeft  = base.FrontLeft
	FrontRight = base.FrontRight
	BackLeft   = base.BackLeft
	BackRight  = base.BackRight
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...MonitorRuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInCollector(col Collector) StreamInOption {
	return base.StreamInCollector(col)
}

func StreamInQueue(q ReadingQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInWAL(w WAL) StreamInOption {
	return base.StreamInWAL(w)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutResultSink(s ResultSink) StreamOutOption {
	return base.StreamOutResultSink(s)
}

func StreamOutAlertSink(s AlertSink) StreamOutOption {
	return base.StreamOutAlertSink(s)
}

func StreamOutSymmetryScorer(s SymmetryScorer) StreamOutOption {
	return base.StreamOutSymmetryScorer(s)
}

func StreamOutStressScorer(s StressScorer) StreamOutOption {
	return base.StreamOutStressScorer(s)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutAlertCallback(name string, fn AlertFunc) StreamOutOption {
	return base.StreamOutAlertCallback(name, fn)
}

// Monitor runtime and options.
func NewMonitorRuntime(cfg *Config, opts ...MonitorRuntimeOption) (*MonitorRuntime, error) {
	return base.NewMonitorRuntime(cfg, opts...)
}

func WithCollector(col Collector) MonitorRuntimeOption {
	return base.WithCollector(col)
}

func WithWAL(w WAL) MonitorRuntimeOption {
	return base.WithWAL(w)
}

func WithReadingQueue(q ReadingQueue) MonitorRuntimeOption {
	return base.WithReadingQueue(q)
}

func WithObservability(obs Observability) MonitorRuntimeOption {
	return base.WithObservability(obs)
}

func WithSymmetryScorer(s SymmetryScorer) MonitorRuntimeOption {
	return base.WithSymmetryScorer(s)
}

func WithStressScorer(s StressScorer) MonitorRuntimeOption {
	return base.WithStressScorer(s)
}

func WithResultSink(s ResultSink) MonitorRuntimeOption {
	return base.WithResultSink(s)
}

func WithAlertSink(s AlertSink) MonitorRuntimeOption {
	return base.WithAlertSink(s)
}

func WithoutAPI() MonitorRuntimeOption {
	return base.WithoutAPI()
}

// Alert sink adapters.
func NewCallbackAlertSink(name string, fn AlertFunc) AlertSink {
	return base.NewCallbackAlertSink(name, fn)
}

func NewChannelAlertSink(name string, buffer int) (AlertSink, <-chan Alert, func()) {
	return base.NewChannelAlertSink(name, buffer)
}

// External publisher.
func NewExternalPublisher(cfg *ExternalPublisherConfig, fn OutputFunc) (*ExternalPublisher, error) {
	return base.NewExternalPublisher(cfg, fn)
}
