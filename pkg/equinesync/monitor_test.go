package equinesync

import (
	"context"
	"testing"
	"time"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Policy: Policy{
			MaxWALSizeBytes: 1024 * 1024,
			MaxQueueLen:     8,
			MaxBatchSize:    4,
			IdleSleep:       time.Millisecond,
			OnWALFull:       "block",
			OnQueueFull:     "block",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "equine-telemetry",
			GroupID: "test",
		},
		Metrics: MetricsConfig{Addr: ":0"},
		API:     APIConfig{Addr: ":0"},
		WAL:     WALConfig{Dir: t.TempDir()},
	}
}

func TestNewMonitorRuntimeWithCustomAdapters(t *testing.T) {
	cfg := testConfig(t)

	queueStub := &stubQueue{}
	collectorStub := &stubCollector{}
	resultStub := &stubResultSink{}
	alertStub := &stubAlertSink{}
	walStub := &stubWAL{}
	obsStub := &stubObservability{}

	rt, err := NewMonitorRuntime(
		cfg,
		WithCollector(collectorStub),
		WithResultSink(resultStub),
		WithAlertSink(alertStub),
		WithWAL(walStub),
		WithReadingQueue(queueStub),
		WithObservability(obsStub),
		WithoutAPI(),
	)
	if err != nil {
		t.Fatalf("NewMonitorRuntime returned error: %v", err)
	}

	if rt.collector != collectorStub {
		t.Fatalf("expected custom collector to be used")
	}
	if rt.wal != walStub {
		t.Fatalf("expected custom WAL to be used")
	}
	if rt.queue != queueStub {
		t.Fatalf("expected custom queue to be used")
	}
	if rt.obs != obsStub {
		t.Fatalf("expected custom observability to be used")
	}
	if len(rt.resultSinks) != 1 || rt.resultSinks[0] != resultStub {
		t.Fatalf("expected only the custom result sink, got %d sinks", len(rt.resultSinks))
	}
	if len(rt.alertSinks) != 1 || rt.alertSinks[0] != alertStub {
		t.Fatalf("expected only the custom alert sink, got %d sinks", len(rt.alertSinks))
	}
	if rt.hub != nil {
		t.Fatalf("expected no WebSocket hub with the API disabled")
	}
	if rt.db != nil {
		t.Fatalf("expected db to be nil without a Timescale connection")
	}
	if rt.Manager() == nil {
		t.Fatalf("expected a session manager to be built")
	}
}

func TestNewMonitorRuntimeRequiresTelemetrySource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Brokers = nil

	if _, err := NewMonitorRuntime(cfg, WithObservability(&stubObservability{}), WithoutAPI()); err == nil {
		t.Fatalf("expected error when no telemetry source is configured")
	}
}

func TestNewMonitorRuntimeCustomScorers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Inference.BaseURL = "http://localhost:1" // must not override explicit scorers

	sym := &stubSymmetryScorer{}
	stress := &stubStressScorer{}

	rt, err := NewMonitorRuntime(
		cfg,
		WithCollector(&stubCollector{}),
		WithObservability(&stubObservability{}),
		WithSymmetryScorer(sym),
		WithStressScorer(stress),
		WithoutAPI(),
	)
	if err != nil {
		t.Fatalf("NewMonitorRuntime returned error: %v", err)
	}
	if rt.mgr == nil {
		t.Fatalf("expected a session manager to be built")
	}
}

type stubCollector struct{}

func (s *stubCollector) Start(out chan<- *Reading) error { return nil }
func (s *stubCollector) Stop() error                     { return nil }

type stubResultSink struct{}

func (s *stubResultSink) WriteSymmetry(ctx context.Context, res *SymmetryResult) error { return nil }
func (s *stubResultSink) WriteHRV(ctx context.Context, res *HRVResult) error           { return nil }
func (s *stubResultSink) WriteLegHealth(ctx context.Context, health []LegHealth) error { return nil }
func (s *stubResultSink) Name() string                                                 { return "stub" }

type stubAlertSink struct{}

func (s *stubAlertSink) Publish(ctx context.Context, alert *Alert) error { return nil }
func (s *stubAlertSink) Name() string                                    { return "stub-alerts" }

type stubQueue struct{}

func (s *stubQueue) Enqueue(id WALEntryID, r *Reading) bool { return true }
func (s *stubQueue) DequeueBatch(max int) []QueuedReading   { return nil }
func (s *stubQueue) Len() int                               { return 0 }

type stubWAL struct{}

func (s *stubWAL) Append(r *Reading) (WALEntryID, error) { return 0, nil }
func (s *stubWAL) Iterate(from WALEntryID, fn func(id WALEntryID, r *Reading) error) error {
	return nil
}
func (s *stubWAL) Commit(upto WALEntryID) error { return nil }
func (s *stubWAL) TruncateCommitted() error     { return nil }
func (s *stubWAL) Stats() WALStats              { return WALStats{} }

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordDrop(*Reading, string)         {}

type stubSymmetryScorer struct{}

func (s *stubSymmetryScorer) ScoreSymmetry(ctx context.Context, amplitudes map[LegLabel]float64) (SymmetryScores, error) {
	return SymmetryScores{}, nil
}
func (s *stubSymmetryScorer) Name() string { return "stub-symmetry" }

type stubStressScorer struct {
	assessment StressAssessment
}

func (s *stubStressScorer) ScoreStress(ctx context.Context, rrIntervalsMS []float64) (StressAssessment, error) {
	return s.assessment, nil
}
func (s *stubStressScorer) Name() string { return "stub-stress" }
