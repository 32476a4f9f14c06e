package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs()

	obs.IncCounter("equinesync_readings_ingested_total", 5)
	if got := testutil.ToFloat64(obs.counters["equinesync_readings_ingested_total"]); got != 5 {
		t.Fatalf("expected ingested counter 5, got %f", got)
	}

	obs.IncCounter("equinesync_queue_dropped_total", 2)
	if got := testutil.ToFloat64(obs.counters["equinesync_queue_dropped_total"]); got != 2 {
		t.Fatalf("expected queue drop counter 2, got %f", got)
	}

	obs.SetGauge("equinesync_wal_size_bytes", 42)
	if got := testutil.ToFloat64(obs.gauges["equinesync_wal_size_bytes"]); got != 42 {
		t.Fatalf("expected wal gauge 42, got %f", got)
	}

	obs.ObserveLatency("equinesync_analysis_latency_seconds", 0.5)
	hCollector := obs.histos["equinesync_analysis_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.RecordDrop(&domain.SensorReading{HorseID: "thunder", SensorID: "imu-1"}, "malformed")
	obs.RecordDrop(nil, "malformed")
	if got := testutil.ToFloat64(obs.drops.WithLabelValues("malformed")); got != 2 {
		t.Fatalf("expected 2 malformed drops, got %f", got)
	}
}
