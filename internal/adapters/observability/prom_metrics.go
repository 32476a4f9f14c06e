package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	drops    *prometheus.CounterVec
}

func NewPromObs() *PromObs {
	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "equinesync_readings_ingested_total",
		Help: "Total sensor readings accepted into analysis.",
	})
	walGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "equinesync_wal_size_bytes",
		Help: "Size of the readings WAL on disk.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "equinesync_queue_length",
		Help: "Current number of readings buffered in the in-memory queue.",
	})
	sessionsGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "equinesync_sessions_active",
		Help: "Number of horses with a live analysis session.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "equinesync_analysis_latency_seconds",
		Help:    "Latency from dequeued reading to completed analysis dispatch.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	alerts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "equinesync_alerts_emitted_total",
		Help: "Health alerts emitted by the alert engine.",
	})
	windows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "equinesync_windows_analyzed_total",
		Help: "Closed analysis windows processed.",
	})
	queueDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "equinesync_queue_dropped_total",
		Help: "Readings lost to queue backpressure policies.",
	})
	drops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "equinesync_readings_dropped_total",
		Help: "Readings discarded before analysis, by reason.",
	}, []string{"reason"})

	prometheus.MustRegister(ingested, walGauge, queueGauge, sessionsGauge,
		latency, alerts, windows, queueDrops, drops)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"equinesync_readings_ingested_total": ingested,
			"equinesync_alerts_emitted_total":    alerts,
			"equinesync_windows_analyzed_total":  windows,
			"equinesync_queue_dropped_total":     queueDrops,
		},
		gauges: map[string]prometheus.Gauge{
			"equinesync_wal_size_bytes":  walGauge,
			"equinesync_queue_length":    queueGauge,
			"equinesync_sessions_active": sessionsGauge,
		},
		histos: map[string]prometheus.Observer{
			"equinesync_analysis_latency_seconds": latency,
		},
		drops: drops,
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDrop(r *domain.SensorReading, reason string) {
	p.drops.WithLabelValues(reason).Inc()
	if r != nil {
		log.Printf("DROP reading horse=%s sensor=%s reason=%s", r.HorseID, r.SensorID, reason)
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}
