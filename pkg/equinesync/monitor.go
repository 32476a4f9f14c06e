// Package equinesync is the embeddable facade over the monitoring
// pipeline: collector to WAL to queue to per-horse analysis sessions to
// sinks, plus the REST API, WebSocket push and Prometheus metrics.
package equinesync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/httpapi"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/inference"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/kafkabus"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/mqttcollector"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/notify"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/observability"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/queue"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/sink"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/wal"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/ws"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/gait"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/hrv"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/app/config"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/app/pipeline"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/session"
)

// MonitorRuntimeOption customizes the dependencies used by MonitorRuntime.
type MonitorRuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collector     Collector
	wal           WAL
	queue         ReadingQueue
	observability Observability
	symScorer     SymmetryScorer
	stressScorer  StressScorer
	resultSinks   []ResultSink
	alertSinks    []AlertSink
	disableAPI    bool
}

// WithCollector injects a custom collector (simulators, custom gateways).
func WithCollector(col Collector) MonitorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.collector = col
	}
}

// WithWAL lets callers bring their own WAL implementation or reuse an
// existing instance.
func WithWAL(w WAL) MonitorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.wal = w
	}
}

// WithReadingQueue injects a custom queue implementation.
func WithReadingQueue(q ReadingQueue) MonitorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) MonitorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithSymmetryScorer replaces the gait scoring implementation.
func WithSymmetryScorer(s SymmetryScorer) MonitorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.symScorer = s
	}
}

// WithStressScorer replaces the HRV scoring implementation.
func WithStressScorer(s StressScorer) MonitorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.stressScorer = s
	}
}

// WithResultSink adds a result sink alongside the configured defaults.
func WithResultSink(s ResultSink) MonitorRuntimeOption {
	return func(o *runtimeOverrides) {
		if s != nil {
			o.resultSinks = append(o.resultSinks, s)
		}
	}
}

// WithAlertSink adds an alert sink alongside the configured defaults.
func WithAlertSink(s AlertSink) MonitorRuntimeOption {
	return func(o *runtimeOverrides) {
		if s != nil {
			o.alertSinks = append(o.alertSinks, s)
		}
	}
}

// WithoutAPI disables the embedded REST and WebSocket servers, for
// callers that embed the runtime inside their own HTTP stack.
func WithoutAPI() MonitorRuntimeOption {
	return func(o *runtimeOverrides) {
		o.disableAPI = true
	}
}

// MonitorRuntime wires the full pipeline and exposes lifecycle hooks for
// embedding the monitor inside any Go service.
type MonitorRuntime struct {
	cfg    *Config
	policy ports.Policy
	obs    ports.Observability

	wal       ports.WAL
	queue     ports.ReadingQueue
	collector ports.Collector
	mgr       *session.Manager

	resultSinks []ports.ResultSink
	alertSinks  []ports.AlertSink

	hub       *ws.Hub
	db        *sql.DB
	publisher *kafkabus.Publisher

	apiSrv     *http.Server
	metricsSrv *http.Server

	analysisCancel context.CancelFunc
	analysisDoneCh chan struct{}
	gaugeStopCh    chan struct{}
}

// NewMonitorRuntime bootstraps the default adapters: a Kafka or MQTT
// collector, file WAL, in-memory queue, the local scoring formulas (or
// the remote inference service with local fallback), and whichever
// sinks the config enables. Options override any dependency.
func NewMonitorRuntime(cfg *Config, opts ...MonitorRuntimeOption) (*MonitorRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	var (
		walAdapter ports.WAL
		err        error
	)
	if overrides.wal != nil {
		walAdapter = overrides.wal
	} else {
		walAdapter, err = wal.NewFileWAL(cfg.WAL.Dir)
		if err != nil {
			return nil, err
		}
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	if err := replayWALIntoQueue(walAdapter, q, cfg.Policy, obs); err != nil {
		return nil, err
	}

	col := overrides.collector
	if col == nil {
		col, err = defaultCollector(cfg, obs)
		if err != nil {
			return nil, err
		}
	}

	sessionCfg := cfg.SessionConfig()
	sessionCfg.ApplyDefaults()

	symScorer, stressScorer := buildScorers(cfg, sessionCfg, obs, &overrides)
	mgr := session.NewManager(sessionCfg, symScorer, stressScorer, obs)

	rt := &MonitorRuntime{
		cfg:         cfg,
		policy:      cfg.Policy,
		obs:         obs,
		wal:         walAdapter,
		queue:       q,
		collector:   col,
		mgr:         mgr,
		resultSinks: overrides.resultSinks,
		alertSinks:  overrides.alertSinks,
	}

	if err := rt.buildSinks(&overrides); err != nil {
		return nil, err
	}
	return rt, nil
}

func defaultCollector(cfg *Config, obs ports.Observability) (ports.Collector, error) {
	switch {
	case len(cfg.Kafka.Brokers) > 0:
		return kafkabus.NewCollector(kafkabus.CollectorConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, obs), nil
	case cfg.MQTT.BrokerURL != "":
		return mqttcollector.New(mqttcollector.Config{
			BrokerURL: cfg.MQTT.BrokerURL,
			ClientID:  cfg.MQTT.ClientID,
			Topic:     cfg.MQTT.Topic,
			QoS:       cfg.MQTT.QoS,
		}, obs), nil
	default:
		return nil, fmt.Errorf("no telemetry source configured")
	}
}

func buildScorers(cfg *Config, sessionCfg session.Config, obs ports.Observability, overrides *runtimeOverrides) (SymmetryScorer, StressScorer) {
	symScorer := overrides.symScorer
	stressScorer := overrides.stressScorer
	localSym := gait.NewLocalScorer(sessionCfg.Gait)
	localStress := hrv.NewLocalScorer(sessionCfg.HRV)

	if symScorer == nil {
		symScorer = localSym
	}
	if stressScorer == nil {
		stressScorer = localStress
	}

	// A configured inference service wraps the local formulas, which
	// stay in place as the fallback path.
	if cfg.Inference.BaseURL != "" {
		client := inference.NewClient(inference.Config{
			BaseURL: cfg.Inference.BaseURL,
			APIKey:  cfg.Inference.APIKey,
			Timeout: cfg.Inference.Timeout.Std(),
		})
		if overrides.symScorer == nil {
			symScorer = inference.NewSymmetryFallback(inference.NewSymmetryScorer(client), localSym, obs)
		}
		if overrides.stressScorer == nil {
			stressScorer = inference.NewStressFallback(inference.NewStressScorer(client), localStress, obs)
		}
	}
	return symScorer, stressScorer
}

func (rt *MonitorRuntime) buildSinks(overrides *runtimeOverrides) error {
	cfg := rt.cfg

	if cfg.Timescale.ConnString != "" {
		db, err := sql.Open("postgres", cfg.Timescale.ConnString)
		if err != nil {
			return err
		}
		rt.db = db
		ts := sink.NewTimescaleSink(db)
		rt.resultSinks = append(rt.resultSinks, ts)
		rt.alertSinks = append(rt.alertSinks, ts)
	}

	if len(cfg.Kafka.Brokers) > 0 &&
		(cfg.Kafka.GaitTopic != "" || cfg.Kafka.HRVTopic != "" || cfg.Kafka.HealthTopic != "" || cfg.Kafka.AlertsTopic != "") {
		pub := kafkabus.NewPublisher(kafkabus.PublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			GaitTopic:   cfg.Kafka.GaitTopic,
			HRVTopic:    cfg.Kafka.HRVTopic,
			HealthTopic: cfg.Kafka.HealthTopic,
			AlertsTopic: cfg.Kafka.AlertsTopic,
		})
		rt.publisher = pub
		rt.resultSinks = append(rt.resultSinks, pub)
		if cfg.Kafka.AlertsTopic != "" {
			rt.alertSinks = append(rt.alertSinks, pub)
		}
	}

	if cfg.Slack.WebhookURL != "" {
		rt.alertSinks = append(rt.alertSinks, notify.NewSlackSink(notify.SlackConfig{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
		}))
	}

	if !overrides.disableAPI {
		rt.hub = ws.NewHub()
		wsSink := ws.NewSink(rt.hub)
		rt.resultSinks = append(rt.resultSinks, wsSink)
		rt.alertSinks = append(rt.alertSinks, wsSink)
	}
	return nil
}

// Manager exposes the per-horse sessions for direct queries.
func (rt *MonitorRuntime) Manager() *session.Manager { return rt.mgr }

// ApplyThresholds swaps the analysis tuning used for sessions opened
// after the call, for config hot-reload.
func (rt *MonitorRuntime) ApplyThresholds(cfg *Config) {
	if cfg == nil {
		return
	}
	rt.mgr.UpdateConfig(cfg.SessionConfig())
	rt.obs.LogInfo("analysis thresholds updated")
}

// WatchConfig blocks watching the file at path and applies reloaded
// analysis thresholds to the runtime until ctx is cancelled.
func (rt *MonitorRuntime) WatchConfig(ctx context.Context, path string) error {
	return config.Watch(ctx, path, rt.obs, func(cfg *Config) {
		rt.ApplyThresholds(cfg)
	})
}

// Start begins the ingest and analysis pipelines and launches the API,
// WebSocket and metrics servers. It returns immediately; call Run to
// block on a context instead.
func (rt *MonitorRuntime) Start() error {
	if rt == nil {
		return fmt.Errorf("monitor runtime is nil")
	}
	if err := pipeline.RunEdgePipeline(rt.collector, rt.wal, rt.queue, rt.policy, rt.obs); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt.analysisCancel = cancel
	rt.analysisDoneCh = make(chan struct{})
	go func() {
		pipeline.RunAnalysisPipeline(ctx, rt.wal, rt.queue, rt.mgr, rt.resultSinks, rt.alertSinks, rt.policy, rt.obs)
		close(rt.analysisDoneCh)
	}()

	if rt.hub != nil {
		go rt.hub.Run(ctx)
		rt.startAPI()
	}
	rt.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is
// cancelled, then attempts a graceful shutdown.
func (rt *MonitorRuntime) Run(ctx context.Context) error {
	if err := rt.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Shutdown(shutdownCtx)
}

// Shutdown stops the collector, flushes open windows through the sinks
// and closes the servers and connections.
func (rt *MonitorRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	if rt.collector != nil {
		if err := rt.collector.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if rt.analysisCancel != nil {
		rt.analysisCancel()
		select {
		case <-rt.analysisDoneCh:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	pipeline.FlushOnShutdown(ctx, rt.mgr, rt.resultSinks, rt.alertSinks, rt.obs)

	if rt.gaugeStopCh != nil {
		close(rt.gaugeStopCh)
	}
	if rt.apiSrv != nil {
		if err := rt.apiSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if rt.metricsSrv != nil {
		if err := rt.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (rt *MonitorRuntime) startAPI() {
	api := httpapi.NewServer(rt.mgr, rt.hub)
	rt.apiSrv = &http.Server{
		Addr:    rt.cfg.API.Addr,
		Handler: api.Handler(os.Stdout),
	}
	go func() {
		if err := rt.apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api server exited: %v", err)
		}
	}()
}

func (rt *MonitorRuntime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rt.metricsSrv = &http.Server{
		Addr:    rt.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := rt.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	rt.gaugeStopCh = make(chan struct{})
	go rt.recordResourceGauges(rt.gaugeStopCh, time.Second)
}

func (rt *MonitorRuntime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := rt.wal.Stats()
			rt.obs.SetGauge("equinesync_wal_size_bytes", float64(stats.SizeBytes))
			rt.obs.SetGauge("equinesync_queue_length", float64(rt.queue.Len()))
		}
	}
}

func replayWALIntoQueue(walAdapter ports.WAL, q ports.ReadingQueue, pol ports.Policy, obs ports.Observability) error {
	stats := walAdapter.Stats()
	if stats.LatestAppended == 0 {
		return nil
	}
	start := stats.OldestUncommitted
	if start == 0 || start > stats.LatestAppended {
		return nil
	}

	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	var replayed int
	err := walAdapter.Iterate(start, func(id ports.WALEntryID, r *Reading) error {
		for {
			if q.Enqueue(id, r) {
				replayed++
				return nil
			}
			switch pol.OnQueueFull {
			case "drop", "reject":
				return fmt.Errorf("queue full during WAL replay")
			default:
				time.Sleep(sleep)
			}
		}
	})
	if err != nil {
		return err
	}
	if replayed > 0 {
		obs.LogInfo("wal replay complete",
			ports.Field{Key: "readings", Value: replayed},
			ports.Field{Key: "from_id", Value: start})
	}
	return nil
}
