package pipeline

import (
	"context"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/session"
)

// RunAnalysisPipeline drains the queue in batches, routes each reading
// to its horse's session and fans results out to the sinks. The WAL is
// committed only after a batch has fully passed through analysis, so a
// crash replays unprocessed readings instead of losing them.
// Blocks until ctx is cancelled.
func RunAnalysisPipeline(ctx context.Context, wal ports.WAL, q ports.ReadingQueue, mgr *session.Manager, sinks []ports.ResultSink, alertSinks []ports.AlertSink, pol ports.Policy, obs ports.Observability) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			time.Sleep(pol.IdleSleep)
			continue
		}

		var maxID ports.WALEntryID
		start := time.Now()

		for _, item := range batch {
			out, err := mgr.Ingest(ctx, item.Reading)
			if err != nil {
				obs.LogError("analysis failed", err)
				continue
			}
			if item.ID > maxID {
				maxID = item.ID
			}
			if !out.Empty() {
				dispatch(ctx, out, sinks, alertSinks, obs)
			}
		}

		obs.ObserveLatency("equinesync_analysis_latency_seconds", time.Since(start).Seconds())
		obs.IncCounter("equinesync_readings_ingested_total", float64(len(batch)))
		obs.SetGauge("equinesync_queue_length", float64(q.Len()))
		obs.SetGauge("equinesync_wal_size_bytes", float64(wal.Stats().SizeBytes))

		if err := wal.Commit(maxID); err != nil {
			obs.LogError("wal commit failed", err)
		}
	}
}

// dispatch writes one batch of session outputs to every sink. A sink
// failure is logged and never blocks the other sinks.
func dispatch(ctx context.Context, out *session.Output, sinks []ports.ResultSink, alertSinks []ports.AlertSink, obs ports.Observability) {
	windows := 0
	if out.Symmetry != nil {
		windows++
	}
	if out.HRV != nil {
		windows++
	}
	if windows > 0 {
		obs.IncCounter("equinesync_windows_analyzed_total", float64(windows))
	}

	for _, sink := range sinks {
		if out.Symmetry != nil {
			if err := sink.WriteSymmetry(ctx, out.Symmetry); err != nil {
				obs.LogError("symmetry write failed", err, ports.Field{Key: "sink", Value: sink.Name()})
			}
		}
		if out.HRV != nil {
			if err := sink.WriteHRV(ctx, out.HRV); err != nil {
				obs.LogError("hrv write failed", err, ports.Field{Key: "sink", Value: sink.Name()})
			}
		}
		if len(out.Health) > 0 {
			if err := sink.WriteLegHealth(ctx, out.Health); err != nil {
				obs.LogError("leg health write failed", err, ports.Field{Key: "sink", Value: sink.Name()})
			}
		}
	}

	for i := range out.Alerts {
		alert := &out.Alerts[i]
		obs.IncCounter("equinesync_alerts_emitted_total", 1)
		obs.LogInfo("alert emitted",
			ports.Field{Key: "horse_id", Value: alert.HorseID},
			ports.Field{Key: "type", Value: string(alert.Type)},
			ports.Field{Key: "severity", Value: string(alert.Severity)})
		for _, sink := range alertSinks {
			if err := sink.Publish(ctx, alert); err != nil {
				obs.LogError("alert publish failed", err, ports.Field{Key: "sink", Value: sink.Name()})
			}
		}
	}
}

// FlushOnShutdown closes every open window and pushes the tail results
// through the sinks before the process exits.
func FlushOnShutdown(ctx context.Context, mgr *session.Manager, sinks []ports.ResultSink, alertSinks []ports.AlertSink, obs ports.Observability) {
	for horseID, out := range mgr.FlushAll(ctx) {
		if out.Empty() {
			continue
		}
		obs.LogInfo("flushed session on shutdown", ports.Field{Key: "horse_id", Value: horseID})
		dispatch(ctx, out, sinks, alertSinks, obs)
	}
}
