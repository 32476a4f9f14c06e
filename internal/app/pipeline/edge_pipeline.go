// Package pipeline wires the edge node's data path: collector to WAL to
// queue on the ingest side, queue to per-horse analysis sessions to
// sinks on the analysis side.
package pipeline

import (
	"fmt"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// RunEdgePipeline starts the collector and moves every reading through
// the WAL into the queue. Readings are durable before they are queued,
// so a crash between the two never loses data.
func RunEdgePipeline(col ports.Collector, wal ports.WAL, q ports.ReadingQueue, pol ports.Policy, obs ports.Observability) error {
	ch := make(chan *domain.SensorReading, pol.MaxQueueLen)

	if err := col.Start(ch); err != nil {
		return err
	}

	go func() {
		for r := range ch {
			if !waitForWALCapacity(wal, pol, obs) {
				continue
			}

			id, err := wal.Append(r)
			if err != nil {
				obs.LogCritical("wal append failed", err)
				continue
			}

			if !enqueueWithPolicy(q, id, r, pol, obs) {
				obs.IncCounter("equinesync_queue_dropped_total", 1)
			}
		}
	}()

	return nil
}

func waitForWALCapacity(wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			obs.LogError("wal full, dropping reading", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("invalid wal policy", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithPolicy(q ports.ReadingQueue, id ports.WALEntryID, r *domain.SensorReading, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(id, r); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue full, dropping reading", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("invalid queue policy", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
