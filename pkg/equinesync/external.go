package equinesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/observability"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/queue"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/wal"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/gait"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/analysis/hrv"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/app/config"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/session"
)

// ErrQueueFull indicates the in-memory queue rejected the reading according to policy.
var ErrQueueFull = errors.New("equinesync: queue full")

// ErrWALFull indicates the WAL is at capacity and OnWALFull != "block".
var ErrWALFull = errors.New("equinesync: wal full")

// OutputFunc is invoked with the analysis output of every reading that
// closed a window or raised an alert.
type OutputFunc func(horseID string, out *Output) error

// ExternalPublisherConfig configures the WAL-backed publisher used by
// callers that produce readings themselves instead of running a
// collector.
type ExternalPublisherConfig struct {
	Policy   Policy
	WAL      WALConfig
	Analysis AnalysisConfig

	// Observability defaults to the Prometheus stack when nil.
	Observability Observability
}

// applyDefaults fills in sane thresholds so callers only override what they need.
func (c *ExternalPublisherConfig) applyDefaults() {
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
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/equinesync-wal"
	}
}

func (c *ExternalPublisherConfig) validate() error {
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	if c.Policy.MaxQueueLen <= 0 {
		return fmt.Errorf("policy.max_queue_len must be > 0")
	}
	if c.Policy.MaxBatchSize <= 0 {
		return fmt.Errorf("policy.max_batch_size must be > 0")
	}
	return nil
}

// ExternalPublisher exposes the WAL, queue and analysis stages to
// external producers: push readings in, receive analysis outputs on a
// callback.
type ExternalPublisher struct {
	policy Policy
	wal    ports.WAL
	queue  ports.ReadingQueue
	obs    ports.Observability
	mgr    *session.Manager
	sink   OutputFunc

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewExternalPublisher wires a WAL, a bounded queue and the per-horse
// analysis sessions behind a push API, reusing the durability and
// backpressure policies of the full runtime.
func NewExternalPublisher(cfg *ExternalPublisherConfig, fn OutputFunc) (*ExternalPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("output callback is required")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	walAdapter, err := wal.NewFileWAL(cfg.WAL.Dir)
	if err != nil {
		return nil, err
	}
	q := queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	obs := cfg.Observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	if err := replayWALIntoQueue(walAdapter, q, cfg.Policy, obs); err != nil {
		return nil, err
	}

	sessionCfg := (&config.Config{Analysis: cfg.Analysis}).SessionConfig()
	sessionCfg.ApplyDefaults()
	mgr := session.NewManager(sessionCfg,
		gait.NewLocalScorer(sessionCfg.Gait),
		hrv.NewLocalScorer(sessionCfg.HRV),
		obs)

	pub := &ExternalPublisher{
		policy: cfg.Policy,
		wal:    walAdapter,
		queue:  q,
		obs:    obs,
		mgr:    mgr,
		sink:   fn,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go pub.runIngest()
	return pub, nil
}

// Publish appends the reading to the WAL and enqueues it according to policy.
func (p *ExternalPublisher) Publish(r Reading) error {
	if !waitForLocalWALCapacity(p.wal, p.policy, p.obs) {
		return ErrWALFull
	}

	id, err := p.wal.Append(&r)
	if err != nil {
		return err
	}

	if !enqueueWithLocalPolicy(p.queue, id, &r, p.policy, p.obs) {
		return ErrQueueFull
	}
	return nil
}

// Close waits for the analysis loop to exit, respecting the provided context.
func (p *ExternalPublisher) Close(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ExternalPublisher) runIngest() {
	defer close(p.doneCh)
	idle := p.policy.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}
	ctx := context.Background()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		batch := p.queue.DequeueBatch(p.policy.MaxBatchSize)
		if len(batch) == 0 {
			time.Sleep(idle)
			continue
		}

		var maxID ports.WALEntryID
		for _, item := range batch {
			out, err := p.mgr.Ingest(ctx, item.Reading)
			if err != nil {
				p.obs.LogError("analysis failed", err)
				continue
			}
			if item.ID > maxID {
				maxID = item.ID
			}
			if out.Empty() {
				continue
			}
			if err := p.sink(item.Reading.HorseID, out); err != nil {
				p.obs.LogError("output callback failed", err)
			}
		}

		p.obs.IncCounter("equinesync_readings_ingested_total", float64(len(batch)))
		if err := p.wal.Commit(maxID); err != nil {
			p.obs.LogError("wal commit failed", err)
		}
	}
}

func waitForLocalWALCapacity(w ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		stats := w.Stats()
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

func enqueueWithLocalPolicy(q ports.ReadingQueue, id ports.WALEntryID, r *Reading, pol ports.Policy, obs ports.Observability) bool {
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
