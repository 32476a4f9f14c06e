package session

import (
	"context"
	"sort"
	"sync"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// Manager holds one session per horse and creates them lazily on first
// contact. Safe for concurrent use.
type Manager struct {
	cfg          Config
	symScorer    ports.SymmetryScorer
	stressScorer ports.StressScorer
	obs          ports.Observability

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(cfg Config, sym ports.SymmetryScorer, stress ports.StressScorer, obs ports.Observability) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		cfg:          cfg,
		symScorer:    sym,
		stressScorer: stress,
		obs:          obs,
		sessions:     make(map[string]*Session),
	}
}

// Ingest validates a reading and routes it to its horse's session,
// creating the session on first contact. Malformed readings are dropped
// and recorded, never partially applied.
func (m *Manager) Ingest(ctx context.Context, r *domain.SensorReading) (*Output, error) {
	if r == nil {
		return nil, nil
	}
	if !r.Valid() {
		m.obs.RecordDrop(r, "malformed")
		return nil, nil
	}
	if r.HorseID == "" {
		m.obs.RecordDrop(r, "missing horse id")
		return nil, nil
	}
	return m.Get(r.HorseID).Ingest(ctx, r)
}

// Get returns the session for horseID, creating it if needed.
func (m *Manager) Get(horseID string) *Session {
	m.mu.RLock()
	s := m.sessions[horseID]
	m.mu.RUnlock()
	if s != nil {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s = m.sessions[horseID]; s == nil {
		s = New(horseID, m.cfg, m.symScorer, m.stressScorer, m.obs)
		m.sessions[horseID] = s
		m.obs.LogInfo("session opened",
			ports.Field{Key: "horse_id", Value: horseID})
		m.obs.SetGauge("equinesync_sessions_active", float64(len(m.sessions)))
	}
	return s
}

// UpdateConfig replaces the tuning used for sessions created after this
// call. Live sessions keep the settings they were opened with.
func (m *Manager) UpdateConfig(cfg Config) {
	cfg.ApplyDefaults()
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Lookup returns the session for horseID without creating one.
func (m *Manager) Lookup(horseID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[horseID]
	return s, ok
}

// HorseIDs lists all horses with a live session, sorted.
func (m *Manager) HorseIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FlushAll flushes every session's open windows, for shutdown.
func (m *Manager) FlushAll(ctx context.Context) map[string]*Output {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Output, len(m.sessions))
	for id, s := range m.sessions {
		out[id] = s.Flush(ctx)
	}
	return out
}
