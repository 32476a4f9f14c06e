// Package simulator generates synthetic four-leg IMU telemetry plus an
// R-R interval stream, for demos and end-to-end testing without live
// hardware. The motion model produces distinct vertical and lateral
// signatures per leg so the calibration stage can resolve sensor
// placement exactly as it would on a real horse.
package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// Config tunes the synthetic horse.
type Config struct {
	HorseID      string
	SensorIDs    []string
	SampleRateHz int
	GaitFreqHz   float64
	BaselineRRMS float64

	// LameLeg reduces the vertical amplitude on one leg to provoke
	// asymmetry detection. Empty disables the injury.
	LameLeg          domain.LegLabel
	LamenessSeverity float64

	// StressChance is the per-beat probability of a low-variability
	// R-R sample, simulating an acute stress response.
	StressChance float64

	Seed int64
}

func (c *Config) ApplyDefaults() {
	if c.HorseID == "" {
		c.HorseID = "horse-001"
	}
	if len(c.SensorIDs) == 0 {
		c.SensorIDs = []string{"imu-1", "imu-2", "imu-3", "imu-4"}
	}
	if c.SampleRateHz <= 0 {
		c.SampleRateHz = 100
	}
	if c.GaitFreqHz <= 0 {
		c.GaitFreqHz = 0.8
	}
	if c.BaselineRRMS <= 0 {
		c.BaselineRRMS = 600
	}
	if c.LamenessSeverity <= 0 {
		c.LamenessSeverity = 0.3
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// legMotion holds the per-leg gait signature. Front legs carry the
// larger vertical excursion, hind legs the larger lateral sway, and the
// left/right phase split plus lateral sign let calibration separate the
// pairs.
type legMotion struct {
	leg     domain.LegLabel
	vertAmp float64
	latAmp  float64
	fwdAmp  float64
	phase   float64
	latSign float64
}

var gaitModel = [4]legMotion{
	{leg: domain.FrontLeft, vertAmp: 1.6, latAmp: 0.4, fwdAmp: 0.1, phase: 0, latSign: 1},
	{leg: domain.FrontRight, vertAmp: 1.5, latAmp: 0.4, fwdAmp: 0.1, phase: math.Pi, latSign: 1},
	{leg: domain.BackLeft, vertAmp: 0.6, latAmp: 1.2, fwdAmp: 0.8, phase: math.Pi, latSign: -1},
	{leg: domain.BackRight, vertAmp: 0.6, latAmp: 1.2, fwdAmp: 0.8, phase: 0, latSign: -1},
}

// Simulator is a ports.Collector that synthesizes readings on a ticker.
type Simulator struct {
	cfg Config
	rng *rand.Rand

	mu       sync.Mutex
	started  bool
	quit     chan struct{}
	done     chan struct{}
	seq      uint64
	lastBeat time.Duration
}

func New(cfg Config) *Simulator {
	cfg.ApplyDefaults()
	return &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Start begins emitting readings at the configured sample rate. The
// four IMU messages of each tick go out back to back, with the R-R
// interval piggybacked on the first message about once per second.
func (s *Simulator) Start(out chan<- *domain.SensorReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("simulator already started")
	}
	s.started = true
	s.quit = make(chan struct{})
	s.done = make(chan struct{})

	interval := time.Second / time.Duration(s.cfg.SampleRateHz)
	go s.run(out, interval)
	return nil
}

func (s *Simulator) run(out chan<- *domain.SensorReading, interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-s.quit:
			return
		case now := <-ticker.C:
			for _, r := range s.readingsAt(now.Sub(start), now) {
				select {
				case out <- r:
				case <-s.quit:
					return
				}
			}
		}
	}
}

// Stop halts the generator and waits for the emit loop to exit.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	close(s.quit)
	<-s.done
	s.started = false
	return nil
}

// readingsAt produces the four sensor messages for one sample instant.
func (s *Simulator) readingsAt(elapsed time.Duration, now time.Time) []*domain.SensorReading {
	phi := 2 * math.Pi * s.cfg.GaitFreqHz * elapsed.Seconds()
	readings := make([]*domain.SensorReading, 0, len(gaitModel))

	for i, m := range gaitModel {
		if i >= len(s.cfg.SensorIDs) {
			break
		}
		vert := m.vertAmp
		if s.cfg.LameLeg != "" && m.leg == s.cfg.LameLeg {
			vert *= 1 - s.cfg.LamenessSeverity
		}

		gyroScale := 150.0
		if m.leg == domain.FrontLeft || m.leg == domain.FrontRight {
			gyroScale = 200
		}

		s.seq++
		r := &domain.SensorReading{
			HorseID:   s.cfg.HorseID,
			SensorID:  s.cfg.SensorIDs[i],
			Timestamp: now,
			Seq:       s.seq,
			AccelX:    m.latSign*m.latAmp*math.Cos(phi+m.phase) + s.rng.NormFloat64()*0.05,
			AccelY:    m.fwdAmp*math.Sin(2*phi) + s.rng.NormFloat64()*0.05,
			AccelZ:    vert*math.Sin(phi+m.phase) + s.rng.NormFloat64()*0.1,
			GyroX:     gyroScale*math.Sin(phi+m.phase) + s.rng.NormFloat64()*10,
			GyroY:     gyroScale*0.5*math.Cos(phi) + s.rng.NormFloat64()*10,
			GyroZ:     gyroScale*0.3*math.Sin(2*phi) + s.rng.NormFloat64()*10,
		}
		readings = append(readings, r)
	}

	// One R-R interval per second, carried on the first IMU message of
	// the tick the beat lands in.
	if len(readings) > 0 && elapsed-s.lastBeat >= time.Second {
		s.lastBeat = elapsed
		readings[0].RRIntervalMS = s.nextRR()
	}
	return readings
}

// nextRR draws one R-R interval. Healthy variability sits around 50 ms
// SDNN; a stress event collapses it to around 15 ms.
func (s *Simulator) nextRR() float64 {
	sigma := 50.0
	if s.cfg.StressChance > 0 && s.rng.Float64() < s.cfg.StressChance {
		sigma = 15
	}
	rr := s.cfg.BaselineRRMS + s.rng.NormFloat64()*sigma
	if rr < 250 {
		rr = 250
	}
	return rr
}

var _ ports.Collector = (*Simulator)(nil)
