package equinesync

import (
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/session"
)

// Reading is the raw telemetry unit flowing through the pipeline. It is
// exported so custom collectors and publishers can construct readings
// directly.
type Reading = domain.SensorReading

// Result and alert types surfaced by the analysis pipeline.
type (
	SymmetryResult   = domain.SymmetryResult
	SymmetryScores   = domain.SymmetryScores
	HRVResult        = domain.HRVResult
	StressAssessment = domain.StressAssessment
	LegHealth        = domain.LegHealth
	BondState        = domain.BondState
	Alert            = domain.Alert
	LegLabel         = domain.LegLabel
	LegAssignment    = domain.LegAssignment
)

// Output groups everything one ingested reading produced: at most one
// closed gait window, one closed HRV window and any alerts they raised.
type Output = session.Output

// Collector streams readings from any transport (Kafka, MQTT,
// simulators) into the pipeline.
type Collector = ports.Collector

// ReadingQueue is the bounded in-memory queue between ingest and analysis.
type ReadingQueue = ports.ReadingQueue

// QueuedReading is an item buffered inside the queue.
type QueuedReading = ports.QueuedReading

// ResultSink consumes analysis results; AlertSink consumes the alert stream.
type (
	ResultSink = ports.ResultSink
	AlertSink  = ports.AlertSink
)

// SymmetryScorer and StressScorer grade closed windows. The built-in
// formulas can be swapped for a remote model service.
type (
	SymmetryScorer = ports.SymmetryScorer
	StressScorer   = ports.StressScorer
)

// Observability emits metrics and logs about the pipeline.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// WAL abstracts the write-ahead log used for durability and crash recovery.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID

// Leg labels in canonical order.
const (
	FrontLeft  = domain.FrontLeft
	FrontRight = domain.FrontRight
	BackLeft   = domain.BackLeft
	BackRight  = domain.BackRight
)
