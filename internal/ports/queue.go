package ports

import "github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"

type QueuedReading struct {
	ID      WALEntryID
	Reading *domain.SensorReading
}

type ReadingQueue interface {
	Enqueue(id WALEntryID, r *domain.SensorReading) bool
	DequeueBatch(max int) []QueuedReading
	Len() int
}
