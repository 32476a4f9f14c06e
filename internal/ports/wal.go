package ports

import "github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"

type WALEntryID uint64

type WAL interface {
	Append(r *domain.SensorReading) (WALEntryID, error)
	Iterate(from WALEntryID, fn func(id WALEntryID, r *domain.SensorReading) error) error
	Commit(upto WALEntryID) error
	TruncateCommitted() error
	Stats() WALStats
}

type WALStats struct {
	OldestUncommitted WALEntryID
	LatestAppended    WALEntryID
	SizeBytes         int64
}
