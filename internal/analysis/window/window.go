// Package window accumulates per-sensor ordered readings into fixed-duration
// analysis windows. Two independent cadences run per session: a short window
// for gait/symmetry and a long window for HRV.
package window

import (
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
)

// Window is a closed, fixed-duration batch of readings grouped by sensor.
// Missing sensors leave gaps, not errors.
type Window struct {
	Start    time.Time
	End      time.Time
	BySensor map[string][]*domain.SensorReading
}

// Span returns the configured window duration.
func (w *Window) Span() time.Duration { return w.End.Sub(w.Start) }

// Sensors returns the number of sensors that reported in this window.
func (w *Window) Sensors() int { return len(w.BySensor) }

// Buffer accumulates readings into consecutive wall-clock windows. Readings
// arriving after their window closed are dropped and counted.
type Buffer struct {
	span time.Duration
	cur  *Window
	late uint64
}

func NewBuffer(span time.Duration) *Buffer {
	return &Buffer{span: span}
}

// Add routes a reading into the open window. When the reading's timestamp
// crosses the open window's end, that window is closed and returned, and a
// new window is opened to hold the reading. Late readings return (nil, false)
// and bump the late counter.
func (b *Buffer) Add(r *domain.SensorReading) (*Window, bool) {
	if b.cur == nil {
		b.cur = b.open(r.Timestamp)
	}

	if r.Timestamp.Before(b.cur.Start) {
		b.late++
		return nil, false
	}

	if !r.Timestamp.Before(b.cur.End) {
		closed := b.cur
		start := closed.End
		// A long silence advances the boundary to the reading itself so
		// one gap does not produce a train of empty windows.
		if !r.Timestamp.Before(start.Add(b.span)) {
			start = r.Timestamp
		}
		b.cur = b.open(start)
		b.append(r)
		return closed, true
	}

	b.append(r)
	return nil, false
}

// Flush closes and returns the open window, if any.
func (b *Buffer) Flush() *Window {
	w := b.cur
	b.cur = nil
	return w
}

// LateCount reports how many readings were dropped for arriving after their
// window closed.
func (b *Buffer) LateCount() uint64 { return b.late }

func (b *Buffer) open(start time.Time) *Window {
	return &Window{
		Start:    start,
		End:      start.Add(b.span),
		BySensor: make(map[string][]*domain.SensorReading, 4),
	}
}

func (b *Buffer) append(r *domain.SensorReading) {
	b.cur.BySensor[r.SensorID] = append(b.cur.BySensor[r.SensorID], r)
}

// RRWindow is a closed batch of heart samples.
type RRWindow struct {
	Start   time.Time
	End     time.Time
	Samples []domain.HeartSample
}

// RRBuffer accumulates R-R intervals on the long cadence. It shares the
// late-drop discipline of Buffer but keys nothing by sensor: there is one
// cardiac stream per session.
type RRBuffer struct {
	span  time.Duration
	start time.Time
	end   time.Time
	cur   []domain.HeartSample
	late  uint64
}

func NewRRBuffer(span time.Duration) *RRBuffer {
	return &RRBuffer{span: span}
}

// Add appends a heart sample, returning the closed window when the sample
// crosses the open window's end.
func (b *RRBuffer) Add(s domain.HeartSample) (*RRWindow, bool) {
	if b.start.IsZero() {
		b.open(s.Timestamp)
	}

	if s.Timestamp.Before(b.start) {
		b.late++
		return nil, false
	}

	if !s.Timestamp.Before(b.end) {
		closed := &RRWindow{Start: b.start, End: b.end, Samples: b.cur}
		start := b.end
		if !s.Timestamp.Before(start.Add(b.span)) {
			start = s.Timestamp
		}
		b.open(start)
		b.cur = append(b.cur, s)
		return closed, true
	}

	b.cur = append(b.cur, s)
	return nil, false
}

// Flush closes and returns the open window, if any samples accumulated.
func (b *RRBuffer) Flush() *RRWindow {
	if b.start.IsZero() {
		return nil
	}
	w := &RRWindow{Start: b.start, End: b.end, Samples: b.cur}
	b.start, b.end, b.cur = time.Time{}, time.Time{}, nil
	return w
}

// LateCount reports dropped late heart samples.
func (b *RRBuffer) LateCount() uint64 { return b.late }

func (b *RRBuffer) open(start time.Time) {
	b.start = start
	b.end = start.Add(b.span)
	b.cur = nil
}
