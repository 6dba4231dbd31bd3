// Package history provides a bounded point buffer for chart series with
// min/peak/avg statistics.
package history

import (
	"math"
	"time"

	"github.com/luki/tempdash/internal/aggregate"
)

// Point is a single data point in a chart series.
type Point struct {
	Value float64
	Time  time.Time
}

// Buffer stores the most recent points of one series.
type Buffer struct {
	Points []Point
	Max    int // capacity
	Min    float64
	Peak   float64
}

// NewBuffer creates a new buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

// FromBuckets fills a buffer with the bucket averages, keeping the newest
// capacity buckets.
func FromBuckets(buckets []aggregate.Bucket, capacity int) *Buffer {
	if capacity <= 0 {
		capacity = len(buckets)
	}
	b := NewBuffer(capacity)
	for _, bk := range buckets {
		b.Push(bk.Avg, bk.Time)
	}
	return b
}

// Push appends a point, dropping the oldest one when full.
func (b *Buffer) Push(v float64, t time.Time) {
	if b.Max <= 0 {
		return
	}
	p := Point{Value: v, Time: t}
	if len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = p
	} else {
		b.Points = append(b.Points, p)
	}

	if v < b.Min {
		b.Min = v
	}
	if v > b.Peak {
		b.Peak = v
	}
}

// Len returns the number of stored points.
func (b *Buffer) Len() int { return len(b.Points) }

// Last returns the most recent value, or 0 if empty.
func (b *Buffer) Last() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	return b.Points[len(b.Points)-1].Value
}

// Avg returns the average value across all stored points.
func (b *Buffer) Avg() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range b.Points {
		sum += p.Value
	}
	return sum / float64(len(b.Points))
}

// Range returns a padded [lo, hi] span for chart scaling.
func (b *Buffer) Range(pad float64) (float64, float64) {
	if len(b.Points) == 0 {
		return 0, 1
	}
	lo, hi := b.Min-pad, b.Peak+pad
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// LastNPoints returns a copy of the last n points.
func (b *Buffer) LastNPoints(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(b.Points[start:]))
	copy(out, b.Points[start:])
	return out
}
