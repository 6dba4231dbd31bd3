package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/luki/tempdash/internal/sensor"
)

// Bucket is the aggregate of all readings sharing a bucket start.
type Bucket struct {
	Time  time.Time // bucket start
	Avg   float64
	Min   float64
	Max   float64
	Count int
}

// Aggregate groups readings into calendar-aligned buckets for ts, evaluated
// in loc (nil means local time). Buckets are returned oldest first.
func Aggregate(readings []sensor.Reading, ts Timescale, loc *time.Location) ([]Bucket, error) {
	if !ts.Valid() {
		return nil, ErrInvalidTimescale
	}

	type acc struct {
		start    time.Time
		sum      float64
		min, max float64
		n        int
	}
	groups := make(map[int64]*acc)

	for _, r := range readings {
		start := ts.Truncate(r.Timestamp, loc)
		key := start.Unix()
		a, ok := groups[key]
		if !ok {
			a = &acc{start: start, min: math.MaxFloat64, max: -math.MaxFloat64}
			groups[key] = a
		}
		a.sum += r.Value
		a.n++
		if r.Value < a.min {
			a.min = r.Value
		}
		if r.Value > a.max {
			a.max = r.Value
		}
	}

	buckets := make([]Bucket, 0, len(groups))
	for _, a := range groups {
		buckets = append(buckets, Bucket{
			Time:  a.start,
			Avg:   a.sum / float64(a.n),
			Min:   a.min,
			Max:   a.max,
			Count: a.n,
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Time.Before(buckets[j].Time) })
	return buckets, nil
}

// Recent keeps the buckets inside the trailing window of ts: the last 60
// minutes, 24 hours, 30 days (including today) or 12 months (including the
// current month).
func Recent(buckets []Bucket, ts Timescale, now time.Time, loc *time.Location) []Bucket {
	if len(buckets) == 0 {
		return buckets
	}
	cutoff := ts.Cutoff(now, loc)
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		if !b.Time.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out
}

// Series aggregates readings and keeps the trailing window relative to now.
func Series(readings []sensor.Reading, ts Timescale, now time.Time, loc *time.Location) ([]Bucket, error) {
	buckets, err := Aggregate(readings, ts, loc)
	if err != nil {
		return nil, err
	}
	return Recent(buckets, ts, now, loc), nil
}
