// Package uptime turns a server's status history into the fixed-width
// bar chart shown on the dashboard.
//
// All functions are pure: they take the history, the selected range and a
// reference instant, and never retain or modify the caller's samples. The
// caller captures now once and passes the same value to every step of a
// computation.
package uptime

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// DefaultBucketCount is the number of bars drawn by the uptime chart
const DefaultBucketCount = 60

// ErrInvalidBucketCount is returned when a non-positive bucket count is requested
var ErrInvalidBucketCount = errors.New("bucket count must be positive")

// Status is the observed state of a server or of a chart bucket
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown" // bucket with no samples
)

// Sample is one point-in-time observation of the monitored server
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Players   int       `json:"players"`
}

// Bucket summarises the samples that fell into one slot of the chart
type Bucket struct {
	Status  Status `json:"status"`
	Players int    `json:"players"` // rounded mean
}

// FilterByRange returns the samples newer than now minus the range duration.
// Order is preserved and the input slice is not modified.
func FilterByRange(history []Sample, r Range, now time.Time) []Sample {
	cutoff := now.Add(-r.Duration())

	filtered := make([]Sample, 0, len(history))
	for _, s := range history {
		if s.Timestamp.After(cutoff) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// window describes how [now-range, now) is cut into count slots
type window struct {
	start time.Time
	size  time.Duration
	rem   time.Duration // nanoseconds left over by size*count
	count int
}

func newWindow(r Range, now time.Time, count int) window {
	rangeDur := r.Duration()
	return window{
		start: now.Add(-rangeDur),
		size:  rangeDur / time.Duration(count),
		rem:   rangeDur % time.Duration(count),
		count: count,
	}
}

// offset returns the distance of boundary i from the window start.
// The remainder is spread over the buckets so boundary count lands on now.
func (w window) offset(i int) time.Duration {
	return time.Duration(i)*w.size + w.rem*time.Duration(i)/time.Duration(w.count)
}

// index returns the bucket holding t, or -1 when t is outside the window
func (w window) index(t time.Time) int {
	off := t.Sub(w.start)
	if off < 0 || off >= w.offset(w.count) {
		return -1
	}
	// first bucket whose end lies after t
	return sort.Search(w.count, func(i int) bool {
		return w.offset(i+1) > off
	})
}

// bounds returns the half-open interval [start, end) of bucket i
func (w window) bounds(i int) (time.Time, time.Time) {
	return w.start.Add(w.offset(i)), w.start.Add(w.offset(i + 1))
}

// ComputeBuckets partitions [now-range, now) into count equal slots and
// aggregates the samples of each slot. A sample at exactly the end of a
// slot belongs to the following slot. Samples outside the window are
// ignored, so passing unfiltered history is safe.
func ComputeBuckets(filtered []Sample, r Range, now time.Time, count int) ([]Bucket, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBucketCount, count)
	}

	buckets := make([]Bucket, count)
	for i := range buckets {
		buckets[i] = Bucket{Status: StatusUnknown}
	}
	if len(filtered) == 0 {
		return buckets, nil
	}

	type tally struct {
		total   int
		online  int
		players int
	}
	tallies := make([]tally, count)

	w := newWindow(r, now, count)
	for _, s := range filtered {
		idx := w.index(s.Timestamp)
		if idx < 0 {
			continue
		}
		tallies[idx].total++
		if s.Status == StatusOnline {
			tallies[idx].online++
		}
		tallies[idx].players += s.Players
	}

	for i, t := range tallies {
		if t.total == 0 {
			continue
		}
		status := StatusOffline
		// online >= total/2, ties go to online
		if 2*t.online >= t.total {
			status = StatusOnline
		}
		buckets[i] = Bucket{
			Status:  status,
			Players: roundMean(t.players, t.total),
		}
	}

	return buckets, nil
}

// roundMean returns sum/n rounded half up
func roundMean(sum, n int) int {
	return int(math.Floor(float64(sum)/float64(n) + 0.5))
}

// counts returns the number of buckets with a known status and how many of
// them were online
func counts(buckets []Bucket) (known, online int) {
	for _, b := range buckets {
		switch b.Status {
		case StatusOnline:
			online++
			known++
		case StatusOffline:
			known++
		}
	}
	return known, online
}

// UptimePercentage returns the share of known buckets that were online,
// formatted with one decimal rounded half up (15 of 16 is "93.8"). With no
// known buckets it reports "100.0".
func UptimePercentage(buckets []Bucket) string {
	known, online := counts(buckets)
	if known == 0 {
		return "100.0"
	}
	pct := float64(online) / float64(known) * 100
	return strconv.FormatFloat(math.Floor(pct*10+0.5)/10, 'f', 1, 64)
}
