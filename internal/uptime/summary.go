package uptime

import (
	"strconv"
	"time"
)

// Chart is everything the uptime widget draws for one range
type Chart struct {
	Range          Range     `json:"range"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Buckets        []Bucket  `json:"buckets"`
	Uptime         string    `json:"uptime"`
	DataPoints     int       `json:"data_points"`
	OnlineBuckets  int       `json:"online_buckets"`
	OfflineBuckets int       `json:"offline_buckets"`
}

// Summarize filters history to r, buckets it into DefaultBucketCount slots
// and computes the uptime figures, all against the same now.
func Summarize(history []Sample, r Range, now time.Time) Chart {
	chart, _ := SummarizeN(history, r, now, DefaultBucketCount)
	return chart
}

// SummarizeN is Summarize with an explicit bucket count
func SummarizeN(history []Sample, r Range, now time.Time, count int) (Chart, error) {
	filtered := FilterByRange(history, r, now)

	buckets, err := ComputeBuckets(filtered, r, now, count)
	if err != nil {
		return Chart{}, err
	}

	known, online := counts(buckets)
	return Chart{
		Range:          r,
		From:           now.Add(-r.Duration()),
		To:             now,
		Buckets:        buckets,
		Uptime:         UptimePercentage(buckets),
		DataPoints:     len(filtered),
		OnlineBuckets:  online,
		OfflineBuckets: known - online,
	}, nil
}

// BucketStart returns the start of bucket i of the chart
func (c Chart) BucketStart(i int) time.Time {
	if len(c.Buckets) == 0 {
		return c.From
	}
	start, _ := newWindow(c.Range, c.To, len(c.Buckets)).bounds(i)
	return start
}

// Grade is the severity band of an uptime figure
type Grade int

const (
	GradeGood Grade = iota
	GradeWarning
	GradeBad
)

// String returns the grade name
func (g Grade) String() string {
	switch g {
	case GradeGood:
		return "good"
	case GradeWarning:
		return "warning"
	default:
		return "bad"
	}
}

// GradeOf classifies an uptime percentage: >= 90 good, >= 50 warning, else bad
func GradeOf(pct float64) Grade {
	switch {
	case pct >= 90:
		return GradeGood
	case pct >= 50:
		return GradeWarning
	default:
		return GradeBad
	}
}

// Grade classifies the chart's uptime figure
func (c Chart) Grade() Grade {
	pct, err := strconv.ParseFloat(c.Uptime, 64)
	if err != nil {
		return GradeBad
	}
	return GradeOf(pct)
}
