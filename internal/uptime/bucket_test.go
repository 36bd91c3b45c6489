package uptime

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleAt(offset time.Duration, status Status, players int) Sample {
	return Sample{Timestamp: testNow.Add(offset), Status: status, Players: players}
}

func TestFilterByRange(t *testing.T) {
	history := []Sample{
		sampleAt(-2*time.Hour, StatusOnline, 1),
		sampleAt(-time.Hour, StatusOnline, 2), // exactly at cutoff, excluded
		sampleAt(-59*time.Minute, StatusOffline, 3),
		sampleAt(-time.Minute, StatusOnline, 4),
	}
	original := append([]Sample(nil), history...)

	got := FilterByRange(history, Range1Hour, testNow)

	want := []Sample{history[2], history[3]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterByRange() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(history, original) {
		t.Error("FilterByRange() modified its input")
	}
}

func TestFilterByRangeEmpty(t *testing.T) {
	got := FilterByRange(nil, Range24Hours, testNow)
	if len(got) != 0 {
		t.Errorf("FilterByRange(nil) returned %d samples, want 0", len(got))
	}
}

func TestComputeBucketsCount(t *testing.T) {
	for _, r := range Ranges() {
		t.Run(r.String(), func(t *testing.T) {
			buckets, err := ComputeBuckets(nil, r, testNow, DefaultBucketCount)
			if err != nil {
				t.Fatalf("ComputeBuckets() error = %v", err)
			}
			if len(buckets) != DefaultBucketCount {
				t.Errorf("got %d buckets, want %d", len(buckets), DefaultBucketCount)
			}
		})
	}
}

func TestComputeBucketsEmptyInput(t *testing.T) {
	buckets, err := ComputeBuckets([]Sample{}, Range1Hour, testNow, DefaultBucketCount)
	if err != nil {
		t.Fatalf("ComputeBuckets() error = %v", err)
	}
	for i, b := range buckets {
		if b != (Bucket{Status: StatusUnknown}) {
			t.Errorf("bucket %d = %+v, want unknown with 0 players", i, b)
		}
	}
	if got := UptimePercentage(buckets); got != "100.0" {
		t.Errorf("UptimePercentage() = %q, want %q", got, "100.0")
	}
}

func TestComputeBucketsCoverage(t *testing.T) {
	counts := []int{1, 7, 60, 61, 1000}
	for _, r := range Ranges() {
		for _, count := range counts {
			w := newWindow(r, testNow, count)

			first, _ := w.bounds(0)
			if !first.Equal(testNow.Add(-r.Duration())) {
				t.Errorf("%s/%d: first bucket starts at %v, want %v", r, count, first, testNow.Add(-r.Duration()))
			}
			_, last := w.bounds(count - 1)
			if !last.Equal(testNow) {
				t.Errorf("%s/%d: last bucket ends at %v, want %v", r, count, last, testNow)
			}

			for i := 0; i < count-1; i++ {
				_, end := w.bounds(i)
				next, _ := w.bounds(i + 1)
				if !end.Equal(next) {
					t.Fatalf("%s/%d: gap between bucket %d and %d", r, count, i, i+1)
				}
				start, _ := w.bounds(i)
				if !start.Before(end) {
					t.Fatalf("%s/%d: bucket %d is empty or reversed", r, count, i)
				}
			}
		}
	}
}

func TestComputeBucketsMajority(t *testing.T) {
	// bucket 0 of the 1h range is [now-60m, now-59m)
	tests := []struct {
		name        string
		samples     []Sample
		wantStatus  Status
		wantPlayers int
	}{
		{
			name: "two of three online",
			samples: []Sample{
				sampleAt(-60*time.Minute, StatusOnline, 10),
				sampleAt(-60*time.Minute+10*time.Second, StatusOnline, 11),
				sampleAt(-60*time.Minute+20*time.Second, StatusOffline, 0),
			},
			wantStatus:  StatusOnline,
			wantPlayers: 7, // 21/3
		},
		{
			name: "tie resolves to online",
			samples: []Sample{
				sampleAt(-60*time.Minute, StatusOnline, 4),
				sampleAt(-60*time.Minute+30*time.Second, StatusOffline, 0),
			},
			wantStatus:  StatusOnline,
			wantPlayers: 2,
		},
		{
			name: "minority online",
			samples: []Sample{
				sampleAt(-60*time.Minute, StatusOnline, 5),
				sampleAt(-60*time.Minute+10*time.Second, StatusOffline, 0),
				sampleAt(-60*time.Minute+20*time.Second, StatusOffline, 0),
			},
			wantStatus:  StatusOffline,
			wantPlayers: 2, // 5/3 = 1.67
		},
		{
			name: "mean rounds half up",
			samples: []Sample{
				sampleAt(-60*time.Minute, StatusOnline, 2),
				sampleAt(-60*time.Minute+10*time.Second, StatusOnline, 3),
			},
			wantStatus:  StatusOnline,
			wantPlayers: 3, // 2.5
		},
		{
			name: "all offline",
			samples: []Sample{
				sampleAt(-60*time.Minute, StatusOffline, 0),
			},
			wantStatus:  StatusOffline,
			wantPlayers: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets, err := ComputeBuckets(tt.samples, Range1Hour, testNow, DefaultBucketCount)
			if err != nil {
				t.Fatalf("ComputeBuckets() error = %v", err)
			}
			if buckets[0].Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", buckets[0].Status, tt.wantStatus)
			}
			if buckets[0].Players != tt.wantPlayers {
				t.Errorf("players = %d, want %d", buckets[0].Players, tt.wantPlayers)
			}
			for i, b := range buckets[1:] {
				if b.Status != StatusUnknown {
					t.Errorf("bucket %d = %s, want unknown", i+1, b.Status)
				}
			}
		})
	}
}

func TestComputeBucketsSingleSample(t *testing.T) {
	history := []Sample{sampleAt(-30*time.Minute, StatusOnline, 10)}

	filtered := FilterByRange(history, Range1Hour, testNow)
	buckets, err := ComputeBuckets(filtered, Range1Hour, testNow, DefaultBucketCount)
	if err != nil {
		t.Fatalf("ComputeBuckets() error = %v", err)
	}

	online := 0
	for i, b := range buckets {
		switch b.Status {
		case StatusOnline:
			online++
			if i != 30 {
				t.Errorf("online bucket at index %d, want 30", i)
			}
			if b.Players != 10 {
				t.Errorf("players = %d, want 10", b.Players)
			}
		case StatusUnknown:
		default:
			t.Errorf("bucket %d has status %s", i, b.Status)
		}
	}
	if online != 1 {
		t.Errorf("got %d online buckets, want 1", online)
	}
	if got := UptimePercentage(buckets); got != "100.0" {
		t.Errorf("UptimePercentage() = %q, want %q", got, "100.0")
	}
}

func TestComputeBucketsBoundary(t *testing.T) {
	// 1h / 60 = 1 minute per bucket; bucket 10 ends at now-49m
	boundary := -49 * time.Minute
	samples := []Sample{sampleAt(boundary, StatusOffline, 3)}

	buckets, err := ComputeBuckets(samples, Range1Hour, testNow, DefaultBucketCount)
	if err != nil {
		t.Fatalf("ComputeBuckets() error = %v", err)
	}
	if buckets[10].Status != StatusUnknown {
		t.Errorf("bucket 10 = %s, want unknown", buckets[10].Status)
	}
	if buckets[11].Status != StatusOffline {
		t.Errorf("bucket 11 = %s, want offline", buckets[11].Status)
	}

	known := 0
	for _, b := range buckets {
		if b.Status != StatusUnknown {
			known++
		}
	}
	if known != 1 {
		t.Errorf("sample counted in %d buckets, want 1", known)
	}
}

func TestComputeBucketsIgnoresOutOfWindow(t *testing.T) {
	samples := []Sample{
		sampleAt(-2*time.Hour, StatusOffline, 0),
		sampleAt(0, StatusOffline, 0), // now is excluded
		sampleAt(time.Minute, StatusOffline, 0),
		sampleAt(-time.Second, StatusOnline, 8),
	}

	buckets, err := ComputeBuckets(samples, Range1Hour, testNow, DefaultBucketCount)
	if err != nil {
		t.Fatalf("ComputeBuckets() error = %v", err)
	}
	for i, b := range buckets[:59] {
		if b.Status != StatusUnknown {
			t.Errorf("bucket %d = %s, want unknown", i, b.Status)
		}
	}
	if buckets[59] != (Bucket{Status: StatusOnline, Players: 8}) {
		t.Errorf("last bucket = %+v, want online with 8 players", buckets[59])
	}
}

func TestComputeBucketsIdempotent(t *testing.T) {
	var samples []Sample
	for i := 0; i < 500; i++ {
		status := StatusOnline
		if i%7 == 0 {
			status = StatusOffline
		}
		samples = append(samples, sampleAt(-time.Duration(i)*13*time.Second, status, i%20))
	}

	first, err := ComputeBuckets(samples, Range6Hours, testNow, DefaultBucketCount)
	if err != nil {
		t.Fatalf("ComputeBuckets() error = %v", err)
	}
	second, err := ComputeBuckets(samples, Range6Hours, testNow, DefaultBucketCount)
	if err != nil {
		t.Fatalf("ComputeBuckets() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("ComputeBuckets() is not idempotent")
	}
}

func TestComputeBucketsUnsortedInput(t *testing.T) {
	samples := []Sample{
		sampleAt(-time.Second, StatusOnline, 1),
		sampleAt(-59*time.Minute-30*time.Second, StatusOffline, 0),
		sampleAt(-30*time.Minute, StatusOnline, 5),
	}

	buckets, err := ComputeBuckets(samples, Range1Hour, testNow, DefaultBucketCount)
	if err != nil {
		t.Fatalf("ComputeBuckets() error = %v", err)
	}
	if buckets[0].Status != StatusOffline || buckets[30].Status != StatusOnline || buckets[59].Status != StatusOnline {
		t.Errorf("unexpected buckets: 0=%s 30=%s 59=%s", buckets[0].Status, buckets[30].Status, buckets[59].Status)
	}
}

func TestComputeBucketsInvalidCount(t *testing.T) {
	for _, count := range []int{0, -1} {
		_, err := ComputeBuckets(nil, Range1Hour, testNow, count)
		if !errors.Is(err, ErrInvalidBucketCount) {
			t.Errorf("ComputeBuckets(count=%d) error = %v, want ErrInvalidBucketCount", count, err)
		}
	}
}

func TestUptimePercentage(t *testing.T) {
	repeat := func(status Status, n int) []Bucket {
		out := make([]Bucket, n)
		for i := range out {
			out[i] = Bucket{Status: status}
		}
		return out
	}
	join := func(parts ...[]Bucket) []Bucket {
		var out []Bucket
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}

	tests := []struct {
		name    string
		buckets []Bucket
		want    string
	}{
		{"no buckets", nil, "100.0"},
		{"all unknown", repeat(StatusUnknown, 60), "100.0"},
		{"seven of ten", join(repeat(StatusOnline, 7), repeat(StatusOffline, 3), repeat(StatusUnknown, 50)), "70.0"},
		{"all offline", repeat(StatusOffline, 5), "0.0"},
		{"all online", repeat(StatusOnline, 60), "100.0"},
		{"two of three", join(repeat(StatusOnline, 2), repeat(StatusOffline, 1)), "66.7"},
		{"one of sixteen", join(repeat(StatusOnline, 1), repeat(StatusOffline, 15)), "6.3"},
		{"five of sixteen", join(repeat(StatusOnline, 5), repeat(StatusOffline, 11)), "31.3"},
		{"nine of sixteen", join(repeat(StatusOnline, 9), repeat(StatusOffline, 7)), "56.3"},
		{"thirteen of sixteen", join(repeat(StatusOnline, 13), repeat(StatusOffline, 3)), "81.3"},
		{"one of eight", join(repeat(StatusOnline, 1), repeat(StatusOffline, 7)), "12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UptimePercentage(tt.buckets); got != tt.want {
				t.Errorf("UptimePercentage() = %q, want %q", got, tt.want)
			}
		})
	}
}
