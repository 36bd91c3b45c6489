package probe

import (
	"errors"
	"testing"
	"time"

	"github.com/wellsgz/mcpulse/internal/uptime"
)

func TestCalculateMedian(t *testing.T) {
	tests := []struct {
		name string
		rtts []time.Duration
		want time.Duration
	}{
		{
			name: "empty",
			rtts: []time.Duration{},
			want: 0,
		},
		{
			name: "single value",
			rtts: []time.Duration{10 * time.Millisecond},
			want: 10 * time.Millisecond,
		},
		{
			name: "odd count",
			rtts: []time.Duration{
				10 * time.Millisecond,
				20 * time.Millisecond,
				30 * time.Millisecond,
			},
			want: 20 * time.Millisecond,
		},
		{
			name: "even count",
			rtts: []time.Duration{
				10 * time.Millisecond,
				20 * time.Millisecond,
				30 * time.Millisecond,
				40 * time.Millisecond,
			},
			want: 25 * time.Millisecond, // (20+30)/2
		},
		{
			name: "unsorted input",
			rtts: []time.Duration{
				30 * time.Millisecond,
				10 * time.Millisecond,
				20 * time.Millisecond,
			},
			want: 20 * time.Millisecond,
		},
		{
			name: "typical burst (20 pings)",
			rtts: []time.Duration{
				10 * time.Millisecond, 11 * time.Millisecond, 12 * time.Millisecond, 13 * time.Millisecond,
				14 * time.Millisecond, 15 * time.Millisecond, 16 * time.Millisecond, 17 * time.Millisecond,
				18 * time.Millisecond, 19 * time.Millisecond, 20 * time.Millisecond, 21 * time.Millisecond,
				22 * time.Millisecond, 23 * time.Millisecond, 24 * time.Millisecond, 25 * time.Millisecond,
				26 * time.Millisecond, 27 * time.Millisecond, 28 * time.Millisecond, 29 * time.Millisecond,
			},
			want: (19*time.Millisecond + 20*time.Millisecond) / 2, // Average of 10th and 11th values
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateMedian(tt.rtts)
			if got != tt.want {
				t.Errorf("calculateMedian() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewBurstResult(t *testing.T) {
	base := &BaseProbe{
		TargetName: "Lobby",
		TargetHost: "play.example.net",
		Timeout:    5 * time.Second,
		Pings:      3,
	}

	tests := []struct {
		name        string
		stats       BurstStats
		err         error
		wantOnline  bool
		wantLatency float64
		wantError   string
	}{
		{
			name: "all answered",
			stats: BurstStats{
				Rtts:        []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond},
				PacketsSent: 3,
				PacketsRecv: 3,
				MinRtt:      10 * time.Millisecond,
				MaxRtt:      30 * time.Millisecond,
			},
			wantOnline:  true,
			wantLatency: 20,
		},
		{
			name: "partial answers still online",
			stats: BurstStats{
				Rtts:        []time.Duration{12 * time.Millisecond},
				PacketsSent: 3,
				PacketsRecv: 1,
				MinRtt:      12 * time.Millisecond,
				MaxRtt:      12 * time.Millisecond,
			},
			wantOnline:  true,
			wantLatency: 12,
		},
		{
			name:        "no answers",
			stats:       BurstStats{PacketsSent: 3},
			wantOnline:  false,
			wantLatency: -1,
			wantError:   "no response",
		},
		{
			name:        "no answers with error",
			stats:       BurstStats{PacketsSent: 3},
			err:         errors.New("connection refused"),
			wantOnline:  false,
			wantLatency: -1,
			wantError:   "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := base.NewBurstResult(tt.stats, tt.err)
			if result.Online != tt.wantOnline {
				t.Errorf("NewBurstResult() Online = %v, want %v", result.Online, tt.wantOnline)
			}
			if result.LatencyMs != tt.wantLatency {
				t.Errorf("NewBurstResult() LatencyMs = %v, want %v", result.LatencyMs, tt.wantLatency)
			}
			if result.Error != tt.wantError {
				t.Errorf("NewBurstResult() Error = %q, want %q", result.Error, tt.wantError)
			}
			if result.Target != "Lobby" {
				t.Errorf("NewBurstResult() Target = %q", result.Target)
			}
		})
	}
}

func TestNewResult(t *testing.T) {
	base := &BaseProbe{
		TargetName: "Lobby",
		TargetHost: "play.example.net",
		Timeout:    5 * time.Second,
		Pings:      1,
	}

	t.Run("online", func(t *testing.T) {
		result := base.NewResult(10*time.Millisecond, true, nil)
		if !result.Online {
			t.Error("NewResult() Online should be true")
		}
		if result.LatencyMs != 10.0 {
			t.Errorf("NewResult() LatencyMs = %v, want 10.0", result.LatencyMs)
		}
	})

	t.Run("offline", func(t *testing.T) {
		result := base.NewResult(0, false, errors.New("timeout"))
		if result.Online {
			t.Error("NewResult() Online should be false")
		}
		if result.LatencyMs != -1 {
			t.Errorf("NewResult() LatencyMs = %v, want -1", result.LatencyMs)
		}
		if result.Error != "timeout" {
			t.Errorf("NewResult() Error = %q, want timeout", result.Error)
		}
	})
}

func TestResultSample(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	online := Result{Target: "Lobby", Timestamp: ts, Online: true, Players: 42}
	if s := online.Sample(); s.Status != uptime.StatusOnline || s.Players != 42 || !s.Timestamp.Equal(ts) {
		t.Errorf("Sample() = %+v", s)
	}

	offline := Result{Target: "Lobby", Timestamp: ts, Players: 5}
	if s := offline.Sample(); s.Status != uptime.StatusOffline || s.Players != 0 {
		t.Errorf("Sample() = %+v, want offline with 0 players", s)
	}
}

func TestSummarizeRtts(t *testing.T) {
	stats := summarizeRtts([]time.Duration{10 * time.Millisecond, 30 * time.Millisecond}, 3)
	if stats.PacketsSent != 3 || stats.PacketsRecv != 2 {
		t.Errorf("sent/recv = %d/%d, want 3/2", stats.PacketsSent, stats.PacketsRecv)
	}
	if stats.MinRtt != 10*time.Millisecond || stats.MaxRtt != 30*time.Millisecond {
		t.Errorf("min/max = %v/%v", stats.MinRtt, stats.MaxRtt)
	}
	if stats.StdDevRtt != 10*time.Millisecond {
		t.Errorf("stddev = %v, want 10ms", stats.StdDevRtt)
	}

	empty := summarizeRtts(nil, 3)
	if empty.PacketsRecv != 0 || empty.MinRtt != 0 {
		t.Errorf("summarizeRtts(nil) = %+v", empty)
	}
}
