package probe

import (
	"context"
	"sort"
	"time"

	"github.com/wellsgz/mcpulse/internal/uptime"
)

// Probe type names used in configuration
const (
	TypeMinecraft = "minecraft"
	TypeTCP       = "tcp"
	TypeICMP      = "icmp"
)

// Result represents the outcome of one status check of a target
type Result struct {
	Target     string        `json:"target"`
	Timestamp  time.Time     `json:"timestamp"`
	Online     bool          `json:"online"`
	Players    int           `json:"players"`
	MaxPlayers int           `json:"max_players,omitempty"`
	Version    string        `json:"version,omitempty"`
	MOTD       string        `json:"motd,omitempty"`
	Latency    time.Duration `json:"-"`
	LatencyMs  float64       `json:"latency_ms"` // Median latency of the burst, -1 when offline
	Error      string        `json:"error,omitempty"`

	// Burst statistics for tcp/icmp probes
	MinMs     float64 `json:"min_ms,omitempty"`
	MaxMs     float64 `json:"max_ms,omitempty"`
	JitterMs  float64 `json:"jitter_ms,omitempty"`
	PingsSent int     `json:"pings_sent,omitempty"`
	PingsRecv int     `json:"pings_recv,omitempty"`
}

// Status returns the result as an uptime status
func (r Result) Status() uptime.Status {
	if r.Online {
		return uptime.StatusOnline
	}
	return uptime.StatusOffline
}

// Sample converts the result into a history sample
func (r Result) Sample() uptime.Sample {
	s := uptime.Sample{
		Timestamp: r.Timestamp,
		Status:    r.Status(),
	}
	if r.Online && r.Players > 0 {
		s.Players = r.Players
	}
	return s
}

// Probe defines the interface for all probe types
type Probe interface {
	// Name returns the target name for this probe
	Name() string

	// Host returns the target host
	Host() string

	// Type returns the probe type (minecraft, tcp, icmp)
	Type() string

	// Execute runs the probe and returns the result
	Execute(ctx context.Context) Result
}

// BaseProbe provides common fields for all probe implementations
type BaseProbe struct {
	TargetName string
	TargetHost string
	Timeout    time.Duration
	Pings      int // Number of attempts per execution (burst mode)
}

// Name returns the target name
func (b *BaseProbe) Name() string {
	return b.TargetName
}

// Host returns the target host
func (b *BaseProbe) Host() string {
	return b.TargetHost
}

// NewResult creates a Result for a single round trip
func (b *BaseProbe) NewResult(latency time.Duration, online bool, err error) Result {
	result := Result{
		Target:    b.TargetName,
		Timestamp: time.Now(),
		Latency:   latency,
		Online:    online,
		PingsSent: 1,
	}

	if online {
		result.LatencyMs = durationMs(latency)
		result.MinMs = result.LatencyMs
		result.MaxMs = result.LatencyMs
		result.PingsRecv = 1
	} else {
		result.LatencyMs = -1
		if err != nil {
			result.Error = err.Error()
		}
	}

	return result
}

// BurstStats holds statistics from a burst of probes
type BurstStats struct {
	Rtts        []time.Duration // Individual RTT values
	PacketsSent int
	PacketsRecv int
	MinRtt      time.Duration
	MaxRtt      time.Duration
	StdDevRtt   time.Duration
}

// NewBurstResult creates a Result from burst statistics.
// The target counts as online when at least one attempt succeeded.
func (b *BaseProbe) NewBurstResult(stats BurstStats, err error) Result {
	result := Result{
		Target:    b.TargetName,
		Timestamp: time.Now(),
		PingsSent: stats.PacketsSent,
		PingsRecv: stats.PacketsRecv,
	}

	if stats.PacketsRecv == 0 {
		result.LatencyMs = -1
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Error = "no response"
		}
		return result
	}

	result.Online = true

	medianRtt := calculateMedian(stats.Rtts)
	result.Latency = medianRtt
	result.LatencyMs = durationMs(medianRtt)
	result.MinMs = durationMs(stats.MinRtt)
	result.MaxMs = durationMs(stats.MaxRtt)
	result.JitterMs = durationMs(stats.StdDevRtt)

	return result
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// calculateMedian returns the median value from a slice of durations
func calculateMedian(rtts []time.Duration) time.Duration {
	if len(rtts) == 0 {
		return 0
	}

	// Make a copy to avoid modifying the original
	sorted := make([]time.Duration, len(rtts))
	copy(sorted, rtts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
