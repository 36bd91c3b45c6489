package storage

import (
	"math"
	"time"

	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// DataPoint represents a single consolidated row of persisted history
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Online    float64   `json:"online"`     // 1=online, 0=offline, ratio when aggregated, NaN=no data
	Players   float64   `json:"players"`    // NaN when no data
	LatencyMs float64   `json:"latency_ms"` // NaN when offline or no data
}

// Sample converts the row into an uptime sample.
// Rows without data return false.
func (p DataPoint) Sample() (uptime.Sample, bool) {
	if math.IsNaN(p.Online) {
		return uptime.Sample{}, false
	}

	s := uptime.Sample{
		Timestamp: p.Timestamp,
		Status:    uptime.StatusOffline,
	}
	if p.Online >= 0.5 {
		s.Status = uptime.StatusOnline
	}
	if !math.IsNaN(p.Players) && p.Players > 0 {
		s.Players = int(math.Round(p.Players))
	}
	return s, true
}

// Samples converts rows into uptime samples, dropping rows without data
func Samples(points []DataPoint) []uptime.Sample {
	samples := make([]uptime.Sample, 0, len(points))
	for _, p := range points {
		if s, ok := p.Sample(); ok {
			samples = append(samples, s)
		}
	}
	return samples
}

// Stats represents the current state of a target
type Stats struct {
	Target      string        `json:"target"`
	Status      uptime.Status `json:"status"`
	Players     int           `json:"players"`
	MaxPlayers  int           `json:"max_players"`
	Version     string        `json:"version,omitempty"`
	MOTD        string        `json:"motd,omitempty"`
	LatencyMs   float64       `json:"latency_ms"` // -1 when offline
	AvgPlayers  float64       `json:"avg_players"`
	PeakPlayers int           `json:"peak_players"`
	OnlinePct   float64       `json:"online_pct"`
	SampleCount int           `json:"sample_count"`
	LastUpdate  time.Time     `json:"last_update"`
	LastChange  time.Time     `json:"last_change"`
}

// Storage defines the interface for persistent time-series storage
type Storage interface {
	// Write stores a probe result for its target
	Write(result probe.Result) error

	// Fetch retrieves data points for a target within a time range
	Fetch(targetName string, from, to time.Time) ([]DataPoint, error)

	// Close releases storage resources
	Close() error
}

// MemoryStorage defines the interface for in-memory real-time storage
type MemoryStorage interface {
	// Write stores a probe result for its target
	Write(result probe.Result)

	// GetStats returns current statistics for a target
	GetStats(targetName string) *Stats

	// GetHistory returns the player counts of the last N samples (-1 = offline)
	GetHistory(targetName string, count int) []float64

	// Samples returns samples newer than since, oldest first
	Samples(targetName string, since time.Time) []uptime.Sample

	// Oldest returns the timestamp of the oldest buffered sample
	Oldest(targetName string) (time.Time, bool)

	// GetAllStats returns statistics for all targets
	GetAllStats() map[string]*Stats
}
