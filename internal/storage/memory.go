package storage

import (
	"sync"
	"time"

	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// 24 hours at the default 10s interval
const defaultBufferSize = 8640

// MemoryBuffer implements in-memory storage with ring buffer and statistics
type MemoryBuffer struct {
	bufferSize int
	targets    map[string]*targetBuffer
	mu         sync.RWMutex
}

// targetBuffer holds data for a single target
type targetBuffer struct {
	samples        []sample
	head           int  // Next write position
	count          int  // Number of valid samples
	full           bool // Whether buffer has wrapped
	lastUpdate     time.Time
	lastChange     time.Time
	firstOnlineIdx int  // Index of first online sample (-1 if none yet)
	hasFirstOnline bool // Whether the target has been seen online
	mu             sync.RWMutex
}

// sample represents a single observation
type sample struct {
	timestamp  time.Time
	online     bool
	players    int
	maxPlayers int
	latencyMs  float64
	version    string
	motd       string
}

// NewMemoryBuffer creates a new in-memory buffer
func NewMemoryBuffer(bufferSize int) *MemoryBuffer {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &MemoryBuffer{
		bufferSize: bufferSize,
		targets:    make(map[string]*targetBuffer),
	}
}

// target returns the buffer for a target, creating it when needed
func (m *MemoryBuffer) target(name string) *targetBuffer {
	m.mu.RLock()
	tb, exists := m.targets[name]
	m.mu.RUnlock()
	if exists {
		return tb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Double-check after acquiring write lock
	if tb, exists = m.targets[name]; !exists {
		tb = &targetBuffer{
			samples:        make([]sample, m.bufferSize),
			firstOnlineIdx: -1,
		}
		m.targets[name] = tb
	}
	return tb
}

// lookup returns the buffer for a target without creating it
func (m *MemoryBuffer) lookup(name string) (*targetBuffer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tb, ok := m.targets[name]
	return tb, ok
}

// Write stores a probe result for its target
func (m *MemoryBuffer) Write(result probe.Result) {
	tb := m.target(result.Target)

	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.count > 0 {
		prev := tb.samples[(tb.head-1+m.bufferSize)%m.bufferSize]
		if prev.online != result.Online {
			tb.lastChange = result.Timestamp
		}
	} else {
		tb.lastChange = result.Timestamp
	}

	currentIdx := tb.head
	tb.samples[tb.head] = sample{
		timestamp:  result.Timestamp,
		online:     result.Online,
		players:    result.Players,
		maxPlayers: result.MaxPlayers,
		latencyMs:  result.LatencyMs,
		version:    result.Version,
		motd:       result.MOTD,
	}

	if !tb.hasFirstOnline && result.Online {
		tb.firstOnlineIdx = currentIdx
		tb.hasFirstOnline = true
	}

	tb.head = (tb.head + 1) % m.bufferSize
	if tb.count < m.bufferSize {
		tb.count++
	} else {
		tb.full = true
		// The first online sample was overwritten; find the next one
		if tb.hasFirstOnline && currentIdx == tb.firstOnlineIdx {
			tb.firstOnlineIdx = -1
			tb.hasFirstOnline = false
			for i := 0; i < m.bufferSize; i++ {
				idx := (tb.head + i) % m.bufferSize
				if tb.samples[idx].online {
					tb.firstOnlineIdx = idx
					tb.hasFirstOnline = true
					break
				}
			}
		}
	}
	tb.lastUpdate = result.Timestamp
}

// GetStats returns current statistics for a target
func (m *MemoryBuffer) GetStats(targetName string) *Stats {
	tb, exists := m.lookup(targetName)
	if !exists {
		return &Stats{Target: targetName, Status: uptime.StatusUnknown, LatencyMs: -1}
	}

	tb.mu.RLock()
	defer tb.mu.RUnlock()

	return calculateStats(targetName, tb, m.bufferSize)
}

// GetHistory returns the player counts of the last N samples (for sparklines).
// Offline samples are reported as -1.
func (m *MemoryBuffer) GetHistory(targetName string, count int) []float64 {
	tb, exists := m.lookup(targetName)
	if !exists {
		return []float64{}
	}

	tb.mu.RLock()
	defer tb.mu.RUnlock()

	if count <= 0 || count > tb.count {
		count = tb.count
	}

	result := make([]float64, count)

	// Read samples in chronological order (oldest to newest)
	start := tb.head - count
	if start < 0 {
		start += m.bufferSize
	}

	for i := 0; i < count; i++ {
		s := tb.samples[(start+i)%m.bufferSize]
		if s.online {
			result[i] = float64(s.players)
		} else {
			result[i] = -1
		}
	}

	return result
}

// Samples returns the buffered samples newer than since, oldest first
func (m *MemoryBuffer) Samples(targetName string, since time.Time) []uptime.Sample {
	tb, exists := m.lookup(targetName)
	if !exists {
		return []uptime.Sample{}
	}

	tb.mu.RLock()
	defer tb.mu.RUnlock()

	start := tb.head - tb.count
	if start < 0 {
		start += m.bufferSize
	}

	result := make([]uptime.Sample, 0, tb.count)
	for i := 0; i < tb.count; i++ {
		s := tb.samples[(start+i)%m.bufferSize]
		if !s.timestamp.After(since) {
			continue
		}
		result = append(result, s.toUptime())
	}
	return result
}

// Oldest returns the timestamp of the oldest buffered sample
func (m *MemoryBuffer) Oldest(targetName string) (time.Time, bool) {
	tb, exists := m.lookup(targetName)
	if !exists {
		return time.Time{}, false
	}

	tb.mu.RLock()
	defer tb.mu.RUnlock()

	if tb.count == 0 {
		return time.Time{}, false
	}
	start := tb.head - tb.count
	if start < 0 {
		start += m.bufferSize
	}
	return tb.samples[start].timestamp, true
}

// GetAllStats returns statistics for all targets
func (m *MemoryBuffer) GetAllStats() map[string]*Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*Stats, len(m.targets))
	for name, tb := range m.targets {
		tb.mu.RLock()
		result[name] = calculateStats(name, tb, m.bufferSize)
		tb.mu.RUnlock()
	}
	return result
}

func (s sample) toUptime() uptime.Sample {
	out := uptime.Sample{Timestamp: s.timestamp, Status: uptime.StatusOffline}
	if s.online {
		out.Status = uptime.StatusOnline
		out.Players = s.players
	}
	return out
}

// calculateStats computes statistics from a target buffer
// Must be called with tb.mu held
func calculateStats(targetName string, tb *targetBuffer, bufferSize int) *Stats {
	stats := &Stats{
		Target:     targetName,
		Status:     uptime.StatusUnknown,
		LatencyMs:  -1,
		LastUpdate: tb.lastUpdate,
		LastChange: tb.lastChange,
	}

	if tb.count == 0 {
		return stats
	}

	// Latest observation
	last := tb.samples[(tb.head-1+bufferSize)%bufferSize]
	stats.Status = uptime.StatusOffline
	if last.online {
		stats.Status = uptime.StatusOnline
		stats.Players = last.players
		stats.MaxPlayers = last.maxPlayers
		stats.Version = last.version
		stats.MOTD = last.motd
		stats.LatencyMs = last.latencyMs
	}

	// Never seen online: don't report a 0% history for a server that
	// may simply still be starting
	if !tb.hasFirstOnline {
		return stats
	}

	// Count samples from the first online one to the newest
	oldest := tb.head - tb.count
	if oldest < 0 {
		oldest += bufferSize
	}
	sampleCount := tb.count - (tb.firstOnlineIdx-oldest+bufferSize)%bufferSize
	if sampleCount <= 0 {
		return stats
	}

	onlineCount := 0
	playerSum := 0
	for i := 0; i < sampleCount; i++ {
		s := tb.samples[(tb.firstOnlineIdx+i)%bufferSize]
		if !s.online {
			continue
		}
		onlineCount++
		playerSum += s.players
		if s.players > stats.PeakPlayers {
			stats.PeakPlayers = s.players
		}
	}

	stats.SampleCount = sampleCount
	stats.OnlinePct = float64(onlineCount) / float64(sampleCount) * 100
	if onlineCount > 0 {
		stats.AvgPlayers = float64(playerSum) / float64(onlineCount)
	}

	return stats
}
