package collector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/logging"
	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// Health summarizes the state of all targets
type Health string

const (
	HealthOnline   Health = "online"
	HealthOffline  Health = "offline"
	HealthDegraded Health = "degraded"
	HealthChecking Health = "checking"
)

// Collector manages probes and broadcasts results
type Collector struct {
	config  *config.Config
	probes  map[string]probe.Probe
	storage storage.Storage
	memory  storage.MemoryStorage

	// Event broadcasting
	subscribers map[chan probe.Result]struct{}
	subMu       sync.RWMutex

	// Set while a probe run is in flight
	running     atomic.Bool
	lastChecked atomic.Int64 // Unix nanoseconds, 0 before the first run

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProbe creates the probe configured for a target
func NewProbe(target config.Target, global config.GlobalConfig) (probe.Probe, error) {
	switch target.Probe {
	case probe.TypeMinecraft:
		return probe.NewMinecraftProbe(target.Name, target.Host, target.Port, global.Timeout), nil
	case probe.TypeTCP:
		return probe.NewTCPProbe(target.Name, target.Host, target.Port, global.Timeout, global.Pings), nil
	case probe.TypeICMP:
		return probe.NewICMPProbe(target.Name, target.Host, global.Timeout, global.Pings), nil
	default:
		return nil, fmt.Errorf("unknown probe type %q", target.Probe)
	}
}

// NewCollector creates a new collector with the given configuration
func NewCollector(cfg *config.Config, store storage.Storage, mem storage.MemoryStorage) *Collector {
	c := newCollector(cfg, store, mem)

	for _, target := range cfg.Targets {
		p, err := NewProbe(target, cfg.Global)
		if err != nil {
			logging.Error("Collector", fmt.Sprintf("Skipping target %q", target.Name), err)
			continue
		}
		c.probes[target.Name] = p
		logging.Info("Collector", fmt.Sprintf("Created %s probe for %s (%s)", target.Probe, target.Name, target.Host), nil)
	}

	return c
}

// newCollector creates a collector without probes
func newCollector(cfg *config.Config, store storage.Storage, mem storage.MemoryStorage) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		config:      cfg,
		probes:      make(map[string]probe.Probe),
		storage:     store,
		memory:      mem,
		subscribers: make(map[chan probe.Result]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins collecting probe data
func (c *Collector) Start() {
	logging.Info("Collector", "Starting collection with interval "+c.config.Global.Interval.String(), nil)

	// Short delay to allow ICMP socket infrastructure to initialize
	time.Sleep(100 * time.Millisecond)

	// Run initial probe
	c.tryRun()

	ticker := time.NewTicker(c.config.Global.Interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-c.ctx.Done():
				logging.Info("Collector", "Stopping collection", nil)
				return
			case <-ticker.C:
				c.tryRun()
			}
		}
	}()
}

// Stop stops the collector and waits for goroutines to finish
func (c *Collector) Stop() {
	c.cancel()
	c.wg.Wait()

	// Close all subscriber channels
	c.subMu.Lock()
	for ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, ch)
	}
	c.subMu.Unlock()

	logging.Info("Collector", "Stopped", nil)
}

// Refresh starts an immediate check of all targets in the background.
// It returns false without doing anything when a check is already running.
func (c *Collector) Refresh() bool {
	if c.ctx.Err() != nil || !c.running.CompareAndSwap(false, true) {
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.running.Store(false)
		c.runAllProbes()
	}()
	return true
}

// Refreshing reports whether a check is in flight
func (c *Collector) Refreshing() bool {
	return c.running.Load()
}

// tryRun checks all targets unless a refresh is already doing so
func (c *Collector) tryRun() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	defer c.running.Store(false)
	c.runAllProbes()
}

// LastChecked returns when the last check of all targets finished
func (c *Collector) LastChecked() (time.Time, bool) {
	ns := c.lastChecked.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

// Interval returns the time between automatic checks
func (c *Collector) Interval() time.Duration {
	return c.config.Global.Interval
}

// Subscribe returns a channel that receives probe results
func (c *Collector) Subscribe() <-chan probe.Result {
	ch := make(chan probe.Result, 100) // Buffered to prevent blocking

	c.subMu.Lock()
	c.subscribers[ch] = struct{}{}
	c.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber
func (c *Collector) Unsubscribe(ch <-chan probe.Result) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for subCh := range c.subscribers {
		if subCh == ch {
			close(subCh)
			delete(c.subscribers, subCh)
			return
		}
	}
}

// GetStats returns current statistics for a target
func (c *Collector) GetStats(targetName string) *storage.Stats {
	return c.memory.GetStats(targetName)
}

// GetAllStats returns statistics for all targets
func (c *Collector) GetAllStats() map[string]*storage.Stats {
	return c.memory.GetAllStats()
}

// GetHistory returns the player counts of the last N samples for a target
func (c *Collector) GetHistory(targetName string, count int) []float64 {
	return c.memory.GetHistory(targetName, count)
}

// GetTargets returns all target configurations
func (c *Collector) GetTargets() []config.Target {
	return c.config.Targets
}

// OverallStatus folds the latest status of every target into one value
func (c *Collector) OverallStatus() Health {
	online, offline := 0, 0
	for _, t := range c.config.Targets {
		switch c.memory.GetStats(t.Name).Status {
		case uptime.StatusOnline:
			online++
		case uptime.StatusOffline:
			offline++
		}
	}

	switch {
	case online == 0 && offline == 0:
		return HealthChecking
	case offline == 0:
		return HealthOnline
	case online == 0:
		return HealthOffline
	default:
		return HealthDegraded
	}
}

// History returns the samples of a target in (from, to].
// The in-memory buffer answers when it reaches back far enough,
// persistent storage otherwise.
func (c *Collector) History(targetName string, from, to time.Time) ([]uptime.Sample, error) {
	oldest, ok := c.memory.Oldest(targetName)
	if c.storage == nil || (ok && !oldest.After(from)) {
		return trimAfter(c.memory.Samples(targetName, from), to), nil
	}

	points, err := c.storage.Fetch(targetName, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", targetName, err)
	}
	return storage.Samples(points), nil
}

// Chart computes the uptime chart of a target for a range ending at now
func (c *Collector) Chart(targetName string, r uptime.Range, now time.Time) (uptime.Chart, error) {
	return c.ChartN(targetName, r, now, uptime.DefaultBucketCount)
}

// ChartN is Chart with a custom number of buckets
func (c *Collector) ChartN(targetName string, r uptime.Range, now time.Time, buckets int) (uptime.Chart, error) {
	history, err := c.History(targetName, now.Add(-r.Duration()), now)
	if err != nil {
		return uptime.Chart{}, err
	}
	return uptime.SummarizeN(history, r, now, buckets)
}

// trimAfter drops samples newer than to
func trimAfter(samples []uptime.Sample, to time.Time) []uptime.Sample {
	for i, s := range samples {
		if s.Timestamp.After(to) {
			return samples[:i]
		}
	}
	return samples
}

// runAllProbes executes all probes concurrently
func (c *Collector) runAllProbes() {
	var wg sync.WaitGroup

	for _, p := range c.probes {
		wg.Add(1)
		go func(p probe.Probe) {
			defer wg.Done()
			c.runProbe(p)
		}(p)
	}

	wg.Wait()
	c.lastChecked.Store(time.Now().UnixNano())
}

// runProbe executes a single probe and handles the result
func (c *Collector) runProbe(p probe.Probe) {
	// Bursts get one extra second on top of the probe timeout
	ctx, cancel := context.WithTimeout(c.ctx, c.config.Global.Timeout+time.Second)
	defer cancel()

	c.record(p.Execute(ctx))
}

// record stores a result and hands it to subscribers
func (c *Collector) record(result probe.Result) {
	c.memory.Write(result)

	if c.storage != nil {
		if err := c.storage.Write(result); err != nil {
			logging.Error("Collector", "Failed to write to storage for "+result.Target, err)
		}
	}

	c.broadcast(result)

	logging.StatusResult(result.Target, result.Online, result.Players, result.MaxPlayers, result.LatencyMs, result.Error)
}

// broadcast sends a probe result to all subscribers
func (c *Collector) broadcast(result probe.Result) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for ch := range c.subscribers {
		select {
		case ch <- result:
		default:
			// Channel buffer full, skip to prevent blocking
		}
	}
}
