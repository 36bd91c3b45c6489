// Package notify turns probe results into online/offline alerts.
package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wellsgz/mcpulse/internal/logging"
	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// Event describes a target going online or offline
type Event struct {
	Target  string        `json:"target"`
	From    uptime.Status `json:"from"`
	To      uptime.Status `json:"to"`
	At      time.Time     `json:"at"`
	Players int           `json:"players"`
	Error   string        `json:"error,omitempty"`
}

// Message renders the event as a one-line alert
func (e Event) Message() string {
	if e.To == uptime.StatusOnline {
		return fmt.Sprintf("%s is back online (%d players)", e.Target, e.Players)
	}
	if e.Error != "" {
		return fmt.Sprintf("%s went offline: %s", e.Target, e.Error)
	}
	return fmt.Sprintf("%s went offline", e.Target)
}

// Sink receives status change events
type Sink interface {
	Notify(ev Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ev Event)

// Notify calls f(ev)
func (f SinkFunc) Notify(ev Event) {
	f(ev)
}

// Notifier tracks the status of every target and delivers an Event to its
// sinks on each transition. Transitions are always logged; sinks only
// receive them while alerts are enabled.
type Notifier struct {
	enabled atomic.Bool

	last map[string]uptime.Status
	mu   sync.Mutex

	sinks  []Sink
	sinkMu sync.RWMutex
}

// New creates a notifier
func New(enabled bool, sinks ...Sink) *Notifier {
	n := &Notifier{
		last:  make(map[string]uptime.Status),
		sinks: sinks,
	}
	n.enabled.Store(enabled)
	return n
}

// AddSink registers another destination for events
func (n *Notifier) AddSink(s Sink) {
	n.sinkMu.Lock()
	n.sinks = append(n.sinks, s)
	n.sinkMu.Unlock()
}

// Enabled reports whether alerts are delivered
func (n *Notifier) Enabled() bool {
	return n.enabled.Load()
}

// SetEnabled turns alert delivery on or off
func (n *Notifier) SetEnabled(enabled bool) {
	if n.enabled.Swap(enabled) != enabled {
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		logging.Info("Notify", "Alerts "+state, nil)
	}
}

// Observe records a result and returns the transition it caused, if any.
// The first result for a target only sets its baseline.
func (n *Notifier) Observe(result probe.Result) (Event, bool) {
	status := result.Status()

	n.mu.Lock()
	prev, seen := n.last[result.Target]
	n.last[result.Target] = status
	n.mu.Unlock()

	if !seen || prev == status {
		return Event{}, false
	}

	ev := Event{
		Target:  result.Target,
		From:    prev,
		To:      status,
		At:      result.Timestamp,
		Players: result.Players,
		Error:   result.Error,
	}

	logging.StatusChange(ev.Target, string(ev.From), string(ev.To))
	if n.Enabled() {
		n.dispatch(ev)
	}
	return ev, true
}

// Run consumes results until the channel closes or ctx is done
func (n *Notifier) Run(ctx context.Context, results <-chan probe.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			n.Observe(result)
		}
	}
}

func (n *Notifier) dispatch(ev Event) {
	n.sinkMu.RLock()
	defer n.sinkMu.RUnlock()

	for _, s := range n.sinks {
		s.Notify(ev)
	}
}
