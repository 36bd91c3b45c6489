package tui

import (
	"errors"
	"time"

	"github.com/wellsgz/mcpulse/internal/collector"
	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/ipc"
	"github.com/wellsgz/mcpulse/internal/notify"
	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

var (
	errRefreshInProgress = errors.New("a check is already in progress")
	errNoNotifier        = errors.New("notifications are not available")
)

// Header is the dashboard state shown above the server list
type Header struct {
	Status        string
	LastChecked   time.Time
	Refreshing    bool
	Interval      time.Duration
	Notifications bool
	Address       string
	Community     config.CommunityConfig
}

// Source feeds the dashboard, either from an in-process collector or from
// a daemon over IPC
type Source interface {
	Results() <-chan probe.Result
	Changes() <-chan notify.Event
	Stats(target string) (*storage.Stats, error)
	Chart(target string, r uptime.Range, now time.Time) (uptime.Chart, error)
	Status() (Header, error)
	Refresh() error
	SetNotifications(enabled bool) (bool, error)
}

// LocalSource reads straight from a collector running in this process
type LocalSource struct {
	collector *collector.Collector
	notifier  *notify.Notifier
	config    *config.Config
	results   <-chan probe.Result
	changes   chan notify.Event
}

// NewLocalSource subscribes to the collector and, when n is non-nil, to its
// status change alerts
func NewLocalSource(c *collector.Collector, n *notify.Notifier, cfg *config.Config) *LocalSource {
	s := &LocalSource{
		collector: c,
		notifier:  n,
		config:    cfg,
		results:   c.Subscribe(),
		changes:   make(chan notify.Event, 16),
	}
	if n != nil {
		n.AddSink(notify.SinkFunc(func(ev notify.Event) {
			select {
			case s.changes <- ev:
			default:
			}
		}))
	}
	return s
}

func (s *LocalSource) Results() <-chan probe.Result { return s.results }
func (s *LocalSource) Changes() <-chan notify.Event { return s.changes }

func (s *LocalSource) Stats(target string) (*storage.Stats, error) {
	return s.collector.GetStats(target), nil
}

func (s *LocalSource) Chart(target string, r uptime.Range, now time.Time) (uptime.Chart, error) {
	return s.collector.Chart(target, r, now)
}

func (s *LocalSource) Status() (Header, error) {
	h := Header{
		Status:    string(s.collector.OverallStatus()),
		Interval:  s.collector.Interval(),
		Address:   s.config.Server.Address,
		Community: s.config.Community,
	}
	h.Refreshing = s.collector.Refreshing()
	if t, ok := s.collector.LastChecked(); ok {
		h.LastChecked = t
	}
	if s.notifier != nil {
		h.Notifications = s.notifier.Enabled()
	}
	return h, nil
}

func (s *LocalSource) Refresh() error {
	if !s.collector.Refresh() {
		return errRefreshInProgress
	}
	return nil
}

func (s *LocalSource) SetNotifications(enabled bool) (bool, error) {
	if s.notifier == nil {
		return false, errNoNotifier
	}
	s.notifier.SetEnabled(enabled)
	return s.notifier.Enabled(), nil
}

// Close stops the result subscription
func (s *LocalSource) Close() {
	s.collector.Unsubscribe(s.results)
}

// IPCSource talks to a running daemon. Charts are bucketed on this side
// from the raw history so the daemon only ships samples.
type IPCSource struct {
	client *ipc.Client
}

// NewIPCSource wraps a connected client
func NewIPCSource(client *ipc.Client) *IPCSource {
	return &IPCSource{client: client}
}

func (s *IPCSource) Results() <-chan probe.Result { return s.client.Results() }
func (s *IPCSource) Changes() <-chan notify.Event { return s.client.Changes() }

func (s *IPCSource) Stats(target string) (*storage.Stats, error) {
	return s.client.GetStats(target)
}

func (s *IPCSource) Chart(target string, r uptime.Range, now time.Time) (uptime.Chart, error) {
	samples, err := s.client.GetHistory(target, now.Add(-r.Duration()), now)
	if err != nil {
		return uptime.Chart{}, err
	}
	return uptime.Summarize(samples, r, now), nil
}

func (s *IPCSource) Status() (Header, error) {
	resp, err := s.client.GetStatus()
	if err != nil {
		return Header{}, err
	}
	return Header{
		Status:        resp.Status,
		LastChecked:   resp.LastChecked,
		Refreshing:    resp.Refreshing,
		Interval:      resp.Interval,
		Notifications: resp.Notifications,
		Address:       resp.Address,
		Community:     resp.Community,
	}, nil
}

func (s *IPCSource) Refresh() error {
	return s.client.Refresh()
}

func (s *IPCSource) SetNotifications(enabled bool) (bool, error) {
	return s.client.SetNotifications(enabled)
}
