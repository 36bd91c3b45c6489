package tui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/notify"
	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	results chan probe.Result
	changes chan notify.Event
	history []uptime.Sample

	mu            sync.Mutex
	refreshErr    error
	refreshes     int
	notifications bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		results: make(chan probe.Result, 4),
		changes: make(chan notify.Event, 4),
	}
}

func (s *fakeSource) Results() <-chan probe.Result { return s.results }
func (s *fakeSource) Changes() <-chan notify.Event { return s.changes }

func (s *fakeSource) Stats(target string) (*storage.Stats, error) {
	return &storage.Stats{Target: target, Status: uptime.StatusOnline, Players: 5, MaxPlayers: 20, LatencyMs: 42}, nil
}

func (s *fakeSource) Chart(target string, r uptime.Range, now time.Time) (uptime.Chart, error) {
	return uptime.Summarize(s.history, r, now), nil
}

func (s *fakeSource) Status() (Header, error) {
	return Header{Status: "online", Interval: 10 * time.Second, Notifications: s.notifications}, nil
}

func (s *fakeSource) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	return s.refreshErr
}

func (s *fakeSource) SetNotifications(enabled bool) (bool, error) {
	s.notifications = enabled
	return enabled, nil
}

func newTestModel(src Source) Model {
	m := NewModel(src, []config.Target{
		{Name: "Lobby", Host: "play.example.net", Port: 25565, Probe: "minecraft"},
		{Name: "Survival", Host: "survival.example.net", Port: 25565, Probe: "minecraft"},
	})
	m.now = func() time.Time { return testNow }
	m.width = 120
	m.height = 40
	m.ready = true
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(newFakeSource())

	for _, target := range m.targets {
		if target.Range != uptime.DefaultRange {
			t.Errorf("%s: Range = %v, want %v", target.Config.Name, target.Range, uptime.DefaultRange)
		}
		if !target.Loading {
			t.Errorf("%s: Loading = false before first chart", target.Config.Name)
		}
	}
	if m.header.Status != "checking" {
		t.Errorf("header status = %q, want checking", m.header.Status)
	}
}

func TestApplyResult(t *testing.T) {
	m := newTestModel(newFakeSource())

	if m.applyResult(probe.Result{Target: "Unknown"}) {
		t.Error("applyResult() = true for an unknown server")
	}

	m.applyResult(probe.Result{Target: "Lobby", Online: true, Players: 7})
	m.applyResult(probe.Result{Target: "Lobby", Online: false})

	got := m.targets[0].History
	if len(got) != 2 || got[0] != 7 || got[1] != -1 {
		t.Errorf("History = %v, want [7 -1]", got)
	}

	for i := 0; i < historyLength+5; i++ {
		m.applyResult(probe.Result{Target: "Survival", Online: true, Players: i})
	}
	if n := len(m.targets[1].History); n != historyLength {
		t.Errorf("History length = %d, want %d", n, historyLength)
	}
}

func TestRangeKeys(t *testing.T) {
	tests := []struct {
		key  string
		want uptime.Range
	}{
		{"1", uptime.Range30Min},
		{"2", uptime.Range1Hour},
		{"3", uptime.Range6Hours},
		{"4", uptime.Range24Hours},
		{"tab", uptime.Range6Hours},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			src := newFakeSource()
			m := newTestModel(src)
			m, _ = update(t, m, key("enter"))
			if m.currentView != DetailView {
				t.Fatal("enter did not open the detail view")
			}

			m, cmd := update(t, m, key(tt.key))
			if got := m.SelectedTarget().Range; got != tt.want {
				t.Errorf("Range = %v, want %v", got, tt.want)
			}
			if cmd == nil {
				t.Fatal("range change returned no command")
			}

			raw := cmd()
			msg, ok := raw.(ChartMsg)
			if !ok {
				t.Fatalf("command produced %T, want ChartMsg", raw)
			}
			if msg.Range != tt.want || len(msg.Chart.Buckets) != uptime.DefaultBucketCount {
				t.Errorf("ChartMsg range = %v with %d buckets", msg.Range, len(msg.Chart.Buckets))
			}
		})
	}
}

func TestStaleChartIgnored(t *testing.T) {
	m := newTestModel(newFakeSource())
	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, key("4"))

	stale := uptime.Summarize(nil, uptime.Range1Hour, testNow)
	m, _ = update(t, m, ChartMsg{Target: "Lobby", Range: uptime.Range1Hour, Chart: stale})
	if m.targets[0].Chart != nil {
		t.Error("chart for a previous range was stored")
	}

	fresh := uptime.Summarize(nil, uptime.Range24Hours, testNow)
	m, _ = update(t, m, ChartMsg{Target: "Lobby", Range: uptime.Range24Hours, Chart: fresh})
	if m.targets[0].Chart == nil || m.targets[0].Loading {
		t.Error("chart for the selected range was not stored")
	}
	if m.targets[0].Chart.Uptime != "100.0" {
		t.Errorf("Uptime = %q, want 100.0 for an empty history", m.targets[0].Chart.Uptime)
	}
}

func TestResultMsgUpdatesServer(t *testing.T) {
	src := newFakeSource()
	m := newTestModel(src)

	m, cmd := update(t, m, ResultMsg(probe.Result{Target: "Survival", Timestamp: testNow, Online: true, Players: 3}))
	if len(m.targets[1].History) != 1 {
		t.Fatalf("History = %v", m.targets[1].History)
	}
	if cmd == nil {
		t.Fatal("no follow-up commands")
	}

	raw := cmd()
	batch, ok := raw.(tea.BatchMsg)
	if !ok {
		t.Fatalf("command produced %T, want tea.BatchMsg", raw)
	}
	// the first command waits on the feed; run the rest
	for _, c := range batch[1:] {
		m, _ = update(t, m, c())
	}
	if m.targets[1].Stats == nil || m.targets[1].Stats.Players != 5 {
		t.Errorf("Stats = %+v", m.targets[1].Stats)
	}
	if m.targets[1].Chart == nil {
		t.Error("chart not recomputed after result")
	}
}

func TestRefreshAndAlertKeys(t *testing.T) {
	src := newFakeSource()
	m := newTestModel(src)

	m, cmd := update(t, m, key("r"))
	m, _ = update(t, m, cmd())
	if src.refreshes != 1 || !m.header.Refreshing || m.err != nil {
		t.Errorf("refreshes = %d, refreshing = %v, err = %v", src.refreshes, m.header.Refreshing, m.err)
	}

	src.refreshErr = errRefreshInProgress
	m, cmd = update(t, m, key("r"))
	m, _ = update(t, m, cmd())
	if !errors.Is(m.err, errRefreshInProgress) {
		t.Errorf("err = %v, want errRefreshInProgress", m.err)
	}

	m, cmd = update(t, m, key("n"))
	m, _ = update(t, m, cmd())
	if !m.header.Notifications || !src.notifications {
		t.Error("n did not enable alerts")
	}
	m, cmd = update(t, m, key("n"))
	m, _ = update(t, m, cmd())
	if m.header.Notifications {
		t.Error("second n did not disable alerts")
	}
}

func TestFeedClosed(t *testing.T) {
	src := newFakeSource()
	close(src.results)

	msg := waitForResult(src.results)()
	if _, ok := msg.(feedClosedMsg); !ok {
		t.Fatalf("waitForResult on closed feed = %T", msg)
	}

	m := newTestModel(src)
	m, cmd := update(t, m, msg)
	if cmd != nil || !errors.Is(m.err, errFeedClosed) {
		t.Errorf("err = %v, cmd = %v", m.err, cmd)
	}
}

func TestViews(t *testing.T) {
	src := newFakeSource()
	src.history = []uptime.Sample{
		{Timestamp: testNow.Add(-30 * time.Minute), Status: uptime.StatusOnline, Players: 4},
		{Timestamp: testNow.Add(-10 * time.Minute), Status: uptime.StatusOffline},
	}
	m := newTestModel(src)

	m, _ = update(t, m, HeaderMsg{Header: Header{
		Status:      "degraded",
		LastChecked: testNow,
		Interval:    10 * time.Second,
		Address:     ":8080",
		Community:   config.CommunityConfig{Name: "Discord", InviteURL: "https://discord.gg/mcnpnetwork"},
	}})
	m, _ = update(t, m, ChangeMsg(notify.Event{Target: "Lobby", From: uptime.StatusOnline, To: uptime.StatusOffline, At: testNow}))
	m, _ = update(t, m, fetchChart(src, "Lobby", uptime.Range1Hour, testNow)())

	list := m.View()
	for _, want := range []string{"mcpulse", "DEGRADED", "auto-updates every 10s", "Lobby went offline", "50.0%", "Survival"} {
		if !strings.Contains(list, want) {
			t.Errorf("list view missing %q", want)
		}
	}

	m, _ = update(t, m, key("enter"))
	detail := m.View()
	for _, want := range []string{"Lobby (play.example.net:25565)", "1h ago", "Now", "50.0% uptime", "Join our Discord", "https://discord.gg/mcnpnetwork"} {
		if !strings.Contains(detail, want) {
			t.Errorf("detail view missing %q", want)
		}
	}

	m, _ = update(t, m, key("esc"))
	if m.currentView != ListView {
		t.Error("esc did not return to the list")
	}
}
