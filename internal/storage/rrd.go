package storage

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/ziutek/rrd"
)

// Data sources of every server database, in file order
var dataSources = []string{"online", "players", "latency"}

const (
	dsOnline = iota
	dsPlayers
	dsLatency
)

// maxNameLength bounds the file name derived from a server name
const maxNameLength = 200

// RRDStorage keeps one round robin database per server under dataDir
type RRDStorage struct {
	dataDir     string
	step        time.Duration
	xff         float64
	consolidate string // AVERAGE, MIN, MAX or LAST
	archives    []archive

	mu       sync.Mutex
	updaters map[string]*rrd.Updater
}

// NewRRDStorage creates the storage. retention uses the
// "resolution:duration,..." form, aggregation is one of average, min, max
// or last.
func NewRRDStorage(dataDir string, step time.Duration, retention string, xff float64, aggregation string) (*RRDStorage, error) {
	archives, err := parseRetention(retention, step)
	if err != nil {
		return nil, fmt.Errorf("failed to parse retentions: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	consolidate := strings.ToUpper(aggregation)
	if consolidate == "" {
		consolidate = "AVERAGE"
	}

	return &RRDStorage{
		dataDir:     dataDir,
		step:        step,
		xff:         xff,
		consolidate: consolidate,
		archives:    archives,
		updaters:    make(map[string]*rrd.Updater),
	}, nil
}

// Write stores one result. Offline results record zero players and an
// unknown latency.
func (s *RRDStorage) Write(result probe.Result) error {
	u, err := s.updater(result.Target)
	if err != nil {
		return err
	}

	online, players, latency := 0.0, 0.0, math.NaN()
	if result.Online {
		online = 1
		players = float64(result.Players)
		latency = result.LatencyMs
	}
	return u.Update(result.Timestamp, online, players, latency)
}

// updater returns the cached updater of a server, creating its database on
// first use
func (s *RRDStorage) updater(target string) (*rrd.Updater, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.updaters[target]; ok {
		return u, nil
	}

	path := s.pathFor(target)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.create(path); err != nil {
			return nil, fmt.Errorf("failed to create RRD file: %w", err)
		}
	}

	u := rrd.NewUpdater(path)
	s.updaters[target] = u
	return u, nil
}

// Fetch returns the consolidated rows of a server between from and to.
// A server without a database yields no rows.
func (s *RRDStorage) Fetch(target string, from, to time.Time) ([]DataPoint, error) {
	path := s.pathFor(target)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return []DataPoint{}, nil
	}

	res, err := rrd.Fetch(path, s.consolidate, from, to, s.resolutionFor(to.Sub(from)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data: %w", err)
	}
	defer res.FreeValues()

	if len(res.DsNames) < len(dataSources) {
		return nil, fmt.Errorf("unexpected data source count: %d (expected %d)", len(res.DsNames), len(dataSources))
	}

	points := make([]DataPoint, res.RowCnt)
	for row := range points {
		points[row] = DataPoint{
			Timestamp: res.Start.Add(time.Duration(row) * res.Step),
			Online:    res.ValueAt(dsOnline, row),
			Players:   res.ValueAt(dsPlayers, row),
			LatencyMs: res.ValueAt(dsLatency, row),
		}
	}
	return points, nil
}

// resolutionFor picks the finest archive that covers span so a query reads
// a single archive. Spans beyond every archive use the coarsest one.
func (s *RRDStorage) resolutionFor(span time.Duration) time.Duration {
	best := s.step
	for i, a := range s.archives {
		if a.span(s.step) >= span {
			return a.resolution(s.step)
		}
		if i == 0 || a.resolution(s.step) > best {
			best = a.resolution(s.step)
		}
	}
	return best
}

// Close drops the cached updaters
func (s *RRDStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.updaters)
	return nil
}

// create writes a new database with the online, players and latency
// gauges. A sample older than three steps counts as unknown.
func (s *RRDStorage) create(path string) error {
	heartbeat := int((3 * s.step).Seconds())

	c := rrd.NewCreator(path, time.Now().Add(-s.step), uint(s.step.Seconds()))
	for _, a := range s.archives {
		c.RRA(s.consolidate, s.xff, a.steps, a.rows)
	}
	c.DS(dataSources[dsOnline], "GAUGE", heartbeat, 0, 1)
	c.DS(dataSources[dsPlayers], "GAUGE", heartbeat, 0, "U")
	c.DS(dataSources[dsLatency], "GAUGE", heartbeat, 0, "U")

	return c.Create(false)
}

var (
	unsafeNameChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\s]+`)
	repeatedSeparator = regexp.MustCompile(`_{2,}`)
)

// FileName maps a server name to the portable base name of its database.
// Different names can share a file name ("Lobby" and "lobby"), so configs
// are checked for collisions before storage is opened.
func FileName(target string) string {
	name := strings.ToLower(unsafeNameChars.ReplaceAllString(target, "_"))
	name = strings.Trim(repeatedSeparator.ReplaceAllString(name, "_"), "_")
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	if name == "" {
		name = "unnamed"
	}
	return name + ".rrd"
}

// pathFor returns the database path of a server
func (s *RRDStorage) pathFor(target string) string {
	return filepath.Join(s.dataDir, FileName(target))
}
