package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// archive is one round robin archive: consolidated points of a fixed
// resolution kept for a fixed number of rows
type archive struct {
	steps int // primary data points per consolidated point
	rows  int
}

// resolution returns the width of one consolidated point
func (a archive) resolution(step time.Duration) time.Duration {
	return time.Duration(a.steps) * step
}

// span returns how far back the archive reaches
func (a archive) span(step time.Duration) time.Duration {
	return a.resolution(step) * time.Duration(a.rows)
}

// parseRetention turns "10s:1d,1m:7d,1h:90d" into archives for a database
// updated every step
func parseRetention(retention string, step time.Duration) ([]archive, error) {
	var archives []archive
	for _, field := range strings.Split(retention, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		res, keep, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("invalid retention %q: want resolution:duration", field)
		}
		resolution, err := parseSpan(res)
		if err != nil {
			return nil, fmt.Errorf("invalid resolution in %q: %w", field, err)
		}
		duration, err := parseSpan(keep)
		if err != nil {
			return nil, fmt.Errorf("invalid duration in %q: %w", field, err)
		}

		archives = append(archives, archive{
			steps: max(int(resolution/step), 1),
			rows:  max(int(duration/resolution), 1),
		})
	}

	if len(archives) == 0 {
		return nil, errors.New("no retentions configured")
	}
	return archives, nil
}

// parseSpan is time.ParseDuration with an extra "d" suffix for days
func parseSpan(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}
