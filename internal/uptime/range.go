package uptime

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownRange is returned by ParseRange for an unrecognised range key
var ErrUnknownRange = errors.New("unknown time range")

// Range is the lookback window of the uptime chart
type Range int

const (
	Range30Min Range = iota
	Range1Hour
	Range6Hours
	Range24Hours
)

// DefaultRange is the range selected when nothing else is asked for
const DefaultRange = Range1Hour

// rangeInfo holds the data associated with each range
type rangeInfo struct {
	key      string
	duration time.Duration
	start    string
}

var rangeTable = [...]rangeInfo{
	Range30Min:   {key: "30min", duration: 30 * time.Minute, start: "30m ago"},
	Range1Hour:   {key: "1h", duration: time.Hour, start: "1h ago"},
	Range6Hours:  {key: "6h", duration: 6 * time.Hour, start: "6h ago"},
	Range24Hours: {key: "24h", duration: 24 * time.Hour, start: "24h ago"},
}

// Ranges returns all ranges in display order
func Ranges() []Range {
	return []Range{Range30Min, Range1Hour, Range6Hours, Range24Hours}
}

// Valid reports whether r is one of the known ranges
func (r Range) Valid() bool {
	return r >= Range30Min && r <= Range24Hours
}

// String returns the range key ("30min", "1h", "6h", "24h")
func (r Range) String() string {
	if !r.Valid() {
		return "unknown"
	}
	return rangeTable[r].key
}

// Duration returns the length of the window covered by the range
func (r Range) Duration() time.Duration {
	if !r.Valid() {
		return 0
	}
	return rangeTable[r].duration
}

// Labels returns the axis labels for the start and end of the chart
func (r Range) Labels() (start, end string) {
	if !r.Valid() {
		return "", "Now"
	}
	return rangeTable[r].start, "Now"
}

// Next returns the next range in the cycle
func (r Range) Next() Range {
	if !r.Valid() || r == Range24Hours {
		return Range30Min
	}
	return r + 1
}

// ParseRange converts a range key into a Range.
// An empty key yields DefaultRange.
func ParseRange(key string) (Range, error) {
	if key == "" {
		return DefaultRange, nil
	}
	for _, r := range Ranges() {
		if rangeTable[r].key == key {
			return r, nil
		}
	}
	return DefaultRange, fmt.Errorf("%w: %q (want one of 30min, 1h, 6h, 24h)", ErrUnknownRange, key)
}

// MarshalText implements encoding.TextMarshaler
func (r Range) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRange, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
