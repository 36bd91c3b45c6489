package storage

import (
	"strings"
	"testing"
	"time"
)

func TestParseRetention(t *testing.T) {
	tests := []struct {
		name      string
		retention string
		want      []archive
		wantErr   bool
	}{
		{"day at base step", "10s:1d", []archive{{steps: 1, rows: 8640}}, false},
		{"default", "10s:1d,1m:7d,1h:90d", []archive{{1, 8640}, {6, 10080}, {360, 2160}}, false},
		{"spaces and trailing comma", " 10s:1d , 1m:7d ,", []archive{{1, 8640}, {6, 10080}}, false},
		{"resolution below step", "1s:1h", []archive{{1, 3600}}, false},
		{"empty", "", nil, true},
		{"missing duration", "10s", nil, true},
		{"bad resolution", "abc:1d", nil, true},
		{"bad days", "10s:xd", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRetention(tt.retention, 10*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRetention(%q) error = %v, wantErr %v", tt.retention, err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseRetention(%q) = %v, want %v", tt.retention, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("archive %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseSpan(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"10s", 10 * time.Second, false},
		{"1m", time.Minute, false},
		{"1h", time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"90d", 90 * 24 * time.Hour, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0d", 0, true},
		{"-5m", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSpan(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSpan(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseSpan(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolutionFor(t *testing.T) {
	archives, err := parseRetention("10s:1d,1m:7d,1h:90d", 10*time.Second)
	if err != nil {
		t.Fatalf("parseRetention() error = %v", err)
	}
	s := &RRDStorage{step: 10 * time.Second, archives: archives}

	tests := []struct {
		name string
		span time.Duration
		want time.Duration
	}{
		{"30min chart", 30 * time.Minute, 10 * time.Second},
		{"6h chart", 6 * time.Hour, 10 * time.Second},
		{"24h chart", 24 * time.Hour, 10 * time.Second},
		{"25 hours", 25 * time.Hour, time.Minute},
		{"8 days", 8 * 24 * time.Hour, time.Hour},
		{"beyond retention", 365 * 24 * time.Hour, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.resolutionFor(tt.span); got != tt.want {
				t.Errorf("resolutionFor(%v) = %v, want %v", tt.span, got, tt.want)
			}
		})
	}

	bare := &RRDStorage{step: 10 * time.Second}
	if got := bare.resolutionFor(time.Hour); got != 10*time.Second {
		t.Errorf("resolutionFor() without archives = %v, want base step", got)
	}
}

func TestPathFor(t *testing.T) {
	s := &RRDStorage{dataDir: "/data"}

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"spaces", "MCNP Network", "/data/mcnp_network.rrd"},
		{"slash", "Survival/Main", "/data/survival_main.rrd"},
		{"backslash", "Survival\\Main", "/data/survival_main.rrd"},
		{"reserved characters", "Lobby<>:\"?*|", "/data/lobby.rrd"},
		{"tabs and runs", "Sky  Block\tEU", "/data/sky_block_eu.rrd"},
		{"nothing left", "???", "/data/unnamed.rrd"},
		{"long name", strings.Repeat("a", 300), "/data/" + strings.Repeat("a", maxNameLength) + ".rrd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.pathFor(tt.target); got != tt.want {
				t.Errorf("pathFor(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"Lobby", "lobby", true},
		{"Survival EU", "survival_eu", true},
		{"Hub", "Hub?", true},
		{"Survival EU", "Survival NA", false},
		{"Lobby 1", "Lobby 2", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			if got := FileName(tt.a) == FileName(tt.b); got != tt.same {
				t.Errorf("FileName(%q) = %q, FileName(%q) = %q, same = %v, want %v",
					tt.a, FileName(tt.a), tt.b, FileName(tt.b), got, tt.same)
			}
		})
	}
}

func TestFetchMissingFile(t *testing.T) {
	s, err := NewRRDStorage(t.TempDir(), 10*time.Second, "10s:1d", 0.5, "average")
	if err != nil {
		t.Fatalf("NewRRDStorage() error = %v", err)
	}
	defer s.Close()

	now := time.Now()
	points, err := s.Fetch("Lobby", now.Add(-time.Hour), now)
	if err != nil || len(points) != 0 {
		t.Errorf("Fetch() = %v, %v; want no rows", points, err)
	}
}
